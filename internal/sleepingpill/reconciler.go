package sleepingpill

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"javazone-calendar/contracts/db"
	"javazone-calendar/pkg/logger"
	"javazone-calendar/pkg/metrics"
	"javazone-calendar/pkg/outbox"
	"javazone-calendar/pkg/trace"
	"javazone-calendar/pkg/util"
)

// ErrSyncInProgress is returned when another reconciliation holds the run lock.
var ErrSyncInProgress = errors.New("session sync already in progress")

const lockName = "sessions:sync"

// SyncStore is the persistence the reconciler reads and writes.
type SyncStore interface {
	// ListSessions returns every stored session with the emails of its users.
	ListSessions(ctx context.Context) ([]*db.Session, error)
	// CommitSync applies the batch atomically.
	CommitSync(ctx context.Context, batch *db.SyncBatch) error
}

// Locker serializes runs across processes.
type Locker interface {
	Acquire(ctx context.Context, name string) (func(), error)
}

// Report counts what one pass changed.
type Report struct {
	Added    int `json:"added"`
	Changed  int `json:"changed"`
	Deleted  int `json:"deleted"`
	Enqueued int `json:"enqueued"`
}

// Reconciler mirrors the upstream session list into storage and queues
// UPDATE and CANCEL mails for users of changed and removed sessions.
type Reconciler struct {
	fetcher     Fetcher
	store       SyncStore
	fingerprint *Fingerprinter
	year        int
	lock        Locker
	logger      *zap.Logger
	now         func() time.Time
}

func NewReconciler(fetcher Fetcher, store SyncStore, fingerprint *Fingerprinter, year int, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		fetcher:     fetcher,
		store:       store,
		fingerprint: fingerprint,
		year:        year,
		logger:      logger,
		now:         time.Now,
	}
}

// WithLock makes runs mutually exclusive.
func (r *Reconciler) WithLock(l Locker) *Reconciler {
	r.lock = l
	return r
}

// WithClock replaces the time source used for scheduled_at.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

// UpdateSessions runs one reconciliation pass. On error nothing is written.
func (r *Reconciler) UpdateSessions(ctx context.Context) (Report, error) {
	log := logger.WithTrace(ctx, r.logger)

	if r.lock != nil {
		release, err := r.lock.Acquire(ctx, lockName)
		if err != nil {
			if errors.Is(err, util.ErrLockHeld) {
				metrics.IncrementSyncRun("locked")
				return Report{}, ErrSyncInProgress
			}
			return Report{}, fmt.Errorf("failed to acquire sync lock: %w", err)
		}
		defer release()
	}

	log.Info("Updating sessions", zap.Int("year", r.year))

	report, err := r.run(ctx)
	if err != nil {
		metrics.IncrementSyncRun("failed")
		log.Error("Session sync failed", zap.Error(err))
		return Report{}, err
	}

	metrics.IncrementSyncRun("success")
	metrics.RecordSync(report.Added, report.Changed, report.Deleted)
	log.Info("Session sync completed",
		zap.Int("added", report.Added),
		zap.Int("changed", report.Changed),
		zap.Int("deleted", report.Deleted),
		zap.Int("enqueued", report.Enqueued),
	)
	return report, nil
}

func (r *Reconciler) run(ctx context.Context) (Report, error) {
	fetched, err := r.fetcher.Fetch(ctx, r.year)
	if err != nil {
		return Report{}, err
	}

	stored, err := r.store.ListSessions(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load stored sessions: %w", err)
	}

	batch, err := r.plan(ctx, fetched, stored)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Added:    len(batch.Added),
		Changed:  len(batch.Changed),
		Deleted:  len(batch.Deleted),
		Enqueued: len(batch.Entries),
	}
	if batch.Empty() {
		return report, nil
	}

	if err := r.store.CommitSync(ctx, batch); err != nil {
		return Report{}, fmt.Errorf("failed to commit session sync: %w", err)
	}
	return report, nil
}

// plan diffs fetched against stored. Stored sessions missing upstream are
// deleted with a CANCEL per user carrying the last known data; changed ones
// get an UPDATE per user carrying the new data. Added sessions have no users
// and queue nothing.
func (r *Reconciler) plan(ctx context.Context, fetched map[uuid.UUID]Record, stored []*db.Session) (*db.SyncBatch, error) {
	log := logger.WithTrace(ctx, r.logger)
	now := r.now()

	existing := make(map[uuid.UUID]*db.Session, len(stored))
	toDelete := make(map[uuid.UUID]struct{}, len(stored))
	for _, s := range stored {
		existing[s.ID] = s
		toDelete[s.ID] = struct{}{}
	}

	batch := &db.SyncBatch{}

	for _, id := range sortedIDs(fetched) {
		delete(toDelete, id)

		hash, canonical, err := r.fingerprint.Fingerprint(fetched[id])
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", id, err)
		}
		log.Debug("Processing session", zap.String("session_id", id.String()), zap.String("hash", hash))

		current, ok := existing[id]
		switch {
		case !ok:
			batch.Added = append(batch.Added, &db.Session{ID: id, Hash: hash, Data: string(canonical)})
		case current.Hash != hash:
			changed := &db.Session{ID: id, Hash: hash, Data: string(canonical), Users: current.Users}
			batch.Changed = append(batch.Changed, changed)
			for _, email := range current.Users {
				batch.Entries = append(batch.Entries, outbox.NewEntry(email, changed.Data, outbox.ActionUpdate, now))
			}
		}
	}

	deleted := make([]uuid.UUID, 0, len(toDelete))
	for id := range toDelete {
		deleted = append(deleted, id)
	}
	sortUUIDs(deleted)

	for _, id := range deleted {
		gone := existing[id]
		batch.Deleted = append(batch.Deleted, id)
		for _, email := range gone.Users {
			batch.Entries = append(batch.Entries, outbox.NewEntry(email, gone.Data, outbox.ActionCancel, now))
		}
	}

	return batch, nil
}

func sortedIDs(m map[uuid.UUID]Record) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sortUUIDs(ids)
	return ids
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
}

// Start runs UpdateSessions every interval until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) {
	r.logger.Info("Starting scheduled session sync", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Scheduled session sync stopped")
			return
		case <-ticker.C:
			// errors are logged by UpdateSessions
			_, _ = r.UpdateSessions(trace.Ensure(ctx))
		}
	}
}
