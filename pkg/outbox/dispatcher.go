package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"javazone-calendar/pkg/logger"
	"javazone-calendar/pkg/metrics"
	"javazone-calendar/pkg/trace"
	"javazone-calendar/pkg/util"
)

// DefaultBatchSize is the number of entries one drain looks at when the
// caller does not say otherwise.
const DefaultBatchSize = 30

// ErrSkip tells the dispatcher that a handler chose not to deliver an entry.
// The entry is still marked sent so it never comes back.
var ErrSkip = errors.New("outbox: entry skipped")

// ErrDrainInProgress is returned when another process holds the drain lock.
var ErrDrainInProgress = errors.New("outbox: drain already in progress")

const drainLockName = "email_queue:drain"

// HandlerFunc delivers one entry.
type HandlerFunc func(ctx context.Context, e *Entry) error

// Store is the part of the queue the dispatcher reads and updates.
type Store interface {
	Pending(ctx context.Context, limit int) ([]*Entry, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
}

// FailureCounter tracks consecutive handler failures per entry.
type FailureCounter interface {
	RecordFailure(ctx context.Context, id string) (int64, error)
	Clear(ctx context.Context, id string) error
}

// Locker serializes drains across processes.
type Locker interface {
	Acquire(ctx context.Context, name string) (func(), error)
}

// Report summarises one drain.
type Report struct {
	Selected int
	Sent     int
	Skipped  int
	Unknown  int
}

// Dispatcher 负责从 email_queue 中读取条目并交给对应 action 的 handler
type Dispatcher struct {
	store    Store
	logger   *zap.Logger
	failures FailureCounter
	lock     Locker
	now      func() time.Time

	// running holds one token per drain in flight in this process.
	running chan struct{}

	interval  time.Duration
	batchSize int

	mu       sync.RWMutex
	handlers map[Action]HandlerFunc
}

// NewDispatcher 创建新的 Dispatcher
func NewDispatcher(store Store, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		logger:    logger,
		now:       time.Now,
		running:   make(chan struct{}, 1),
		interval:  time.Minute,
		batchSize: DefaultBatchSize,
		handlers:  make(map[Action]HandlerFunc),
	}
}

// WithInterval 设置扫描间隔
func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	d.interval = interval
	return d
}

// WithBatchSize 设置批次大小
func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	if batchSize > 0 {
		d.batchSize = batchSize
	}
	return d
}

// WithFailureCounter enables per-entry failure counting.
func (d *Dispatcher) WithFailureCounter(c FailureCounter) *Dispatcher {
	d.failures = c
	return d
}

// WithLock makes drains take a named lock before selecting entries.
func (d *Dispatcher) WithLock(l Locker) *Dispatcher {
	d.lock = l
	return d
}

// WithClock replaces the time source used for sent_at.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Register binds a handler to an action, replacing any earlier one.
func (d *Dispatcher) Register(action Action, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[action] = h
}

func (d *Dispatcher) handler(action Action) (HandlerFunc, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[action]
	return h, ok
}

// ProcessQueue drains up to limit pending entries in scheduled_at order.
// Each delivered entry is marked sent before the next one is attempted, so
// a failure part way through leaves the earlier ones done. The first handler
// error stops the batch and is returned. Entries whose action has no handler
// are logged and left pending.
//
// Drains in one process run one at a time; a second caller waits and then
// selects what is still pending. With a lock configured, a drain running in
// another process makes this one return ErrDrainInProgress.
func (d *Dispatcher) ProcessQueue(ctx context.Context, limit int) (Report, error) {
	var report Report
	if limit <= 0 {
		limit = d.batchSize
	}

	select {
	case d.running <- struct{}{}:
		defer func() { <-d.running }()
	case <-ctx.Done():
		return report, ctx.Err()
	}

	if d.lock != nil {
		release, err := d.lock.Acquire(ctx, drainLockName)
		if err != nil {
			if errors.Is(err, util.ErrLockHeld) {
				return report, ErrDrainInProgress
			}
			return report, fmt.Errorf("failed to acquire drain lock: %w", err)
		}
		defer release()
	}

	log := logger.WithTrace(ctx, d.logger)

	entries, err := d.store.Pending(ctx, limit)
	if err != nil {
		return report, fmt.Errorf("failed to load pending entries: %w", err)
	}
	report.Selected = len(entries)

	if len(entries) == 0 {
		return report, nil
	}

	log.Debug("Processing email queue", zap.Int("count", len(entries)))

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		h, ok := d.handler(e.Action)
		if !ok {
			log.Error("Unknown email queue action, leaving entry pending",
				zap.String("entry_id", e.ID.String()),
				zap.String("action", string(e.Action)),
			)
			metrics.IncrementProcessed(string(e.Action), "unknown")
			report.Unknown++
			continue
		}

		result := "sent"
		if err := h(ctx, e); err != nil {
			if !errors.Is(err, ErrSkip) {
				d.recordFailure(ctx, log, e)
				metrics.IncrementProcessed(string(e.Action), "failed")
				return report, fmt.Errorf("failed to process entry %s: %w", e.ID, err)
			}
			result = "skipped"
		}

		sentAt := d.now()
		if err := d.store.MarkSent(ctx, e.ID, sentAt); err != nil {
			return report, fmt.Errorf("failed to mark entry %s as sent: %w", e.ID, err)
		}
		e.SentAt = &sentAt
		d.clearFailures(ctx, log, e)

		metrics.IncrementProcessed(string(e.Action), result)
		if result == "skipped" {
			report.Skipped++
		} else {
			report.Sent++
		}

		log.Debug("Email queue entry processed",
			zap.String("entry_id", e.ID.String()),
			zap.String("action", string(e.Action)),
			zap.String("result", result),
		)
	}

	return report, nil
}

func (d *Dispatcher) recordFailure(ctx context.Context, log *zap.Logger, e *Entry) {
	if d.failures == nil {
		return
	}
	count, err := d.failures.RecordFailure(ctx, e.ID.String())
	if err != nil {
		log.Warn("Failed to record entry failure", zap.String("entry_id", e.ID.String()), zap.Error(err))
		return
	}
	log.Warn("Email queue entry failed",
		zap.String("entry_id", e.ID.String()),
		zap.Int64("consecutive_failures", count),
	)
}

func (d *Dispatcher) clearFailures(ctx context.Context, log *zap.Logger, e *Entry) {
	if d.failures == nil {
		return
	}
	if err := d.failures.Clear(ctx, e.ID.String()); err != nil {
		log.Warn("Failed to clear entry failures", zap.String("entry_id", e.ID.String()), zap.Error(err))
	}
}

// Start 启动 Dispatcher（在 goroutine 中运行）
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting email queue processor",
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Email queue processor stopped")
			return
		case <-ticker.C:
			if _, err := d.ProcessQueue(trace.Ensure(ctx), d.batchSize); err != nil && !errors.Is(err, ErrDrainInProgress) {
				d.logger.Error("Email queue drain failed", zap.Error(err))
			}
		}
	}
}
