package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Action is what a queued email tells its recipient about a session.
type Action string

const (
	ActionInvite Action = "INVITE"
	ActionUpdate Action = "UPDATE"
	ActionCancel Action = "CANCEL"
)

// Actions lists every known action.
func Actions() []Action {
	return []Action{ActionInvite, ActionUpdate, ActionCancel}
}

// Valid reports whether a is one of the known actions. Rows read back from
// storage may carry values that are not.
func (a Action) Valid() bool {
	switch a {
	case ActionInvite, ActionUpdate, ActionCancel:
		return true
	}
	return false
}

// ErrEntryNotFound is returned when no entry has the requested id.
var ErrEntryNotFound = errors.New("outbox: entry not found")

// Entry is one row of the email queue: a promise to tell one user about one
// action on one session snapshot. Data is the snapshot taken at enqueue time.
type Entry struct {
	ID          uuid.UUID
	UserEmail   string
	Data        string
	Action      Action
	ScheduledAt time.Time
	SentAt      *time.Time
}

// Repository 提供 email_queue 表的读写
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository 创建新的 Outbox Repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertInTx 在事务中插入队列条目
// Writers must pass the transaction that carries the state change the entry
// reports on, so both commit or neither does.
func (r *Repository) InsertInTx(ctx context.Context, tx pgx.Tx, e *Entry) error {
	query := `
		INSERT INTO email_queue (id, user_email, data, action, scheduled_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.Exec(ctx, query,
		e.ID,
		e.UserEmail,
		e.Data,
		string(e.Action),
		e.ScheduledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert email queue entry: %w", err)
	}

	return nil
}

// Pending returns up to limit unsent entries, oldest scheduled_at first.
func (r *Repository) Pending(ctx context.Context, limit int) ([]*Entry, error) {
	query := `
		SELECT id, user_email, data, action, scheduled_at, sent_at
		FROM email_queue
		WHERE sent_at IS NULL
		ORDER BY scheduled_at ASC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// MarkSent 标记条目为已发送
// sent_at is only ever set once; a second call for the same id is a no-op.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	query := `
		UPDATE email_queue
		SET sent_at = $2
		WHERE id = $1 AND sent_at IS NULL
	`

	if _, err := r.db.Exec(ctx, query, id, sentAt); err != nil {
		return fmt.Errorf("failed to mark entry as sent: %w", err)
	}

	return nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		e      Entry
		action string
	)
	if err := row.Scan(&e.ID, &e.UserEmail, &e.Data, &action, &e.ScheduledAt, &e.SentAt); err != nil {
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}
	e.Action = Action(action)
	return &e, nil
}
