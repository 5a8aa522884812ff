package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetByID 根据 ID 获取条目（用于 Replay）
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	query := `
		SELECT id, user_email, data, action, scheduled_at, sent_at
		FROM email_queue
		WHERE id = $1
	`

	e, err := scanEntry(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return e, nil
}

// Replay makes a sent entry pending again, rescheduled behind everything that
// is already waiting. The next drain sends it once more.
func (r *Repository) Replay(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE email_queue
		SET sent_at = NULL, scheduled_at = NOW()
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to replay entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}

	return nil
}
