package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"javazone-calendar/pkg/metrics"
)

// NewEntry builds an unsent entry with a fresh id.
func NewEntry(userEmail, data string, action Action, scheduledAt time.Time) *Entry {
	return &Entry{
		ID:          uuid.New(),
		UserEmail:   userEmail,
		Data:        data,
		Action:      action,
		ScheduledAt: scheduledAt,
	}
}

// InsertEntriesInTx 在事务中批量插入队列条目（辅助函数）
// source labels the writer (sync, join, leave, update) in metrics; counters
// are bumped before commit, so a rolled back transaction still counts.
func InsertEntriesInTx(ctx context.Context, tx pgx.Tx, repo *Repository, source string, entries ...*Entry) error {
	for _, e := range entries {
		if err := repo.InsertInTx(ctx, tx, e); err != nil {
			return err
		}
		metrics.IncrementEnqueued(string(e.Action), source)
	}
	return nil
}
