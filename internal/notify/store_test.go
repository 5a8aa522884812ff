package notify

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"javazone-calendar/pkg/outbox"
)

// sliceStore is an in-memory email queue.
type sliceStore struct {
	entries []*outbox.Entry
}

func (s *sliceStore) Pending(_ context.Context, limit int) ([]*outbox.Entry, error) {
	var pending []*outbox.Entry
	for _, e := range s.entries {
		if e.SentAt == nil {
			pending = append(pending, e)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].ScheduledAt.Before(pending[j].ScheduledAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *sliceStore) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	for _, e := range s.entries {
		if e.ID == id && e.SentAt == nil {
			sent := at
			e.SentAt = &sent
		}
	}
	return nil
}
