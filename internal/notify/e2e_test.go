package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"javazone-calendar/contracts/db"
	"javazone-calendar/internal/sleepingpill"
	"javazone-calendar/pkg/outbox"
)

const s1 = "5a1f8b52-3f55-4c1b-9c3e-0b7ad1f3a001"

type oneSessionFetcher struct {
	raw string
}

func (f oneSessionFetcher) Fetch(context.Context, int) (map[uuid.UUID]sleepingpill.Record, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(f.raw)))
	dec.UseNumber()
	var r sleepingpill.Record
	if err := dec.Decode(&r); err != nil {
		return nil, err
	}
	return map[uuid.UUID]sleepingpill.Record{uuid.MustParse(s1): r}, nil
}

// syncStore holds one joined session and writes queue entries into the shared queue.
type syncStore struct {
	session *db.Session
	queue   *sliceStore
}

func (s *syncStore) ListSessions(context.Context) ([]*db.Session, error) {
	cp := *s.session
	return []*db.Session{&cp}, nil
}

func (s *syncStore) CommitSync(_ context.Context, b *db.SyncBatch) error {
	for _, c := range b.Changed {
		s.session.Hash = c.Hash
		s.session.Data = c.Data
	}
	s.queue.entries = append(s.queue.entries, b.Entries...)
	return nil
}

func TestSyncThenDrainSkipsUnscheduledSession(t *testing.T) {
	queue := &sliceStore{}
	store := &syncStore{
		session: &db.Session{
			ID:    uuid.MustParse(s1),
			Hash:  "stale",
			Data:  `{"sessionId":"` + s1 + `","title":"Old"}`,
			Users: []string{"ada@example.com", "grace@example.com"},
		},
		queue: queue,
	}
	fetcher := oneSessionFetcher{raw: `{"sessionId": "` + s1 + `", "title": "S1", "abstract": "a", "video": "", "speakers": []}`}

	report, err := sleepingpill.NewReconciler(fetcher, store, sleepingpill.NewFingerprinter(""), 2025, zap.NewNop()).
		UpdateSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sleepingpill.Report{Changed: 1, Enqueued: 2}, report)
	assert.NotEqual(t, "stale", store.session.Hash)
	require.Len(t, queue.entries, 2)
	for _, e := range queue.entries {
		assert.Equal(t, outbox.ActionUpdate, e.Action)
	}

	sender := &mockSender{}
	d := outbox.NewDispatcher(queue, zap.NewNop())
	newNotifier(sender).Register(d)

	drained, err := d.ProcessQueue(context.Background(), outbox.DefaultBatchSize)
	require.NoError(t, err)

	assert.Equal(t, outbox.Report{Selected: 2, Skipped: 2}, drained)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	for _, e := range queue.entries {
		assert.NotNil(t, e.SentAt, "skipped entries are marked sent")
	}
}
