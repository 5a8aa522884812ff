package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"javazone-calendar/internal/sleepingpill"
	"javazone-calendar/pkg/outbox"
)

type stubSyncer struct {
	calls int
	err   error
}

func (s *stubSyncer) UpdateSessions(context.Context) (sleepingpill.Report, error) {
	s.calls++
	return sleepingpill.Report{}, s.err
}

type stubDrainer struct {
	limit int
	err   error
}

func (s *stubDrainer) ProcessQueue(_ context.Context, limit int) (outbox.Report, error) {
	s.limit = limit
	return outbox.Report{}, s.err
}

func TestHandleSyncRequested(t *testing.T) {
	tcases := []struct {
		name    string
		raw     string
		err     error
		wantErr bool
		calls   int
	}{
		{name: "runs reconciler", raw: `{"requested_by": "admin@example.com"}`, calls: 1},
		{name: "lock held is absorbed", raw: `{}`, err: sleepingpill.ErrSyncInProgress, calls: 1},
		{name: "fetch failure dead-letters", raw: `{}`, err: sleepingpill.ErrFetch, wantErr: true, calls: 1},
		{name: "bad payload", raw: `[`, wantErr: true},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			syncer := &stubSyncer{err: tc.err}
			err := NewSessionsSyncHandler(syncer, zap.NewNop()).HandleSyncRequested(context.Background(), json.RawMessage(tc.raw))
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.calls, syncer.calls)
		})
	}
}

func TestHandleDrainRequested(t *testing.T) {
	drainer := &stubDrainer{}
	h := NewEmailQueueDrainHandler(drainer, zap.NewNop())

	assert.NoError(t, h.HandleDrainRequested(context.Background(), json.RawMessage(`{"limit": 5}`)))
	assert.Equal(t, 5, drainer.limit)

	assert.NoError(t, h.HandleDrainRequested(context.Background(), json.RawMessage(`{}`)))
	assert.Equal(t, 0, drainer.limit, "zero falls back to the configured batch size")

	drainer.err = outbox.ErrDrainInProgress
	assert.NoError(t, h.HandleDrainRequested(context.Background(), json.RawMessage(`{}`)), "drain held elsewhere is absorbed")

	drainer.err = errors.New("smtp: 421")
	assert.Error(t, h.HandleDrainRequested(context.Background(), json.RawMessage(`{}`)))
}
