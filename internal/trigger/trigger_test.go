package trigger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"javazone-calendar/contracts/mq"
	"javazone-calendar/internal/sleepingpill"
	"javazone-calendar/pkg/outbox"
	"javazone-calendar/pkg/trace"
)

type recordingPublisher struct {
	routingKey string
	payload    any
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, payload any) error {
	p.routingKey = routingKey
	p.payload = payload
	return nil
}

func TestMQTrigger(t *testing.T) {
	pub := &recordingPublisher{}
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	tr := NewMQTrigger(pub)
	tr.now = func() time.Time { return now }

	require.NoError(t, tr.RequestSync(context.Background(), "admin@example.com"))
	assert.Equal(t, mq.RoutingKeySessionsSync, pub.routingKey)
	assert.Equal(t, mq.SessionsSyncRequestedPayload{RequestedBy: "admin@example.com", RequestedAt: now}, pub.payload)

	require.NoError(t, tr.RequestDrain(context.Background(), "admin@example.com", 10))
	assert.Equal(t, mq.RoutingKeyEmailQueueDrain, pub.routingKey)
	assert.Equal(t, 10, pub.payload.(mq.EmailQueueDrainRequestedPayload).Limit)
}

type countingSyncer struct {
	calls   atomic.Int32
	traceID atomic.Value
}

func (s *countingSyncer) UpdateSessions(ctx context.Context) (sleepingpill.Report, error) {
	s.calls.Add(1)
	s.traceID.Store(trace.FromContext(ctx))
	return sleepingpill.Report{}, errors.New("upstream down")
}

type countingDrainer struct{ limit atomic.Int32 }

func (d *countingDrainer) ProcessQueue(_ context.Context, limit int) (outbox.Report, error) {
	d.limit.Store(int32(limit))
	return outbox.Report{}, nil
}

func TestLocalTriggerOutlivesRequestContext(t *testing.T) {
	syncer := &countingSyncer{}
	drainer := &countingDrainer{}
	tr := NewLocalTrigger(syncer, drainer, zap.NewNop())

	ctx, cancel := context.WithCancel(trace.WithContext(context.Background(), "trace-1"))
	cancel()

	require.NoError(t, tr.RequestSync(ctx, "admin@example.com"))
	require.NoError(t, tr.RequestDrain(ctx, "admin@example.com", 7))
	tr.Wait()

	assert.EqualValues(t, 1, syncer.calls.Load())
	assert.Equal(t, "trace-1", syncer.traceID.Load())
	assert.EqualValues(t, 7, drainer.limit.Load())
}
