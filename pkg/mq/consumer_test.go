package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"javazone-calendar/pkg/trace"
)

type fakeAck struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *fakeAck) Ack(uint64, bool) error { a.acked++; return nil }
func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}
func (a *fakeAck) Reject(uint64, bool) error { return nil }

type fakeDLQ struct {
	err     error
	reasons []string
}

func (d *fakeDLQ) PublishToDLQ(_ context.Context, _ string, _ amqp091.Delivery, reason string) error {
	d.reasons = append(d.reasons, reason)
	return d.err
}

func newTestConsumer(h MessageHandler, dlq *fakeDLQ) *Consumer {
	return &Consumer{
		queue:      amqp091.Queue{Name: "worker.sessions.sync"},
		routingKey: "sessions.sync.requested",
		handler:    h,
		dlq:        dlq,
		logger:     zap.NewNop(),
	}
}

func TestHandleAcksOnSuccess(t *testing.T) {
	var gotTrace string
	dlq := &fakeDLQ{}
	c := newTestConsumer(func(ctx context.Context, data json.RawMessage) error {
		gotTrace = trace.FromContext(ctx)
		return nil
	}, dlq)

	ack := &fakeAck{}
	c.handle(context.Background(), amqp091.Delivery{
		Acknowledger: ack,
		Headers:      amqp091.Table{trace.HeaderName: "trace-123"},
		Body:         []byte(`{}`),
	})

	assert.Equal(t, 1, ack.acked)
	assert.Equal(t, 0, ack.nacked)
	assert.Empty(t, dlq.reasons)
	assert.Equal(t, "trace-123", gotTrace)
}

func TestHandleDeadLettersOnError(t *testing.T) {
	dlq := &fakeDLQ{}
	c := newTestConsumer(func(context.Context, json.RawMessage) error {
		return errors.New("upstream unavailable")
	}, dlq)

	ack := &fakeAck{}
	c.handle(context.Background(), amqp091.Delivery{Acknowledger: ack})

	assert.Equal(t, 1, ack.acked, "failed triggers are acked after being parked")
	assert.Equal(t, 0, ack.nacked)
	require.Len(t, dlq.reasons, 1)
	assert.Equal(t, "upstream unavailable", dlq.reasons[0])
}

func TestHandleRecoversPanic(t *testing.T) {
	dlq := &fakeDLQ{}
	c := newTestConsumer(func(context.Context, json.RawMessage) error {
		panic("boom")
	}, dlq)

	ack := &fakeAck{}
	assert.NotPanics(t, func() {
		c.handle(context.Background(), amqp091.Delivery{Acknowledger: ack})
	})
	assert.Equal(t, 1, ack.acked)
	assert.Equal(t, []string{"panic: boom"}, dlq.reasons)
}

func TestHandleNacksWhenDLQFails(t *testing.T) {
	dlq := &fakeDLQ{err: errors.New("channel closed")}
	c := newTestConsumer(func(context.Context, json.RawMessage) error {
		return errors.New("db down")
	}, dlq)

	ack := &fakeAck{}
	c.handle(context.Background(), amqp091.Delivery{Acknowledger: ack})

	assert.Equal(t, 0, ack.acked)
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)
}
