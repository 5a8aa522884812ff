package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(Config{ServiceName: "test", Enabled: false}, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	shutdown()
	assert.NotNil(t, Tracer())
}

func TestNewSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), newSampler(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), newSampler(1).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), newSampler(-0.5).Description())
	assert.Contains(t, newSampler(0.25).Description(), "ParentBased{root:TraceIDRatioBased{0.25}")
}

func TestMQHeaderCarrier(t *testing.T) {
	headers := amqp091.Table{"traceparent": "00-abc-def-01", "x-count": 3}
	c := MQHeaderCarrier(headers)

	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Empty(t, c.Get("x-count"), "non-string values are ignored")
	assert.Empty(t, c.Get("missing"))

	c.Set("tracestate", "k=v")
	assert.Equal(t, "k=v", headers["tracestate"])
	assert.ElementsMatch(t, []string{"traceparent", "x-count", "tracestate"}, c.Keys())

	assert.NotPanics(t, func() { MQHeaderCarrier(nil).Set("k", "v") })
}

func TestWithDBSpanPassesErrorThrough(t *testing.T) {
	errCommit := errors.New("commit failed")

	err := WithDBSpan(context.Background(), "sessions.commit_sync", func(context.Context) error {
		return errCommit
	})
	assert.ErrorIs(t, err, errCommit)

	assert.NoError(t, WithDBSpan(context.Background(), "noop", func(context.Context) error { return nil }))
}
