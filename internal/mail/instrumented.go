package mail

import (
	"context"
	"time"

	"go.uber.org/zap"

	"javazone-calendar/pkg/circuitbreaker"
	"javazone-calendar/pkg/logger"
	"javazone-calendar/pkg/metrics"
	"javazone-calendar/pkg/util"
)

// Instrumented guards a transport with a circuit breaker and records send
// latency per provider.
type Instrumented struct {
	provider string
	next     Sender
	breaker  *circuitbreaker.CircuitBreaker
	logger   *zap.Logger
}

func NewInstrumented(provider string, next Sender, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Instrumented {
	return &Instrumented{
		provider: provider,
		next:     next,
		breaker:  breaker,
		logger:   logger,
	}
}

func (s *Instrumented) Send(ctx context.Context, msg Message) error {
	start := time.Now()
	err := s.breaker.Execute(func() error {
		return s.next.Send(ctx, msg)
	})
	duration := time.Since(start)

	log := logger.WithTrace(ctx, s.logger)
	if err != nil {
		retryable, reason := util.IsRetryableError(err)
		metrics.RecordMailSend(s.provider, reason, duration)
		log.Error("Mail send failed",
			zap.String("provider", s.provider),
			zap.String("to", msg.To),
			zap.String("reason", reason),
			zap.Bool("retryable", retryable),
			zap.String("breaker_state", s.breaker.GetState().String()),
			zap.Error(err),
		)
		return err
	}

	metrics.RecordMailSend(s.provider, "success", duration)
	log.Info("Mail sent",
		zap.String("provider", s.provider),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Duration("duration", duration),
	)
	return nil
}
