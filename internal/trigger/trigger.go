package trigger

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"javazone-calendar/contracts/mq"
	"javazone-calendar/internal/sleepingpill"
	"javazone-calendar/pkg/logger"
	"javazone-calendar/pkg/outbox"
	"javazone-calendar/pkg/trace"
)

// Trigger starts a sync or a queue drain without waiting for it.
type Trigger interface {
	RequestSync(ctx context.Context, requestedBy string) error
	RequestDrain(ctx context.Context, requestedBy string, limit int) error
}

// Publisher publishes a JSON payload on the events exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// MQTrigger hands requests to the worker over RabbitMQ.
type MQTrigger struct {
	publisher Publisher
	now       func() time.Time
}

func NewMQTrigger(publisher Publisher) *MQTrigger {
	return &MQTrigger{publisher: publisher, now: time.Now}
}

func (t *MQTrigger) RequestSync(ctx context.Context, requestedBy string) error {
	return t.publisher.Publish(ctx, mq.RoutingKeySessionsSync, mq.SessionsSyncRequestedPayload{
		RequestedBy: requestedBy,
		RequestedAt: t.now().UTC(),
	})
}

func (t *MQTrigger) RequestDrain(ctx context.Context, requestedBy string, limit int) error {
	return t.publisher.Publish(ctx, mq.RoutingKeyEmailQueueDrain, mq.EmailQueueDrainRequestedPayload{
		RequestedBy: requestedBy,
		RequestedAt: t.now().UTC(),
		Limit:       limit,
	})
}

// Syncer runs one reconciliation pass.
type Syncer interface {
	UpdateSessions(ctx context.Context) (sleepingpill.Report, error)
}

// Drainer processes pending queue entries.
type Drainer interface {
	ProcessQueue(ctx context.Context, limit int) (outbox.Report, error)
}

// LocalTrigger runs requests on a goroutine in this process. It is used
// when no broker is configured.
type LocalTrigger struct {
	syncer  Syncer
	drainer Drainer
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewLocalTrigger(syncer Syncer, drainer Drainer, logger *zap.Logger) *LocalTrigger {
	return &LocalTrigger{syncer: syncer, drainer: drainer, logger: logger}
}

func (t *LocalTrigger) RequestSync(ctx context.Context, requestedBy string) error {
	t.goDetached(ctx, func(ctx context.Context) {
		log := logger.WithTrace(ctx, t.logger)
		log.Info("Running session sync in process", zap.String("requested_by", requestedBy))
		if _, err := t.syncer.UpdateSessions(ctx); err != nil && !errors.Is(err, sleepingpill.ErrSyncInProgress) {
			log.Error("Background session sync failed", zap.Error(err))
		}
	})
	return nil
}

func (t *LocalTrigger) RequestDrain(ctx context.Context, requestedBy string, limit int) error {
	t.goDetached(ctx, func(ctx context.Context) {
		log := logger.WithTrace(ctx, t.logger)
		log.Info("Draining email queue in process", zap.String("requested_by", requestedBy))
		if _, err := t.drainer.ProcessQueue(ctx, limit); err != nil && !errors.Is(err, outbox.ErrDrainInProgress) {
			log.Error("Background email queue drain failed", zap.Error(err))
		}
	})
	return nil
}

// Wait blocks until every started request has finished.
func (t *LocalTrigger) Wait() {
	t.wg.Wait()
}

// goDetached keeps the trace id but not the cancellation of the request
// that asked for the work.
func (t *LocalTrigger) goDetached(ctx context.Context, fn func(context.Context)) {
	bg := trace.WithContext(context.Background(), trace.FromContext(ctx))
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn(bg)
	}()
}
