package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"javazone-calendar/internal/calendar"
	"javazone-calendar/internal/config"
	"javazone-calendar/internal/mail"
	"javazone-calendar/internal/notify"
	"javazone-calendar/internal/repository"
	"javazone-calendar/internal/sleepingpill"
	"javazone-calendar/pkg/db"
	"javazone-calendar/pkg/otel"
	"javazone-calendar/pkg/outbox"
	redisclient "javazone-calendar/pkg/redis"
	"javazone-calendar/pkg/util"
)

// Version is stamped at build time.
var Version = "dev"

// App holds the components shared by the server and the worker.
type App struct {
	Config *config.Config
	Logger *zap.Logger

	DB    *pgxpool.Pool
	Redis *redis.Client

	Queue    *outbox.Repository
	Sessions *repository.SessionRepository
	Users    *repository.UserRepository

	Calendar   *calendar.Builder
	Reconciler *sleepingpill.Reconciler
	Dispatcher *outbox.Dispatcher
	// Failures is nil when Redis is not configured.
	Failures *util.RetryCounter

	closers []func()
}

// New connects to Postgres (and Redis when configured), applies the schema
// and wires the reconciler and the queue processor.
func New(ctx context.Context, cfg *config.Config, serviceName string, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	shutdownOtel, err := otel.Init(otel.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Endpoint:       cfg.Otel.Endpoint,
		Enabled:        cfg.Otel.Enabled,
		SampleRatio:    cfg.Otel.SampleRatio,
	}, logger)
	if err != nil {
		// tracing is optional
		logger.Warn("Failed to initialize OpenTelemetry", zap.Error(err))
	} else {
		a.closers = append(a.closers, shutdownOtel)
	}

	a.DB, err = db.NewConnection(cfg.DB, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("DB initialization failed: %w", err)
	}
	a.closers = append(a.closers, a.DB.Close)

	if err := db.EnsureSchema(ctx, a.DB); err != nil {
		a.Close()
		return nil, err
	}

	if a.Redis = redisclient.NewRedisClient(cfg.Redis); a.Redis != nil {
		rdb := a.Redis
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	} else {
		logger.Info("Redis not configured, run lock and failure counters disabled")
	}

	a.Queue = outbox.NewRepository(a.DB)
	a.Sessions = repository.NewSessionRepository(a.DB, a.Queue)
	a.Users = repository.NewUserRepository(a.DB)
	a.Calendar = calendar.NewBuilder(cfg.Year, cfg.Server.PublicURL)

	fetcher := sleepingpill.NewHTTPFetcher(cfg.SleepingPill.URLPattern, cfg.SleepingPill.Timeout(), logger)
	a.Reconciler = sleepingpill.NewReconciler(
		fetcher,
		a.Sessions,
		sleepingpill.NewFingerprinter(cfg.SleepingPill.FingerprintGeneration),
		cfg.Year,
		logger,
	)

	sender, err := mail.New(cfg.Mail, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Dispatcher = outbox.NewDispatcher(a.Queue, logger).
		WithBatchSize(cfg.EmailQueue.BatchSize).
		WithInterval(cfg.EmailQueue.Interval())
	notify.NewNotifier(sender, a.Calendar, logger).Register(a.Dispatcher)

	if a.Redis != nil {
		a.Failures = util.NewRetryCounter(a.Redis, "email_queue", cfg.EmailQueue.FailureTTL())
		a.Reconciler.WithLock(util.NewRunLock(a.Redis, cfg.Sync.LockTTL(), logger))
		a.Dispatcher.
			WithLock(util.NewRunLock(a.Redis, cfg.EmailQueue.LockTTL(), logger)).
			WithFailureCounter(a.Failures)
	}

	return a, nil
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
