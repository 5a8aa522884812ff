package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"javazone-calendar/internal/app"
	"javazone-calendar/internal/config"
	"javazone-calendar/internal/handler"
	"javazone-calendar/internal/httpserver"
	"javazone-calendar/internal/service/sessions"
	"javazone-calendar/internal/service/users"
	"javazone-calendar/internal/trigger"
	"javazone-calendar/pkg/logger"
	"javazone-calendar/pkg/mq"
	"javazone-calendar/pkg/rbac"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Debug)
	defer log.Sync()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, "javazone-calendar-server", log)
	if err != nil {
		log.Fatal("Initialization failed", zap.Error(err))
	}
	defer a.Close()

	// Triggers go to the worker when a broker is configured, otherwise they
	// run in this process.
	var trig trigger.Trigger
	if cfg.MQ.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer publisher.Close()
		trig = trigger.NewMQTrigger(publisher)
	} else {
		log.Warn("MQ not configured, triggers run in process")
		local := trigger.NewLocalTrigger(a.Reconciler, a.Dispatcher, log)
		defer local.Wait()
		trig = local
	}

	// Init Services
	sessionService := sessions.NewService(a.Sessions, a.Users, a.Calendar, log)
	userService := users.NewService(a.Users, a.Sessions, log)

	emailQueue := handler.NewEmailQueueHandler(a.Queue, trig, log)
	if a.Failures != nil {
		emailQueue.WithFailureCounts(a.Failures)
	}

	router := httpserver.NewRouter(httpserver.Deps{
		Sessions:   handler.NewSessionHandler(sessionService, trig, log),
		Users:      handler.NewUserHandler(userService, sessionService, log),
		EmailQueue: emailQueue,
		Registrar:  userService,
		Policy:     rbac.NewPolicy(cfg.JWT.Admins),
		Auth: httpserver.AuthOptions{
			Secret:     cfg.JWT.Secret,
			Debug:      cfg.Debug,
			DebugEmail: cfg.JWT.DebugEmail,
		},
		DB:     a.DB,
		Logger: log,
	})

	srv := router.Server(":" + cfg.Server.Port)
	go func() {
		log.Info("Starting API server", zap.String("port", cfg.Server.Port), zap.Int("year", cfg.Year))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server start failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
}
