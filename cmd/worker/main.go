package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	contractsmq "javazone-calendar/contracts/mq"
	"javazone-calendar/internal/app"
	"javazone-calendar/internal/config"
	"javazone-calendar/internal/mqhandler"
	"javazone-calendar/pkg/logger"
	"javazone-calendar/pkg/mq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger(cfg.Debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting worker service...")

	a, err := app.New(ctx, cfg, "javazone-calendar-worker", log)
	if err != nil {
		log.Fatal("Initialization failed", zap.Error(err))
	}
	defer a.Close()

	var wg sync.WaitGroup

	if cfg.MQ.URL != "" {
		syncHandler := mqhandler.NewSessionsSyncHandler(a.Reconciler, log)
		drainHandler := mqhandler.NewEmailQueueDrainHandler(a.Dispatcher, log)

		consumers := []struct {
			queue      string
			routingKey string
			handle     mq.MessageHandler
		}{
			{contractsmq.QueueSessionsSync, contractsmq.RoutingKeySessionsSync, syncHandler.HandleSyncRequested},
			{contractsmq.QueueEmailQueueDrain, contractsmq.RoutingKeyEmailQueueDrain, drainHandler.HandleDrainRequested},
		}

		for _, c := range consumers {
			log.Info("Initializing consumer", zap.String("queue", c.queue))
			consumer, err := mq.NewConsumer(cfg.MQ.URL, c.queue, c.routingKey, log)
			if err != nil {
				log.Fatal("failed to init consumer", zap.String("queue", c.queue), zap.Error(err))
			}
			defer consumer.Close()
			consumer.SetHandler(c.handle)

			wg.Add(1)
			go func(queue string) {
				defer wg.Done()
				if err := consumer.StartConsuming(ctx); err != nil {
					log.Error("consumer stopped", zap.String("queue", queue), zap.Error(err))
					stop()
				}
			}(c.queue)
		}
	} else {
		log.Warn("MQ not configured, only scheduled runs are active")
	}

	if interval := cfg.Sync.Interval(); interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Reconciler.Start(ctx, interval)
		}()
	}

	if cfg.EmailQueue.Interval() > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Dispatcher.Start(ctx)
		}()
	}

	log.Info("Worker is ready")
	<-ctx.Done()
	log.Info("Shutting down worker")
	wg.Wait()
}
