package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/vhvplatform/go-marketplace-notifications/internal/consumer"
	"github.com/vhvplatform/go-marketplace-notifications/internal/handler"
	"github.com/vhvplatform/go-marketplace-notifications/internal/middleware"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/rabbitmq"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	heartbeatInterval = 30 * time.Second
	dlqSyncInterval   = time.Minute
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, event consumer and detector scheduler",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadApp()
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("Starting Marketplace Notification Service...", "version", version, "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(handler.Routes{
		Notifications: handler.NewNotificationHandler(a.inbox, a.dispatcher, log),
		Bulk:          handler.NewBulkHandler(a.bulk, log),
		Preferences:   handler.NewPreferencesHandler(a.prefs, log),
		DLQ:           handler.NewDLQHandler(a.dlq, log),
		Detectors:     handler.NewDetectorHandler(a.scheduler, a.runs, log),
		Realtime:      handler.NewRealtimeHandler(a.hub, a.inbox, 2*heartbeatInterval, log),
		Ready:         a.ready,
	}, middleware.NewCallerRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Scheduler.Enabled {
		if err := a.scheduler.Start(); err != nil {
			// detectors with a bad schedule are skipped, the rest run
			log.Error("Some detectors were not scheduled", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Marketplace Notification Service started", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.hub.Heartbeat(gctx, heartbeatInterval)
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(dlqSyncInterval)
		defer ticker.Stop()
		for {
			a.dlq.SyncSizeMetric(gctx)
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	if cfg.RabbitMQ.Enabled {
		eventConsumer := consumer.NewEventConsumer(func() (consumer.Broker, error) {
			return rabbitmq.NewRabbitMQClient(cfg.RabbitMQ.URL)
		}, a.events, consumer.Options{
			Exchange: cfg.RabbitMQ.Exchange,
			Queue:    cfg.RabbitMQ.Queue,
			Prefetch: cfg.RabbitMQ.Prefetch,
		}, log.Named("consumer"))
		g.Go(func() error {
			return eventConsumer.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down Marketplace Notification Service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		return multierr.Combine(
			srv.Shutdown(shutdownCtx),
			a.scheduler.Stop(shutdownCtx),
			a.close(shutdownCtx),
		)
	})

	if err := g.Wait(); err != nil {
		log.Error("Service stopped with error", "error", err)
		return err
	}

	log.Info("Marketplace Notification Service stopped")
	return nil
}
