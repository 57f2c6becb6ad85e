package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vhvplatform/go-marketplace-notifications/internal/cache"
	"github.com/vhvplatform/go-marketplace-notifications/internal/channel"
	"github.com/vhvplatform/go-marketplace-notifications/internal/detector"
	"github.com/vhvplatform/go-marketplace-notifications/internal/dlq"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/realtime"
	"github.com/vhvplatform/go-marketplace-notifications/internal/repository"
	"github.com/vhvplatform/go-marketplace-notifications/internal/scheduler"
	"github.com/vhvplatform/go-marketplace-notifications/internal/service"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/clock"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/config"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/mongodb"
	"go.uber.org/multierr"
)

// app holds the wired components shared by every command
type app struct {
	cfg *config.Config
	log *logger.Logger

	mongo *mongodb.MongoClient
	redis redis.UniversalClient

	notifications *repository.NotificationRepository
	failedSends   *repository.FailedSendRepository
	runs          *repository.DetectorRunRepository

	hub        *realtime.Hub
	dlq        *dlq.DeadLetterQueue
	prefs      *service.PreferenceService
	dispatcher *service.Dispatcher
	bulk       *service.BulkDispatcher
	inbox      *service.NotificationService
	events     *service.EventProcessor
	scheduler  *scheduler.DetectorScheduler
}

func loadApp() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewWithLevel(cfg.LogLevel, !cfg.IsProduction())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// newApp connects to the stores and wires the notification pipeline
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	mongoClient, err := mongodb.NewMongoClient(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	a.mongo = mongoClient

	// Initialize repositories
	a.notifications = repository.NewNotificationRepository(mongoClient)
	a.failedSends = repository.NewFailedSendRepository(mongoClient)
	a.runs = repository.NewDetectorRunRepository(mongoClient)
	preferencesRepo := repository.NewPreferencesRepository(mongoClient)
	userRepo := repository.NewUserRepository(mongoClient)
	bookingRepo := repository.NewBookingRepository(mongoClient)
	orderRepo := repository.NewOrderRepository(mongoClient)
	marketplaceRepo := repository.NewMarketplaceRepository(mongoClient)

	if err := multierr.Combine(
		a.notifications.EnsureIndexes(ctx),
		a.failedSends.EnsureIndexes(ctx),
		a.runs.EnsureIndexes(ctx),
		preferencesRepo.EnsureIndexes(ctx),
	); err != nil {
		// indexes are an optimisation; the service still works without them
		log.Warn("Failed to ensure indexes", "error", err)
	}

	// Preference cache
	var prefCache service.PreferenceCache
	if cfg.Redis.Addr != "" {
		a.redis = cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pc := cache.NewPreferenceCache(a.redis, cfg.Redis.TTL)
		if err := pc.Ping(ctx); err != nil {
			log.Warn("Redis unavailable, preference cache disabled", "error", err)
		} else {
			prefCache = pc
		}
	}
	a.prefs = service.NewPreferenceService(preferencesRepo, prefCache, log.Named("preferences"))

	senders, err := a.buildSenders(ctx)
	if err != nil {
		return nil, multierr.Append(err, a.close(ctx))
	}

	clk := clock.Real{}
	a.hub = realtime.NewHub(log.Named("realtime"))
	a.dlq = dlq.NewDeadLetterQueue(a.failedSends, userRepo, senders, clk, log.Named("dlq"))
	a.dispatcher = service.NewDispatcher(userRepo, a.notifications, a.prefs, senders, clk, log.Named("dispatcher"), service.DispatcherOptions{
		ChannelTimeout: cfg.Dispatcher.ChannelTimeout,
		StoreTimeout:   cfg.Dispatcher.StoreTimeout,
	}).WithPublisher(a.hub).WithFailureRecorder(a.dlq)
	a.bulk = service.NewBulkDispatcher(a.dispatcher, cfg.Dispatcher.BulkConcurrency, log.Named("bulk"))
	a.inbox = service.NewNotificationService(a.notifications, a.hub, clk, log.Named("inbox"))
	a.events = service.NewEventProcessor(a.dispatcher, a.bulk, log.Named("events"))

	detectors := detector.NewAll(cfg.Detectors, detector.Deps{
		Notifier: a.dispatcher,
		Log:      a.notifications,
		Admins:   userRepo,
		Clock:    clk,
		Logger:   log.Named("detector"),
	}, detector.Stores{
		Bookings:        bookingRepo,
		Orders:          orderRepo,
		Loans:           marketplaceRepo,
		Rentals:         marketplaceRepo,
		Enrollments:     marketplaceRepo,
		Chats:           marketplaceRepo,
		Messages:        marketplaceRepo,
		Referrals:       marketplaceRepo,
		Subscriptions:   marketplaceRepo,
		JobApplications: marketplaceRepo,
	})

	var recorder scheduler.RunRecorder
	if cfg.Scheduler.RecordRuns {
		recorder = a.runs
	}
	a.scheduler = scheduler.NewDetectorScheduler(detectors, recorder, clk, log.Named("scheduler"))

	return a, nil
}

// buildSenders creates the channel senders. Channels without provider
// settings log instead of sending.
func (a *app) buildSenders(ctx context.Context) ([]channel.Sender, error) {
	cfg, log := a.cfg, a.log.Named("channel")
	var senders []channel.Sender

	if cfg.SMTP.Host != "" {
		senders = append(senders, channel.NewEmailSender(channel.EmailConfig{
			SMTPHost:     cfg.SMTP.Host,
			SMTPPort:     cfg.SMTP.Port,
			SMTPUsername: cfg.SMTP.Username,
			SMTPPassword: cfg.SMTP.Password,
			FromEmail:    cfg.SMTP.FromEmail,
			FromName:     cfg.SMTP.FromName,
		}, log))
	} else {
		senders = append(senders, channel.NewLogSender(domain.ChannelEmail, log))
	}

	if cfg.SMS.Provider == "twilio" {
		senders = append(senders, channel.NewSMSSender(channel.SMSConfig{
			AccountSID: cfg.SMS.AccountSID,
			AuthToken:  cfg.SMS.AuthToken,
			FromNumber: cfg.SMS.FromNumber,
			BaseURL:    cfg.SMS.BaseURL,
			RatePerSec: cfg.SMS.RatePerSec,
		}, log))
	} else {
		senders = append(senders, channel.NewLogSender(domain.ChannelSMS, log))
	}

	if cfg.Push.CredentialsFile != "" {
		push, err := channel.NewPushSender(ctx, cfg.Push.CredentialsFile, cfg.Push.ProjectID, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create push sender: %w", err)
		}
		senders = append(senders, push)
	} else {
		senders = append(senders, channel.NewLogSender(domain.ChannelPush, log))
	}

	return senders, nil
}

// ready reports whether the backing stores answer
func (a *app) ready(ctx context.Context) error {
	err := a.mongo.Ping(ctx)
	if a.redis != nil {
		err = multierr.Append(err, a.redis.Ping(ctx).Err())
	}
	return err
}

// close releases whatever newApp managed to open, so it is safe on a
// partially built app
func (a *app) close(ctx context.Context) error {
	if a.hub != nil {
		a.hub.CloseAll()
	}
	var err error
	if a.redis != nil {
		err = multierr.Append(err, a.redis.Close())
	}
	if a.mongo != nil {
		err = multierr.Append(err, a.mongo.Disconnect(ctx))
	}
	return err
}
