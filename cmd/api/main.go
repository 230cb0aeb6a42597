package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/sms-ticket-bridge/internal/api/http"
	"github.com/spec-kit/sms-ticket-bridge/internal/api/http/handlers"
	"github.com/spec-kit/sms-ticket-bridge/internal/auth"
	"github.com/spec-kit/sms-ticket-bridge/internal/config"
	"github.com/spec-kit/sms-ticket-bridge/internal/domain"
	"github.com/spec-kit/sms-ticket-bridge/internal/events"
	"github.com/spec-kit/sms-ticket-bridge/internal/gateway"
	"github.com/spec-kit/sms-ticket-bridge/internal/gateway/twilio"
	"github.com/spec-kit/sms-ticket-bridge/internal/lease"
	"github.com/spec-kit/sms-ticket-bridge/internal/observability"
	"github.com/spec-kit/sms-ticket-bridge/internal/persistence"
	"github.com/spec-kit/sms-ticket-bridge/internal/repository"
	"github.com/spec-kit/sms-ticket-bridge/internal/service"
	"github.com/spec-kit/sms-ticket-bridge/internal/ticketing"
	"github.com/spec-kit/sms-ticket-bridge/internal/ticketing/gorgias"
	"github.com/spec-kit/sms-ticket-bridge/internal/ticketing/memory"
	"github.com/spec-kit/sms-ticket-bridge/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	healthDeps := map[string]handlers.Pinger{}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var subscriptionRepo repository.SubscriptionRepository
	if pg.Configured() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		subscriptionRepo = repository.NewSubscriptionRepository(pg.PoolHandle())
		healthDeps["postgres"] = pg
	} else {
		subscriptionRepo = repository.NewMemorySubscriptionRepository()
	}

	var locker lease.Locker
	switch cfg.Lease.Backend {
	case config.LeaseRedis:
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		locker = lease.NewRedisLocker(redis.Client)
		healthDeps["redis"] = redis
	default:
		locker = lease.NewMemoryLocker()
	}

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, metrics, cfg.Notification)
	worker.StartNotificationWorker(notificationService, logger)

	backend := newTicketingBackend(cfg.Ticketing, logger)
	scheme := domain.IdentityScheme{Namespace: cfg.Identity.EmailNamespace, Domain: cfg.Identity.EmailDomain}

	subscriptions := service.NewSubscriptionService(subscriptionRepo, dispatcher, logger)
	inbound := service.NewInboundService(service.InboundDependencies{
		Identities: service.NewIdentityResolver(service.IdentityDependencies{
			Backend: backend, Scheme: scheme, Logger: logger, Metrics: metrics,
		}),
		Locator: service.NewTicketLocator(service.LocatorDependencies{
			Backend: backend, PageSize: cfg.Ticketing.PageSize, Logger: logger, Metrics: metrics,
		}),
		Mutator: service.NewTicketMutator(service.MutatorDependencies{
			Backend: backend, Dispatcher: dispatcher, Logger: logger, Metrics: metrics,
		}),
		Subscriptions: subscriptions,
		Locker:        locker,
		LeaseTTL:      cfg.Lease.TTL(),
		LeaseWait:     cfg.Lease.Wait(),
		Replies:       cfg.Replies,
		Logger:        logger,
		Metrics:       metrics,
	})

	fromNumber, err := domain.NormalizePhone(cfg.Gateway.PhoneNumber)
	if err != nil {
		logger.Warn("TWILIO_PHONE_NUMBER not set or invalid; replies are sent without a from number")
	}
	relay := service.NewRelayService(service.RelayDependencies{
		Resolver:      service.NewOutboundResolver(scheme),
		Sender:        newSender(cfg.Gateway, logger),
		Subscriptions: subscriptions,
		FromNumber:    fromNumber,
		Dispatcher:    dispatcher,
		Logger:        logger,
		Metrics:       metrics,
	})

	tokens := auth.NewTokenManager(cfg.Webhook.JWTSecret, cfg.Webhook.TokenTTL())
	if !tokens.Enabled() {
		logger.Warn("WEBHOOK_JWT_SECRET not set; outbound webhook is unauthenticated")
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
		SMS:            handlers.NewSMSHandler(inbound),
		Webhook:        handlers.NewWebhookHandler(relay),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, auth.WebhookSubject),
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func newTicketingBackend(cfg config.TicketingConfig, logger *zap.Logger) ticketing.Backend {
	if cfg.Backend == config.BackendMemory {
		logger.Warn("using in-memory ticketing backend; tickets are lost on restart")
		return memory.NewBackend()
	}
	return gorgias.NewClient(gorgias.Config{
		BaseURL:  cfg.ResolvedBaseURL(),
		Username: cfg.Username,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.Timeout(),
	}, nil, logger)
}

func newSender(cfg config.GatewayConfig, logger *zap.Logger) gateway.Sender {
	if cfg.Backend == config.GatewayLog {
		logger.Warn("GATEWAY_BACKEND=log; outbound sms are logged and dropped")
		return gateway.NewLogSender(logger)
	}
	return twilio.NewClient(twilio.Config{
		AccountSID:    cfg.AccountSID,
		AuthToken:     cfg.AuthToken,
		RatePerSecond: cfg.SendRatePerSec,
		Burst:         cfg.SendBurst,
	}, logger)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
