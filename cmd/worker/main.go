package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	catalogpostgres "github.com/mercato/backoffice/internal/catalog/adapters/postgres"
	"github.com/mercato/backoffice/internal/choreography"
	"github.com/mercato/backoffice/internal/config"
	custpostgres "github.com/mercato/backoffice/internal/customers/adapters/postgres"
	"github.com/mercato/backoffice/internal/database"
	discredis "github.com/mercato/backoffice/internal/discounts/adapters/redis"
	"github.com/mercato/backoffice/internal/events"
	orderspostgres "github.com/mercato/backoffice/internal/orders/adapters/postgres"
	"github.com/mercato/backoffice/internal/outbox"
	"github.com/mercato/backoffice/internal/payments/adapters/gatewayhttp"
	paymentspostgres "github.com/mercato/backoffice/internal/payments/adapters/postgres"
	paymentsapp "github.com/mercato/backoffice/internal/payments/app"
	"github.com/mercato/backoffice/internal/payments/worker"
	shipmentspostgres "github.com/mercato/backoffice/internal/shipments/adapters/postgres"
	shipmentsapp "github.com/mercato/backoffice/internal/shipments/app"
	"github.com/mercato/backoffice/internal/telemetry"

	"github.com/go-redis/redis/v8"
)

// The worker binary runs the background halves of the choreography: the
// payment-authorization drainer and the outbox relay. It registers the same
// event handlers as the API so payment events it publishes ripple into
// orders and shipments here too.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(parseLogLevel(cfg.Telemetry.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    "backoffice-worker",
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	meter := otel.Meter("backoffice-worker")

	eventMetrics, err := events.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create event metrics", "error", err)
		os.Exit(1)
	}
	outboxMetrics, err := outbox.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create outbox metrics", "error", err)
		os.Exit(1)
	}

	outboxStore := outbox.NewStore(pool)
	bus := events.NewBus(logger,
		events.WithMetrics(eventMetrics),
		events.WithSink(outboxStore),
	)

	orderRepo := orderspostgres.NewRepository(pool)
	paymentRepo := paymentspostgres.NewRepository(pool)
	authQueue := paymentspostgres.NewQueue(pool)
	shipmentRepo := shipmentspostgres.NewRepository(pool)
	carrierRepo := shipmentspostgres.NewCarrierRepository(pool)
	gateway := gatewayhttp.NewClient(cfg.Gateway)

	paymentService := paymentsapp.NewService(paymentRepo, authQueue, bus)
	shipmentService := shipmentsapp.NewService(shipmentRepo, carrierRepo, bus)

	choreography.New(choreography.Dependencies{
		Orders:    orderRepo,
		Customers: custpostgres.NewRepository(pool),
		Products:  catalogpostgres.NewRepository(pool),
		Usage:     discredis.NewCounter(redisClient),
		Payments:  paymentService,
		Gateway:   gateway,
		Shipments: shipmentService,
		Bus:       bus,
		Logger:    logger,
	}).Register()

	authorizer := worker.NewAuthorizer(paymentRepo, authQueue, gateway, orderRepo, paymentService, cfg.Worker, logger)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return authorizer.Run(groupCtx)
	})
	if len(cfg.Kafka.Brokers) > 0 {
		relay := outbox.NewRelay(outboxStore, *cfg, outboxMetrics, logger)
		group.Go(func() error {
			return relay.Run(groupCtx)
		})
	} else {
		logger.Warn("no kafka brokers configured, outbox relay disabled")
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
