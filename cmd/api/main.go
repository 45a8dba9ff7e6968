package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"

	catalogpostgres "github.com/mercato/backoffice/internal/catalog/adapters/postgres"
	"github.com/mercato/backoffice/internal/choreography"
	"github.com/mercato/backoffice/internal/config"
	custpostgres "github.com/mercato/backoffice/internal/customers/adapters/postgres"
	"github.com/mercato/backoffice/internal/database"
	discpostgres "github.com/mercato/backoffice/internal/discounts/adapters/postgres"
	discredis "github.com/mercato/backoffice/internal/discounts/adapters/redis"
	"github.com/mercato/backoffice/internal/events"
	idempostgres "github.com/mercato/backoffice/internal/idempotency/postgres"
	ordersadapters "github.com/mercato/backoffice/internal/orders/adapters"
	ordershttp "github.com/mercato/backoffice/internal/orders/adapters/http"
	orderspostgres "github.com/mercato/backoffice/internal/orders/adapters/postgres"
	ordersapp "github.com/mercato/backoffice/internal/orders/app"
	ordersmetrics "github.com/mercato/backoffice/internal/orders/metrics"
	"github.com/mercato/backoffice/internal/outbox"
	"github.com/mercato/backoffice/internal/payments/adapters/gatewayhttp"
	paymentshttp "github.com/mercato/backoffice/internal/payments/adapters/http"
	paymentspostgres "github.com/mercato/backoffice/internal/payments/adapters/postgres"
	paymentsapp "github.com/mercato/backoffice/internal/payments/app"
	shipmentshttp "github.com/mercato/backoffice/internal/shipments/adapters/http"
	shipmentspostgres "github.com/mercato/backoffice/internal/shipments/adapters/postgres"
	shipmentsapp "github.com/mercato/backoffice/internal/shipments/app"
	"github.com/mercato/backoffice/internal/telemetry"
)

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
		ServiceName:    cfg.Service.Name,
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

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations completed successfully")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	meter := otel.Meter("backoffice")

	eventMetrics, err := events.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create event metrics", "error", err)
		os.Exit(1)
	}
	orderMetrics, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create order metrics", "error", err)
		os.Exit(1)
	}
	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create database metrics", "error", err)
		os.Exit(1)
	}
	httpMetrics, err := ordershttp.NewMetrics(meter)
	if err != nil {
		logger.Error("failed to create http metrics", "error", err)
		os.Exit(1)
	}

	bus := events.NewBus(logger,
		events.WithMetrics(eventMetrics),
		events.WithSink(outbox.NewStore(pool)),
	)

	productRepo := catalogpostgres.NewRepository(pool)
	customerRepo := custpostgres.NewRepository(pool)
	discountRepo := discpostgres.NewRepository(pool)
	usageCounter := discredis.NewCounter(redisClient)
	orderRepo := ordersadapters.NewObservableRepository(orderspostgres.NewRepository(pool), dbMetrics)
	paymentRepo := paymentspostgres.NewRepository(pool)
	authQueue := paymentspostgres.NewQueue(pool)
	shipmentRepo := shipmentspostgres.NewRepository(pool)
	carrierRepo := shipmentspostgres.NewCarrierRepository(pool)
	gateway := gatewayhttp.NewClient(cfg.Gateway)

	paymentService := paymentsapp.NewService(paymentRepo, authQueue, bus)
	shipmentService := shipmentsapp.NewService(shipmentRepo, carrierRepo, bus)

	choreography.New(choreography.Dependencies{
		Orders:    orderRepo,
		Customers: customerRepo,
		Products:  productRepo,
		Usage:     usageCounter,
		Payments:  paymentService,
		Gateway:   gateway,
		Shipments: shipmentService,
		Bus:       bus,
		Logger:    logger,
	}).Register()

	orderService := ordersapp.NewService(ordersapp.Dependencies{
		Orders:      orderRepo,
		Products:    productRepo,
		Customers:   customerRepo,
		Coupons:     discountRepo,
		Sales:       discountRepo,
		Usage:       usageCounter,
		Bus:         bus,
		Idempotency: idempostgres.NewStore(pool),
		Logger:      logger,
		Metrics:     orderMetrics,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.CheckHealth(r.Context(), pool); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	ordershttp.NewHandler(orderService).Register(mux)
	paymentshttp.NewHandler(paymentService, gateway).Register(mux)
	shipmentshttp.NewHandler(shipmentService).Register(mux)

	handler := withRecovery(ordershttp.WithMetrics(mux, httpMetrics))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	} else {
		logger.Info("http server stopped")
	}
}

func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic recovered", "error", rec)
				respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
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
