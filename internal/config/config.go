package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration for the back-office services.
type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Gateway   GatewayConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Worker    WorkerConfig
	Telemetry TelemetryConfig
	Service   ServiceConfig
}

type HTTPConfig struct {
	Port          int
	MetricsPath   string
	ShutdownGrace int
}

type DatabaseConfig struct {
	URL            string
	AutoMigrate    bool
	MigrationsPath string
}

// GatewayConfig points at the external payment processor.
type GatewayConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers     []string
	OutboxTopic string
}

// WorkerConfig bounds the payment-authorization worker and the outbox relay.
type WorkerConfig struct {
	PollInterval    time.Duration
	MaxAttempts     int
	InitialBackoff  time.Duration
	AuthBatchSize   int
	OutboxBatchSize int
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

const (
	defaultHTTPPort        = 8080
	defaultMetricsPath     = "/metrics"
	defaultShutdownGrace   = 15
	defaultMigrationsPath  = "migrations"
	defaultAutoMigrate     = true
	defaultServiceName     = "backoffice-api"
	defaultServiceVersion  = "0.1.0"
	defaultEnvironment     = "development"
	defaultLogLevel        = "info"
	defaultOTelSampleRate  = 1.0
	defaultGatewayTimeout  = 10 * time.Second
	defaultPollInterval    = 2 * time.Second
	defaultMaxAttempts     = 5
	defaultInitialBackoff  = time.Second
	defaultAuthBatchSize   = 10
	defaultOutboxBatchSize = 100
	defaultOutboxTopic     = "backoffice.events"
)

// Load reads configuration from environment variables, applying defaults when needed.
func Load() (*Config, error) {
	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	gatewayCfg, err := loadGatewayConfig()
	if err != nil {
		return nil, fmt.Errorf("loading gateway config: %w", err)
	}

	workerCfg, err := loadWorkerConfig()
	if err != nil {
		return nil, fmt.Errorf("loading worker config: %w", err)
	}

	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	return &Config{
		HTTP:      httpCfg,
		Database:  loadDatabaseConfig(),
		Gateway:   gatewayCfg,
		Redis:     loadRedisConfig(),
		Kafka:     loadKafkaConfig(),
		Worker:    workerCfg,
		Telemetry: telCfg,
		Service:   loadServiceConfig(),
	}, nil
}

func loadHTTPConfig() (HTTPConfig, error) {
	port := defaultHTTPPort
	if value, ok := os.LookupEnv("API_HTTP_PORT"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid API_HTTP_PORT: %w", err)
		}
		port = parsed
	}

	shutdownGrace := defaultShutdownGrace
	if value, ok := os.LookupEnv("API_SHUTDOWN_GRACE_SECONDS"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return HTTPConfig{}, fmt.Errorf("invalid API_SHUTDOWN_GRACE_SECONDS: %w", err)
		}
		shutdownGrace = parsed
	}

	return HTTPConfig{
		Port:          port,
		MetricsPath:   getEnvOrDefault("API_METRICS_PATH", defaultMetricsPath),
		ShutdownGrace: shutdownGrace,
	}, nil
}

func loadDatabaseConfig() DatabaseConfig {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL()
	}

	autoMigrate := defaultAutoMigrate
	if value, ok := os.LookupEnv("AUTO_MIGRATE"); ok {
		autoMigrate = value == "true"
	}

	return DatabaseConfig{
		URL:            databaseURL,
		AutoMigrate:    autoMigrate,
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
	}
}

func loadGatewayConfig() (GatewayConfig, error) {
	timeout := defaultGatewayTimeout
	if value, ok := os.LookupEnv("PAYMENT_GATEWAY_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return GatewayConfig{}, fmt.Errorf("invalid PAYMENT_GATEWAY_TIMEOUT: %w", err)
		}
		timeout = parsed
	}

	return GatewayConfig{
		BaseURL: getEnvOrDefault("PAYMENT_GATEWAY_URL", "http://localhost:9090"),
		APIKey:  os.Getenv("PAYMENT_GATEWAY_API_KEY"),
		Timeout: timeout,
	}, nil
}

func loadRedisConfig() RedisConfig {
	db := 0
	if value, ok := os.LookupEnv("REDIS_DB"); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			db = parsed
		}
	}

	return RedisConfig{
		Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}
}

func loadKafkaConfig() KafkaConfig {
	var brokers []string
	if value, ok := os.LookupEnv("KAFKA_BROKERS"); ok && value != "" {
		brokers = strings.Split(value, ",")
	}

	return KafkaConfig{
		Brokers:     brokers,
		OutboxTopic: getEnvOrDefault("KAFKA_OUTBOX_TOPIC", defaultOutboxTopic),
	}
}

func loadWorkerConfig() (WorkerConfig, error) {
	pollInterval := defaultPollInterval
	if value, ok := os.LookupEnv("WORKER_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return WorkerConfig{}, fmt.Errorf("invalid WORKER_POLL_INTERVAL: %w", err)
		}
		pollInterval = parsed
	}

	maxAttempts := defaultMaxAttempts
	if value, ok := os.LookupEnv("WORKER_MAX_ATTEMPTS"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return WorkerConfig{}, fmt.Errorf("invalid WORKER_MAX_ATTEMPTS: %w", err)
		}
		maxAttempts = parsed
	}

	initialBackoff := defaultInitialBackoff
	if value, ok := os.LookupEnv("WORKER_INITIAL_BACKOFF"); ok {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return WorkerConfig{}, fmt.Errorf("invalid WORKER_INITIAL_BACKOFF: %w", err)
		}
		initialBackoff = parsed
	}

	authBatchSize := defaultAuthBatchSize
	if value, ok := os.LookupEnv("WORKER_AUTH_BATCH_SIZE"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return WorkerConfig{}, fmt.Errorf("invalid WORKER_AUTH_BATCH_SIZE: %w", err)
		}
		authBatchSize = parsed
	}

	outboxBatchSize := defaultOutboxBatchSize
	if value, ok := os.LookupEnv("OUTBOX_BATCH_SIZE"); ok {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return WorkerConfig{}, fmt.Errorf("invalid OUTBOX_BATCH_SIZE: %w", err)
		}
		outboxBatchSize = parsed
	}

	return WorkerConfig{
		PollInterval:    pollInterval,
		MaxAttempts:     maxAttempts,
		InitialBackoff:  initialBackoff,
		AuthBatchSize:   authBatchSize,
		OutboxBatchSize: outboxBatchSize,
	}, nil
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	sampleRate := defaultOTelSampleRate
	if value, ok := os.LookupEnv("OTEL_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	return TelemetryConfig{
		LogLevel:      getEnvOrDefault("LOG_LEVEL", defaultLogLevel),
		OTelEndpoint:  getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		EnableTracing: getBoolEnv("OTEL_ENABLE_TRACING", true),
		EnableMetrics: getBoolEnv("OTEL_ENABLE_METRICS", true),
		SampleRate:    sampleRate,
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func buildDatabaseURL() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "backoffice")
	sslMode := getEnvOrDefault("DB_SSLMODE", "disable")

	maxConns := getEnvOrDefault("DB_MAX_CONNS", "25")
	minConns := getEnvOrDefault("DB_MIN_CONNS", "5")
	maxLifetime := getEnvOrDefault("DB_MAX_CONN_LIFETIME", "5m")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&pool_max_conns=%s&pool_min_conns=%s&pool_max_conn_lifetime=%s",
		user, password, host, port, dbName, sslMode, maxConns, minConns, maxLifetime,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true"
	}
	return defaultValue
}
