package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func testConfig() Config {
	return Config{
		ServiceName:    "backoffice-api",
		ServiceVersion: "0.1.0",
		Environment:    "test",
		SampleRate:     1.0,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"zero sample rate is valid", func(c *Config) { c.SampleRate = 0.0 }, nil},
		{"missing service name", func(c *Config) { c.ServiceName = "" }, ErrMissingServiceName},
		{"missing service version", func(c *Config) { c.ServiceVersion = "" }, ErrMissingServiceVersion},
		{"negative sample rate", func(c *Config) { c.SampleRate = -0.1 }, ErrInvalidSampleRate},
		{"sample rate above one", func(c *Config) { c.SampleRate = 1.5 }, ErrInvalidSampleRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Validate() = %v, want it wrapped in ErrInvalidConfig", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := testConfig()
		cfg.ServiceName = ""
		if _, err := Initialize(ctx, cfg); !errors.Is(err, ErrMissingServiceName) {
			t.Fatalf("Initialize() = %v, want ErrMissingServiceName", err)
		}
	})

	t.Run("tracing only", func(t *testing.T) {
		cfg := testConfig()
		cfg.EnableTracing = true

		tel, err := Initialize(ctx, cfg, WithTraceExporter(NewNoopTraceExporter()))
		if err != nil {
			t.Fatalf("Initialize() failed: %v", err)
		}
		if tel.TracerProvider() == nil {
			t.Error("expected a tracer provider")
		}
		if tel.MeterProvider() != nil {
			t.Error("expected no meter provider when metrics are disabled")
		}
		if err := tel.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() failed: %v", err)
		}
	})

	t.Run("metrics only", func(t *testing.T) {
		cfg := testConfig()
		cfg.EnableMetrics = true

		tel, err := Initialize(ctx, cfg, WithMetricExporter(NewNoopMetricExporter()))
		if err != nil {
			t.Fatalf("Initialize() failed: %v", err)
		}
		if tel.TracerProvider() != nil {
			t.Error("expected no tracer provider when tracing is disabled")
		}
		if tel.MeterProvider() == nil {
			t.Error("expected a meter provider")
		}
		if err := tel.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() failed: %v", err)
		}
	})

	t.Run("tracing and metrics together", func(t *testing.T) {
		cfg := testConfig()
		cfg.EnableTracing = true
		cfg.EnableMetrics = true

		tel, err := Initialize(ctx, cfg,
			WithTraceExporter(NewNoopTraceExporter()),
			WithMetricExporter(NewNoopMetricExporter()),
		)
		if err != nil {
			t.Fatalf("Initialize() failed: %v", err)
		}
		if tel.TracerProvider() == nil || tel.MeterProvider() == nil {
			t.Error("expected both providers")
		}
		if err := tel.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() failed: %v", err)
		}
	})

	t.Run("neither enabled still succeeds", func(t *testing.T) {
		tel, err := Initialize(ctx, testConfig())
		if err != nil {
			t.Fatalf("Initialize() failed: %v", err)
		}
		if tel.TracerProvider() != nil || tel.MeterProvider() != nil {
			t.Error("expected no providers")
		}
		if err := tel.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() failed: %v", err)
		}
	})
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		want string
	}{
		{"zero never samples", 0.0, "AlwaysOffSampler"},
		{"negative never samples", -1.0, "AlwaysOffSampler"},
		{"one always samples", 1.0, "AlwaysOnSampler"},
		{"above one always samples", 2.0, "AlwaysOnSampler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := createSampler(tt.rate).Description(); got != tt.want {
				t.Errorf("createSampler(%v) = %q, want %q", tt.rate, got, tt.want)
			}
		})
	}

	t.Run("fractional rate is parent based", func(t *testing.T) {
		got := createSampler(0.25).Description()
		if !strings.Contains(got, "ParentBased") {
			t.Errorf("createSampler(0.25) = %q, want a parent-based ratio sampler", got)
		}
	})
}

func TestShutdownWithoutProviders(t *testing.T) {
	var tel Telemetry
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on zero-value telemetry = %v, want nil", err)
	}
}
