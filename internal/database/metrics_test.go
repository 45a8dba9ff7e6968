package database

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewMetrics(t *testing.T) {
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader())).Meter("test")

	metrics, err := NewMetrics(meter)
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}
	if metrics.queryDuration == nil {
		t.Error("expected the query duration histogram to be created")
	}
}

func TestRecordQuery(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")

	metrics, err := NewMetrics(meter)
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	ctx := context.Background()
	metrics.RecordQuery(ctx, "create_order", 0.012)
	metrics.RecordQuery(ctx, "get_payment_by_order_id", 0.004)
	metrics.RecordQuery(ctx, "claim_pending_authorizations", 0.021)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	if len(rm.ScopeMetrics) != 1 || len(rm.ScopeMetrics[0].Metrics) != 1 {
		t.Fatalf("expected a single metric, got %+v", rm.ScopeMetrics)
	}

	m := rm.ScopeMetrics[0].Metrics[0]
	if m.Name != "db_query_duration_seconds" {
		t.Errorf("metric name = %q, want db_query_duration_seconds", m.Name)
	}

	hist, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected a float64 histogram, got %T", m.Data)
	}
	if len(hist.DataPoints) != 3 {
		t.Errorf("expected one series per operation, got %d", len(hist.DataPoints))
	}
	for _, dp := range hist.DataPoints {
		if _, ok := dp.Attributes.Value("operation"); !ok {
			t.Error("expected an operation attribute on every series")
		}
	}
}
