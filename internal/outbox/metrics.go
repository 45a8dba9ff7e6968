package outbox

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	relayLatency metric.Float64Histogram
	relayed      metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.relayLatency, err = meter.Float64Histogram(
		"outbox_relay_latency_seconds",
		metric.WithDescription("Latency of relaying one outbox record to Kafka"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create outbox_relay_latency histogram: %w", err)
	}

	m.relayed, err = meter.Int64Counter(
		"outbox_records_relayed_total",
		metric.WithDescription("Outbox records relayed to Kafka"),
	)
	if err != nil {
		return nil, fmt.Errorf("create outbox_records_relayed counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordPublish(ctx context.Context, topic string, durationSeconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.String("status", status),
	)
	m.relayLatency.Record(ctx, durationSeconds, attrs)
	m.relayed.Add(ctx, 1, attrs)
}
