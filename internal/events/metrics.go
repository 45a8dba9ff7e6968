package events

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	dispatchedTotal metric.Int64Counter
	handlerDuration metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.dispatchedTotal, err = meter.Int64Counter(
		"events_dispatched_total",
		metric.WithDescription("Total number of event handler invocations"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create events_dispatched_total counter: %w", err)
	}

	m.handlerDuration, err = meter.Float64Histogram(
		"event_handler_duration_seconds",
		metric.WithDescription("Duration of event handler invocations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create event_handler_duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordDispatch(ctx context.Context, event, handler string, durationSeconds float64, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("event", event),
		attribute.String("handler", handler),
		attribute.String("status", status),
	)
	m.dispatchedTotal.Add(ctx, 1, attrs)
	m.handlerDuration.Record(ctx, durationSeconds, attrs)
}
