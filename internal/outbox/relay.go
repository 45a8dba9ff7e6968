package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mercato/backoffice/internal/config"
)

// Relay drains the outbox table into Kafka. Records are relayed in insertion
// order and only marked sent after the broker acknowledges the write, so a
// crash re-sends rather than drops. Consumers must tolerate duplicates.
type Relay struct {
	store   *Store
	writer  *kafka.Writer
	metrics *Metrics
	cfg     config.WorkerConfig
	logger  *slog.Logger
}

func NewRelay(store *Store, cfg config.Config, metrics *Metrics, logger *slog.Logger) *Relay {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.OutboxTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}

	return &Relay{
		store:   store,
		writer:  writer,
		metrics: metrics,
		cfg:     cfg.Worker,
		logger:  logger,
	}
}

// Run polls until the context is canceled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "outbox relay started",
		"topic", r.writer.Topic,
		"poll_interval", r.cfg.PollInterval,
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "outbox relay stopping")
			return r.writer.Close()
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox relay pass failed", "error", err)
			}
		}
	}
}

// RunOnce relays one batch. Exported so tests can drive the relay without
// the ticker.
func (r *Relay) RunOnce(ctx context.Context) error {
	records, err := r.store.FetchPending(ctx, r.cfg.OutboxBatchSize)
	if err != nil {
		return err
	}

	for _, record := range records {
		start := time.Now()
		err := r.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(record.AggregateID),
			Value: record.Payload,
			Headers: []kafka.Header{
				{Key: "event_name", Value: []byte(record.EventName)},
			},
		})
		if r.metrics != nil {
			r.metrics.RecordPublish(ctx, r.writer.Topic, time.Since(start).Seconds(), err == nil)
		}
		if err != nil {
			// Stop the batch; order within an aggregate must be preserved.
			return err
		}

		if err := r.store.MarkSent(ctx, record.ID); err != nil {
			return err
		}
	}
	return nil
}
