package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mercato/backoffice/internal/events"
)

// Record is one event persisted for relay to external consumers.
type Record struct {
	ID          int64           `json:"id"`
	EventName   string          `json:"event_name"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
	SentAt      *time.Time      `json:"sent_at"`
}

// envelope is the wire shape written to the payload column and relayed as-is.
type envelope struct {
	Name        string    `json:"name"`
	AggregateID string    `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Data        any       `json:"data"`
}

// Store persists published events to the outbox table. It implements
// events.Sink, so the bus tees every event through here before dispatch.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Append serializes the event and inserts it unsent.
func (s *Store) Append(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(envelope{
		Name:        event.Name(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Data:        event,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	query := `
		INSERT INTO outbox (event_name, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.pool.Exec(ctx, query, event.Name(), event.AggregateID(), payload, event.OccurredAt()); err != nil {
		return fmt.Errorf("insert outbox record: %w", err)
	}
	return nil
}

// FetchPending returns up to limit unsent records, oldest first.
func (s *Store) FetchPending(ctx context.Context, limit int) ([]Record, error) {
	query := `
		SELECT id, event_name, aggregate_id, payload, occurred_at, sent_at
		FROM outbox
		WHERE sent_at IS NULL
		ORDER BY id
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select outbox records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EventName, &rec.AggregateID, &rec.Payload, &rec.OccurredAt, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("scan outbox record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkSent stamps the record as relayed.
func (s *Store) MarkSent(ctx context.Context, id int64) error {
	if _, err := s.pool.Exec(ctx, `UPDATE outbox SET sent_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark outbox record sent: %w", err)
	}
	return nil
}
