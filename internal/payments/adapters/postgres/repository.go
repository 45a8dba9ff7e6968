package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mercato/backoffice/internal/payments/domain"
	"github.com/mercato/backoffice/internal/payments/ports"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, order_id, gateway_payment_id, amount_cents, installments,
			method, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.GatewayPaymentID,
		payment.AmountCents,
		payment.Installments,
		payment.Method,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	return r.get(ctx, "order_id = $1", orderID)
}

func (r *Repository) get(ctx context.Context, where string, arg any) (*domain.Payment, error) {
	query := fmt.Sprintf(`
		SELECT id, order_id, gateway_payment_id, amount_cents, installments,
		       method, status, created_at, updated_at
		FROM payments
		WHERE %s
	`, where)

	var payment domain.Payment
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.GatewayPaymentID,
		&payment.AmountCents,
		&payment.Installments,
		&payment.Method,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select payment: %w", err)
	}
	return &payment, nil
}

func (r *Repository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET gateway_payment_id = $2, status = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, payment.ID, payment.GatewayPaymentID, payment.Status, payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Queue stores pending authorizations in Postgres so they survive restarts.
type Queue struct {
	pool *pgxpool.Pool
}

func NewQueue(pool *pgxpool.Pool) *Queue {
	return &Queue{pool: pool}
}

func (q *Queue) Enqueue(ctx context.Context, task ports.PendingAuthorization) error {
	query := `
		INSERT INTO pending_authorizations (payment_id, order_id, attempts, next_attempt_at, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (payment_id) DO NOTHING
	`

	_, err := q.pool.Exec(ctx, query,
		task.PaymentID, task.OrderID, task.Attempts, task.NextAttemptAt, task.LastError, task.CreatedAt)
	if err != nil {
		return fmt.Errorf("enqueue authorization: %w", err)
	}
	return nil
}

// Due claims tasks for this worker pass. FOR UPDATE SKIP LOCKED lets several
// workers poll the same table without handing out the same task twice.
func (q *Queue) Due(ctx context.Context, now time.Time, limit int) ([]ports.PendingAuthorization, error) {
	query := `
		SELECT payment_id, order_id, attempts, next_attempt_at, last_error, created_at
		FROM pending_authorizations
		WHERE next_attempt_at <= $1
		ORDER BY next_attempt_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	rows, err := q.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("select due authorizations: %w", err)
	}
	defer rows.Close()

	var tasks []ports.PendingAuthorization
	for rows.Next() {
		var task ports.PendingAuthorization
		if err := rows.Scan(&task.PaymentID, &task.OrderID, &task.Attempts, &task.NextAttemptAt, &task.LastError, &task.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending authorization: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (q *Queue) Reschedule(ctx context.Context, task ports.PendingAuthorization) error {
	query := `
		UPDATE pending_authorizations
		SET attempts = $2, next_attempt_at = $3, last_error = $4
		WHERE payment_id = $1
	`

	tag, err := q.pool.Exec(ctx, query, task.PaymentID, task.Attempts, task.NextAttemptAt, task.LastError)
	if err != nil {
		return fmt.Errorf("reschedule authorization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (q *Queue) Remove(ctx context.Context, paymentID string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM pending_authorizations WHERE payment_id = $1`, paymentID)
	if err != nil {
		return fmt.Errorf("remove authorization: %w", err)
	}
	return nil
}
