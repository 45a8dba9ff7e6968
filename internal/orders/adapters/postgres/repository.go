package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mercato/backoffice/internal/orders/domain"
	"github.com/mercato/backoffice/internal/orders/ports"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create persists the order, its line items, and the initial status history
// in one transaction.
func (r *Repository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertOrder := `
		INSERT INTO orders (
			id, customer_id, coupon_ids, total_cents, status, description,
			payment_method, installments,
			billing_street, billing_city, billing_zip, billing_country,
			delivery_street, delivery_city, delivery_zip, delivery_country,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err = tx.Exec(ctx, insertOrder,
		order.ID,
		order.CustomerID,
		order.CouponIDs,
		order.TotalCents,
		order.Status,
		order.Description,
		order.PaymentMethod,
		order.Installments,
		order.BillingAddress.Street,
		order.BillingAddress.City,
		order.BillingAddress.Zip,
		order.BillingAddress.Country,
		order.DeliveryAddress.Street,
		order.DeliveryAddress.City,
		order.DeliveryAddress.Zip,
		order.DeliveryAddress.Country,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	insertItem := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price_cents, category_ids)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, item := range order.Items {
		if _, err := tx.Exec(ctx, insertItem, order.ID, item.ProductID, item.Quantity, item.UnitPriceCents, item.CategoryIDs); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := insertHistory(ctx, tx, order); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}

	return nil
}

// Update persists the mutable order fields and appends any new history
// entries. History rows are keyed by sequence number, so re-writing existing
// entries is a no-op and the log stays append-only.
func (r *Repository) Update(ctx context.Context, order *domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	updateOrder := `
		UPDATE orders
		SET status = $2, description = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, updateOrder, order.ID, order.Status, order.Description, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}

	if err := insertHistory(ctx, tx, order); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}

	return nil
}

func insertHistory(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	insert := `
		INSERT INTO order_status_history (order_id, seq, status, at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (order_id, seq) DO NOTHING
	`
	for seq, change := range order.History {
		if _, err := tx.Exec(ctx, insert, order.ID, seq, change.Status, change.At); err != nil {
			return fmt.Errorf("insert status history: %w", err)
		}
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	selectOrder := `
		SELECT id, customer_id, coupon_ids, total_cents, status, description,
		       payment_method, installments,
		       billing_street, billing_city, billing_zip, billing_country,
		       delivery_street, delivery_city, delivery_zip, delivery_country,
		       created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order domain.Order
	err := r.pool.QueryRow(ctx, selectOrder, id).Scan(
		&order.ID,
		&order.CustomerID,
		&order.CouponIDs,
		&order.TotalCents,
		&order.Status,
		&order.Description,
		&order.PaymentMethod,
		&order.Installments,
		&order.BillingAddress.Street,
		&order.BillingAddress.City,
		&order.BillingAddress.Zip,
		&order.BillingAddress.Country,
		&order.DeliveryAddress.Street,
		&order.DeliveryAddress.City,
		&order.DeliveryAddress.Zip,
		&order.DeliveryAddress.Country,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	if err := r.loadItems(ctx, &order); err != nil {
		return nil, err
	}
	if err := r.loadHistory(ctx, &order); err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *Repository) loadItems(ctx context.Context, order *domain.Order) error {
	query := `
		SELECT product_id, quantity, unit_price_cents, category_ids
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitPriceCents, &item.CategoryIDs); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func (r *Repository) loadHistory(ctx context.Context, order *domain.Order) error {
	query := `
		SELECT status, at
		FROM order_status_history
		WHERE order_id = $1
		ORDER BY seq
	`

	rows, err := r.pool.Query(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("select status history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var change domain.StatusChange
		if err := rows.Scan(&change.Status, &change.At); err != nil {
			return fmt.Errorf("scan status history: %w", err)
		}
		order.History = append(order.History, change)
	}
	return rows.Err()
}
