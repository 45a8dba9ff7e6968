package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mercato/backoffice/internal/customers/domain"
	"github.com/mercato/backoffice/internal/customers/ports"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	query := `
		SELECT id, email, active,
		       billing_street, billing_city, billing_zip, billing_country,
		       delivery_street, delivery_city, delivery_zip, delivery_country
		FROM customers
		WHERE id = $1
	`

	var customer domain.Customer
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&customer.ID,
		&customer.Email,
		&customer.Active,
		&customer.BillingAddress.Street,
		&customer.BillingAddress.City,
		&customer.BillingAddress.Zip,
		&customer.BillingAddress.Country,
		&customer.DeliveryAddress.Street,
		&customer.DeliveryAddress.City,
		&customer.DeliveryAddress.Zip,
		&customer.DeliveryAddress.Country,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select customer: %w", err)
	}

	return &customer, nil
}
