package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mercato/backoffice/internal/shipments/domain"
	"github.com/mercato/backoffice/internal/shipments/ports"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, shipment *domain.Shipment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := `
		INSERT INTO shipments (
			id, order_id, carrier_id, status,
			address_street, address_city, address_zip, address_country,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.Exec(ctx, insert,
		shipment.ID,
		shipment.OrderID,
		shipment.CarrierID,
		shipment.Status,
		shipment.Address.Street,
		shipment.Address.City,
		shipment.Address.Zip,
		shipment.Address.Country,
		shipment.CreatedAt,
		shipment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert shipment: %w", err)
	}

	if err := insertTracking(ctx, tx, shipment); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit shipment: %w", err)
	}
	return nil
}

// Update persists the shipment status and appends new tracking entries.
// Tracking rows are keyed by sequence number, so rewriting existing entries
// is a no-op and the log stays append-only.
func (r *Repository) Update(ctx context.Context, shipment *domain.Shipment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	update := `
		UPDATE shipments
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, update, shipment.ID, shipment.Status, shipment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}

	if err := insertTracking(ctx, tx, shipment); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit shipment: %w", err)
	}
	return nil
}

func insertTracking(ctx context.Context, tx pgx.Tx, shipment *domain.Shipment) error {
	insert := `
		INSERT INTO shipment_tracking (shipment_id, seq, status, at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (shipment_id, seq) DO NOTHING
	`
	for seq, entry := range shipment.Tracking {
		if _, err := tx.Exec(ctx, insert, shipment.ID, seq, entry.Status, entry.At); err != nil {
			return fmt.Errorf("insert tracking entry: %w", err)
		}
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Shipment, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (*domain.Shipment, error) {
	return r.get(ctx, "order_id = $1", orderID)
}

func (r *Repository) get(ctx context.Context, where string, arg any) (*domain.Shipment, error) {
	query := fmt.Sprintf(`
		SELECT id, order_id, carrier_id, status,
		       address_street, address_city, address_zip, address_country,
		       created_at, updated_at
		FROM shipments
		WHERE %s
	`, where)

	var shipment domain.Shipment
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&shipment.ID,
		&shipment.OrderID,
		&shipment.CarrierID,
		&shipment.Status,
		&shipment.Address.Street,
		&shipment.Address.City,
		&shipment.Address.Zip,
		&shipment.Address.Country,
		&shipment.CreatedAt,
		&shipment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select shipment: %w", err)
	}

	if err := r.loadTracking(ctx, &shipment); err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *Repository) loadTracking(ctx context.Context, shipment *domain.Shipment) error {
	query := `
		SELECT status, at
		FROM shipment_tracking
		WHERE shipment_id = $1
		ORDER BY seq
	`

	rows, err := r.pool.Query(ctx, query, shipment.ID)
	if err != nil {
		return fmt.Errorf("select tracking entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.TrackingEntry
		if err := rows.Scan(&entry.Status, &entry.At); err != nil {
			return fmt.Errorf("scan tracking entry: %w", err)
		}
		shipment.Tracking = append(shipment.Tracking, entry)
	}
	return rows.Err()
}

// CarrierRepository reads delivery partners from Postgres.
type CarrierRepository struct {
	pool *pgxpool.Pool
}

func NewCarrierRepository(pool *pgxpool.Pool) *CarrierRepository {
	return &CarrierRepository{pool: pool}
}

func (r *CarrierRepository) GetByID(ctx context.Context, id string) (*domain.Carrier, error) {
	var carrier domain.Carrier
	err := r.pool.QueryRow(ctx, `SELECT id, name, active FROM carriers WHERE id = $1`, id).
		Scan(&carrier.ID, &carrier.Name, &carrier.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select carrier: %w", err)
	}
	return &carrier, nil
}

func (r *CarrierRepository) ListActive(ctx context.Context) ([]domain.Carrier, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, active FROM carriers WHERE active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select carriers: %w", err)
	}
	defer rows.Close()

	var carriers []domain.Carrier
	for rows.Next() {
		var carrier domain.Carrier
		if err := rows.Scan(&carrier.ID, &carrier.Name, &carrier.Active); err != nil {
			return nil, fmt.Errorf("scan carrier: %w", err)
		}
		carriers = append(carriers, carrier)
	}
	return carriers, rows.Err()
}
