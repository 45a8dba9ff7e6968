package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mercato/backoffice/internal/discounts/domain"
	"github.com/mercato/backoffice/internal/discounts/ports"
)

const (
	restrictionKindProduct  = "product"
	restrictionKindCategory = "category"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT id, code, percent, starts_at, ends_at, usage_limit, min_price_cents, auto_apply, active
		FROM coupons
		WHERE code = $1
	`

	coupon, err := scanCoupon(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select coupon: %w", err)
	}

	if err := r.loadRestrictions(ctx, coupon); err != nil {
		return nil, err
	}

	return coupon, nil
}

func (r *Repository) ListAutoApply(ctx context.Context) ([]domain.Coupon, error) {
	query := `
		SELECT id, code, percent, starts_at, ends_at, usage_limit, min_price_cents, auto_apply, active
		FROM coupons
		WHERE auto_apply AND active
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select auto-apply coupons: %w", err)
	}
	defer rows.Close()

	var coupons []domain.Coupon
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *coupon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupons: %w", err)
	}

	for i := range coupons {
		if err := r.loadRestrictions(ctx, &coupons[i]); err != nil {
			return nil, err
		}
	}

	return coupons, nil
}

func (r *Repository) loadRestrictions(ctx context.Context, coupon *domain.Coupon) error {
	query := `
		SELECT kind, product_ids, category_ids, excluded_product_ids
		FROM coupon_restrictions
		WHERE coupon_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, coupon.ID)
	if err != nil {
		return fmt.Errorf("select coupon restrictions: %w", err)
	}
	defer rows.Close()

	var restrictions []domain.Restriction
	for rows.Next() {
		var kind string
		var productIDs, categoryIDs, excludedProductIDs []string
		if err := rows.Scan(&kind, &productIDs, &categoryIDs, &excludedProductIDs); err != nil {
			return fmt.Errorf("scan coupon restriction: %w", err)
		}

		switch kind {
		case restrictionKindProduct:
			restriction, err := domain.NewProductRestriction(productIDs)
			if err != nil {
				return fmt.Errorf("rebuild product restriction for coupon %s: %w", coupon.ID, err)
			}
			restrictions = append(restrictions, restriction)
		case restrictionKindCategory:
			restriction, err := domain.NewCategoryRestriction(categoryIDs, excludedProductIDs)
			if err != nil {
				return fmt.Errorf("rebuild category restriction for coupon %s: %w", coupon.ID, err)
			}
			restrictions = append(restrictions, restriction)
		default:
			return fmt.Errorf("unknown restriction kind %q for coupon %s", kind, coupon.ID)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate coupon restrictions: %w", err)
	}

	coupon.Restrictions = restrictions
	return nil
}

func (r *Repository) ListActive(ctx context.Context, now time.Time) ([]domain.Sale, error) {
	query := `
		SELECT id, name, percent, starts_at, ends_at, category_ids, product_ids, excluded_product_ids
		FROM sales
		WHERE starts_at <= $1 AND ends_at > $1
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("select active sales: %w", err)
	}
	defer rows.Close()

	var sales []domain.Sale
	for rows.Next() {
		var sale domain.Sale
		if err := rows.Scan(
			&sale.ID,
			&sale.Name,
			&sale.Discount.Percent,
			&sale.Discount.StartsAt,
			&sale.Discount.EndsAt,
			&sale.CategoryIDs,
			&sale.ProductIDs,
			&sale.ExcludedProductIDs,
		); err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}

	return sales, nil
}

func scanCoupon(row pgx.Row) (*domain.Coupon, error) {
	var coupon domain.Coupon
	err := row.Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.Discount.Percent,
		&coupon.Discount.StartsAt,
		&coupon.Discount.EndsAt,
		&coupon.UsageLimit,
		&coupon.MinPriceCents,
		&coupon.AutoApply,
		&coupon.Active,
	)
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}
