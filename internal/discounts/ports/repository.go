package ports

import (
	"context"
	"errors"
	"time"

	"github.com/mercato/backoffice/internal/discounts/domain"
)

// CouponRepository exposes coupon lookups used by the discount engine.
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	ListAutoApply(ctx context.Context) ([]domain.Coupon, error)
}

// SaleRepository exposes sale campaign lookups.
type SaleRepository interface {
	ListActive(ctx context.Context, now time.Time) ([]domain.Sale, error)
}

// UsageCounter tracks coupon redemptions. Reserve is a serializable
// check-and-increment: it must atomically reject the reservation once the
// limit is reached, so two concurrent orders cannot both claim the last slot.
type UsageCounter interface {
	Reserve(ctx context.Context, couponID string, limit int) (int, error)
	Release(ctx context.Context, couponID string) error
	Current(ctx context.Context, couponID string) (int, error)
}

// ErrNotFound is returned when the requested coupon does not exist.
var ErrNotFound = errors.New("coupon not found")
