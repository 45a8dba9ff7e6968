package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrCouponInactive means the coupon exists but is disabled.
	ErrCouponInactive = errors.New("coupon is not active")
	// ErrCouponExpired means the current time is outside the validity window.
	ErrCouponExpired = errors.New("coupon is not valid at this time")
	// ErrUsageLimitReached means the coupon has been redeemed up to its limit.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrBelowMinimumPrice means the order total does not meet the coupon's minimum.
	ErrBelowMinimumPrice = errors.New("order total below coupon minimum price")
	// ErrRestrictionsNotMet means no ordered product satisfies every restriction.
	ErrRestrictionsNotMet = errors.New("coupon restrictions not satisfied")
)

// Coupon is a user-supplied (or auto-applied) percentage discount guarded by
// usage limits, a minimum order price, and product/category restrictions.
type Coupon struct {
	ID            string
	Code          string
	Discount      Discount
	UsageLimit    int
	MinPriceCents int64
	AutoApply     bool
	Active        bool
	Restrictions  []Restriction
}

// OrderSummary is the slice of an order the coupon engine evaluates against.
// TotalCents is the undiscounted item sum: minimum-price eligibility is
// decided on what the buyer ordered, not on what sales already took off.
type OrderSummary struct {
	TotalCents int64
	Products   []OrderedProduct
}

// NewCoupon constructs a coupon. A coupon without restrictions cannot be
// constructed: an unrestricted coupon must carry an explicit allow-all
// restriction created by the caller.
func NewCoupon(id, code string, discount Discount, usageLimit int, minPriceCents int64, autoApply bool, restrictions []Restriction) (*Coupon, error) {
	if strings.TrimSpace(code) == "" {
		return nil, errors.New("code is required")
	}
	if usageLimit <= 0 {
		return nil, errors.New("usage_limit must be positive")
	}
	if minPriceCents < 0 {
		return nil, errors.New("min_price_cents must not be negative")
	}
	if len(restrictions) == 0 {
		return nil, errors.New("coupon requires at least one restriction")
	}

	return &Coupon{
		ID:            id,
		Code:          code,
		Discount:      discount,
		UsageLimit:    usageLimit,
		MinPriceCents: minPriceCents,
		AutoApply:     autoApply,
		Active:        true,
		Restrictions:  restrictions,
	}, nil
}

// WithinUsageLimit is boundary-exact: usage strictly below the limit.
func (c *Coupon) WithinUsageLimit(currentUsage int) bool {
	return currentUsage < c.UsageLimit
}

// Applicable reports whether the coupon may discount the given order. The
// returned error names the first failing rule so the caller can surface a
// precise conflict to the client.
func (c *Coupon) Applicable(order OrderSummary, currentUsage int, now time.Time) error {
	if !c.Active {
		return ErrCouponInactive
	}
	if !c.Discount.ValidAt(now) {
		return ErrCouponExpired
	}
	if !c.WithinUsageLimit(currentUsage) {
		return ErrUsageLimitReached
	}
	if order.TotalCents < c.MinPriceCents {
		return ErrBelowMinimumPrice
	}
	for _, restriction := range c.Restrictions {
		if !Satisfied(restriction, order.Products) {
			return ErrRestrictionsNotMet
		}
	}
	return nil
}
