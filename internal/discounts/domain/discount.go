package domain

import (
	"errors"
	"math"
	"time"
)

// MaxEffectivePercent caps the composed discount: the discounted price never
// falls below 10% of the base price.
const MaxEffectivePercent = 90.0

// Discount is a percentage reduction bounded by a validity window.
type Discount struct {
	Percent  float64   `json:"percent"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// NewDiscount validates the percentage and window ordering.
func NewDiscount(percent float64, startsAt, endsAt time.Time) (Discount, error) {
	if percent <= 0 || percent > 100 {
		return Discount{}, errors.New("percent must be in (0, 100]")
	}
	if !endsAt.After(startsAt) {
		return Discount{}, errors.New("ends_at must be after starts_at")
	}
	return Discount{Percent: percent, StartsAt: startsAt, EndsAt: endsAt}, nil
}

// ValidAt reports whether the discount window covers the given instant.
// The window is half-open: inclusive start, exclusive end.
func (d Discount) ValidAt(now time.Time) bool {
	return !now.Before(d.StartsAt) && now.Before(d.EndsAt)
}

// PriceFloor is the lowest price the cap allows for the given base. Callers
// composing discounts in stages (sales per line, coupons on the total) must
// clamp their final result against the floor of the original base, since each
// ApplyDiscounts call only knows the base it was handed.
func PriceFloor(baseCents int64) int64 {
	return int64(math.Round(float64(baseCents) * (100 - MaxEffectivePercent) / 100))
}

// ApplyDiscounts applies each discount's percentage sequentially to the
// running price, rounding after every step, then clamps the result so it
// never drops below 10% of the base price. Because of per-step rounding the
// result can differ by a cent depending on the order of the discounts;
// callers that need a stable result must pass a stable order.
func ApplyDiscounts(baseCents int64, discounts []Discount) int64 {
	if baseCents <= 0 {
		return 0
	}

	price := baseCents
	for _, d := range discounts {
		price = int64(math.Round(float64(price) * (100 - d.Percent) / 100))
	}

	if floor := PriceFloor(baseCents); price < floor {
		price = floor
	}
	return price
}

// ComposedPercent reports the effective total percentage the given discounts
// would take off a price, before the floor clamp.
func ComposedPercent(discounts []Discount) float64 {
	remaining := 1.0
	for _, d := range discounts {
		remaining *= (100 - d.Percent) / 100
	}
	return (1 - remaining) * 100
}
