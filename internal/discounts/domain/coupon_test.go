package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoupon(t *testing.T, restrictions ...Restriction) *Coupon {
	t.Helper()
	if len(restrictions) == 0 {
		r, err := NewProductRestriction([]string{"product-1"})
		require.NoError(t, err)
		restrictions = []Restriction{r}
	}
	coupon, err := NewCoupon("coupon-1", "SAVE10", mustDiscount(t, 10), 5, 2000, false, restrictions)
	require.NoError(t, err)
	return coupon
}

func testSummary() OrderSummary {
	return OrderSummary{
		TotalCents: 5000,
		Products: []OrderedProduct{
			{ProductID: "product-1", CategoryIDs: []string{"category-1"}},
		},
	}
}

func TestNewCoupon(t *testing.T) {
	t.Run("requires at least one restriction", func(t *testing.T) {
		_, err := NewCoupon("coupon-1", "SAVE10", mustDiscount(t, 10), 5, 0, false, nil)
		assert.Error(t, err)
	})

	t.Run("requires positive usage limit", func(t *testing.T) {
		r, err := NewProductRestriction([]string{"product-1"})
		require.NoError(t, err)
		_, err = NewCoupon("coupon-1", "SAVE10", mustDiscount(t, 10), 0, 0, false, []Restriction{r})
		assert.Error(t, err)
	})

	t.Run("requires a code", func(t *testing.T) {
		r, err := NewProductRestriction([]string{"product-1"})
		require.NoError(t, err)
		_, err = NewCoupon("coupon-1", "  ", mustDiscount(t, 10), 5, 0, false, []Restriction{r})
		assert.Error(t, err)
	})
}

func TestWithinUsageLimit(t *testing.T) {
	coupon := newTestCoupon(t)

	assert.True(t, coupon.WithinUsageLimit(0))
	assert.True(t, coupon.WithinUsageLimit(4))
	assert.False(t, coupon.WithinUsageLimit(5), "usage equal to limit must not pass")
	assert.False(t, coupon.WithinUsageLimit(6))
}

func TestCouponApplicable(t *testing.T) {
	inWindow := windowStart.Add(24 * time.Hour)

	t.Run("passes when all rules hold", func(t *testing.T) {
		coupon := newTestCoupon(t)
		assert.NoError(t, coupon.Applicable(testSummary(), 0, inWindow))
	})

	t.Run("inactive coupon", func(t *testing.T) {
		coupon := newTestCoupon(t)
		coupon.Active = false
		assert.ErrorIs(t, coupon.Applicable(testSummary(), 0, inWindow), ErrCouponInactive)
	})

	t.Run("outside validity window", func(t *testing.T) {
		coupon := newTestCoupon(t)
		assert.ErrorIs(t, coupon.Applicable(testSummary(), 0, windowEnd), ErrCouponExpired)
	})

	t.Run("usage limit reached", func(t *testing.T) {
		coupon := newTestCoupon(t)
		assert.ErrorIs(t, coupon.Applicable(testSummary(), 5, inWindow), ErrUsageLimitReached)
	})

	t.Run("below minimum price", func(t *testing.T) {
		coupon := newTestCoupon(t)
		summary := testSummary()
		summary.TotalCents = 1999
		assert.ErrorIs(t, coupon.Applicable(summary, 0, inWindow), ErrBelowMinimumPrice)
	})

	t.Run("minimum price is inclusive", func(t *testing.T) {
		coupon := newTestCoupon(t)
		summary := testSummary()
		summary.TotalCents = 2000
		assert.NoError(t, coupon.Applicable(summary, 0, inWindow))
	})

	t.Run("restrictions not met", func(t *testing.T) {
		restriction, err := NewProductRestriction([]string{"product-other"})
		require.NoError(t, err)
		coupon := newTestCoupon(t, restriction)
		assert.ErrorIs(t, coupon.Applicable(testSummary(), 0, inWindow), ErrRestrictionsNotMet)
	})

	t.Run("all restrictions must pass", func(t *testing.T) {
		matching, err := NewProductRestriction([]string{"product-1"})
		require.NoError(t, err)
		missing, err := NewCategoryRestriction([]string{"category-other"}, nil)
		require.NoError(t, err)
		coupon := newTestCoupon(t, matching, missing)
		assert.ErrorIs(t, coupon.Applicable(testSummary(), 0, inWindow), ErrRestrictionsNotMet)
	})
}
