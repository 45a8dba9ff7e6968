package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mercato/backoffice/internal/discounts/domain"
	"github.com/mercato/backoffice/internal/discounts/ports"
)

// Repository provides in-memory coupon and sale stores useful for local
// development and tests.
type Repository struct {
	mu      sync.RWMutex
	coupons map[string]domain.Coupon
	sales   []domain.Sale
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{coupons: make(map[string]domain.Coupon)}
}

// SeedCoupon stores a coupon keyed by its code.
func (r *Repository) SeedCoupon(coupon domain.Coupon) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coupons[coupon.Code] = coupon
}

// SeedSale stores a sale campaign.
func (r *Repository) SeedSale(sale domain.Sale) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, sale)
}

// GetByCode fetches a coupon by its unique code.
func (r *Repository) GetByCode(_ context.Context, code string) (*domain.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	coupon, ok := r.coupons[code]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copied := coupon
	return &copied, nil
}

// ListAutoApply returns active coupons flagged for automatic application.
func (r *Repository) ListAutoApply(_ context.Context) ([]domain.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Coupon
	for _, coupon := range r.coupons {
		if coupon.AutoApply && coupon.Active {
			result = append(result, coupon)
		}
	}
	return result, nil
}

// ListActive returns sales whose validity window covers now.
func (r *Repository) ListActive(_ context.Context, now time.Time) ([]domain.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Sale
	for _, sale := range r.sales {
		if sale.Discount.ValidAt(now) {
			result = append(result, sale)
		}
	}
	return result, nil
}

// Counter is a mutex-guarded usage counter for tests and local development.
type Counter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewCounter constructs a new in-memory usage counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]int)}
}

// Reserve claims one redemption slot and returns the new usage count.
func (c *Counter) Reserve(_ context.Context, couponID string, limit int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counts[couponID] >= limit {
		return 0, domain.ErrUsageLimitReached
	}
	c.counts[couponID]++
	return c.counts[couponID], nil
}

// Release returns a previously reserved slot.
func (c *Counter) Release(_ context.Context, couponID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counts[couponID] > 0 {
		c.counts[couponID]--
	}
	return nil
}

// Current reads the usage count.
func (c *Counter) Current(_ context.Context, couponID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[couponID], nil
}
