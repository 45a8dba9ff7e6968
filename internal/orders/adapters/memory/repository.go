package memory

import (
	"context"
	"sync"

	"github.com/mercato/backoffice/internal/orders/domain"
	"github.com/mercato/backoffice/internal/orders/ports"
)

// Repository provides an in-memory store useful for local development and tests.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{orders: make(map[string]domain.Order)}
}

// Create stores a new order instance.
func (r *Repository) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = snapshot(order)
	return nil
}

// GetByID fetches a single order by identifier.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copied := snapshot(&order)
	return &copied, nil
}

// Update overwrites the stored order.
func (r *Repository) Update(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.ID]; !ok {
		return ports.ErrNotFound
	}
	r.orders[order.ID] = snapshot(order)
	return nil
}

// snapshot copies the order with its slices so callers cannot mutate the
// stored state through shared backing arrays.
func snapshot(order *domain.Order) domain.Order {
	copied := *order
	copied.Items = append([]domain.LineItem(nil), order.Items...)
	copied.CouponIDs = append([]string(nil), order.CouponIDs...)
	copied.History = append([]domain.StatusChange(nil), order.History...)
	return copied
}
