package memory

import (
	"context"
	"sync"

	"github.com/mercato/backoffice/internal/catalog/domain"
	"github.com/mercato/backoffice/internal/catalog/ports"
)

// Repository provides an in-memory catalog useful for local development and tests.
type Repository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{products: make(map[string]domain.Product)}
}

// Seed stores a product, overwriting any existing entry with the same ID.
func (r *Repository) Seed(product domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = product
}

// GetByID fetches a single product by identifier.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	product, ok := r.products[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copied := product
	return &copied, nil
}

// ListByIDs returns the products matching the given ids. Missing ids yield
// ports.ErrNotFound so callers never silently price an unknown product.
func (r *Repository) ListByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		product, ok := r.products[id]
		if !ok {
			return nil, ports.ErrNotFound
		}
		result = append(result, product)
	}
	return result, nil
}

// AdjustStock applies a signed delta to the product's stock counter.
func (r *Repository) AdjustStock(_ context.Context, id string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return ports.ErrNotFound
	}
	if product.Stock+delta < 0 {
		return ports.ErrInsufficientStock
	}
	product.Stock += delta
	r.products[id] = product
	return nil
}
