package memory

import (
	"context"
	"sync"

	"github.com/mercato/backoffice/internal/customers/domain"
	"github.com/mercato/backoffice/internal/customers/ports"
)

// Repository provides an in-memory customer store useful for local development and tests.
type Repository struct {
	mu        sync.RWMutex
	customers map[string]domain.Customer
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{customers: make(map[string]domain.Customer)}
}

// Seed stores a customer, overwriting any existing entry with the same ID.
func (r *Repository) Seed(customer domain.Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[customer.ID] = customer
}

// GetByID fetches a single customer by identifier.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	customer, ok := r.customers[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	copied := customer
	return &copied, nil
}
