package ports

import (
	"context"
	"errors"

	"github.com/mercato/backoffice/internal/catalog/domain"
)

// ProductRepository exposes catalog persistence operations.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Product, error)
	// AdjustStock applies a signed delta to the product's stock counter.
	// Negative deltas reserve, positive deltas restock. The implementation
	// must serialize concurrent adjustments and reject deltas that would
	// drive stock negative with ErrInsufficientStock.
	AdjustStock(ctx context.Context, id string, delta int) error
}

var (
	// ErrNotFound is returned when the requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned when a reservation exceeds available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
)
