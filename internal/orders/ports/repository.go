package ports

import (
	"context"
	"errors"

	"github.com/mercato/backoffice/internal/orders/domain"
)

// OrderRepository exposes persistence operations required by the application
// layer and the choreography handlers. Create and Update are each a single
// atomic commit; there is no shared transaction across handlers.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
}

// ErrNotFound is returned when the requested order does not exist.
var ErrNotFound = errors.New("order not found")
