package ports

import (
	"context"
	"errors"

	"github.com/mercato/backoffice/internal/customers/domain"
)

// CustomerRepository exposes customer lookups needed by the choreography.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
}

// ErrNotFound is returned when the requested customer does not exist.
var ErrNotFound = errors.New("customer not found")
