package ports

import (
	"context"
	"errors"

	"github.com/mercato/backoffice/internal/payments/domain"
)

// ErrNotFound is returned when the requested payment does not exist.
var ErrNotFound = errors.New("payment not found")

// PaymentRepository abstracts payment persistence.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error
}
