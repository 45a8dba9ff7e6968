package ports

import (
	"context"
	"errors"

	"github.com/mercato/backoffice/internal/shipments/domain"
)

var (
	// ErrNotFound is returned when the requested shipment does not exist.
	ErrNotFound = errors.New("shipment not found")

	// ErrNoCarrierAvailable is returned when no active carrier can take a
	// new shipment.
	ErrNoCarrierAvailable = errors.New("no carrier available")
)

// ShipmentRepository abstracts shipment persistence.
type ShipmentRepository interface {
	Create(ctx context.Context, shipment *domain.Shipment) error
	GetByID(ctx context.Context, id string) (*domain.Shipment, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Shipment, error)
	Update(ctx context.Context, shipment *domain.Shipment) error
}

// CarrierRepository lists delivery partners.
type CarrierRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Carrier, error)
	ListActive(ctx context.Context) ([]domain.Carrier, error)
}
