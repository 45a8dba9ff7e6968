package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	custdomain "github.com/mercato/backoffice/internal/customers/domain"
	"github.com/mercato/backoffice/internal/events"
	"github.com/mercato/backoffice/internal/shipments/domain"
	"github.com/mercato/backoffice/internal/shipments/ports"
)

// Service owns the shipment lifecycle: creating shipments for paid orders,
// advancing them as carriers report progress, and canceling them when the
// order falls through.
type Service struct {
	shipments ports.ShipmentRepository
	carriers  ports.CarrierRepository
	bus       *events.Bus
	now       func() time.Time
}

func NewService(shipments ports.ShipmentRepository, carriers ports.CarrierRepository, bus *events.Bus) *Service {
	return &Service{
		shipments: shipments,
		carriers:  carriers,
		bus:       bus,
		now:       time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateForOrder builds a pending shipment with the delivery address frozen
// at creation. The first active carrier takes the assignment.
func (s *Service) CreateForOrder(ctx context.Context, orderID string, address custdomain.Address) (*domain.Shipment, error) {
	carriers, err := s.carriers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list carriers: %w", err)
	}
	if len(carriers) == 0 {
		return nil, ports.ErrNoCarrierAvailable
	}

	shipment, err := domain.NewShipment(uuid.NewString(), orderID, carriers[0].ID, address, s.now())
	if err != nil {
		return nil, fmt.Errorf("new shipment: %w", err)
	}

	if err := s.shipments.Create(ctx, shipment); err != nil {
		return nil, fmt.Errorf("create shipment: %w", err)
	}

	return shipment, nil
}

// Advance moves the shipment one step and publishes the resulting events so
// the order catches up with the delivery progress.
func (s *Service) Advance(ctx context.Context, shipmentID string) (*domain.Shipment, error) {
	shipment, err := s.shipments.GetByID(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("get shipment: %w", err)
	}

	if err := shipment.Advance(s.now()); err != nil {
		return nil, err
	}

	if err := s.shipments.Update(ctx, shipment); err != nil {
		return nil, fmt.Errorf("update shipment: %w", err)
	}

	for _, event := range shipment.PullEvents() {
		if err := s.bus.Publish(ctx, event); err != nil {
			return shipment, fmt.Errorf("shipment saved but event dispatch failed: %w", err)
		}
	}

	return shipment, nil
}

// CancelForOrder cancels the shipment attached to the order, if any. Orders
// canceled before payment have no shipment yet; that is not an error.
func (s *Service) CancelForOrder(ctx context.Context, orderID string) error {
	shipment, err := s.shipments.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get shipment: %w", err)
	}

	if err := shipment.Cancel(s.now()); err != nil {
		return err
	}

	if err := s.shipments.Update(ctx, shipment); err != nil {
		return fmt.Errorf("update shipment: %w", err)
	}
	return nil
}

// GetByID returns a shipment.
func (s *Service) GetByID(ctx context.Context, id string) (*domain.Shipment, error) {
	return s.shipments.GetByID(ctx, id)
}

// GetByOrderID returns the shipment attached to the order.
func (s *Service) GetByOrderID(ctx context.Context, orderID string) (*domain.Shipment, error) {
	return s.shipments.GetByOrderID(ctx, orderID)
}
