package domain

import (
	"errors"
	"time"

	custdomain "github.com/mercato/backoffice/internal/customers/domain"
	"github.com/mercato/backoffice/internal/events"
)

// ShipmentStatus models the delivery progression.
type ShipmentStatus string

const (
	StatusPending   ShipmentStatus = "pending"
	StatusPreparing ShipmentStatus = "preparing"
	StatusShipped   ShipmentStatus = "shipped"
	StatusInRoute   ShipmentStatus = "in_route"
	StatusDelivered ShipmentStatus = "delivered"
	StatusCanceled  ShipmentStatus = "canceled"
)

// next maps each status to its single successor. Advancing is strictly
// one step at a time; there is no skipping.
var next = map[ShipmentStatus]ShipmentStatus{
	StatusPending:   StatusPreparing,
	StatusPreparing: StatusShipped,
	StatusShipped:   StatusInRoute,
	StatusInRoute:   StatusDelivered,
}

var (
	// ErrNotAdvanceable is returned when the shipment is delivered or canceled.
	ErrNotAdvanceable = errors.New("shipment cannot be advanced")

	// ErrNotCancelable is returned when cancelation arrives after delivery.
	ErrNotCancelable = errors.New("shipment cannot be canceled")
)

// TrackingEntry is one step of the shipment's history.
type TrackingEntry struct {
	Status ShipmentStatus `json:"status"`
	At     time.Time      `json:"at"`
}

// Shipment carries an order to the customer. The delivery address is frozen
// at creation; later changes to the customer profile do not move a shipment
// already on its way.
type Shipment struct {
	ID        string             `json:"id"`
	OrderID   string             `json:"order_id"`
	CarrierID string             `json:"carrier_id"`
	Address   custdomain.Address `json:"address"`
	Status    ShipmentStatus     `json:"status"`
	Tracking  []TrackingEntry    `json:"tracking"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`

	pending []events.Event
}

// NewShipment creates a pending shipment for a paid order.
func NewShipment(id, orderID, carrierID string, address custdomain.Address, now time.Time) (*Shipment, error) {
	if orderID == "" {
		return nil, errors.New("order id is required")
	}
	if carrierID == "" {
		return nil, errors.New("carrier id is required")
	}

	return &Shipment{
		ID:        id,
		OrderID:   orderID,
		CarrierID: carrierID,
		Address:   address,
		Status:    StatusPending,
		Tracking:  []TrackingEntry{{Status: StatusPending, At: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Advance moves the shipment one step along the delivery progression and
// records the events that ripple back into the order.
func (s *Shipment) Advance(now time.Time) error {
	successor, ok := next[s.Status]
	if !ok {
		return ErrNotAdvanceable
	}

	s.Status = successor
	s.UpdatedAt = now
	s.Tracking = append(s.Tracking, TrackingEntry{Status: successor, At: now})

	switch successor {
	case StatusShipped:
		s.record(ShipmentShipped{ShipmentID: s.ID, OrderID: s.OrderID, At: now})
	case StatusDelivered:
		s.record(ShipmentDelivered{ShipmentID: s.ID, OrderID: s.OrderID, At: now})
	}

	return nil
}

// Cancel stops a shipment that has not been delivered yet. Canceling an
// already canceled shipment is a no-op.
func (s *Shipment) Cancel(now time.Time) error {
	if s.Status == StatusCanceled {
		return nil
	}
	if s.Status == StatusDelivered {
		return ErrNotCancelable
	}

	s.Status = StatusCanceled
	s.UpdatedAt = now
	s.Tracking = append(s.Tracking, TrackingEntry{Status: StatusCanceled, At: now})
	return nil
}

func (s *Shipment) record(event events.Event) {
	s.pending = append(s.pending, event)
}

// PullEvents returns and clears the events recorded since the last pull.
func (s *Shipment) PullEvents() []events.Event {
	pulled := s.pending
	s.pending = nil
	return pulled
}
