package domain

import "time"

// Event names for bus subscriptions.
const (
	EventShipmentShipped   = "shipment.shipped"
	EventShipmentDelivered = "shipment.delivered"
)

// ShipmentShipped triggers marking the order shipped.
type ShipmentShipped struct {
	ShipmentID string    `json:"shipment_id"`
	OrderID    string    `json:"order_id"`
	At         time.Time `json:"at"`
}

func (e ShipmentShipped) Name() string          { return EventShipmentShipped }
func (e ShipmentShipped) AggregateID() string   { return e.ShipmentID }
func (e ShipmentShipped) OccurredAt() time.Time { return e.At }

// ShipmentDelivered triggers marking the order delivered.
type ShipmentDelivered struct {
	ShipmentID string    `json:"shipment_id"`
	OrderID    string    `json:"order_id"`
	At         time.Time `json:"at"`
}

func (e ShipmentDelivered) Name() string          { return EventShipmentDelivered }
func (e ShipmentDelivered) AggregateID() string   { return e.ShipmentID }
func (e ShipmentDelivered) OccurredAt() time.Time { return e.At }
