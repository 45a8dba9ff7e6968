package domain

import (
	"time"

	custdomain "github.com/mercato/backoffice/internal/customers/domain"
)

// Event names for bus subscriptions.
const (
	EventOrderCreated  = "order.created"
	EventOrderPaid     = "order.paid"
	EventOrderCanceled = "order.canceled"
)

// OrderCreated seeds the fulfillment choreography: the payment handler
// reacts to it by creating a Payment and requesting gateway authorization.
type OrderCreated struct {
	OrderID         string             `json:"order_id"`
	CustomerID      string             `json:"customer_id"`
	TotalCents      int64              `json:"total_cents"`
	PaymentMethod   string             `json:"payment_method"`
	Installments    int                `json:"installments"`
	BillingAddress  custdomain.Address `json:"billing_address"`
	DeliveryAddress custdomain.Address `json:"delivery_address"`
	At              time.Time          `json:"at"`
}

func (e OrderCreated) Name() string          { return EventOrderCreated }
func (e OrderCreated) AggregateID() string   { return e.OrderID }
func (e OrderCreated) OccurredAt() time.Time { return e.At }

// OrderPaid triggers shipment creation. It carries the delivery address so
// the shipment snapshot does not depend on the customer profile staying
// unchanged.
type OrderPaid struct {
	OrderID         string             `json:"order_id"`
	CustomerID      string             `json:"customer_id"`
	TotalCents      int64              `json:"total_cents"`
	DeliveryAddress custdomain.Address `json:"delivery_address"`
	At              time.Time          `json:"at"`
}

func (e OrderPaid) Name() string          { return EventOrderPaid }
func (e OrderPaid) AggregateID() string   { return e.OrderID }
func (e OrderPaid) OccurredAt() time.Time { return e.At }

// RestockItem is a reserved quantity to return to inventory.
type RestockItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderCanceled is the compensating event: its consumer restocks each line
// item's reserved quantity, releases coupon usage, and cancels any shipment.
type OrderCanceled struct {
	OrderID   string        `json:"order_id"`
	Reason    string        `json:"reason"`
	Items     []RestockItem `json:"items"`
	CouponIDs []string      `json:"coupon_ids"`
	At        time.Time     `json:"at"`
}

func (e OrderCanceled) Name() string          { return EventOrderCanceled }
func (e OrderCanceled) AggregateID() string   { return e.OrderID }
func (e OrderCanceled) OccurredAt() time.Time { return e.At }
