package domain

import (
	"errors"
	"fmt"
	"time"

	custdomain "github.com/mercato/backoffice/internal/customers/domain"
	"github.com/mercato/backoffice/internal/events"
)

// OrderStatus captures the lifecycle of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCanceled  OrderStatus = "canceled"
)

// transitions is the closed table of legal status moves. Canceled is
// reachable from every non-terminal state; Delivered and Canceled are
// terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPaid, StatusCanceled},
	StatusPaid:      {StatusShipped, StatusCanceled},
	StatusShipped:   {StatusDelivered, StatusCanceled},
	StatusDelivered: {},
	StatusCanceled:  {},
}

var (
	// ErrInvalidTransition is returned when a status move is not in the table.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrEmptyItems is returned when an order is constructed without line items.
	ErrEmptyItems = errors.New("order requires at least one line item")
)

// LineItem is an ordered product with its price and categories snapshot at
// order time.
type LineItem struct {
	ProductID      string   `json:"product_id"`
	Quantity       int      `json:"quantity"`
	UnitPriceCents int64    `json:"unit_price_cents"`
	CategoryIDs    []string `json:"category_ids"`
}

// SubtotalCents is the undiscounted line total.
func (li LineItem) SubtotalCents() int64 {
	return li.UnitPriceCents * int64(li.Quantity)
}

// StatusChange is one entry of the append-only status history.
type StatusChange struct {
	Status OrderStatus `json:"status"`
	At     time.Time   `json:"at"`
}

// Order is the purchase aggregate. Status moves only through the transition
// table, the history log is append-only, and the total never goes negative.
type Order struct {
	ID              string             `json:"id"`
	CustomerID      string             `json:"customer_id"`
	Items           []LineItem         `json:"items"`
	CouponIDs       []string           `json:"coupon_ids"`
	TotalCents      int64              `json:"total_cents"`
	Status          OrderStatus        `json:"status"`
	Description     string             `json:"description"`
	PaymentMethod   string             `json:"payment_method"`
	Installments    int                `json:"installments"`
	BillingAddress  custdomain.Address `json:"billing_address"`
	DeliveryAddress custdomain.Address `json:"delivery_address"`
	History         []StatusChange     `json:"history"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`

	pending []events.Event
}

// NewOrder constructs a pending order and records the OrderCreated event that
// seeds the payment choreography. totalCents is the discounted total computed
// by the caller; it must never exceed the undiscounted item sum or be
// negative.
func NewOrder(id, customerID string, items []LineItem, couponIDs []string, totalCents int64, paymentMethod string, installments int, billing, delivery custdomain.Address, now time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("line item %s: quantity must be positive", item.ProductID)
		}
		if item.UnitPriceCents <= 0 {
			return nil, fmt.Errorf("line item %s: unit price must be positive", item.ProductID)
		}
	}
	if totalCents < 0 {
		return nil, errors.New("total must not be negative")
	}
	if sum := itemSum(items); totalCents > sum {
		return nil, fmt.Errorf("total %d exceeds undiscounted item sum %d", totalCents, sum)
	}
	if installments <= 0 {
		installments = 1
	}

	order := &Order{
		ID:              id,
		CustomerID:      customerID,
		Items:           items,
		CouponIDs:       couponIDs,
		TotalCents:      totalCents,
		Status:          StatusPending,
		PaymentMethod:   paymentMethod,
		Installments:    installments,
		BillingAddress:  billing,
		DeliveryAddress: delivery,
		History:         []StatusChange{{Status: StatusPending, At: now}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	order.record(OrderCreated{
		OrderID:         order.ID,
		CustomerID:      order.CustomerID,
		TotalCents:      order.TotalCents,
		PaymentMethod:   order.PaymentMethod,
		Installments:    order.Installments,
		BillingAddress:  billing,
		DeliveryAddress: delivery,
		At:              now,
	})

	return order, nil
}

func itemSum(items []LineItem) int64 {
	var sum int64
	for _, item := range items {
		sum += item.SubtotalCents()
	}
	return sum
}

// MarkPaid moves the order from Pending to Paid and records OrderPaid.
func (o *Order) MarkPaid(now time.Time) error {
	if err := o.transition(StatusPaid, now); err != nil {
		return err
	}
	o.record(OrderPaid{
		OrderID:         o.ID,
		CustomerID:      o.CustomerID,
		TotalCents:      o.TotalCents,
		DeliveryAddress: o.DeliveryAddress,
		At:              now,
	})
	return nil
}

// Cancel moves the order to Canceled from any non-terminal state, records
// the reason, and raises the compensating OrderCanceled event whose consumer
// restocks the reserved quantities.
func (o *Order) Cancel(reason string, now time.Time) error {
	if err := o.transition(StatusCanceled, now); err != nil {
		return err
	}
	o.Description = reason

	restock := make([]RestockItem, len(o.Items))
	for i, item := range o.Items {
		restock[i] = RestockItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	o.record(OrderCanceled{
		OrderID:   o.ID,
		Reason:    reason,
		Items:     restock,
		CouponIDs: o.CouponIDs,
		At:        now,
	})
	return nil
}

// MarkShipped advances the order when its shipment leaves the warehouse.
// Driven by shipment events, never called by clients directly.
func (o *Order) MarkShipped(now time.Time) error {
	return o.transition(StatusShipped, now)
}

// MarkDelivered advances the order when its shipment is delivered.
func (o *Order) MarkDelivered(now time.Time) error {
	return o.transition(StatusDelivered, now)
}

// IsTerminal indicates whether the order can still move.
func (o *Order) IsTerminal() bool {
	return len(transitions[o.Status]) == 0
}

func (o *Order) transition(to OrderStatus, now time.Time) error {
	for _, allowed := range transitions[o.Status] {
		if allowed == to {
			o.Status = to
			o.History = append(o.History, StatusChange{Status: to, At: now})
			o.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
}

func (o *Order) record(event events.Event) {
	o.pending = append(o.pending, event)
}

// PullEvents returns and clears the events recorded since the last pull.
// Callers publish them after the aggregate has been persisted.
func (o *Order) PullEvents() []events.Event {
	pulled := o.pending
	o.pending = nil
	return pulled
}
