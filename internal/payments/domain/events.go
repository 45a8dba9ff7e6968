package domain

import "time"

// Event names for bus subscriptions.
const (
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentApproved   = "payment.approved"
	EventPaymentRejected   = "payment.rejected"
	EventPaymentCanceled   = "payment.canceled"
)

// PaymentAuthorized triggers the capture call.
type PaymentAuthorized struct {
	PaymentID        string    `json:"payment_id"`
	OrderID          string    `json:"order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	At               time.Time `json:"at"`
}

func (e PaymentAuthorized) Name() string          { return EventPaymentAuthorized }
func (e PaymentAuthorized) AggregateID() string   { return e.PaymentID }
func (e PaymentAuthorized) OccurredAt() time.Time { return e.At }

// PaymentApproved triggers marking the order paid.
type PaymentApproved struct {
	PaymentID string    `json:"payment_id"`
	OrderID   string    `json:"order_id"`
	At        time.Time `json:"at"`
}

func (e PaymentApproved) Name() string          { return EventPaymentApproved }
func (e PaymentApproved) AggregateID() string   { return e.PaymentID }
func (e PaymentApproved) OccurredAt() time.Time { return e.At }

// PaymentRejected triggers cancellation of the gateway authorization.
type PaymentRejected struct {
	PaymentID        string    `json:"payment_id"`
	OrderID          string    `json:"order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	At               time.Time `json:"at"`
}

func (e PaymentRejected) Name() string          { return EventPaymentRejected }
func (e PaymentRejected) AggregateID() string   { return e.PaymentID }
func (e PaymentRejected) OccurredAt() time.Time { return e.At }

// PaymentCanceled triggers cancellation of the order.
type PaymentCanceled struct {
	PaymentID string    `json:"payment_id"`
	OrderID   string    `json:"order_id"`
	At        time.Time `json:"at"`
}

func (e PaymentCanceled) Name() string          { return EventPaymentCanceled }
func (e PaymentCanceled) AggregateID() string   { return e.PaymentID }
func (e PaymentCanceled) OccurredAt() time.Time { return e.At }
