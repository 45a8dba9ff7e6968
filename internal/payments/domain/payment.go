package domain

import (
	"errors"
	"time"

	"github.com/mercato/backoffice/internal/events"
)

// PaymentStatus mirrors the states reported by the payment gateway.
type PaymentStatus string

const (
	StatusCreated    PaymentStatus = "created"
	StatusAuthorized PaymentStatus = "authorized"
	StatusApproved   PaymentStatus = "approved"
	StatusRejected   PaymentStatus = "rejected"
	StatusCanceled   PaymentStatus = "canceled"
)

// statusRank orders statuses along the gateway's progression so stale
// callbacks (an "authorized" arriving after "approved") are ignored.
var statusRank = map[PaymentStatus]int{
	StatusCreated:    0,
	StatusAuthorized: 1,
	StatusApproved:   2,
	StatusRejected:   2,
	StatusCanceled:   2,
}

// ErrUnknownStatus is returned for a status value outside the gateway's set.
var ErrUnknownStatus = errors.New("unknown payment status")

// Payment is the aggregate reconciling the gateway's asynchronous responses
// with the order it charges. One payment per order.
type Payment struct {
	ID               string        `json:"id"`
	OrderID          string        `json:"order_id"`
	GatewayPaymentID string        `json:"gateway_payment_id"`
	AmountCents      int64         `json:"amount_cents"`
	Installments     int           `json:"installments"`
	Method           string        `json:"method"`
	Status           PaymentStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	pending []events.Event
}

// NewPayment constructs a payment in Created. The amount must equal the
// order's total at authorization time; the caller passes it straight from
// the order event.
func NewPayment(id, orderID string, amountCents int64, installments int, method string, now time.Time) (*Payment, error) {
	if amountCents <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if installments <= 0 {
		installments = 1
	}

	return &Payment{
		ID:           id,
		OrderID:      orderID,
		AmountCents:  amountCents,
		Installments: installments,
		Method:       method,
		Status:       StatusCreated,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsTerminal reports whether the gateway can still move this payment.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case StatusApproved, StatusRejected, StatusCanceled:
		return true
	default:
		return false
	}
}

// ApplyStatus records a status reported by the gateway. It is an idempotent
// set, not a strict transition table: duplicate callbacks are no-ops, and a
// callback older than the current status is dropped rather than failed, so
// out-of-order delivery never corrupts the aggregate. Each effective change
// records the event that drives the next choreography step.
func (p *Payment) ApplyStatus(status PaymentStatus, now time.Time) error {
	newRank, ok := statusRank[status]
	if !ok {
		return ErrUnknownStatus
	}

	if status == p.Status {
		return nil
	}
	if p.IsTerminal() {
		return nil
	}
	if newRank < statusRank[p.Status] {
		return nil
	}

	p.Status = status
	p.UpdatedAt = now

	switch status {
	case StatusAuthorized:
		p.record(PaymentAuthorized{PaymentID: p.ID, OrderID: p.OrderID, GatewayPaymentID: p.GatewayPaymentID, At: now})
	case StatusApproved:
		p.record(PaymentApproved{PaymentID: p.ID, OrderID: p.OrderID, At: now})
	case StatusRejected:
		p.record(PaymentRejected{PaymentID: p.ID, OrderID: p.OrderID, GatewayPaymentID: p.GatewayPaymentID, At: now})
	case StatusCanceled:
		p.record(PaymentCanceled{PaymentID: p.ID, OrderID: p.OrderID, At: now})
	}

	return nil
}

// AttachGatewayID stores the processor's identifier once authorization has
// been requested.
func (p *Payment) AttachGatewayID(gatewayPaymentID string, now time.Time) {
	p.GatewayPaymentID = gatewayPaymentID
	p.UpdatedAt = now
}

func (p *Payment) record(event events.Event) {
	p.pending = append(p.pending, event)
}

// PullEvents returns and clears the events recorded since the last pull.
func (p *Payment) PullEvents() []events.Event {
	pulled := p.pending
	p.pending = nil
	return pulled
}
