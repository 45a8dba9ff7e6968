package ports

import (
	"context"
	"errors"
	"time"

	custdomain "github.com/mercato/backoffice/internal/customers/domain"
	"github.com/mercato/backoffice/internal/payments/domain"
)

var (
	// ErrGatewayUnavailable marks transient failures worth retrying.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrGatewayDeclined marks a definitive refusal by the processor.
	ErrGatewayDeclined = errors.New("payment declined by gateway")
)

// AuthorizeRequest carries everything the processor needs to place a hold.
type AuthorizeRequest struct {
	PaymentID       string
	OrderID         string
	CustomerID      string
	AmountCents     int64
	Installments    int
	Method          string
	BillingAddress  custdomain.Address
	DeliveryAddress custdomain.Address
}

// GatewayResult is the processor's answer to a state-changing call.
type GatewayResult struct {
	GatewayPaymentID string
	Status           domain.PaymentStatus
}

// PaymentDetails is the processor's view of a payment, used for reconciliation.
type PaymentDetails struct {
	GatewayPaymentID string
	Status           domain.PaymentStatus
	AmountCents      int64
	UpdatedAt        time.Time
}

// Gateway is the outbound port to the payment processor.
type Gateway interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*GatewayResult, error)
	Capture(ctx context.Context, gatewayPaymentID string) (*GatewayResult, error)
	CancelAuthorization(ctx context.Context, gatewayPaymentID string) (*GatewayResult, error)
	GetByID(ctx context.Context, gatewayPaymentID string) (*PaymentDetails, error)
}
