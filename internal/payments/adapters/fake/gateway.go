package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/mercato/backoffice/internal/payments/domain"
	"github.com/mercato/backoffice/internal/payments/ports"
)

// Gateway simulates the payment processor in memory. Authorizations succeed
// unless a scripted outcome says otherwise, which makes it usable both for
// local development and for exercising rejection and outage paths in tests.
type Gateway struct {
	mu       sync.Mutex
	seq      int
	payments map[string]domain.PaymentStatus

	// AuthorizeErr, when set, is returned by Authorize until cleared.
	AuthorizeErr error

	// AuthorizeStatus overrides the status returned by Authorize.
	// Zero value means StatusAuthorized.
	AuthorizeStatus domain.PaymentStatus

	// CaptureStatus overrides the status returned by Capture.
	// Zero value means StatusApproved.
	CaptureStatus domain.PaymentStatus
}

func NewGateway() *Gateway {
	return &Gateway{payments: make(map[string]domain.PaymentStatus)}
}

func (g *Gateway) Authorize(_ context.Context, _ ports.AuthorizeRequest) (*ports.GatewayResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.AuthorizeErr != nil {
		return nil, g.AuthorizeErr
	}

	status := g.AuthorizeStatus
	if status == "" {
		status = domain.StatusAuthorized
	}

	g.seq++
	id := fmt.Sprintf("gw-%d", g.seq)
	g.payments[id] = status
	return &ports.GatewayResult{GatewayPaymentID: id, Status: status}, nil
}

func (g *Gateway) Capture(_ context.Context, gatewayPaymentID string) (*ports.GatewayResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.payments[gatewayPaymentID]; !ok {
		return nil, ports.ErrNotFound
	}

	status := g.CaptureStatus
	if status == "" {
		status = domain.StatusApproved
	}
	g.payments[gatewayPaymentID] = status
	return &ports.GatewayResult{GatewayPaymentID: gatewayPaymentID, Status: status}, nil
}

func (g *Gateway) CancelAuthorization(_ context.Context, gatewayPaymentID string) (*ports.GatewayResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.payments[gatewayPaymentID]; !ok {
		return nil, ports.ErrNotFound
	}
	g.payments[gatewayPaymentID] = domain.StatusCanceled
	return &ports.GatewayResult{GatewayPaymentID: gatewayPaymentID, Status: domain.StatusCanceled}, nil
}

func (g *Gateway) GetByID(_ context.Context, gatewayPaymentID string) (*ports.PaymentDetails, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status, ok := g.payments[gatewayPaymentID]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return &ports.PaymentDetails{GatewayPaymentID: gatewayPaymentID, Status: status}, nil
}
