package ports

import (
	"context"
	"time"
)

// PendingAuthorization is a durable record of an authorization that still has
// to be sent to the gateway. Placing an order only enqueues one of these; the
// worker owns the gateway call, so a crash between the two loses nothing.
type PendingAuthorization struct {
	PaymentID     string
	OrderID       string
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
}

// AuthorizationQueue stores pending authorizations for the worker.
type AuthorizationQueue interface {
	Enqueue(ctx context.Context, task PendingAuthorization) error

	// Due returns up to limit tasks whose NextAttemptAt is not after now,
	// oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]PendingAuthorization, error)

	// Reschedule persists an updated attempt count and next attempt time
	// after a failed try.
	Reschedule(ctx context.Context, task PendingAuthorization) error

	Remove(ctx context.Context, paymentID string) error
}
