package ports

import "context"

// StoredResponse is a serialized HTTP response replayed for duplicate
// order-placement requests carrying the same Idempotency-Key.
type StoredResponse struct {
	StatusCode int
	Body       []byte
	OrderID    string
}

// IdempotencyStore persists responses keyed by Idempotency-Key.
type IdempotencyStore interface {
	// Get returns nil, nil when the key has not been seen.
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, response StoredResponse) error
}
