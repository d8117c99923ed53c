package shared

import (
	"context"
	"time"
)

// StoredResponse is a completed write replayed when its idempotency key repeats
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyStore remembers client request keys so a retried write is applied once
type IdempotencyStore interface {
	// Reserve claims key for an in-flight request.
	// Returns false if the key is already reserved or completed.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete stores the response for a reserved key
	Complete(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error

	// Lookup reports whether key is known. resp is nil while the request is still in flight.
	Lookup(ctx context.Context, key string) (resp *StoredResponse, found bool, err error)

	// Release drops a reservation so the client may retry
	Release(ctx context.Context, key string) error

	// Close releases resources held by the store
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a completed response is replayed. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether Idempotency-Key headers are honoured
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
