package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys that were already handled, and the
// response recorded for them, so retried requests and redelivered events
// take effect once.
type IdempotencyStore interface {
	// MarkProcessed claims a key for ttl. It returns false if the key is
	// already claimed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the key is claimed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// SaveResponse stores the outcome of a claimed key for replay
	SaveResponse(ctx context.Context, key string, response []byte, ttl time.Duration) error

	// LoadResponse returns the stored outcome. found is false while the
	// key is claimed but still being handled.
	LoadResponse(ctx context.Context, key string) (response []byte, found bool, err error)

	// Forget drops a claim so the key can be retried
	Forget(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a key stays claimed. Default: 24 hours
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
