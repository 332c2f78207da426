package shared

import (
	"context"
	"time"
)

// DefaultIdempotencyTTL is how long a handled delivery ID is remembered.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore remembers marketplace delivery IDs that were handled.
// Implementations must be safe for concurrent use.
type IdempotencyStore interface {
	// MarkProcessed records key for ttl and reports whether this call was the
	// one that recorded it.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// IsProcessed reports whether key is recorded and unexpired.
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}

// IdempotencyConfig controls delivery deduplication. With Enabled false every
// delivery reaches the dispatcher.
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig enables deduplication with DefaultIdempotencyTTL.
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{TTL: DefaultIdempotencyTTL, Enabled: true}
}
