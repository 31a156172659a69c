// Package counter holds the short-lived integer counters behind rate limits
// and daily quotas. All mutations are single atomic operations on the backing
// store; callers never lock.
package counter

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("counter store unavailable")

// Store is a keyed integer store with TTLs.
type Store interface {
	// IncrWindow adds one to key and returns the new value. A key without a
	// TTL gets window in the same atomic unit; an existing TTL is kept, so the
	// window never slides.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
	// TTL returns the remaining lifetime of key, or 0 when it has none.
	TTL(ctx context.Context, key string) (time.Duration, error)
	// IncrByWithTTL adds delta and refreshes the TTL as one atomic unit.
	IncrByWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
	// DecrBy subtracts delta and returns the new value.
	DecrBy(ctx context.Context, key string, delta int64) (int64, error)
	// Get returns the current value, 0 when the key is missing.
	Get(ctx context.Context, key string) (int64, error)
}
