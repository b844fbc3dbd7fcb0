// Package cache provides the expiring key/value abstraction behind the taxonomy store.
package cache

import (
	"context"
	"time"
)

// Cache stores values of type V under string keys with a per-entry time to live.
// Implementations must be safe for concurrent use.
type Cache[V any] interface {
	// Get returns the value and true when key is present and fresh.
	Get(ctx context.Context, key string) (V, bool, error)
	// Set stores value under key for ttl. A non-positive ttl stores nothing.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	// Invalidate removes the given keys. Missing keys are ignored.
	Invalidate(ctx context.Context, keys ...string) error
}
