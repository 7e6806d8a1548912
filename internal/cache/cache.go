// Package cache holds the key-value caches placed in front of the product store.
package cache

import (
	"context"
	"time"
)

// Cache is a generic key-value cache with per-entry expiry.
type Cache[V any] interface {
	// Get returns the value stored under key. The boolean is false on a miss
	// or when the entry has expired.
	Get(ctx context.Context, key string) (V, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
}
