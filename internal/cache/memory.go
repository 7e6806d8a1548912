package cache

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
)

const evictionPercentage = 10

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// MemoryCache is a process-local sharded cache. sturdyc evicts on its own
// client-wide TTL; each entry additionally carries the expiry it was set with.
type MemoryCache[V any] struct {
	client *sturdyc.Client[entry[V]]
	maxTTL time.Duration
	now    func() time.Time
}

// NewMemoryCache creates a cache holding up to capacity entries spread over
// shards. Entries never outlive maxTTL.
func NewMemoryCache[V any](capacity, shards int, maxTTL time.Duration) *MemoryCache[V] {
	return &MemoryCache[V]{
		client: sturdyc.New[entry[V]](capacity, shards, maxTTL, evictionPercentage),
		maxTTL: maxTTL,
		now:    time.Now,
	}
}

// Get returns the live value under key and drops it once expired.
func (c *MemoryCache[V]) Get(_ context.Context, key string) (V, bool, error) {
	var zero V
	e, ok := c.client.Get(key)
	if !ok {
		return zero, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.client.Delete(key)
		return zero, false, nil
	}
	return e.value, true, nil
}

// Set stores value for ttl, capped at the cache-wide maximum.
func (c *MemoryCache[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 || ttl > c.maxTTL {
		ttl = c.maxTTL
	}
	c.client.Set(key, entry[V]{value: value, expiresAt: c.now().Add(ttl)})
	return nil
}
