package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores JSON encoded values in Redis using native key expiry.
type RedisCache[V any] struct {
	client redis.Cmdable
	logger *slog.Logger
}

// NewRedisCache creates a cache on top of an already connected client.
// The client stays owned by the caller.
func NewRedisCache[V any](client redis.Cmdable, logger *slog.Logger) *RedisCache[V] {
	return &RedisCache[V]{
		client: client,
		logger: logger.With("component", "RedisCache"),
	}
}

// Get fetches and decodes the value under key. redis.Nil is reported as a miss.
func (c *RedisCache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	cached, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("failed to get %q from redis: %w", key, err)
	}

	var value V
	if err := json.Unmarshal(cached, &value); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal cached %q: %w", key, err)
	}
	c.logger.DebugContext(ctx, "Redis cache hit", "key", key)
	return value, true, nil
}

// Set encodes value as JSON and stores it with the given expiry.
func (c *RedisCache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %q for caching: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %q in redis: %w", key, err)
	}
	c.logger.DebugContext(ctx, "Stored value in Redis cache", "key", key, "ttl", ttl)
	return nil
}
