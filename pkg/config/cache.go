package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	CacheDriverMemory = "memory"
	CacheDriverRedis  = "redis"
)

// CacheConfig selects and configures the product cache backend.
type CacheConfig struct {
	Driver string            `koanf:"driver"`
	Memory MemoryCacheConfig `koanf:"memory"`
	Redis  RedisConfig       `koanf:"redis"`
}

// MemoryCacheConfig configures the in-process sharded cache.
type MemoryCacheConfig struct {
	Capacity int `koanf:"capacity"`
	Shards   int `koanf:"shards"`
}

// RedisConfig configures the Redis client.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	Timeout  time.Duration `koanf:"timeout"`
}

const (
	defaultCacheCapacity = 100
	defaultCacheShards   = 8
	defaultRedisTimeout  = 5 * time.Second
)

// String returns a string representation of the cache configuration.
func (c *CacheConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Cache ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	switch c.Driver {
	case CacheDriverRedis:
		b.WriteString(fmt.Sprintf("  redis.addr: %s\n", c.Redis.Addr))
		b.WriteString(fmt.Sprintf("  redis.password: %s\n", maskSecret(c.Redis.Password)))
		b.WriteString(fmt.Sprintf("  redis.db: %d\n", c.Redis.DB))
		b.WriteString(fmt.Sprintf("  redis.timeout: %s\n", c.Redis.Timeout))
	default:
		b.WriteString(fmt.Sprintf("  memory.capacity: %d\n", c.Memory.Capacity))
		b.WriteString(fmt.Sprintf("  memory.shards: %d\n", c.Memory.Shards))
	}
	return b.String()
}

// Validate checks the cache settings and fills in defaults for the optional ones.
func (c *CacheConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = CacheDriverMemory
	}
	switch c.Driver {
	case CacheDriverMemory:
		if c.Memory.Capacity == 0 {
			c.Memory.Capacity = defaultCacheCapacity
		}
		if c.Memory.Shards == 0 {
			c.Memory.Shards = defaultCacheShards
		}
		if c.Memory.Capacity < 0 || c.Memory.Shards < 0 {
			return fmt.Errorf("cache.memory capacity and shards must be greater than 0")
		}
		if c.Memory.Shards > c.Memory.Capacity {
			return fmt.Errorf("cache.memory.shards (%d) must not exceed cache.memory.capacity (%d)", c.Memory.Shards, c.Memory.Capacity)
		}
	case CacheDriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is not configured")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("cache.redis.db must not be negative")
		}
		if c.Redis.Timeout <= 0 {
			c.Redis.Timeout = defaultRedisTimeout
		}
	default:
		return fmt.Errorf("unsupported cache driver: %q", c.Driver)
	}
	return nil
}

func maskSecret(s string) string {
	if s == "" {
		return "<not configured>"
	}
	return "****"
}
