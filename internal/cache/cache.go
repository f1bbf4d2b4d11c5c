// Package cache stores short-lived JSON values, either in process memory or
// in Redis when REDIS_ADDR is configured.
package cache

import (
	"context"
	"time"

	"github.com/diewo77/go-facturas/internal/config"
)

// Store is a key/value cache of JSON-encoded values.
type Store interface {
	// Get decodes the value at key into dest. It reports false on a miss.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value under key. A zero ttl means no expiration.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// New returns a Redis store when cfg names an address, otherwise an
// in-memory one.
func New(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	if cfg.RedisAddr == "" {
		return NewMemory(), nil
	}
	return NewRedis(ctx, cfg)
}
