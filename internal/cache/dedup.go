// Package cache provides Redis-backed dedup and rate limiting for submissions.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mercury-net/mercury/internal/metrics"
)

// DedupCache tracks recently seen fingerprints so repeat submissions
// short-circuit before hitting the database.
type DedupCache interface {
	// Seen reports whether the fingerprint was marked within the TTL window.
	Seen(ctx context.Context, fingerprint string) (bool, error)

	// Mark records the fingerprint for the TTL window.
	Mark(ctx context.Context, fingerprint string) error

	// Ping checks the backing store. A disabled cache is always healthy.
	Ping(ctx context.Context) error

	Close() error
}

type redisDedupCache struct {
	client   *redis.Client
	ttl      time.Duration
	disabled bool
}

// NewRedisDedupCache connects to Redis and returns a dedup cache.
// When disabled, Seen always reports false and Mark is a no-op.
func NewRedisDedupCache(redisURL string, ttl time.Duration, disabled bool) (DedupCache, error) {
	if disabled {
		return &redisDedupCache{disabled: true}, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &redisDedupCache{
		client: client,
		ttl:    ttl,
	}, nil
}

// NewDedupCacheWithClient wraps an existing Redis client (used in tests and
// when the daemon shares one client across concerns).
func NewDedupCacheWithClient(client *redis.Client, ttl time.Duration) DedupCache {
	return &redisDedupCache{client: client, ttl: ttl}
}

func (c *redisDedupCache) Seen(ctx context.Context, fingerprint string) (bool, error) {
	if c.disabled {
		return false, nil
	}

	n, err := c.client.Exists(ctx, c.key(fingerprint)).Result()
	if err != nil {
		return false, fmt.Errorf("dedup lookup failed: %w", err)
	}
	if n > 0 {
		metrics.DedupHits.Inc()
		return true, nil
	}
	return false, nil
}

func (c *redisDedupCache) Mark(ctx context.Context, fingerprint string) error {
	if c.disabled {
		return nil
	}

	if err := c.client.Set(ctx, c.key(fingerprint), 1, c.ttl).Err(); err != nil {
		return fmt.Errorf("dedup mark failed: %w", err)
	}
	return nil
}

func (c *redisDedupCache) Ping(ctx context.Context) error {
	if c.disabled {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

func (c *redisDedupCache) Close() error {
	if c.disabled || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *redisDedupCache) key(fingerprint string) string {
	return "mercury:dedup:" + fingerprint
}
