package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestDedupCache(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	cache := NewDedupCacheWithClient(client, 10*time.Minute)
	ctx := context.Background()

	fp := "abc123"

	t.Run("unseen fingerprint", func(t *testing.T) {
		seen, err := cache.Seen(ctx, fp)
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("marked fingerprint is seen", func(t *testing.T) {
		require.NoError(t, cache.Mark(ctx, fp))

		seen, err := cache.Seen(ctx, fp)
		require.NoError(t, err)
		assert.True(t, seen)
	})

	t.Run("mark expires after TTL", func(t *testing.T) {
		mr.FastForward(11 * time.Minute)

		seen, err := cache.Seen(ctx, fp)
		require.NoError(t, err)
		assert.False(t, seen)
	})
}

func TestPing(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer client.Close()

	cache := NewDedupCacheWithClient(client, time.Minute)
	limiter := NewRateLimiterWithClient(client, 3, time.Minute)
	ctx := context.Background()

	t.Run("healthy backend", func(t *testing.T) {
		assert.NoError(t, cache.Ping(ctx))
		assert.NoError(t, limiter.Ping(ctx))
	})

	t.Run("unreachable backend reported", func(t *testing.T) {
		mr.Close()
		assert.Error(t, cache.Ping(ctx))
		assert.Error(t, limiter.Ping(ctx))
	})
}

func TestDedupCacheDisabled(t *testing.T) {
	cache, err := NewRedisDedupCache("redis://localhost:6379", time.Minute, true)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, cache.Mark(ctx, "x"))

	seen, err := cache.Seen(ctx, "x")
	require.NoError(t, err)
	assert.False(t, seen)
	assert.NoError(t, cache.Ping(ctx))
	assert.NoError(t, cache.Close())
}

func TestRateLimiter(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	limiter := NewRateLimiterWithClient(client, 3, time.Minute)
	ctx := context.Background()

	t.Run("allows up to the limit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			allowed, err := limiter.Allow(ctx, "Agent-A")
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should be allowed", i+1)
		}
	})

	t.Run("rejects beyond the limit", func(t *testing.T) {
		allowed, err := limiter.Allow(ctx, "Agent-A")
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("agents are limited independently", func(t *testing.T) {
		allowed, err := limiter.Allow(ctx, "Agent-B")
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter, err := NewRedisRateLimiter("redis://localhost:6379", 1, time.Minute, true)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(ctx, "Agent-A")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	assert.NoError(t, limiter.Ping(ctx))
	assert.NoError(t, limiter.Close())
}

func TestRateLimiterInvalidURL(t *testing.T) {
	_, err := NewRedisRateLimiter("not-a-url", 1, time.Minute, false)
	assert.Error(t, err)
}
