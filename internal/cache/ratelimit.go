package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mercury-net/mercury/internal/metrics"
)

// RateLimiter limits antibody submissions per agent.
type RateLimiter interface {
	Allow(ctx context.Context, agentID string) (bool, error)

	// Ping checks the backing store. A disabled limiter is always healthy.
	Ping(ctx context.Context) error

	Close() error
}

type redisRateLimiter struct {
	client   *redis.Client
	limit    int64
	window   time.Duration
	disabled bool
}

// NewRedisRateLimiter connects to Redis and returns a sliding window limiter.
func NewRedisRateLimiter(redisURL string, limit int, window time.Duration, disabled bool) (RateLimiter, error) {
	if disabled {
		return &redisRateLimiter{disabled: true}, nil
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

	return &redisRateLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
	}, nil
}

// NewRateLimiterWithClient wraps an existing Redis client.
func NewRateLimiterWithClient(client *redis.Client, limit int, window time.Duration) RateLimiter {
	return &redisRateLimiter{client: client, limit: int64(limit), window: window}
}

// Allow implements sliding window rate limiting using Redis.
func (r *redisRateLimiter) Allow(ctx context.Context, agentID string) (bool, error) {
	if r.disabled {
		return true, nil
	}

	now := time.Now().UnixNano()
	windowStart := now - r.window.Nanoseconds()

	// Redis Lua script for atomic rate limiting
	script := `
		local key = KEYS[1]
		local now = tonumber(ARGV[1])
		local window_start = tonumber(ARGV[2])
		local limit = tonumber(ARGV[3])

		redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

		local current = redis.call('ZCARD', key)

		if current < limit then
			redis.call('ZADD', key, now, now)
			redis.call('EXPIRE', key, 60)
			return 1
		else
			return 0
		end
	`

	key := "mercury:ratelimit:" + agentID
	result, err := r.client.Eval(ctx, script, []string{key}, now, windowStart, r.limit).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	if result == 0 {
		metrics.RateLimitHits.WithLabelValues(agentID).Inc()
		return false, nil
	}

	return true, nil
}

func (r *redisRateLimiter) Ping(ctx context.Context) error {
	if r.disabled {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

func (r *redisRateLimiter) Close() error {
	if r.disabled || r.client == nil {
		return nil
	}
	return r.client.Close()
}
