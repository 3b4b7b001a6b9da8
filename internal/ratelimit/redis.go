package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window counter shared across instances. The key
// expires with the window, so buckets clean themselves up.
type RedisLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

// NewRedisLimiter builds a limiter backed by the given Redis client.
func NewRedisLimiter(client *redis.Client, maxAttempts int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		maxAttempts: int64(maxAttempts),
		window:      window,
	}
}

// TryAcquire increments the identity's window counter. Errors are returned to
// the caller; the engine's policy is to fail open on them.
func (l *RedisLimiter) TryAcquire(ctx context.Context, key string) (Decision, error) {
	redisKey := "ratelimit:" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("incr rate limit key %s: %w", redisKey, err)
	}

	// First attempt in a fresh window starts the expiry clock.
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("expire rate limit key %s: %w", redisKey, err)
		}
	}

	if count <= l.maxAttempts {
		return Decision{Allowed: true}, nil
	}

	retryAfter := l.window
	if ttl, err := l.client.TTL(ctx, redisKey).Result(); err == nil && ttl > 0 {
		retryAfter = ttl
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}, nil
}
