package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_AllowsBurstThenThrottles(t *testing.T) {
	limiter := NewMemoryLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		decision, err := limiter.TryAcquire(context.Background(), "a@x.com")
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "attempt %d within the window should pass", i+1)
	}

	decision, err := limiter.TryAcquire(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.False(t, decision.Allowed, "attempt beyond maxAttempts should be throttled")
	assert.Greater(t, decision.RetryAfter, time.Duration(0), "throttled decision carries a retry hint")
	assert.LessOrEqual(t, decision.RetryAfter, time.Minute, "retry hint stays within the window")
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Minute)

	decision, err := limiter.TryAcquire(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	decision, err = limiter.TryAcquire(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.False(t, decision.Allowed, "first key exhausted")

	decision, err = limiter.TryAcquire(context.Background(), "b@x.com")
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "a throttled identity must not affect others")
}

func TestMemoryLimiter_ThrottleDoesNotConsumeTokens(t *testing.T) {
	limiter := NewMemoryLimiter(1, 100*time.Millisecond)

	decision, err := limiter.TryAcquire(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	// Hammering while throttled must not push the retry hint out further.
	first, err := limiter.TryAcquire(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.False(t, first.Allowed)

	second, err := limiter.TryAcquire(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.False(t, second.Allowed)
	assert.LessOrEqual(t, second.RetryAfter, first.RetryAfter+10*time.Millisecond)
}

func TestMemoryLimiter_WindowRefills(t *testing.T) {
	limiter := NewMemoryLimiter(1, 50*time.Millisecond)

	decision, err := limiter.TryAcquire(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	decision, err = limiter.TryAcquire(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.False(t, decision.Allowed)

	time.Sleep(60 * time.Millisecond)

	decision, err = limiter.TryAcquire(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "window elapsed, attempt should pass again")
}

func TestMemoryLimiter_CleanupKeepsFreshEntries(t *testing.T) {
	limiter := NewMemoryLimiter(5, time.Minute)

	_, err := limiter.TryAcquire(context.Background(), "a@x.com")
	require.NoError(t, err)

	limiter.Cleanup()

	limiter.mu.Lock()
	_, ok := limiter.entries["a@x.com"]
	limiter.mu.Unlock()
	assert.True(t, ok, "recently used buckets must survive cleanup")
}

func TestMemoryLimiter_CleanupDropsIdleEntries(t *testing.T) {
	limiter := NewMemoryLimiter(5, time.Minute)

	_, err := limiter.TryAcquire(context.Background(), "a@x.com")
	require.NoError(t, err)

	// Backdate the bucket beyond the idle TTL.
	limiter.mu.Lock()
	limiter.entries["a@x.com"].lastSeen = time.Now().Add(-3 * time.Hour)
	limiter.mu.Unlock()

	limiter.Cleanup()

	limiter.mu.Lock()
	_, ok := limiter.entries["a@x.com"]
	limiter.mu.Unlock()
	assert.False(t, ok, "idle buckets must be expired")
}
