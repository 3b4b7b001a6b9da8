package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryLimiter keeps one token bucket per identity in process. Buckets are
// created lazily on first attempt and expired by the janitor after sitting
// idle for longer than the window allows.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*bucketEntry

	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter builds a limiter permitting maxAttempts per window for
// each identity.
func NewMemoryLimiter(maxAttempts int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*bucketEntry),
		limit:   rate.Limit(float64(maxAttempts) / window.Seconds()),
		burst:   maxAttempts,
		idleTTL: 2 * window,
	}
}

// TryAcquire consumes one attempt for the identity. When the bucket is empty
// the decision carries the wait until the next token becomes available.
func (l *MemoryLimiter) TryAcquire(_ context.Context, key string) (Decision, error) {
	lim := l.bucket(key)

	res := lim.Reserve()
	if !res.OK() {
		return Decision{Allowed: false}, nil
	}
	if delay := res.Delay(); delay > 0 {
		res.Cancel()
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}
	return Decision{Allowed: true}, nil
}

func (l *MemoryLimiter) bucket(key string) *rate.Limiter {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if ent, ok := l.entries[key]; ok {
		ent.lastSeen = now
		return ent.lim
	}

	lim := rate.NewLimiter(l.limit, l.burst)
	l.entries[key] = &bucketEntry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup drops buckets idle past the TTL.
func (l *MemoryLimiter) Cleanup() {
	cutoff := time.Now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, ent := range l.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
}

// StartJanitor runs periodic cleanup until the context is cancelled.
func (l *MemoryLimiter) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Cleanup()
			}
		}
	}()
}
