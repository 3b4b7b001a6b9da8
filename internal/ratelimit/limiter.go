// Package ratelimit guards the redemption engine with per-identity attempt
// windows. The limiter is advisory: on infrastructure failure the engine
// fails open rather than blocking the captive portal.
package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a TryAcquire call. RetryAfter is the recommended
// wait before the next attempt when Allowed is false; zero means no hint.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter decides whether an identity may attempt a redemption now.
type Limiter interface {
	TryAcquire(ctx context.Context, key string) (Decision, error)
}
