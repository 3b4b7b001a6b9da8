package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrVoucherNotFound is returned when a submitted code does not exist
	ErrVoucherNotFound = errors.New("voucher not found")

	// ErrVoucherExists is returned when ingesting a code that already exists
	ErrVoucherExists = errors.New("voucher already exists")

	// ErrAlreadyUsed is returned when a voucher permits no further redemptions
	ErrAlreadyUsed = errors.New("voucher already redeemed")

	// ErrIdentityMismatch is returned when a voucher is bound to a different identity
	ErrIdentityMismatch = errors.New("voucher bound to another identity")

	// ErrRateLimited is returned when the requester exceeded the attempt window.
	// Use errors.As with *RateLimitedError to read the retry-after hint.
	ErrRateLimited = errors.New("too many attempts")

	// ErrContention is returned when the compare-and-update retry budget is exhausted
	ErrContention = errors.New("voucher update contention")

	// ErrGrantUnavailable is returned when the gateway notification failed after
	// retries. The voucher state is already committed when this is reported.
	ErrGrantUnavailable = errors.New("access grant unavailable")

	// ErrTimeout is returned when the request deadline elapsed. Whether the
	// mutation committed is indeterminate; callers should re-query voucher state.
	ErrTimeout = errors.New("redemption timed out")

	// ErrVersionConflict is returned by the store when a conditional write lost
	// a race. The engine reloads and retries; it never reaches callers.
	ErrVersionConflict = errors.New("voucher version conflict")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")
)

// RateLimitedError carries the retry-after hint alongside ErrRateLimited.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %s", e.RetryAfter)
}

// Is makes errors.Is(err, ErrRateLimited) match.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
