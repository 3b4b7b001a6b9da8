package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sbvm/voucher-portal/internal/config"
	"github.com/sbvm/voucher-portal/internal/gateway"
	"github.com/sbvm/voucher-portal/internal/model"
	"github.com/sbvm/voucher-portal/internal/ratelimit"
)

// VoucherStoreInterface defines the voucher data access needed by the engine.
type VoucherStoreInterface interface {
	GetByCode(ctx context.Context, code string) (*model.Voucher, error)
	CompareAndUpdate(ctx context.Context, voucher *model.Voucher) error
}

// ActivityRecorderInterface defines the audit log access needed by the engine.
type ActivityRecorderInterface interface {
	Record(ctx context.Context, action, voucherCode, identity string) error
}

// RedeemService is the redemption state machine. It validates a submitted
// code, applies the reuse policy, commits the new voucher state through the
// store's compare-and-update primitive, and instructs the gateway to grant
// access. Concurrency safety is per voucher: the bounded reload-and-retry
// loop around CompareAndUpdate is what guarantees at most one full grant per
// code even under concurrent duplicate submissions.
type RedeemService struct {
	store    VoucherStoreInterface
	limiter  ratelimit.Limiter
	notifier gateway.Notifier
	activity ActivityRecorderInterface
	policy   config.RedeemConfig
}

// NewRedeemService creates a RedeemService with the given collaborators.
func NewRedeemService(
	store VoucherStoreInterface,
	limiter ratelimit.Limiter,
	notifier gateway.Notifier,
	activity ActivityRecorderInterface,
	policy config.RedeemConfig,
) *RedeemService {
	return &RedeemService{
		store:    store,
		limiter:  limiter,
		notifier: notifier,
		activity: activity,
		policy:   policy,
	}
}

// Redeem runs one redemption request for (code, identity).
// Returns the grant decision, or one of the sentinel errors from errors.go:
//   - ErrRateLimited (as *RateLimitedError) when the attempt window is exceeded
//   - ErrVoucherNotFound for unknown codes
//   - ErrAlreadyUsed once the voucher permits no further redemptions
//   - ErrIdentityMismatch when the voucher is bound to someone else
//   - ErrContention when the compare-and-update retry budget runs out
//   - ErrGrantUnavailable when the gateway call fails AFTER the state committed
//   - ErrTimeout when the deadline elapsed; commit state is then indeterminate
func (s *RedeemService) Redeem(ctx context.Context, code string, identity model.Identity) (*model.RedeemResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.policy.Timeout())
	defer cancel()

	key := identity.Key()

	decision, err := s.limiter.TryAcquire(ctx, key)
	if err != nil {
		// Fail open: portal availability beats strict throttling.
		log.Warn().Err(err).Str("identity", key).Msg("rate limiter unavailable, allowing attempt")
	} else if !decision.Allowed {
		return nil, &RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	// Up to 1 + MaxUpdateRetries evaluation rounds. Contention on one code is
	// short-lived (a double-click, two devices pasting the same code), so no
	// backoff sleep between rounds.
	for attempt := 0; attempt <= s.policy.MaxUpdateRetries; attempt++ {
		voucher, err := s.store.GetByCode(ctx, code)
		if err != nil {
			return nil, s.mapTimeout(ctx, fmt.Errorf("load voucher: %w", err))
		}
		if voucher == nil {
			return nil, ErrVoucherNotFound
		}

		bonus, err := s.evaluate(voucher, key)
		if err != nil {
			s.record("redeem_rejected", code, key)
			return nil, err
		}

		now := time.Now()
		voucher.RedemptionCount++
		voucher.OwnerIdentity = key
		voucher.LastRedeemedAt = &now
		if voucher.RedemptionCount >= s.policy.MaxReuses {
			voucher.Status = model.StatusExhausted
		} else {
			voucher.Status = model.StatusActive
		}

		err = s.store.CompareAndUpdate(ctx, voucher)
		if errors.Is(err, ErrVersionConflict) {
			continue // lost the race, reload and re-evaluate
		}
		if err != nil {
			return nil, s.mapTimeout(ctx, fmt.Errorf("commit voucher: %w", err))
		}

		return s.finish(ctx, code, key, bonus)
	}

	log.Warn().Str("voucher_code", code).Int("retries", s.policy.MaxUpdateRetries).
		Msg("voucher update retries exhausted")
	return nil, ErrContention
}

// evaluate applies the transition table to the current voucher state.
func (s *RedeemService) evaluate(voucher *model.Voucher, identity string) (bonus bool, err error) {
	if voucher.Status == model.StatusExhausted || voucher.RedemptionCount >= s.policy.MaxReuses {
		return false, ErrAlreadyUsed
	}
	if voucher.RedemptionCount > 0 && voucher.OwnerIdentity != identity {
		return false, ErrIdentityMismatch
	}
	return voucher.RedemptionCount > 0, nil
}

// finish delivers the grant and builds the decision after a successful commit.
// The request deadline must not starve grant delivery or audit once the state
// is committed, hence the detached contexts.
func (s *RedeemService) finish(ctx context.Context, code, identity string, bonus bool) (*model.RedeemResult, error) {
	duration := s.policy.FullGrantSeconds
	message := fmt.Sprintf("Voucher redeemed. Access granted for %d minutes.", duration/60)
	action := "redeem_full"
	if bonus {
		duration = s.policy.BonusGrantSeconds
		message = fmt.Sprintf("Enjoy your extra %d minutes of access.", duration/60)
		action = "redeem_bonus"
	}

	s.record(action, code, identity)

	if err := s.notifier.Grant(context.WithoutCancel(ctx), identity, duration); err != nil {
		log.Error().Err(err).Str("identity", identity).Str("voucher_code", code).
			Msg("gateway grant failed, voucher state remains committed")
		return nil, ErrGrantUnavailable
	}

	return &model.RedeemResult{
		Granted:         true,
		Bonus:           bonus,
		DurationSeconds: duration,
		Message:         message,
	}, nil
}

// record writes one best-effort audit row.
func (s *RedeemService) record(action, code, identity string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.activity.Record(ctx, action, code, identity); err != nil {
		log.Warn().Err(err).Str("action", action).Str("voucher_code", code).
			Msg("failed to record activity")
	}
}

// mapTimeout converts deadline expiry into the indeterminate-state timeout
// error; other errors pass through wrapped.
func (s *RedeemService) mapTimeout(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
