package model

import "time"

// Voucher status values. A voucher is created UNUSED by the external generator,
// becomes ACTIVE on first redemption, and EXHAUSTED once no further redemptions
// are permitted. Vouchers are never deleted.
const (
	StatusUnused    = "UNUSED"
	StatusActive    = "ACTIVE"
	StatusExhausted = "EXHAUSTED"
)

// Voucher represents a single voucher record in the store.
// Version is the optimistic-concurrency sequence number: every committed
// mutation observes and bumps it, so two concurrent writes against the same
// base version cannot both succeed.
type Voucher struct {
	Code            string     `json:"code"`
	Status          string     `json:"status"`
	RedemptionCount int        `json:"redemption_count"`
	OwnerIdentity   string     `json:"owner_identity,omitempty"`
	Version         int64      `json:"-"`
	CreatedAt       time.Time  `json:"-"`
	LastRedeemedAt  *time.Time `json:"last_redeemed_at,omitempty"`
}

// Identity is the requester key used for rate limiting, owner binding and
// leaderboard grouping. Email wins over IP when both are present.
type Identity struct {
	Email string
	IP    string
}

// Key returns the canonical identity string for this requester.
func (i Identity) Key() string {
	if i.Email != "" {
		return i.Email
	}
	return i.IP
}

// LeaderboardEntry is a read-only projection over the voucher store, ordered
// descending by redeem count with ties broken by earliest redemption.
type LeaderboardEntry struct {
	Username    string `json:"username"`
	RedeemCount int    `json:"redeem_count"`
}

// RedeemResult is the engine's decision for a successful redemption.
type RedeemResult struct {
	Granted         bool   `json:"granted"`
	Bonus           bool   `json:"bonus"`
	DurationSeconds int    `json:"duration_seconds"`
	Message         string `json:"message"`
}

// RedeemRequest is the DTO for POST /api/redeem.
type RedeemRequest struct {
	Voucher string `json:"voucher" validate:"required,notblank,max=64"`
	Email   string `json:"email" validate:"omitempty,email,max=255"`
}

// CreateVoucherRequest is the DTO for ingesting an externally generated code.
type CreateVoucherRequest struct {
	Code string `json:"code" validate:"required,notblank,max=64"`
}

// VoucherResponse is the API projection for GET /api/vouchers/:code.
type VoucherResponse struct {
	Code            string     `json:"code"`
	Status          string     `json:"status"`
	RedemptionCount int        `json:"redemption_count"`
	LastRedeemedAt  *time.Time `json:"last_redeemed_at,omitempty"`
}
