package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sbvm/voucher-portal/internal/model"
	"github.com/sbvm/voucher-portal/internal/service"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// VoucherRepository provides data access for vouchers using pgx.
// All mutations after creation go through CompareAndUpdate, so the repository
// never decides business policy; it only guarantees that two concurrent
// mutations against the same base version cannot both succeed.
type VoucherRepository struct {
	pool PoolInterface
}

// NewVoucherRepository creates a new VoucherRepository with the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// NewVoucherRepositoryWithPool creates a new VoucherRepository with a custom pool interface.
// This is primarily used for testing.
func NewVoucherRepositoryWithPool(pool PoolInterface) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// Insert stores a freshly generated voucher in UNUSED state.
// Returns service.ErrVoucherExists if the code was already issued.
func (r *VoucherRepository) Insert(ctx context.Context, voucher *model.Voucher) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO vouchers (code, status, redemption_count, owner_identity, version)
		 VALUES ($1, $2, 0, '', 1)`,
		voucher.Code, model.StatusUnused)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrVoucherExists
		}
		return fmt.Errorf("insert voucher: %w", err)
	}
	return nil
}

// GetByCode retrieves a voucher by its code.
// Returns nil, nil if the voucher is not found (service layer handles this).
func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*model.Voucher, error) {
	query := `SELECT code, status, redemption_count, owner_identity, version, created_at, last_redeemed_at
	          FROM vouchers WHERE code = $1`

	var voucher model.Voucher
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&voucher.Code,
		&voucher.Status,
		&voucher.RedemptionCount,
		&voucher.OwnerIdentity,
		&voucher.Version,
		&voucher.CreatedAt,
		&voucher.LastRedeemedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get voucher by code %s: %w", code, err)
	}
	return &voucher, nil
}

// CompareAndUpdate commits a mutated voucher state conditionally on the
// version the caller read. The write bumps the version; when zero rows match,
// a concurrent commit won the race and service.ErrVersionConflict is returned
// so the engine can reload and re-evaluate.
func (r *VoucherRepository) CompareAndUpdate(ctx context.Context, voucher *model.Voucher) error {
	query := `UPDATE vouchers
	          SET status = $1, redemption_count = $2, owner_identity = $3,
	              last_redeemed_at = $4, version = version + 1
	          WHERE code = $5 AND version = $6`

	tag, err := r.pool.Exec(ctx, query,
		voucher.Status,
		voucher.RedemptionCount,
		voucher.OwnerIdentity,
		voucher.LastRedeemedAt,
		voucher.Code,
		voucher.Version,
	)
	if err != nil {
		return fmt.Errorf("compare and update voucher %s: %w", voucher.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrVersionConflict
	}
	return nil
}
