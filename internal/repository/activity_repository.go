package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityRepository records redemption outcomes for auditing.
// Writes are best-effort; the engine logs and ignores failures here.
type ActivityRepository struct {
	pool PoolInterface
}

// NewActivityRepository creates a new ActivityRepository with the given pool.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// NewActivityRepositoryWithPool creates an ActivityRepository with a custom pool interface.
// This is primarily used for testing.
func NewActivityRepositoryWithPool(pool PoolInterface) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

// Record inserts one audit row for a redemption outcome.
func (r *ActivityRepository) Record(ctx context.Context, action, voucherCode, identity string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO activity_logs (action, voucher_code, identity) VALUES ($1, $2, $3)`,
		action, voucherCode, identity)
	if err != nil {
		return fmt.Errorf("record activity %s for %s: %w", action, voucherCode, err)
	}
	return nil
}
