package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sbvm/voucher-portal/internal/model"
)

// QueryPoolInterface defines the database operations needed by read-only repositories.
type QueryPoolInterface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// LeaderboardRepository aggregates redemption counts over the voucher store.
type LeaderboardRepository struct {
	pool QueryPoolInterface
}

// NewLeaderboardRepository creates a new LeaderboardRepository with the given pool.
func NewLeaderboardRepository(pool *pgxpool.Pool) *LeaderboardRepository {
	return &LeaderboardRepository{pool: pool}
}

// NewLeaderboardRepositoryWithPool creates a LeaderboardRepository with a custom pool interface.
// This is primarily used for testing.
func NewLeaderboardRepositoryWithPool(pool QueryPoolInterface) *LeaderboardRepository {
	return &LeaderboardRepository{pool: pool}
}

// Rankings returns identities ordered by total redemptions descending, ties
// broken by whoever redeemed earliest. The ordering is done in SQL so two
// reads with no intervening writes return identical sequences.
// On success, returns an empty slice (not nil) when nothing was redeemed yet.
func (r *LeaderboardRepository) Rankings(ctx context.Context) ([]model.LeaderboardEntry, error) {
	query := `SELECT owner_identity, SUM(redemption_count) AS redeem_count
	          FROM vouchers
	          WHERE owner_identity <> '' AND redemption_count > 0
	          GROUP BY owner_identity
	          ORDER BY redeem_count DESC, MIN(last_redeemed_at) ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []model.LeaderboardEntry
	for rows.Next() {
		var entry model.LeaderboardEntry
		if err := rows.Scan(&entry.Username, &entry.RedeemCount); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard rows: %w", err)
	}

	// Return empty slice, not nil
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}

	return entries, nil
}
