package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbvm/voucher-portal/internal/model"
)

// mockLeaderboardRows implements pgx.Rows for testing.
type mockLeaderboardRows struct {
	data      []model.LeaderboardEntry
	index     int
	errOnScan error
	errOnRows error
}

func (m *mockLeaderboardRows) Close() {}

func (m *mockLeaderboardRows) Err() error {
	return m.errOnRows
}

func (m *mockLeaderboardRows) Next() bool {
	if m.index < len(m.data) {
		m.index++
		return true
	}
	return false
}

func (m *mockLeaderboardRows) Scan(dest ...any) error {
	if m.errOnScan != nil {
		return m.errOnScan
	}
	if m.index > 0 && m.index <= len(m.data) {
		entry := m.data[m.index-1]
		*(dest[0].(*string)) = entry.Username
		*(dest[1].(*int)) = entry.RedeemCount
	}
	return nil
}

func (m *mockLeaderboardRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockLeaderboardRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockLeaderboardRows) RawValues() [][]byte                          { return nil }
func (m *mockLeaderboardRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockLeaderboardRows) Conn() *pgx.Conn                              { return nil }

// mockQueryPool implements QueryPoolInterface for testing.
type mockQueryPool struct {
	queryFn func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (m *mockQueryPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, sql, args...)
	}
	return &mockLeaderboardRows{}, nil
}

func TestLeaderboardRepository_Rankings_Success(t *testing.T) {
	ranked := []model.LeaderboardEntry{
		{Username: "a@x.com", RedeemCount: 7},
		{Username: "b@x.com", RedeemCount: 3},
		{Username: "c@x.com", RedeemCount: 3},
	}
	mock := &mockQueryPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &mockLeaderboardRows{data: ranked}, nil
		},
	}

	repo := NewLeaderboardRepositoryWithPool(mock)
	entries, err := repo.Rankings(context.Background())

	require.NoError(t, err)
	assert.Equal(t, ranked, entries)
}

func TestLeaderboardRepository_Rankings_OrderingInSQL(t *testing.T) {
	var capturedSQL string
	mock := &mockQueryPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			capturedSQL = sql
			return &mockLeaderboardRows{}, nil
		},
	}

	repo := NewLeaderboardRepositoryWithPool(mock)
	_, err := repo.Rankings(context.Background())

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "ORDER BY redeem_count DESC, MIN(last_redeemed_at) ASC",
		"deterministic ordering must come from the query")
}

func TestLeaderboardRepository_Rankings_Empty(t *testing.T) {
	mock := &mockQueryPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &mockLeaderboardRows{data: []model.LeaderboardEntry{}}, nil
		},
	}

	repo := NewLeaderboardRepositoryWithPool(mock)
	entries, err := repo.Rankings(context.Background())

	require.NoError(t, err)
	require.NotNil(t, entries, "should return empty slice, not nil")
	assert.Len(t, entries, 0)
}

func TestLeaderboardRepository_Rankings_QueryError(t *testing.T) {
	dbErr := errors.New("database connection failed")
	mock := &mockQueryPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return nil, dbErr
		},
	}

	repo := NewLeaderboardRepositoryWithPool(mock)
	entries, err := repo.Rankings(context.Background())

	require.Error(t, err)
	assert.Nil(t, entries)
	assert.Contains(t, err.Error(), "query leaderboard")
}

func TestLeaderboardRepository_Rankings_ScanError(t *testing.T) {
	mock := &mockQueryPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &mockLeaderboardRows{
				data:      []model.LeaderboardEntry{{Username: "a@x.com", RedeemCount: 1}},
				errOnScan: errors.New("type mismatch"),
			}, nil
		},
	}

	repo := NewLeaderboardRepositoryWithPool(mock)
	entries, err := repo.Rankings(context.Background())

	require.Error(t, err)
	assert.Nil(t, entries)
	assert.Contains(t, err.Error(), "scan leaderboard entry")
}

func TestLeaderboardRepository_Rankings_RowsError(t *testing.T) {
	mock := &mockQueryPool{
		queryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return &mockLeaderboardRows{
				errOnRows: errors.New("connection lost mid-iteration"),
			}, nil
		},
	}

	repo := NewLeaderboardRepositoryWithPool(mock)
	entries, err := repo.Rankings(context.Background())

	require.Error(t, err)
	assert.Nil(t, entries)
	assert.Contains(t, err.Error(), "iterate leaderboard rows")
}
