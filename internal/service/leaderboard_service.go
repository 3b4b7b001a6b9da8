package service

import (
	"context"
	"sync"
	"time"

	"github.com/sbvm/voucher-portal/internal/model"
)

// LeaderboardRepositoryInterface defines the ranked aggregation query.
type LeaderboardRepositoryInterface interface {
	Rankings(ctx context.Context) ([]model.LeaderboardEntry, error)
}

// LeaderboardService serves a cached ranked snapshot over the voucher store.
// The aggregation scans every voucher, so it is recomputed lazily at most
// once per refresh interval rather than per request. Read-only; it never
// mutates voucher state.
type LeaderboardService struct {
	repo            LeaderboardRepositoryInterface
	refreshInterval time.Duration

	mu          sync.RWMutex
	cached      []model.LeaderboardEntry
	refreshedAt time.Time
}

// NewLeaderboardService creates a LeaderboardService with the given staleness bound.
func NewLeaderboardService(repo LeaderboardRepositoryInterface, refreshInterval time.Duration) *LeaderboardService {
	return &LeaderboardService{repo: repo, refreshInterval: refreshInterval}
}

// Snapshot returns the ranked entries, refreshing the cache when it is older
// than the refresh interval. The returned slice is shared and must be treated
// as read-only. Empty store yields an empty slice, never nil.
func (s *LeaderboardService) Snapshot(ctx context.Context) ([]model.LeaderboardEntry, error) {
	s.mu.RLock()
	if s.fresh() {
		entries := s.cached
		s.mu.RUnlock()
		return entries, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have refreshed while we waited for the lock.
	if s.fresh() {
		return s.cached, nil
	}

	entries, err := s.repo.Rankings(ctx)
	if err != nil {
		return nil, err
	}

	s.cached = entries
	s.refreshedAt = time.Now()
	return entries, nil
}

// fresh reports whether the cache is populated and within the staleness bound.
// Callers must hold at least a read lock.
func (s *LeaderboardService) fresh() bool {
	return s.cached != nil && time.Since(s.refreshedAt) < s.refreshInterval
}
