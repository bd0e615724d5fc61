package tracker

import (
	"context"
	"sync"
	"time"
)

// Snapshot caches one computed leaderboard entry set so that switching
// difficulty tabs re-sorts in memory instead of re-querying the network.
// It is invalidated when the user or friend set changes and expires after
// a TTL.
type Snapshot struct {
	agg *Aggregator
	ttl time.Duration

	mu        sync.RWMutex
	entries   []Entry
	fetchedAt time.Time
}

// NewSnapshot creates a Snapshot around the given aggregator.
func NewSnapshot(agg *Aggregator, ttl time.Duration) *Snapshot {
	return &Snapshot{agg: agg, ttl: ttl}
}

// Entries returns the cached leaderboard entry set, rebuilding it from the
// aggregator when the cache is empty or older than the TTL.
func (s *Snapshot) Entries(ctx context.Context, primary string, friends []string) []Entry {
	s.mu.RLock()
	if s.entries != nil && time.Since(s.fetchedAt) < s.ttl {
		entries := s.entries
		s.mu.RUnlock()
		return entries
	}
	s.mu.RUnlock()

	return s.Refresh(ctx, primary, friends)
}

// Refresh rebuilds the snapshot unconditionally and returns the new entry set.
func (s *Snapshot) Refresh(ctx context.Context, primary string, friends []string) []Entry {
	entries := s.agg.FetchLeaderboard(ctx, primary, friends)

	s.mu.Lock()
	s.entries = entries
	s.fetchedAt = time.Now()
	s.mu.Unlock()

	return entries
}

// Invalidate drops the cached entry set. The next Entries call re-fetches.
func (s *Snapshot) Invalidate() {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
}
