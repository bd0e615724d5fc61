package tracker

import (
	"context"
	"errors"
	"sync"

	"leetfriends/leetcode"
)

// ErrMockTransport simulates a network-level failure.
var ErrMockTransport = errors.New("mock transport error")

// MockSource implements DataSource for testing. Each capability can be
// overridden with a function field; unset capabilities return zero values.
type MockSource struct {
	mu sync.Mutex

	StatsFunc      func(ctx context.Context, username string) (*leetcode.ProblemStats, error)
	ProfileFunc    func(ctx context.Context, username string) (*leetcode.Profile, error)
	DifficultyFunc func(ctx context.Context, titleSlug string) (leetcode.Difficulty, error)
	RecentFunc     func(ctx context.Context, username string, limit int) ([]leetcode.Submission, error)

	DifficultyCalls []string
	RecentCalls     []string
}

func (m *MockSource) FetchProblemStats(ctx context.Context, username string) (*leetcode.ProblemStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, username)
	}
	return statsOf(0, 0, 0, 0), nil
}

func (m *MockSource) FetchProfile(ctx context.Context, username string) (*leetcode.Profile, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, username)
	}
	return &leetcode.Profile{}, nil
}

func (m *MockSource) FetchQuestionDifficulty(ctx context.Context, titleSlug string) (leetcode.Difficulty, error) {
	m.mu.Lock()
	m.DifficultyCalls = append(m.DifficultyCalls, titleSlug)
	m.mu.Unlock()

	if m.DifficultyFunc != nil {
		return m.DifficultyFunc(ctx, titleSlug)
	}
	return leetcode.DifficultyEasy, nil
}

func (m *MockSource) FetchRecentAccepted(ctx context.Context, username string, limit int) ([]leetcode.Submission, error) {
	m.mu.Lock()
	m.RecentCalls = append(m.RecentCalls, username)
	m.mu.Unlock()

	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, username, limit)
	}
	return []leetcode.Submission{}, nil
}

// statsOf builds a four-slot ProblemStats in fixed difficulty order.
func statsOf(all, easy, medium, hard int) *leetcode.ProblemStats {
	return &leetcode.ProblemStats{Counts: []leetcode.DifficultyCount{
		{Difficulty: leetcode.DifficultyAll, Count: all, Submissions: all},
		{Difficulty: leetcode.DifficultyEasy, Count: easy, Submissions: easy},
		{Difficulty: leetcode.DifficultyMedium, Count: medium, Submissions: medium},
		{Difficulty: leetcode.DifficultyHard, Count: hard, Submissions: hard},
	}}
}

func submissionAt(username, slug string, ts int64) leetcode.Submission {
	return leetcode.Submission{
		Title:         slug,
		TitleSlug:     slug,
		Timestamp:     ts,
		StatusDisplay: "Accepted",
		Lang:          "go",
		Username:      username,
	}
}
