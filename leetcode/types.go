package leetcode

import "fmt"

// Difficulty identifies one slot of a user's solve statistics. "All" is the
// aggregate across the three real difficulties.
type Difficulty string

const (
	DifficultyAll    Difficulty = "All"
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Difficulties is the fixed order stats arrive in from the API.
var Difficulties = [4]Difficulty{DifficultyAll, DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty maps a query-string value like "easy" to a Difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	switch s {
	case "all", "All", "":
		return DifficultyAll, nil
	case "easy", "Easy":
		return DifficultyEasy, nil
	case "medium", "Medium":
		return DifficultyMedium, nil
	case "hard", "Hard":
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// DifficultyCount is one row of a user's accepted-submission statistics.
type DifficultyCount struct {
	Difficulty  Difficulty `json:"difficulty"`
	Count       int        `json:"count"`
	Submissions int        `json:"submissions"`
}

// ProblemStats holds a user's solve counts, always exactly four entries in
// All, Easy, Medium, Hard order.
type ProblemStats struct {
	Counts []DifficultyCount `json:"counts"`
}

// Count returns the accepted count for the given difficulty, keyed by label
// rather than slice position.
func (s *ProblemStats) Count(d Difficulty) int {
	for _, c := range s.Counts {
		if c.Difficulty == d {
			return c.Count
		}
	}
	return 0
}

// Profile is the public profile subset the tracker needs.
type Profile struct {
	AvatarURL string `json:"avatar_url"`
}

// Submission is one accepted submission, stamped with the username whose
// history produced it. Timestamp is UNIX seconds.
type Submission struct {
	Title         string `json:"title"`
	TitleSlug     string `json:"title_slug"`
	Timestamp     int64  `json:"timestamp"`
	StatusDisplay string `json:"status_display"`
	Lang          string `json:"lang"`
	Username      string `json:"username"`
}
