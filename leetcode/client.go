package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultEndpoint is the public LeetCode GraphQL endpoint.
const DefaultEndpoint = "https://leetcode.com/graphql"

var (
	// ErrUserNotFound means the username does not exist on LeetCode. It is
	// the signal used to validate usernames before storing them.
	ErrUserNotFound = errors.New("leetcode: user not found")

	// ErrQuestionNotFound means no question matches the given title slug.
	ErrQuestionNotFound = errors.New("leetcode: question not found")
)

const problemStatsQuery = `
query getUserProfile($username: String!) {
    matchedUser(username: $username) {
        submitStats {
            acSubmissionNum {
                difficulty
                count
                submissions
            }
        }
    }
}`

const profileQuery = `
query userPublicProfile($username: String!) {
    matchedUser(username: $username) {
        profile {
            userAvatar
        }
    }
}`

const questionQuery = `
query questionTitle($titleSlug: String!) {
    question(titleSlug: $titleSlug) {
        title
        titleSlug
        difficulty
    }
}`

const recentAcceptedQuery = `
query getACSubmissions($username: String!, $limit: Int!) {
    recentAcSubmissionList(username: $username, limit: $limit) {
        title
        titleSlug
        timestamp
        statusDisplay
        lang
    }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// Client issues the four query shapes the tracker needs against one GraphQL
// endpoint. A token-bucket limiter spaces the requests so a bulk refresh of
// many friends does not hammer the upstream.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

// NewClient creates a Client against the given endpoint. requestsPerSecond
// bounds the outbound rate; zero disables limiting.
func NewClient(endpoint string, timeout time.Duration, requestsPerSecond float64) *Client {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		log:        slog.Default().With("component", "leetcode"),
	}
}

func (c *Client) query(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(graphqlRequest{
		Query:     strings.ReplaceAll(query, "\n", " "),
		Variables: variables,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://leetcode.com")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Error("GraphQL request failed", "status", resp.Status, "body", string(respBody))
		return nil, fmt.Errorf("graphql request returned %s", resp.Status)
	}

	var parsed graphqlResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.log.Error("Failed to unmarshal GraphQL response", "body", string(respBody))
		return nil, err
	}

	if len(parsed.Errors) > 0 {
		msgs := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("graphql errors: %s", strings.Join(msgs, ", "))
	}

	return parsed.Data, nil
}

// FetchProblemStats returns the per-difficulty accepted counts for a user.
// Returns ErrUserNotFound if the username does not exist.
func (c *Client) FetchProblemStats(ctx context.Context, username string) (*ProblemStats, error) {
	data, err := c.query(ctx, problemStatsQuery, map[string]any{"username": username})
	if err != nil {
		return nil, err
	}

	var payload struct {
		MatchedUser *struct {
			SubmitStats struct {
				AcSubmissionNum []struct {
					Difficulty  string `json:"difficulty"`
					Count       int    `json:"count"`
					Submissions int    `json:"submissions"`
				} `json:"acSubmissionNum"`
			} `json:"submitStats"`
		} `json:"matchedUser"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.MatchedUser == nil {
		return nil, ErrUserNotFound
	}

	counts := make(map[Difficulty]DifficultyCount, 4)
	for _, row := range payload.MatchedUser.SubmitStats.AcSubmissionNum {
		d := Difficulty(row.Difficulty)
		counts[d] = DifficultyCount{Difficulty: d, Count: row.Count, Submissions: row.Submissions}
	}

	// Emit in fixed All/Easy/Medium/Hard order regardless of response order;
	// a missing slot becomes a zero row so the four-entry shape always holds.
	stats := &ProblemStats{Counts: make([]DifficultyCount, 0, 4)}
	for _, d := range Difficulties {
		row, ok := counts[d]
		if !ok {
			row = DifficultyCount{Difficulty: d}
		}
		stats.Counts = append(stats.Counts, row)
	}
	return stats, nil
}

// FetchProfile returns a user's public profile. Returns ErrUserNotFound if
// the username does not exist.
func (c *Client) FetchProfile(ctx context.Context, username string) (*Profile, error) {
	data, err := c.query(ctx, profileQuery, map[string]any{"username": username})
	if err != nil {
		return nil, err
	}

	var payload struct {
		MatchedUser *struct {
			Profile struct {
				UserAvatar string `json:"userAvatar"`
			} `json:"profile"`
		} `json:"matchedUser"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	if payload.MatchedUser == nil {
		return nil, ErrUserNotFound
	}

	return &Profile{AvatarURL: payload.MatchedUser.Profile.UserAvatar}, nil
}

// FetchQuestionDifficulty returns the difficulty label for a question by
// title slug. Returns ErrQuestionNotFound for unknown slugs.
func (c *Client) FetchQuestionDifficulty(ctx context.Context, titleSlug string) (Difficulty, error) {
	data, err := c.query(ctx, questionQuery, map[string]any{"titleSlug": titleSlug})
	if err != nil {
		return "", err
	}

	var payload struct {
		Question *struct {
			Difficulty string `json:"difficulty"`
		} `json:"question"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", err
	}
	if payload.Question == nil {
		return "", ErrQuestionNotFound
	}

	return Difficulty(payload.Question.Difficulty), nil
}

// FetchRecentAccepted returns up to limit most-recent accepted submissions
// for a user, each stamped with the owning username. Transport and GraphQL
// failures degrade to an empty slice with a logged warning; this capability
// never fails its caller.
func (c *Client) FetchRecentAccepted(ctx context.Context, username string, limit int) ([]Submission, error) {
	data, err := c.query(ctx, recentAcceptedQuery, map[string]any{"username": username, "limit": limit})
	if err != nil {
		c.log.Warn("Failed to fetch recent submissions", "username", username, "error", err)
		return []Submission{}, nil
	}

	var payload struct {
		RecentAcSubmissionList []struct {
			Title         string `json:"title"`
			TitleSlug     string `json:"titleSlug"`
			Timestamp     string `json:"timestamp"`
			StatusDisplay string `json:"statusDisplay"`
			Lang          string `json:"lang"`
		} `json:"recentAcSubmissionList"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		c.log.Warn("Failed to decode recent submissions", "username", username, "error", err)
		return []Submission{}, nil
	}

	submissions := make([]Submission, 0, len(payload.RecentAcSubmissionList))
	for _, raw := range payload.RecentAcSubmissionList {
		ts, err := strconv.ParseInt(raw.Timestamp, 10, 64)
		if err != nil {
			c.log.Warn("Skipping submission with bad timestamp", "username", username, "timestamp", raw.Timestamp)
			continue
		}
		submissions = append(submissions, Submission{
			Title:         raw.Title,
			TitleSlug:     raw.TitleSlug,
			Timestamp:     ts,
			StatusDisplay: raw.StatusDisplay,
			Lang:          raw.Lang,
			Username:      username,
		})
	}
	return submissions, nil
}
