package tracker

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"leetfriends/leetcode"
)

// DataSource is the remote-data surface the aggregator fans out over.
// *leetcode.Client satisfies it.
type DataSource interface {
	FetchProblemStats(ctx context.Context, username string) (*leetcode.ProblemStats, error)
	FetchProfile(ctx context.Context, username string) (*leetcode.Profile, error)
	FetchQuestionDifficulty(ctx context.Context, titleSlug string) (leetcode.Difficulty, error)
	FetchRecentAccepted(ctx context.Context, username string, limit int) ([]leetcode.Submission, error)
}

// SelfLabel replaces the primary user's name in the activity feed.
const SelfLabel = "You"

// FeedItem is one activity-feed row: a submission plus its resolved
// difficulty. Difficulty is empty when the lookup failed.
type FeedItem struct {
	leetcode.Submission
	Difficulty leetcode.Difficulty `json:"difficulty"`
}

// Entry is one all-time leaderboard row.
type Entry struct {
	Username  string                 `json:"username"`
	AvatarURL string                 `json:"avatar_url"`
	Stats     *leetcode.ProblemStats `json:"stats"`
}

// DailyEntry is one daily leaderboard row. Count always equals
// len(Submissions); it is derived, never set independently.
type DailyEntry struct {
	Username    string                `json:"username"`
	AvatarURL   string                `json:"avatar_url"`
	Submissions []leetcode.Submission `json:"submissions"`
	Count       int                   `json:"count"`
}

// Aggregator turns a primary user plus a friend set into the three
// render-ready views. Each call is a stateless pipeline over fresh fetches;
// a failure for one user never aborts the others.
type Aggregator struct {
	source     DataSource
	dailyLimit int
	now        func() time.Time
	log        *slog.Logger
}

// New creates an Aggregator. dailyLimit is how many recent submissions are
// scanned per user for the daily leaderboard.
func New(source DataSource, dailyLimit int) *Aggregator {
	return &Aggregator{
		source:     source,
		dailyLimit: dailyLimit,
		now:        time.Now,
		log:        slog.Default().With("component", "tracker"),
	}
}

// BuildActivityFeed fetches up to perUserLimit recent accepted submissions
// for the primary user and every friend, resolves each distinct problem's
// difficulty once, and returns the merged feed newest first. Ties on the
// second-granularity timestamps keep their pre-sort order. The primary
// user's rows carry SelfLabel as the username.
func (a *Aggregator) BuildActivityFeed(ctx context.Context, primary string, friends []string, perUserLimit int) []FeedItem {
	users := append([]string{primary}, friends...)

	// Fan out one fetch per user. Results land in index-mapped slots so the
	// merge order matches the input order, not completion order.
	perUser := make([][]leetcode.Submission, len(users))
	var wg sync.WaitGroup
	for i, user := range users {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			subs, err := a.source.FetchRecentAccepted(ctx, user, perUserLimit)
			if err != nil {
				a.log.Warn("Recent submissions unavailable", "username", user, "error", err)
				return
			}
			perUser[i] = subs
		}(i, user)
	}
	wg.Wait()

	var merged []leetcode.Submission
	for _, subs := range perUser {
		merged = append(merged, subs...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp > merged[j].Timestamp
	})

	difficulties := a.resolveDifficulties(ctx, merged)

	feed := make([]FeedItem, 0, len(merged))
	for _, sub := range merged {
		if sub.Username == primary {
			sub.Username = SelfLabel
		}
		feed = append(feed, FeedItem{Submission: sub, Difficulty: difficulties[sub.TitleSlug]})
	}
	return feed
}

// resolveDifficulties looks up each distinct title slug exactly once,
// concurrently. A failed lookup leaves that slug's difficulty empty; the
// submissions are kept either way.
func (a *Aggregator) resolveDifficulties(ctx context.Context, subs []leetcode.Submission) map[string]leetcode.Difficulty {
	seen := make(map[string]bool, len(subs))
	var slugs []string
	for _, sub := range subs {
		if !seen[sub.TitleSlug] {
			seen[sub.TitleSlug] = true
			slugs = append(slugs, sub.TitleSlug)
		}
	}

	results := make([]leetcode.Difficulty, len(slugs))
	var wg sync.WaitGroup
	for i, slug := range slugs {
		wg.Add(1)
		go func(i int, slug string) {
			defer wg.Done()
			d, err := a.source.FetchQuestionDifficulty(ctx, slug)
			if err != nil {
				a.log.Warn("Difficulty lookup failed", "slug", slug, "error", err)
				return
			}
			results[i] = d
		}(i, slug)
	}
	wg.Wait()

	difficulties := make(map[string]leetcode.Difficulty, len(slugs))
	for i, slug := range slugs {
		difficulties[slug] = results[i]
	}
	return difficulties
}

// FetchLeaderboard fans out stats and avatar lookups for the primary user
// and every friend. A failed avatar lookup leaves the URL empty; a failed
// stats lookup drops only that user. Result order matches input order.
func (a *Aggregator) FetchLeaderboard(ctx context.Context, primary string, friends []string) []Entry {
	users := append([]string{primary}, friends...)

	slots := make([]*Entry, len(users))
	var wg sync.WaitGroup
	for i, user := range users {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			stats, err := a.source.FetchProblemStats(ctx, user)
			if err != nil {
				a.log.Warn("Stats unavailable, dropping from leaderboard", "username", user, "error", err)
				return
			}
			entry := &Entry{Username: user, Stats: stats}
			if profile, err := a.source.FetchProfile(ctx, user); err == nil {
				entry.AvatarURL = profile.AvatarURL
			} else {
				a.log.Warn("Avatar unavailable", "username", user, "error", err)
			}
			slots[i] = entry
		}(i, user)
	}
	wg.Wait()

	entries := make([]Entry, 0, len(users))
	for _, entry := range slots {
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries
}

// BuildLeaderboard reorders entries by descending accepted count at the
// given difficulty. The result is a permutation of the input; entries with
// equal counts keep their input order. The input slice is not modified, so
// a held snapshot can be re-projected for every tab selection.
func BuildLeaderboard(entries []Entry, d leetcode.Difficulty) []Entry {
	ranked := make([]Entry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Stats.Count(d) > ranked[j].Stats.Count(d)
	})
	return ranked
}

// BuildDailyLeaderboard counts each user's accepted submissions from the
// current calendar day in local time, highest count first. Users with zero
// submissions today still appear, with count 0, at the bottom.
func (a *Aggregator) BuildDailyLeaderboard(ctx context.Context, primary string, friends []string) []DailyEntry {
	users := append([]string{primary}, friends...)
	today := a.now()

	entries := make([]DailyEntry, len(users))
	var wg sync.WaitGroup
	for i, user := range users {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			entry := DailyEntry{Username: user, Submissions: []leetcode.Submission{}}

			subs, err := a.source.FetchRecentAccepted(ctx, user, a.dailyLimit)
			if err != nil {
				a.log.Warn("Recent submissions unavailable", "username", user, "error", err)
				subs = nil
			}
			for _, sub := range subs {
				if sameDay(time.Unix(sub.Timestamp, 0), today) {
					entry.Submissions = append(entry.Submissions, sub)
				}
			}
			entry.Count = len(entry.Submissions)

			if profile, err := a.source.FetchProfile(ctx, user); err == nil {
				entry.AvatarURL = profile.AvatarURL
			} else {
				a.log.Warn("Avatar unavailable", "username", user, "error", err)
			}
			entries[i] = entry
		}(i, user)
	}
	wg.Wait()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	return entries
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
