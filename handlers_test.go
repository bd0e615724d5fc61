package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeLeetCode serves canned GraphQL responses keyed by query shape. The
// username "ghost" does not exist; everyone else does.
func fakeLeetCode(t *testing.T, now time.Time) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		username, _ := req.Variables["username"].(string)

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(req.Query, "recentAcSubmissionList"):
			fmt.Fprintf(w, `{"data": {"recentAcSubmissionList": [
				{"title": "Two Sum", "titleSlug": "two-sum", "timestamp": "%d", "statusDisplay": "Accepted", "lang": "golang"}
			]}}`, now.Unix())
		case strings.Contains(req.Query, "userPublicProfile"):
			if username == "ghost" {
				fmt.Fprint(w, `{"data": {"matchedUser": null}}`)
				return
			}
			fmt.Fprintf(w, `{"data": {"matchedUser": {"profile": {"userAvatar": "https://example.com/%s.png"}}}}`, username)
		case strings.Contains(req.Query, "submitStats"):
			if username == "ghost" {
				fmt.Fprint(w, `{"data": {"matchedUser": null}}`)
				return
			}
			count := len(username) // deterministic, distinct per user
			fmt.Fprintf(w, `{"data": {"matchedUser": {"submitStats": {"acSubmissionNum": [
				{"difficulty": "All", "count": %d, "submissions": %d},
				{"difficulty": "Easy", "count": 1, "submissions": 1},
				{"difficulty": "Medium", "count": 1, "submissions": 1},
				{"difficulty": "Hard", "count": 0, "submissions": 0}
			]}}}}`, count, count)
		case strings.Contains(req.Query, "question"):
			fmt.Fprint(w, `{"data": {"question": {"title": "Two Sum", "titleSlug": "two-sum", "difficulty": "Easy"}}}`)
		default:
			http.Error(w, "unknown query", http.StatusBadRequest)
		}
	}))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	upstream := fakeLeetCode(t, time.Now())
	t.Cleanup(upstream.Close)

	cfg := defaultTestConfig(t)
	cfg.GraphQL.Endpoint = upstream.URL

	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	t.Cleanup(func() { server.store.Close() })
	return server
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestSetUser(t *testing.T) {
	s := newTestServer(t)

	t.Run("first run has no user", func(t *testing.T) {
		rec := doJSON(t, s, "GET", "/api/user", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 on fresh store, got %d", rec.Code)
		}
	})

	t.Run("empty username rejected", func(t *testing.T) {
		rec := doJSON(t, s, "PUT", "/api/user", `{"username": ""}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown username rejected", func(t *testing.T) {
		rec := doJSON(t, s, "PUT", "/api/user", `{"username": "ghost"}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "invalid") {
			t.Errorf("expected validation message, got %q", rec.Body.String())
		}
	})

	t.Run("valid username stored", func(t *testing.T) {
		rec := doJSON(t, s, "PUT", "/api/user", `{"username": "alice"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		rec = doJSON(t, s, "GET", "/api/user", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp struct {
			Username string `json:"username"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Username != "alice" {
			t.Errorf("expected alice, got %q", resp.Username)
		}
	})
}

func TestFriends(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, "PUT", "/api/user", `{"username": "alice"}`)

	t.Run("add valid friend", func(t *testing.T) {
		rec := doJSON(t, s, "POST", "/api/friends", `{"username": "bob"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("duplicate friend rejected", func(t *testing.T) {
		rec := doJSON(t, s, "POST", "/api/friends", `{"username": "bob"}`)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("self rejected", func(t *testing.T) {
		rec := doJSON(t, s, "POST", "/api/friends", `{"username": "alice"}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown username rejected", func(t *testing.T) {
		rec := doJSON(t, s, "POST", "/api/friends", `{"username": "ghost"}`)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("list and remove", func(t *testing.T) {
		rec := doJSON(t, s, "GET", "/api/friends", "")
		var resp struct {
			Friends []string `json:"friends"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Friends) != 1 || resp.Friends[0] != "bob" {
			t.Fatalf("expected [bob], got %v", resp.Friends)
		}

		rec = doJSON(t, s, "DELETE", "/api/friends/bob", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		rec = doJSON(t, s, "GET", "/api/friends", "")
		resp.Friends = nil
		json.NewDecoder(rec.Body).Decode(&resp)
		if len(resp.Friends) != 0 {
			t.Errorf("expected empty friend list, got %v", resp.Friends)
		}
	})
}

func TestActivityAndLeaderboards(t *testing.T) {
	s := newTestServer(t)

	t.Run("activity without user is 404", func(t *testing.T) {
		rec := doJSON(t, s, "GET", "/api/activity", "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	doJSON(t, s, "PUT", "/api/user", `{"username": "alice"}`)
	doJSON(t, s, "POST", "/api/friends", `{"username": "bob"}`)

	t.Run("activity merges self and friends", func(t *testing.T) {
		rec := doJSON(t, s, "GET", "/api/activity", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Activity []struct {
				Username   string `json:"username"`
				Difficulty string `json:"difficulty"`
			} `json:"activity"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Activity) != 2 {
			t.Fatalf("expected 2 feed items, got %d", len(resp.Activity))
		}
		names := map[string]bool{}
		for _, item := range resp.Activity {
			names[item.Username] = true
			if item.Difficulty != "Easy" {
				t.Errorf("expected resolved difficulty Easy, got %q", item.Difficulty)
			}
		}
		if !names["You"] || !names["bob"] {
			t.Errorf("expected You and bob in feed, got %v", names)
		}
	})

	t.Run("leaderboard rejects bad difficulty", func(t *testing.T) {
		rec := doJSON(t, s, "GET", "/api/leaderboard?difficulty=bogus", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("leaderboard ranks by all-time count", func(t *testing.T) {
		rec := doJSON(t, s, "GET", "/api/leaderboard?difficulty=all", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Leaderboard []struct {
				Username string `json:"username"`
			} `json:"leaderboard"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		// Fake upstream scores each user by name length: alice(5) > bob(3)
		if len(resp.Leaderboard) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(resp.Leaderboard))
		}
		if resp.Leaderboard[0].Username != "alice" || resp.Leaderboard[1].Username != "bob" {
			t.Errorf("unexpected order: %s, %s", resp.Leaderboard[0].Username, resp.Leaderboard[1].Username)
		}
	})

	t.Run("daily leaderboard includes everyone", func(t *testing.T) {
		rec := doJSON(t, s, "GET", "/api/leaderboard/daily", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Leaderboard []struct {
				Username string `json:"username"`
				Count    int    `json:"count"`
			} `json:"leaderboard"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(resp.Leaderboard) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(resp.Leaderboard))
		}
		for _, entry := range resp.Leaderboard {
			if entry.Count != 1 {
				t.Errorf("%s: expected 1 submission today, got %d", entry.Username, entry.Count)
			}
		}
	})
}

func TestUpstreamOutageDegradesActivityToEmpty(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if strings.Contains(req.Query, "userPublicProfile") {
			// Let validation pass, then fail everything else
			fmt.Fprint(w, `{"data": {"matchedUser": {"profile": {"userAvatar": ""}}}}`)
			return
		}
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(upstream.Close)

	cfg := defaultTestConfig(t)
	cfg.GraphQL.Endpoint = upstream.URL
	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	t.Cleanup(func() { server.store.Close() })

	doJSON(t, server, "PUT", "/api/user", `{"username": "alice"}`)

	rec := doJSON(t, server, "GET", "/api/activity", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected empty-state 200 during outage, got %d", rec.Code)
	}
	var resp struct {
		Activity []any `json:"activity"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Activity) != 0 {
		t.Errorf("expected empty activity, got %d items", len(resp.Activity))
	}
}
