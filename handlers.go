package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"leetfriends/leetcode"
	"leetfriends/store"
	"leetfriends/tracker"
)

const (
	msgInvalidUsername = "The username you entered is invalid. Please try again."
	msgEmptyUsername   = "Empty username. Please enter a username"
	msgNoUsername      = "No username set"
)

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	username, err := s.store.PrimaryUser()
	if err != nil {
		http.Error(w, "Failed to read stored username", http.StatusInternalServerError)
		log.Printf("Error reading username: %v", err)
		return
	}

	if username == "" {
		// First run: the popup shows the username-entry view on 404
		http.Error(w, msgNoUsername, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"username": username,
	})
}

func (s *Server) handleSetUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if body.Username == "" {
		http.Error(w, msgEmptyUsername, http.StatusBadRequest)
		return
	}

	if !s.checkUserExists(w, r, body.Username) {
		return
	}

	if err := s.store.SetPrimaryUser(body.Username); err != nil {
		http.Error(w, "Failed to store username", http.StatusInternalServerError)
		log.Printf("Error storing username: %v", err)
		return
	}

	s.snapshot.Invalidate()
	s.broadcastUpdate("user-update", map[string]interface{}{
		"username": body.Username,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"username": body.Username,
	})
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	primary, friends, ok := s.currentUsers(w)
	if !ok {
		return
	}

	feed := s.agg.BuildActivityFeed(r.Context(), primary, friends, s.cfg.Feed.RecentLimit)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"activity": feed,
	})
}

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	difficulty, err := leetcode.ParseDifficulty(r.URL.Query().Get("difficulty"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	primary, friends, ok := s.currentUsers(w)
	if !ok {
		return
	}

	// Re-project the held snapshot; tab switches never refetch
	entries := s.snapshot.Entries(r.Context(), primary, friends)
	ranked := tracker.BuildLeaderboard(entries, difficulty)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"difficulty":  difficulty,
		"leaderboard": ranked,
	})
}

func (s *Server) handleGetDailyLeaderboard(w http.ResponseWriter, r *http.Request) {
	primary, friends, ok := s.currentUsers(w)
	if !ok {
		return
	}

	entries := s.agg.BuildDailyLeaderboard(r.Context(), primary, friends)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"leaderboard": entries,
	})
}

func (s *Server) handleGetFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.store.Friends()
	if err != nil {
		http.Error(w, "Failed to read friends", http.StatusInternalServerError)
		log.Printf("Error reading friends: %v", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"friends": friends,
	})
}

func (s *Server) handleAddFriend(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if body.Username == "" {
		http.Error(w, msgEmptyUsername, http.StatusBadRequest)
		return
	}

	if !s.checkUserExists(w, r, body.Username) {
		return
	}

	if err := s.store.AddFriend(body.Username); err != nil {
		switch {
		case errors.Is(err, store.ErrSelfFriend):
			http.Error(w, "You cannot add yourself as a friend", http.StatusBadRequest)
		case errors.Is(err, store.ErrAlreadyFriend):
			http.Error(w, "That friend is already in your list", http.StatusConflict)
		default:
			http.Error(w, "Failed to add friend", http.StatusInternalServerError)
			log.Printf("Error adding friend: %v", err)
		}
		return
	}

	s.snapshot.Invalidate()
	s.broadcastFriendsUpdate()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"username": body.Username,
	})
}

func (s *Server) handleRemoveFriend(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	username := vars["username"]

	if err := s.store.RemoveFriend(username); err != nil {
		http.Error(w, "Failed to remove friend", http.StatusInternalServerError)
		log.Printf("Error removing friend: %v", err)
		return
	}

	s.snapshot.Invalidate()
	s.broadcastFriendsUpdate()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	primary, friends, ok := s.currentUsers(w)
	if !ok {
		return
	}

	entries := s.snapshot.Refresh(r.Context(), primary, friends)
	s.broadcastUpdate("leaderboard-update", map[string]interface{}{
		"leaderboard": tracker.BuildLeaderboard(entries, leetcode.DifficultyAll),
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
	})
}

// Helper functions

// currentUsers loads the stored username and friend set, writing the
// appropriate error response when the username is unset.
func (s *Server) currentUsers(w http.ResponseWriter) (string, []string, bool) {
	primary, err := s.store.PrimaryUser()
	if err != nil {
		http.Error(w, "Failed to read stored username", http.StatusInternalServerError)
		log.Printf("Error reading username: %v", err)
		return "", nil, false
	}
	if primary == "" {
		http.Error(w, msgNoUsername, http.StatusNotFound)
		return "", nil, false
	}

	friends, err := s.store.Friends()
	if err != nil {
		http.Error(w, "Failed to read friends", http.StatusInternalServerError)
		log.Printf("Error reading friends: %v", err)
		return "", nil, false
	}

	return primary, friends, true
}

// checkUserExists validates a username against the remote profile lookup.
// Writes the error response and returns false when validation fails.
func (s *Server) checkUserExists(w http.ResponseWriter, r *http.Request, username string) bool {
	_, err := s.client.FetchProfile(r.Context(), username)
	if err != nil {
		if errors.Is(err, leetcode.ErrUserNotFound) {
			http.Error(w, msgInvalidUsername, http.StatusNotFound)
		} else {
			http.Error(w, "Could not reach LeetCode to validate the username", http.StatusBadGateway)
			log.Printf("Error validating username %s: %v", username, err)
		}
		return false
	}
	return true
}

func (s *Server) broadcastFriendsUpdate() {
	friends, err := s.store.Friends()
	if err != nil {
		log.Printf("Error reading friends for broadcast: %v", err)
		return
	}

	s.broadcastUpdate("friends-update", map[string]interface{}{
		"friends": friends,
	})
}
