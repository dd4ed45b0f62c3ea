package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cyberchess/server/internal/matchmaking"
)

// JoinMatchmakingHandler enters the requesting account into the queue. When
// an eligible opponent is already waiting the response carries the new
// session id and the caller's color; otherwise the caller waits and learns
// about the pairing through the session WebSocket once matched.
func (s *Server) JoinMatchmakingHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := authenticate(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	var req struct {
		Mode string `json:"mode"`
	}
	if r.Body != nil {
		// empty body means default mode
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Mode == "" {
		req.Mode = "standard"
	}

	// Rating snapshot at enqueue time; matching uses this value even if the
	// rating changes while waiting.
	user, err := s.Store.GetUser(r.Context(), accountID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	outcome, err := s.Queue.Join(accountID, user.Rating, req.Mode)
	if err != nil {
		if errors.Is(err, matchmaking.ErrAlreadyQueued) {
			http.Error(w, "already in matchmaking queue", http.StatusConflict)
			return
		}
		s.Log.WithError(err).Error("matchmaking join failed")
		http.Error(w, "matchmaking failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(outcome)
}

// LeaveMatchmakingHandler removes the requesting account from the queue.
// Leaving while not queued is a no-op.
func (s *Server) LeaveMatchmakingHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := authenticate(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	s.Queue.Leave(accountID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"left": true})
}
