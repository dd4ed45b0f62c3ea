package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cyberchess/server/internal/provider"
)

// GameStateHandler returns a snapshot of an active session:
// GET /game/state/{session_id}.
func (s *Server) GameStateHandler(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/game/state/"), "/")
	sessionID, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid session_id", http.StatusBadRequest)
		return
	}

	session, ok := s.Registry.GetSession(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session.Snapshot())
}

// ExhibitionHandler plays two configured move providers against each other
// and returns the finished game. Exhibition games are unrated and leave no
// record.
func (s *Server) ExhibitionHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticate(r); err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	var req struct {
		White string `json:"white"`
		Black string `json:"black"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	white, ok := s.Providers[req.White]
	if !ok {
		http.Error(w, "unknown white provider", http.StatusBadRequest)
		return
	}
	black, ok := s.Providers[req.Black]
	if !ok {
		http.Error(w, "unknown black provider", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	ex := &provider.Exhibition{
		White:     white,
		Black:     black,
		WhiteName: req.White,
		BlackName: req.Black,
		Log:       s.Log,
	}
	res, err := ex.Play(ctx)
	if err != nil {
		s.Log.WithError(err).Error("exhibition game failed")
		http.Error(w, "exhibition failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}
