package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cyberchess/server/internal/auth"
	"github.com/cyberchess/server/internal/models"
	"github.com/cyberchess/server/internal/store"
)

// CreateUserHandler registers a new account. Usernames are unique and
// case-sensitive; new accounts start at the default rating.
func (s *Server) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	user := models.User{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	}
	if err := s.Store.CreateUser(r.Context(), &user); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			http.Error(w, "username already exists", http.StatusConflict)
			return
		}
		s.Log.WithError(err).Error("failed to create user")
		http.Error(w, "error creating user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user.Public())
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// LoginHandler checks credentials and issues a session token. The token is
// returned in the body and also set as the auth_token cookie. Every failure
// is the same 403 so callers cannot probe for which usernames exist.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request payload", http.StatusBadRequest)
		return
	}

	user, err := s.Store.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusForbidden)
		return
	}

	token, err := auth.CreateJWT(user.ID)
	if err != nil {
		s.Log.WithError(err).Error("failed to issue session token")
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   auth.TokenExpireSec,
	})

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(loginResponse{Token: token, User: user.Public()}); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

// ProfileHandler returns the requesting account's current profile, including
// rating and the win/loss/draw tallies.
func (s *Server) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := authenticate(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	user, err := s.Store.GetUser(r.Context(), accountID)
	if err != nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user.Public())
}

// UserGamesHandler returns the requesting account's settled games, most
// recent first.
func (s *Server) UserGamesHandler(w http.ResponseWriter, r *http.Request) {
	accountID, err := authenticate(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	games, err := s.Store.UserGames(r.Context(), accountID, parseLimit(r, 20))
	if err != nil {
		s.Log.WithError(err).Error("failed to load game history")
		http.Error(w, "error loading games", http.StatusInternalServerError)
		return
	}
	if games == nil {
		games = []models.GameRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(games)
}

// LeaderboardHandler returns the top accounts by rating.
func (s *Server) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	users, err := s.Store.Leaderboard(r.Context(), parseLimit(r, 10))
	if err != nil {
		s.Log.WithError(err).Error("failed to load leaderboard")
		http.Error(w, "error loading leaderboard", http.StatusInternalServerError)
		return
	}

	public := make([]models.User, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(public)
}

func parseLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 100 {
		return def
	}
	return n
}
