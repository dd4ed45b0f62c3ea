// internal/handlers/server.go
package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/cyberchess/server/internal/game"
	"github.com/cyberchess/server/internal/matchmaking"
	"github.com/cyberchess/server/internal/provider"
	"github.com/cyberchess/server/internal/store"
)

// Server bundles the handler dependencies: the account store, the
// matchmaking queue, the session registry, and any configured exhibition
// move providers keyed by name ("engine", "model").
type Server struct {
	Log       *logrus.Logger
	Store     store.Store
	Queue     *matchmaking.Queue
	Registry  *game.Registry
	Providers map[string]provider.MoveProvider
}

func NewServer(log *logrus.Logger, st store.Store, q *matchmaking.Queue, reg *game.Registry) *Server {
	return &Server{
		Log:       log,
		Store:     st,
		Queue:     q,
		Registry:  reg,
		Providers: make(map[string]provider.MoveProvider),
	}
}

// Routes wires every endpoint onto a fresh mux. Middleware is applied by the
// caller.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	// user endpoints
	mux.HandleFunc("/user/create", s.CreateUserHandler)
	mux.HandleFunc("/user/login", s.LoginHandler)
	mux.HandleFunc("/user/profile", s.ProfileHandler)
	mux.HandleFunc("/user/games", s.UserGamesHandler)
	mux.HandleFunc("/leaderboard", s.LeaderboardHandler)

	// matchmaking endpoints
	mux.HandleFunc("/matchmaking/join", s.JoinMatchmakingHandler)
	mux.HandleFunc("/matchmaking/leave", s.LeaveMatchmakingHandler)

	// game endpoints
	mux.HandleFunc("/game/state/", s.GameStateHandler)
	mux.HandleFunc("/game/ws/", s.GameWSHandler)

	// unrated exhibition games between configured providers
	mux.HandleFunc("/exhibition", s.ExhibitionHandler)

	return mux
}
