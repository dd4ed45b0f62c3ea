// Package store is the persistent record of accounts and settled games.
//
// Two implementations exist: Postgres for production and Memory for tests and
// database-less local runs. Both enforce the same contract:
//
//   - usernames are unique, compared case-sensitively
//   - new accounts start at models.DefaultRating with zero tallies
//   - ApplySettlement is atomic and idempotent under retry, keyed by the
//     record's session id
//   - games_played == games_won + games_lost + games_drawn at all times
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/cyberchess/server/internal/models"
)

var (
	// ErrDuplicateUsername is returned by CreateUser when the username is taken.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrInvalidCredentials covers both unknown-username and wrong-password so
	// callers cannot probe for account existence.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotFound is returned when an account id is unknown.
	ErrNotFound = errors.New("account not found")
)

type Store interface {
	// CreateUser registers a new account. The Password field must hold the
	// plaintext credential; it is hashed before storage and the struct is
	// updated in place with the generated id, hash, and defaults.
	CreateUser(ctx context.Context, u *models.User) error

	// Authenticate checks a username/password pair, records the login time,
	// and returns the account. Failures are ErrInvalidCredentials regardless
	// of cause.
	Authenticate(ctx context.Context, username, password string) (*models.User, error)

	// GetUser returns an account snapshot by id.
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)

	// ApplySettlement commits a completed game: both participants' ratings
	// and tallies plus the permanent record, atomically. Reapplying a record
	// with a session id already settled is a no-op.
	ApplySettlement(ctx context.Context, rec *models.GameRecord) error

	// Leaderboard returns up to limit accounts ordered by rating descending,
	// ties broken by earlier account creation.
	Leaderboard(ctx context.Context, limit int) ([]models.User, error)

	// UserGames returns the account's settled games, most recent first.
	UserGames(ctx context.Context, id uuid.UUID, limit int) ([]models.GameRecord, error)
}
