package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultRating is the rating assigned to every newly registered account.
const DefaultRating = 1200

type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
	Password string    `json:"password,omitempty"` // argon2id hash once stored

	Rating int `json:"rating"`

	GamesPlayed int `json:"games_played"`
	GamesWon    int `json:"games_won"`
	GamesLost   int `json:"games_lost"`
	GamesDrawn  int `json:"games_drawn"`

	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at"`
}

// Public returns a copy safe to hand to clients (no credential hash).
func (u User) Public() User {
	u.Password = ""
	return u
}
