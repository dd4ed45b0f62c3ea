package models

import (
	"time"

	"github.com/google/uuid"
)

// Result is the final outcome of a game in PGN result notation.
type Result string

const (
	WhiteWins Result = "1-0"
	BlackWins Result = "0-1"
	DrawnGame Result = "1/2-1/2"
)

// ScoreForWhite maps the result to white's Elo score (1, 0.5 or 0).
func (r Result) ScoreForWhite() float64 {
	switch r {
	case WhiteWins:
		return 1.0
	case BlackWins:
		return 0.0
	default:
		return 0.5
	}
}

// GameRecord is the immutable settled form of a completed session. SessionID
// doubles as the idempotency key for settlement.
type GameRecord struct {
	SessionID uuid.UUID `json:"session_id"`

	WhiteID uuid.UUID `json:"white_id"`
	BlackID uuid.UUID `json:"black_id"`

	Result Result `json:"result"`
	Method string `json:"method"` // checkmate, resignation, stalemate, ...
	Mode   string `json:"mode"`

	MovesUCI []string `json:"moves_uci"`
	PGN      string   `json:"pgn"`

	WhiteRatingBefore int `json:"white_rating_before"`
	WhiteRatingAfter  int `json:"white_rating_after"`
	BlackRatingBefore int `json:"black_rating_before"`
	BlackRatingAfter  int `json:"black_rating_after"`

	CompletedAt time.Time `json:"completed_at"`
}
