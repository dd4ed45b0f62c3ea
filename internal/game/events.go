package game

import "github.com/google/uuid"

// Event types pushed to session subscribers.
const (
	EventSessionJoined    = "session_joined"
	EventMoveApplied      = "move_applied"
	EventSessionCompleted = "session_completed"
	EventError            = "error"
)

// Event is a push message delivered to both participants of a session.
type Event struct {
	Type      string    `json:"type"`
	SessionID uuid.UUID `json:"session_id"`

	// session_joined
	UserID string `json:"user_id,omitempty"`
	Color  string `json:"color,omitempty"`

	// move_applied
	Move string `json:"move,omitempty"`
	SAN  string `json:"san,omitempty"`
	FEN  string `json:"fen,omitempty"`
	Turn string `json:"turn,omitempty"`

	// session_completed
	Result            string `json:"result,omitempty"`
	Method            string `json:"method,omitempty"`
	WhiteRatingChange int    `json:"white_rating_change,omitempty"`
	BlackRatingChange int    `json:"black_rating_change,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// Subscriber is one participant's open push channel. The Out channel is
// buffered; a slow consumer drops events rather than stalling the session.
type Subscriber struct {
	UserID uuid.UUID
	Out    chan Event
}
