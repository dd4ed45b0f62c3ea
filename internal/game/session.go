package game

import (
	"strings"
	"sync"
	"time"

	chess "github.com/corentings/chess/v2"
	"github.com/google/uuid"

	"github.com/cyberchess/server/internal/models"
)

// Status is a session's lifecycle state.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Session is one live game between two bound accounts. The embedded chess
// game is the authoritative position; all mutation goes through the registry,
// which serializes it on mu.
type Session struct {
	ID        uuid.UUID
	WhiteID   uuid.UUID
	BlackID   uuid.UUID
	Mode      string
	CreatedAt time.Time

	mu sync.Mutex

	game     *chess.Game
	movesUCI []string
	movesSAN []string

	status Status
	result models.Result
	method string

	subs []*Subscriber
}

func newSession(whiteID, blackID uuid.UUID, mode string) *Session {
	return &Session{
		ID:        uuid.New(),
		WhiteID:   whiteID,
		BlackID:   blackID,
		Mode:      mode,
		CreatedAt: time.Now(),
		game:      chess.NewGame(),
		status:    StatusActive,
	}
}

// colorOf returns "white"/"black" for a participant, "" otherwise.
func (s *Session) colorOf(accountID uuid.UUID) string {
	switch accountID {
	case s.WhiteID:
		return "white"
	case s.BlackID:
		return "black"
	}
	return ""
}

// State is a read-only snapshot for the REST state endpoint.
type State struct {
	SessionID uuid.UUID     `json:"session_id"`
	WhiteID   uuid.UUID     `json:"white_id"`
	BlackID   uuid.UUID     `json:"black_id"`
	Mode      string        `json:"mode"`
	FEN       string        `json:"fen"`
	Turn      string        `json:"turn"`
	MovesUCI  []string      `json:"moves_uci"`
	MovesSAN  []string      `json:"moves_san"`
	Status    Status        `json:"status"`
	Result    models.Result `json:"result,omitempty"`
}

// Snapshot copies the current session state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		SessionID: s.ID,
		WhiteID:   s.WhiteID,
		BlackID:   s.BlackID,
		Mode:      s.Mode,
		FEN:       s.game.FEN(),
		Turn:      turnLabel(s.game),
		MovesUCI:  append([]string(nil), s.movesUCI...),
		MovesSAN:  append([]string(nil), s.movesSAN...),
		Status:    s.status,
		Result:    s.result,
	}
}

// Attach registers a push channel for a participant and announces the join.
func (s *Session) Attach(accountID uuid.UUID) *Subscriber {
	sub := &Subscriber{UserID: accountID, Out: make(chan Event, 16)}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.broadcastLocked(Event{
		Type:      EventSessionJoined,
		SessionID: s.ID,
		UserID:    accountID.String(),
		Color:     s.colorOf(accountID),
		FEN:       s.game.FEN(),
		Turn:      turnLabel(s.game),
	})
	s.mu.Unlock()
	return sub
}

// Detach removes a subscriber; its channel is closed so writer pumps exit.
func (s *Session) Detach(sub *Subscriber) {
	s.mu.Lock()
	for i, existing := range s.subs {
		if existing == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(sub.Out)
			break
		}
	}
	s.mu.Unlock()
}

// broadcastLocked fans an event out to every subscriber. Requires s.mu.
// Sends never block; a full buffer means the consumer is too slow and the
// event is dropped for that subscriber only.
func (s *Session) broadcastLocked(ev Event) {
	for _, sub := range s.subs {
		select {
		case sub.Out <- ev:
		default:
		}
	}
}

// applyMoveLocked validates and plays a move given in UCI (preferred) or SAN.
// Returns the normalized UCI and SAN forms. Requires s.mu.
func (s *Session) applyMoveLocked(move string) (string, string, error) {
	pos := s.game.Position()
	raw := strings.TrimSpace(move)
	uci := strings.ToLower(raw)
	if uci == "" {
		return "", "", ErrIllegalMove
	}

	if mv, err := (chess.UCINotation{}).Decode(pos, uci); err == nil {
		if err := s.game.Move(mv, nil); err != nil {
			return "", "", ErrIllegalMove
		}
		san := chess.AlgebraicNotation{}.Encode(pos, mv)
		return uci, san, nil
	}

	// fall back to SAN input
	if err := s.game.PushNotationMove(raw, chess.AlgebraicNotation{}, nil); err != nil {
		return "", "", ErrIllegalMove
	}
	moves := s.game.Moves()
	last := moves[len(moves)-1]
	return last.String(), chess.AlgebraicNotation{}.Encode(pos, last), nil
}

// completeLocked flips the session to completed. It is the single atomic
// settlement guard: exactly one caller observes true no matter how many
// terminal triggers race. Requires s.mu.
func (s *Session) completeLocked(result models.Result, method string) bool {
	if s.status != StatusActive {
		return false
	}
	s.status = StatusCompleted
	s.result = result
	s.method = method
	return true
}

func turnLabel(g *chess.Game) string {
	if g.Position().Turn() == chess.White {
		return "white"
	}
	return "black"
}

// terminalLocked checks the rules engine for a decided game. Requires s.mu.
func (s *Session) terminalLocked() (models.Result, string, bool) {
	switch s.game.Outcome() {
	case chess.WhiteWon:
		return models.WhiteWins, methodLabel(s.game.Method()), true
	case chess.BlackWon:
		return models.BlackWins, methodLabel(s.game.Method()), true
	case chess.Draw:
		return models.DrawnGame, methodLabel(s.game.Method()), true
	}
	return "", "", false
}

func methodLabel(m chess.Method) string {
	return strings.ToLower(m.String())
}
