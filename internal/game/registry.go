// Package game owns live sessions from pairing to settlement.
package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cyberchess/server/internal/models"
	"github.com/cyberchess/server/internal/rating"
	"github.com/cyberchess/server/internal/store"
)

var (
	// ErrSessionNotActive is returned for moves or resignations against a
	// session that has already completed (or was never known).
	ErrSessionNotActive = errors.New("session is not active")

	// ErrNotYourTurn rejects a move from the side not to move.
	ErrNotYourTurn = errors.New("not your turn")

	// ErrIllegalMove rejects a move the rules engine does not accept.
	ErrIllegalMove = errors.New("illegal move")

	// ErrNotParticipant rejects operations from accounts not bound to the session.
	ErrNotParticipant = errors.New("account is not a participant of this session")

	// ErrAccountBusy means one of the accounts is already bound to a session.
	// Matchmaking treats it as a lost pairing race and retries internally.
	ErrAccountBusy = errors.New("account already bound to an active session")
)

// RecordPublisher receives settled game records, e.g. for a history queue.
type RecordPublisher interface {
	PublishGameRecord(ctx context.Context, rec *models.GameRecord) error
}

// settleRetryLimit bounds background settlement retries after a store
// failure. The store is idempotent on session id, so retrying is safe.
const settleRetryLimit = 5

// Registry tracks all active sessions and performs settlement exactly once
// per session.
type Registry struct {
	log   *logrus.Logger
	store store.Store

	// publisher is optional; settlement never fails because of it.
	publisher RecordPublisher

	// settleRetryInterval spaces background settlement retries.
	settleRetryInterval time.Duration

	mu        sync.Mutex
	sessions  map[uuid.UUID]*Session
	byAccount map[uuid.UUID]uuid.UUID // account -> session binding
}

// MoveOutcome reports an accepted move.
type MoveOutcome struct {
	SessionID uuid.UUID     `json:"session_id"`
	MoveUCI   string        `json:"move"`
	SAN       string        `json:"san"`
	FEN       string        `json:"fen"`
	GameOver  bool          `json:"game_over"`
	Result    models.Result `json:"result,omitempty"`
	Method    string        `json:"method,omitempty"`
}

func NewRegistry(st store.Store, log *logrus.Logger) *Registry {
	return &Registry{
		log:                 log,
		store:               st,
		settleRetryInterval: 2 * time.Second,
		sessions:            make(map[uuid.UUID]*Session),
		byAccount:           make(map[uuid.UUID]uuid.UUID),
	}
}

// SetPublisher wires an optional settled-record publisher.
func (r *Registry) SetPublisher(p RecordPublisher) {
	r.publisher = p
}

// CreateSession binds two distinct, currently unbound accounts into a new
// active session with whiteID playing white.
func (r *Registry) CreateSession(whiteID, blackID uuid.UUID, mode string) (*Session, error) {
	if whiteID == blackID {
		return nil, ErrAccountBusy
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, bound := r.byAccount[whiteID]; bound {
		return nil, ErrAccountBusy
	}
	if _, bound := r.byAccount[blackID]; bound {
		return nil, ErrAccountBusy
	}

	s := newSession(whiteID, blackID, mode)
	r.sessions[s.ID] = s
	r.byAccount[whiteID] = s.ID
	r.byAccount[blackID] = s.ID

	r.log.WithFields(logrus.Fields{
		"session": s.ID,
		"white":   whiteID,
		"black":   blackID,
		"mode":    mode,
	}).Info("session created")
	return s, nil
}

// IsBound reports whether the account is bound to a live session.
func (r *Registry) IsBound(accountID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, bound := r.byAccount[accountID]
	return bound
}

// GetSession returns a live session, if present.
func (r *Registry) GetSession(id uuid.UUID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// SubmitMove applies one move for accountID. The session lock serializes all
// mutation, so moves are applied in the exact order accepted and a rejected
// call never advances the position.
func (r *Registry) SubmitMove(ctx context.Context, sessionID, accountID uuid.UUID, move string) (*MoveOutcome, error) {
	s, ok := r.GetSession(sessionID)
	if !ok {
		return nil, ErrSessionNotActive
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusActive {
		return nil, ErrSessionNotActive
	}
	color := s.colorOf(accountID)
	if color == "" {
		return nil, ErrNotParticipant
	}
	if turnLabel(s.game) != color {
		return nil, ErrNotYourTurn
	}

	uci, san, err := s.applyMoveLocked(move)
	if err != nil {
		return nil, err
	}
	s.movesUCI = append(s.movesUCI, uci)
	s.movesSAN = append(s.movesSAN, san)

	out := &MoveOutcome{
		SessionID: s.ID,
		MoveUCI:   uci,
		SAN:       san,
		FEN:       s.game.FEN(),
	}
	s.broadcastLocked(Event{
		Type:      EventMoveApplied,
		SessionID: s.ID,
		UserID:    accountID.String(),
		Color:     color,
		Move:      uci,
		SAN:       san,
		FEN:       out.FEN,
		Turn:      turnLabel(s.game),
	})

	if result, method, over := s.terminalLocked(); over {
		out.GameOver = true
		out.Result = result
		out.Method = method
		if s.completeLocked(result, method) {
			r.settleLocked(ctx, s)
		}
	}
	return out, nil
}

// Resign completes the session immediately with the resigner's opponent as
// winner. The opponent cannot block it.
func (r *Registry) Resign(ctx context.Context, sessionID, accountID uuid.UUID) error {
	s, ok := r.GetSession(sessionID)
	if !ok {
		return ErrSessionNotActive
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	color := s.colorOf(accountID)
	if color == "" {
		return ErrNotParticipant
	}

	result := models.WhiteWins
	if color == "white" {
		result = models.BlackWins
	}
	if !s.completeLocked(result, "resignation") {
		return ErrSessionNotActive
	}
	r.settleLocked(ctx, s)
	return nil
}

// settleLocked settles a freshly completed session. Callers must hold s.mu
// and must have won the completeLocked guard, so the settlement pipeline is
// entered at most once per session. The registry bindings are released
// unconditionally; a store failure here must not strand the two accounts,
// so on failure the record is retried in the background instead. The store
// keys settlements on the session id, which makes a retried commit that
// raced a successful one a no-op.
func (r *Registry) settleLocked(ctx context.Context, s *Session) {
	err := r.applySettlementLocked(ctx, s)
	r.unbind(s)
	if err != nil {
		r.log.WithError(err).WithField("session", s.ID).Error("settlement failed, retrying in background")
		go r.retrySettlement(s)
	}
}

// unbind removes the session and both account bindings from the registry.
func (r *Registry) unbind(s *Session) {
	r.mu.Lock()
	delete(r.sessions, s.ID)
	delete(r.byAccount, s.WhiteID)
	delete(r.byAccount, s.BlackID)
	r.mu.Unlock()
}

// retrySettlement re-runs the settlement pipeline until the store accepts
// the record or the retry budget is spent.
func (r *Registry) retrySettlement(s *Session) {
	for attempt := 1; attempt <= settleRetryLimit; attempt++ {
		time.Sleep(r.settleRetryInterval)

		s.mu.Lock()
		err := r.applySettlementLocked(context.Background(), s)
		s.mu.Unlock()
		if err == nil {
			return
		}
		r.log.WithError(err).WithFields(logrus.Fields{
			"session": s.ID,
			"attempt": attempt,
		}).Warn("settlement retry failed")
	}
	r.log.WithField("session", s.ID).Error("settlement abandoned after retries")
}

// applySettlementLocked builds the permanent GameRecord (Elo update from
// pre-settlement ratings, PGN render), commits it, and notifies subscribers.
// Requires s.mu.
func (r *Registry) applySettlementLocked(ctx context.Context, s *Session) error {
	white, err := r.store.GetUser(ctx, s.WhiteID)
	if err != nil {
		return err
	}
	black, err := r.store.GetUser(ctx, s.BlackID)
	if err != nil {
		return err
	}

	whiteAfter, blackAfter := rating.Update(white.Rating, black.Rating, s.result.ScoreForWhite())

	rec := &models.GameRecord{
		SessionID:         s.ID,
		WhiteID:           s.WhiteID,
		BlackID:           s.BlackID,
		Result:            s.result,
		Method:            s.method,
		Mode:              s.Mode,
		MovesUCI:          append([]string(nil), s.movesUCI...),
		PGN:               BuildPGN(white.Username, black.Username, s.movesSAN, s.result, s.method, time.Now()),
		WhiteRatingBefore: white.Rating,
		WhiteRatingAfter:  whiteAfter,
		BlackRatingBefore: black.Rating,
		BlackRatingAfter:  blackAfter,
		CompletedAt:       time.Now(),
	}

	if err := r.store.ApplySettlement(ctx, rec); err != nil {
		return err
	}

	if r.publisher != nil {
		if err := r.publisher.PublishGameRecord(ctx, rec); err != nil {
			r.log.WithError(err).WithField("session", s.ID).Warn("failed to publish game record")
		}
	}

	s.broadcastLocked(Event{
		Type:              EventSessionCompleted,
		SessionID:         s.ID,
		Result:            string(s.result),
		Method:            s.method,
		WhiteRatingChange: whiteAfter - white.Rating,
		BlackRatingChange: blackAfter - black.Rating,
	})

	r.log.WithFields(logrus.Fields{
		"session": s.ID,
		"result":  s.result,
		"method":  s.method,
	}).Info("session settled")
	return nil
}
