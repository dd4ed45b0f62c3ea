// Package matchmaking pairs waiting players by rating proximity.
package matchmaking

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cyberchess/server/internal/game"
)

// DefaultThreshold is the maximum rating gap for an immediate pairing.
const DefaultThreshold = 200

var (
	// ErrAlreadyQueued rejects a join from an account with a live entry.
	ErrAlreadyQueued = errors.New("account already in matchmaking queue")
)

type entry struct {
	AccountID  uuid.UUID
	Rating     int // snapshot at enqueue time, not re-read live
	Mode       string
	EnqueuedAt time.Time
	seq        uint64
}

// Outcome reports the result of a join request. When Matched is false the
// caller is queued and will learn about a pairing through the session push
// channel once an opponent arrives.
type Outcome struct {
	Matched    bool      `json:"matched"`
	SessionID  uuid.UUID `json:"session_id,omitempty"`
	Color      string    `json:"color,omitempty"`
	OpponentID uuid.UUID `json:"opponent_id,omitempty"`
}

// Queue holds waiting players. A single lock covers entry bookkeeping and
// session creation, so a pairing plus its session appear atomic to observers:
// there is no externally visible moment where two entries are consumed but no
// session exists.
type Queue struct {
	log       *logrus.Logger
	registry  *game.Registry
	threshold int

	mu      sync.Mutex
	entries map[uuid.UUID]*entry
	seq     uint64
}

func NewQueue(registry *game.Registry, log *logrus.Logger) *Queue {
	return &Queue{
		log:       log,
		registry:  registry,
		threshold: DefaultThreshold,
		entries:   make(map[uuid.UUID]*entry),
	}
}

// Join attempts to pair the account against a compatible waiting entry of the
// same mode. ratingSnapshot is the account's rating at join time. The waiting
// entry, having queued earlier, takes white. With no compatible opponent the
// account is stored as waiting.
func (q *Queue) Join(accountID uuid.UUID, ratingSnapshot int, mode string) (*Outcome, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, queued := q.entries[accountID]; queued {
		return nil, ErrAlreadyQueued
	}

	for {
		cand := q.bestCandidateLocked(accountID, ratingSnapshot, mode)
		if cand == nil {
			break
		}

		s, err := q.registry.CreateSession(cand.AccountID, accountID, mode)
		if err != nil {
			if q.registry.IsBound(cand.AccountID) {
				// stale entry: its owner got bound to a session after
				// enqueueing; drop it and rescan
				delete(q.entries, cand.AccountID)
				continue
			}
			// the joiner itself lost a race with its own previous session;
			// queue it instead of surfacing the race
			break
		}

		delete(q.entries, cand.AccountID)
		q.log.WithFields(logrus.Fields{
			"session": s.ID,
			"white":   cand.AccountID,
			"black":   accountID,
			"mode":    mode,
		}).Info("matchmaking pairing")
		return &Outcome{
			Matched:    true,
			SessionID:  s.ID,
			Color:      "black",
			OpponentID: cand.AccountID,
		}, nil
	}

	q.seq++
	q.entries[accountID] = &entry{
		AccountID:  accountID,
		Rating:     ratingSnapshot,
		Mode:       mode,
		EnqueuedAt: time.Now(),
		seq:        q.seq,
	}
	return &Outcome{Matched: false}, nil
}

// Leave removes the account's entry. Absent entries are a no-op, not an error.
func (q *Queue) Leave(accountID uuid.UUID) {
	q.mu.Lock()
	delete(q.entries, accountID)
	q.mu.Unlock()
}

// Waiting reports whether the account currently holds a queue entry.
func (q *Queue) Waiting(accountID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.entries[accountID]
	return ok
}

// bestCandidateLocked selects the compatible waiting entry with the smallest
// rating difference, breaking ties by earliest enqueue. Requires q.mu.
func (q *Queue) bestCandidateLocked(accountID uuid.UUID, ratingSnapshot int, mode string) *entry {
	var best *entry
	bestDiff := 0
	for _, e := range q.entries {
		if e.AccountID == accountID || e.Mode != mode {
			continue
		}
		diff := e.Rating - ratingSnapshot
		if diff < 0 {
			diff = -diff
		}
		if diff > q.threshold {
			continue
		}
		if best == nil || diff < bestDiff || (diff == bestDiff && e.seq < best.seq) {
			best = e
			bestDiff = diff
		}
	}
	return best
}
