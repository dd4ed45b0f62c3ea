package matchmaking

import (
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cyberchess/server/internal/game"
	"github.com/cyberchess/server/internal/store"
)

func newTestQueue() (*Queue, *game.Registry) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	reg := game.NewRegistry(store.NewMemory(), log)
	return NewQueue(reg, log), reg
}

func TestJoinWaitsWithoutOpponent(t *testing.T) {
	q, _ := newTestQueue()
	a := uuid.New()

	out, err := q.Join(a, 1200, "standard")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if out.Matched {
		t.Fatal("matched with an empty queue")
	}
	if !q.Waiting(a) {
		t.Fatal("account not recorded as waiting")
	}
}

func TestJoinPairsEqualRatings(t *testing.T) {
	q, reg := newTestQueue()
	a, b := uuid.New(), uuid.New()

	if _, err := q.Join(a, 1200, "standard"); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	out, err := q.Join(b, 1200, "standard")
	if err != nil {
		t.Fatalf("second join failed: %v", err)
	}

	if !out.Matched || out.OpponentID != a {
		t.Fatalf("expected match against %v, got %+v", a, out)
	}
	// The longer-waiting entry takes white; the joiner is black.
	if out.Color != "black" {
		t.Fatalf("joiner color = %q, want black", out.Color)
	}
	s, ok := reg.GetSession(out.SessionID)
	if !ok {
		t.Fatal("pairing session not registered")
	}
	if s.WhiteID != a || s.BlackID != b {
		t.Fatalf("session sides = %v/%v, want %v/%v", s.WhiteID, s.BlackID, a, b)
	}
	if q.Waiting(a) || q.Waiting(b) {
		t.Fatal("queue entries survived the pairing")
	}
}

func TestJoinRespectsThreshold(t *testing.T) {
	q, _ := newTestQueue()
	a, b := uuid.New(), uuid.New()

	if _, err := q.Join(a, 1000, "standard"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	// 201 points apart: one over the limit, no match.
	out, err := q.Join(b, 1201, "standard")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if out.Matched {
		t.Fatal("matched across a gap wider than the threshold")
	}
	if !q.Waiting(a) || !q.Waiting(b) {
		t.Fatal("both accounts should still be waiting")
	}
}

func TestJoinPrefersClosestRating(t *testing.T) {
	q, _ := newTestQueue()
	far, near, joiner := uuid.New(), uuid.New(), uuid.New()

	// 350 points apart, so the two waiters cannot pair with each other.
	if _, err := q.Join(far, 1000, "standard"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if _, err := q.Join(near, 1350, "standard"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	// 190 from far, 160 from near: the smaller gap wins even though far
	// queued first.
	out, err := q.Join(joiner, 1190, "standard")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if !out.Matched || out.OpponentID != near {
		t.Fatalf("expected pairing with %v, got %+v", near, out)
	}
	if !q.Waiting(far) {
		t.Fatal("losing candidate should keep waiting")
	}
}

func TestEqualGapsFallBackToQueueOrder(t *testing.T) {
	q, _ := newTestQueue()
	first, second, joiner := uuid.New(), uuid.New(), uuid.New()

	if _, err := q.Join(first, 1050, "standard"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if _, err := q.Join(second, 1350, "standard"); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	// Both waiters are exactly 150 away; the earlier entry wins.
	out, err := q.Join(joiner, 1200, "standard")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if !out.Matched || out.OpponentID != first {
		t.Fatalf("expected FIFO tie-break toward %v, got %+v", first, out)
	}
}

func TestJoinRejectsDuplicateEntry(t *testing.T) {
	q, _ := newTestQueue()
	a := uuid.New()

	if _, err := q.Join(a, 1200, "standard"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if _, err := q.Join(a, 1200, "standard"); !errors.Is(err, ErrAlreadyQueued) {
		t.Fatalf("duplicate join error = %v, want ErrAlreadyQueued", err)
	}
}

func TestModesDoNotMix(t *testing.T) {
	q, _ := newTestQueue()
	a, b := uuid.New(), uuid.New()

	if _, err := q.Join(a, 1200, "standard"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	out, err := q.Join(b, 1200, "blitz")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if out.Matched {
		t.Fatal("paired entries from different modes")
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	q, _ := newTestQueue()
	a, b := uuid.New(), uuid.New()

	q.Leave(a) // never queued, no-op

	if _, err := q.Join(a, 1200, "standard"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	q.Leave(a)
	if q.Waiting(a) {
		t.Fatal("entry survived leave")
	}

	// The departed account must not be matchable.
	out, err := q.Join(b, 1200, "standard")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if out.Matched {
		t.Fatal("matched against an account that left the queue")
	}
}

func TestStaleEntriesAreDropped(t *testing.T) {
	q, reg := newTestQueue()
	a, b := uuid.New(), uuid.New()

	if _, err := q.Join(a, 1200, "standard"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	// a gets bound to a session through some other path while still queued.
	if _, err := reg.CreateSession(a, uuid.New(), "standard"); err != nil {
		t.Fatalf("failed to bind account: %v", err)
	}

	out, err := q.Join(b, 1200, "standard")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if out.Matched {
		t.Fatal("paired against a busy account")
	}
	if q.Waiting(a) {
		t.Fatal("stale entry left in queue")
	}
	if !q.Waiting(b) {
		t.Fatal("joiner should be queued after the stale drop")
	}
}
