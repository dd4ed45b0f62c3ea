package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cyberchess/server/internal/matchmaking"
)

func TestMatchmakingJoinPairsTwoAccounts(t *testing.T) {
	srv := newTestServer(t)
	mux := srv.Routes()

	tokenA := register(t, srv, "playera")
	tokenB := register(t, srv, "playerb")

	// First joiner waits.
	w := postJSON(t, mux, "/matchmaking/join", `{"mode":"standard"}`, tokenA)
	if w.Code != http.StatusOK {
		t.Fatalf("first join expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var first matchmaking.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("failed to decode outcome: %v", err)
	}
	if first.Matched {
		t.Fatal("first joiner matched against an empty queue")
	}

	// Second joiner at the same rating pairs instantly and plays black.
	w = postJSON(t, mux, "/matchmaking/join", `{"mode":"standard"}`, tokenB)
	if w.Code != http.StatusOK {
		t.Fatalf("second join expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var second matchmaking.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("failed to decode outcome: %v", err)
	}
	if !second.Matched || second.Color != "black" {
		t.Fatalf("expected instant black-side pairing, got %+v", second)
	}

	// The session is queryable through the state endpoint.
	req := httptest.NewRequest("GET", "/game/state/"+second.SessionID.String(), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("state endpoint expected 200, got %d", rec.Code)
	}
}

func TestMatchmakingJoinTwiceIsConflict(t *testing.T) {
	srv := newTestServer(t)
	mux := srv.Routes()
	token := register(t, srv, "solo")

	if w := postJSON(t, mux, "/matchmaking/join", `{}`, token); w.Code != http.StatusOK {
		t.Fatalf("join expected 200, got %d", w.Code)
	}
	if w := postJSON(t, mux, "/matchmaking/join", `{}`, token); w.Code != http.StatusConflict {
		t.Fatalf("second join expected 409, got %d", w.Code)
	}
}

func TestMatchmakingLeave(t *testing.T) {
	srv := newTestServer(t)
	mux := srv.Routes()
	token := register(t, srv, "leaver")

	if w := postJSON(t, mux, "/matchmaking/join", `{}`, token); w.Code != http.StatusOK {
		t.Fatalf("join expected 200, got %d", w.Code)
	}
	if w := postJSON(t, mux, "/matchmaking/leave", ``, token); w.Code != http.StatusOK {
		t.Fatalf("leave expected 200, got %d", w.Code)
	}
	// Rejoining after leave works again.
	if w := postJSON(t, mux, "/matchmaking/join", `{}`, token); w.Code != http.StatusOK {
		t.Fatalf("rejoin expected 200, got %d", w.Code)
	}
}

func TestGameStateUnknownSession(t *testing.T) {
	srv := newTestServer(t)
	mux := srv.Routes()

	req := httptest.NewRequest("GET", "/game/state/00000000-0000-0000-0000-000000000001", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", w.Code)
	}
}
