package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cyberchess/server/internal/auth"
	"github.com/cyberchess/server/internal/game"
	"github.com/cyberchess/server/internal/matchmaking"
	"github.com/cyberchess/server/internal/models"
	"github.com/cyberchess/server/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	if err := auth.Init(time.Hour); err != nil {
		t.Fatalf("failed to init auth: %v", err)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)

	mem := store.NewMemory()
	reg := game.NewRegistry(mem, log)
	return NewServer(log, mem, matchmaking.NewQueue(reg, log), reg)
}

func postJSON(t *testing.T, h http.Handler, path, body, cookie string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, bytes.NewBufferString(body))
	if cookie != "" {
		req.Header.Set("Cookie", "auth_token="+cookie)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// register creates an account and returns a session token for it.
func register(t *testing.T, srv *Server, username string) string {
	t.Helper()
	mux := srv.Routes()
	w := postJSON(t, mux, "/user/create", `{"username":"`+username+`","password":"pw123456"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create %s: expected 201, got %d: %s", username, w.Code, w.Body.String())
	}
	w = postJSON(t, mux, "/user/login", `{"username":"`+username+`","password":"pw123456"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login %s returned no token: %v", username, err)
	}
	return resp.Token
}

func TestCreateUserStartsAtDefaultRating(t *testing.T) {
	srv := newTestServer(t)

	w := postJSON(t, srv.Routes(), "/user/create", `{"username":"alice","password":"pw123456"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var u models.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("failed to decode user: %v", err)
	}
	if u.Rating != models.DefaultRating {
		t.Fatalf("new user rating = %d, want %d", u.Rating, models.DefaultRating)
	}
	if u.Password != "" {
		t.Fatal("response leaked credential hash")
	}
}

func TestCreateUserDuplicateIsConflict(t *testing.T) {
	srv := newTestServer(t)
	mux := srv.Routes()

	body := `{"username":"alice","password":"pw123456"}`
	if w := postJSON(t, mux, "/user/create", body, ""); w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	if w := postJSON(t, mux, "/user/create", body, ""); w.Code != http.StatusConflict {
		t.Fatalf("duplicate expected 409, got %d", w.Code)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	srv := newTestServer(t)
	mux := srv.Routes()
	register(t, srv, "bob")

	// Wrong password and unknown username produce the identical response.
	wrong := postJSON(t, mux, "/user/login", `{"username":"bob","password":"nope"}`, "")
	unknown := postJSON(t, mux, "/user/login", `{"username":"ghost","password":"nope"}`, "")
	if wrong.Code != http.StatusForbidden || unknown.Code != http.StatusForbidden {
		t.Fatalf("expected 403/403, got %d/%d", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Fatal("failure responses differ between unknown user and bad password")
	}
}

func TestLoginSetsAuthCookie(t *testing.T) {
	srv := newTestServer(t)
	mux := srv.Routes()
	register(t, srv, "carol")

	w := postJSON(t, mux, "/user/login", `{"username":"carol","password":"pw123456"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	res := w.Result()
	defer res.Body.Close()
	var found bool
	for _, c := range res.Cookies() {
		if c.Name == "auth_token" && c.Value != "" && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatal("login did not set an HttpOnly auth_token cookie")
	}
}

func TestProfileRequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	mux := srv.Routes()

	req := httptest.NewRequest("GET", "/user/profile", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without token, got %d", w.Code)
	}

	token := register(t, srv, "dave")
	req = httptest.NewRequest("GET", "/user/profile", nil)
	req.Header.Set("Cookie", "auth_token="+token)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", w.Code, w.Body.String())
	}

	var u models.User
	if err := json.Unmarshal(w.Body.Bytes(), &u); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	if u.Username != "dave" {
		t.Fatalf("profile username = %q, want dave", u.Username)
	}
}

func TestLeaderboardIsPublic(t *testing.T) {
	srv := newTestServer(t)
	mux := srv.Routes()
	register(t, srv, "erin")

	req := httptest.NewRequest("GET", "/leaderboard", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var users []models.User
	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatalf("failed to decode leaderboard: %v", err)
	}
	if len(users) != 1 || users[0].Username != "erin" {
		t.Fatalf("unexpected leaderboard: %+v", users)
	}
}
