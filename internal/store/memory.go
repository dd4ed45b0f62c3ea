package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cyberchess/server/internal/auth"
	"github.com/cyberchess/server/internal/models"
)

// Memory is an in-process Store used by tests and database-less runs.
type Memory struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]*models.User
	byUsername map[string]*models.User
	records    map[uuid.UUID]*models.GameRecord
	order      []uuid.UUID // settlement order, newest last
}

func NewMemory() *Memory {
	return &Memory{
		byID:       make(map[uuid.UUID]*models.User),
		byUsername: make(map[string]*models.User),
		records:    make(map[uuid.UUID]*models.GameRecord),
	}
}

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	hash, err := auth.HashPassword(u.Password, auth.Params)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byUsername[u.Username]; exists {
		return ErrDuplicateUsername
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Password = hash
	u.Rating = models.DefaultRating
	u.GamesPlayed, u.GamesWon, u.GamesLost, u.GamesDrawn = 0, 0, 0, 0
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	cp := *u
	m.byID[u.ID] = &cp
	m.byUsername[u.Username] = &cp
	return nil
}

func (m *Memory) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	m.mu.Lock()
	u, ok := m.byUsername[username]
	m.mu.Unlock()

	if !ok {
		// Burn a hash comparison so unknown usernames are not
		// distinguishable from wrong passwords by timing.
		auth.DummyCompare(password)
		return nil, ErrInvalidCredentials
	}

	match, err := auth.VerifyPassword(password, u.Password)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}

	m.mu.Lock()
	u.LastLoginAt = time.Now()
	cp := *u
	m.mu.Unlock()
	return &cp, nil
}

func (m *Memory) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) ApplySettlement(ctx context.Context, rec *models.GameRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, settled := m.records[rec.SessionID]; settled {
		return nil
	}

	white, ok := m.byID[rec.WhiteID]
	if !ok {
		return ErrNotFound
	}
	black, ok := m.byID[rec.BlackID]
	if !ok {
		return ErrNotFound
	}

	white.Rating = rec.WhiteRatingAfter
	black.Rating = rec.BlackRatingAfter
	white.GamesPlayed++
	black.GamesPlayed++
	switch rec.Result {
	case models.WhiteWins:
		white.GamesWon++
		black.GamesLost++
	case models.BlackWins:
		black.GamesWon++
		white.GamesLost++
	default:
		white.GamesDrawn++
		black.GamesDrawn++
	}

	cp := *rec
	m.records[rec.SessionID] = &cp
	m.order = append(m.order, rec.SessionID)
	return nil
}

func (m *Memory) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]models.User, 0, len(m.byID))
	for _, u := range m.byID {
		users = append(users, u.Public())
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Rating != users[j].Rating {
			return users[i].Rating > users[j].Rating
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (m *Memory) UserGames(ctx context.Context, id uuid.UUID, limit int) ([]models.GameRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.GameRecord
	for i := len(m.order) - 1; i >= 0; i-- {
		rec := m.records[m.order[i]]
		if rec.WhiteID != id && rec.BlackID != id {
			continue
		}
		out = append(out, *rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
