package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cyberchess/server/internal/auth"
	"github.com/cyberchess/server/internal/models"
)

// Postgres is the production Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres parses connString, opens a pool, and verifies connectivity.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

const userColumns = `id, username, email, password, rating,
       games_played, games_won, games_lost, games_drawn,
       created_at, last_login_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Password, &u.Rating,
		&u.GamesPlayed, &u.GamesWon, &u.GamesLost, &u.GamesDrawn,
		&u.CreatedAt, &u.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	hash, err := auth.HashPassword(u.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.Password = hash
	u.Rating = models.DefaultRating
	u.CreatedAt = time.Now()
	u.LastLoginAt = u.CreatedAt

	q := `INSERT INTO users (id, username, email, password, rating, created_at, last_login_at)
	      VALUES ($1, $2, $3, $4, $5, $6, $7)`

	err = pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q,
			u.ID, u.Username, u.Email, u.Password, u.Rating, u.CreatedAt, u.LastLoginAt)
		return execErr
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (p *Postgres) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	u, err := scanUser(p.pool.QueryRow(ctx, q, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.DummyCompare(password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("user lookup: %w", err)
	}

	match, err := auth.VerifyPassword(password, u.Password)
	if err != nil || !match {
		return nil, ErrInvalidCredentials
	}

	u.LastLoginAt = time.Now()
	_, err = p.pool.Exec(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, u.LastLoginAt, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to record login time: %w", err)
	}
	return u, nil
}

func (p *Postgres) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(p.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// ApplySettlement runs the whole settlement in one transaction. The insert
// into games carries ON CONFLICT DO NOTHING on the session id; when the row
// already exists the rating and tally updates are skipped, which makes a
// duplicate settlement trigger a clean no-op.
func (p *Postgres) ApplySettlement(ctx context.Context, rec *models.GameRecord) error {
	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		ins := `
			INSERT INTO games (
				session_id, white_id, black_id, result, method, mode,
				moves_uci, pgn,
				white_rating_before, white_rating_after,
				black_rating_before, black_rating_after,
				completed_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			ON CONFLICT (session_id) DO NOTHING`
		tag, err := tx.Exec(ctx, ins,
			rec.SessionID, rec.WhiteID, rec.BlackID, string(rec.Result), rec.Method, rec.Mode,
			rec.MovesUCI, rec.PGN,
			rec.WhiteRatingBefore, rec.WhiteRatingAfter,
			rec.BlackRatingBefore, rec.BlackRatingAfter,
			rec.CompletedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			// already settled
			return nil
		}

		var whiteWon, whiteLost, whiteDrawn int
		switch rec.Result {
		case models.WhiteWins:
			whiteWon = 1
		case models.BlackWins:
			whiteLost = 1
		default:
			whiteDrawn = 1
		}

		upd := `
			UPDATE users SET rating = $1,
				games_played = games_played + 1,
				games_won = games_won + $2,
				games_lost = games_lost + $3,
				games_drawn = games_drawn + $4
			WHERE id = $5`
		if _, err := tx.Exec(ctx, upd, rec.WhiteRatingAfter, whiteWon, whiteLost, whiteDrawn, rec.WhiteID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, upd, rec.BlackRatingAfter, whiteLost, whiteWon, whiteDrawn, rec.BlackID); err != nil {
			return err
		}
		return nil
	})
}

func (p *Postgres) Leaderboard(ctx context.Context, limit int) ([]models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users
	      ORDER BY rating DESC, created_at ASC
	      LIMIT $1`
	rows, err := p.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u.Public())
	}
	return out, rows.Err()
}

func (p *Postgres) UserGames(ctx context.Context, id uuid.UUID, limit int) ([]models.GameRecord, error) {
	q := `
		SELECT session_id, white_id, black_id, result, method, mode,
		       moves_uci, pgn,
		       white_rating_before, white_rating_after,
		       black_rating_before, black_rating_after,
		       completed_at
		FROM games
		WHERE white_id = $1 OR black_id = $1
		ORDER BY completed_at DESC
		LIMIT $2`
	rows, err := p.pool.Query(ctx, q, id, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GameRecord
	for rows.Next() {
		var rec models.GameRecord
		var result string
		if err := rows.Scan(
			&rec.SessionID, &rec.WhiteID, &rec.BlackID, &result, &rec.Method, &rec.Mode,
			&rec.MovesUCI, &rec.PGN,
			&rec.WhiteRatingBefore, &rec.WhiteRatingAfter,
			&rec.BlackRatingBefore, &rec.BlackRatingAfter,
			&rec.CompletedAt,
		); err != nil {
			return nil, err
		}
		rec.Result = models.Result(result)
		out = append(out, rec)
	}
	return out, rows.Err()
}
