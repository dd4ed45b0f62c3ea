// Package config gathers environment configuration for the server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// Postgres; empty DatabaseURL means the in-memory store is used.
	DatabaseURL string

	// Redis history queue; empty RedisAddr disables publishing.
	RedisAddr  string
	RedisDB    int
	RedisQueue string

	TokenExpire time.Duration

	// Move providers for exhibition games.
	EnginePath   string
	EngineMoveMS int
	ModelAPIURL  string
	ModelAPIKey  string
	ModelName    string
}

func Load() (*Config, error) {
	cfg := &Config{
		Addr:         ":8080",
		RedisQueue:   "cyberchess_games",
		EngineMoveMS: 500,
		ModelName:    "gemini-1.5-flash",
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Addr = ":" + port
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		if host := strings.TrimSpace(os.Getenv("PG_HOST")); host != "" {
			cfg.DatabaseURL = fmt.Sprintf(
				"postgres://%s:%s@%s:%s/%s",
				os.Getenv("POSTGRES_USER"),
				os.Getenv("POSTGRES_PASSWORD"),
				host,
				os.Getenv("PG_PORT"),
				os.Getenv("PG_DATABASE"),
			)
		}
	}

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if v := strings.TrimSpace(os.Getenv("REDIS_DB")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = n
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_QUEUE")); v != "" {
		cfg.RedisQueue = v
	}

	if v := strings.TrimSpace(os.Getenv("TOKEN_EXPIRE_TIME")); v != "" && v != "never" && v != "0" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse token expire time: %w", err)
		}
		cfg.TokenExpire = d
	}

	cfg.EnginePath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))
	if v := strings.TrimSpace(os.Getenv("ENGINE_MOVE_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineMoveMS = n
		}
	}
	cfg.ModelAPIURL = strings.TrimSpace(os.Getenv("MODEL_API_URL"))
	cfg.ModelAPIKey = strings.TrimSpace(os.Getenv("MODEL_API_KEY"))
	if v := strings.TrimSpace(os.Getenv("MODEL_NAME")); v != "" {
		cfg.ModelName = v
	}

	return cfg, nil
}
