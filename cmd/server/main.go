// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/cyberchess/server/internal/auth"
	"github.com/cyberchess/server/internal/cache"
	"github.com/cyberchess/server/internal/config"
	"github.com/cyberchess/server/internal/game"
	"github.com/cyberchess/server/internal/handlers"
	"github.com/cyberchess/server/internal/matchmaking"
	"github.com/cyberchess/server/internal/middleware"
	"github.com/cyberchess/server/internal/migrate"
	"github.com/cyberchess/server/internal/provider"
	"github.com/cyberchess/server/internal/store"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := auth.Init(cfg.TokenExpire); err != nil {
		log.Fatalf("failed to init auth keys: %v", err)
	}

	ctx := context.Background()

	// Postgres when configured, otherwise the in-memory store.
	var st store.Store
	if cfg.DatabaseURL != "" {
		if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pg.Close()
		st = pg
		logger.Info("using postgres store")
	} else {
		st = store.NewMemory()
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	registry := game.NewRegistry(st, logger)

	if cfg.RedisAddr != "" {
		pub, err := cache.NewPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.RedisQueue)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer pub.Close()
		registry.SetPublisher(pub)
		logger.Infof("publishing game records to redis queue %s", cfg.RedisQueue)
	}

	queue := matchmaking.NewQueue(registry, logger)
	srv := handlers.NewServer(logger, st, queue, registry)

	if cfg.EnginePath != "" {
		engine, err := provider.NewEngine(ctx, cfg.EnginePath, time.Duration(cfg.EngineMoveMS)*time.Millisecond)
		if err != nil {
			log.Fatalf("failed to start chess engine: %v", err)
		}
		defer engine.Close()
		srv.Providers["engine"] = engine
		logger.Infof("engine provider ready (%s)", cfg.EnginePath)
	}
	if cfg.ModelAPIURL != "" && cfg.ModelAPIKey != "" {
		srv.Providers["model"] = provider.NewModel(cfg.ModelAPIURL, cfg.ModelAPIKey, cfg.ModelName)
		logger.Infof("model provider ready (%s)", cfg.ModelName)
	}

	handler := middleware.LogMiddleware(logger)(srv.Routes())

	logger.Infof("Running on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
