// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cyberchess/server/internal/models"
)

// DefaultQueueName is the Redis list settled game records are pushed to for
// downstream consumers (analytics, replay indexing).
const DefaultQueueName = "cyberchess_games"

// Publisher pushes settled game records onto a Redis list.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(addr string, db int, queue string) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueueName
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &Publisher{rdb: rdb, queue: queue}, nil
}

// PublishGameRecord serializes the record to JSON and RPUSHes it. This is a
// quick network send; settlement never blocks on consumers.
func (p *Publisher) PublishGameRecord(ctx context.Context, rec *models.GameRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal game record: %w", err)
	}
	if err := p.rdb.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list %q: %w", p.queue, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.rdb.Close()
}
