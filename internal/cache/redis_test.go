package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyberchess/server/internal/models"
)

func TestPublishGameRecord(t *testing.T) {
	mr := miniredis.RunT(t)

	pub, err := NewPublisher(mr.Addr(), 0, "test_games")
	require.NoError(t, err)
	defer pub.Close()

	rec := &models.GameRecord{
		SessionID:         uuid.New(),
		WhiteID:           uuid.New(),
		BlackID:           uuid.New(),
		Result:            models.WhiteWins,
		Method:            "checkmate",
		Mode:              "standard",
		MovesUCI:          []string{"e2e4", "e7e5"},
		WhiteRatingBefore: 1200,
		WhiteRatingAfter:  1216,
		BlackRatingBefore: 1200,
		BlackRatingAfter:  1184,
		CompletedAt:       time.Now(),
	}
	require.NoError(t, pub.PublishGameRecord(context.Background(), rec))

	items, err := mr.List("test_games")
	require.NoError(t, err)
	require.Len(t, items, 1)

	var got models.GameRecord
	require.NoError(t, json.Unmarshal([]byte(items[0]), &got))
	assert.Equal(t, rec.SessionID, got.SessionID)
	assert.Equal(t, models.WhiteWins, got.Result)
	assert.Equal(t, 1216, got.WhiteRatingAfter)
}

func TestPublishAppendsInOrder(t *testing.T) {
	mr := miniredis.RunT(t)

	pub, err := NewPublisher(mr.Addr(), 0, DefaultQueueName)
	require.NoError(t, err)
	defer pub.Close()

	first := &models.GameRecord{SessionID: uuid.New()}
	second := &models.GameRecord{SessionID: uuid.New()}
	require.NoError(t, pub.PublishGameRecord(context.Background(), first))
	require.NoError(t, pub.PublishGameRecord(context.Background(), second))

	items, err := mr.List(DefaultQueueName)
	require.NoError(t, err)
	require.Len(t, items, 2)

	var got models.GameRecord
	require.NoError(t, json.Unmarshal([]byte(items[0]), &got))
	assert.Equal(t, first.SessionID, got.SessionID)
}
