package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sedetok-live/internal/domain"
)

// AnswerJournal records scored answers in a Redis hash per game, one field
// per (player, question). HSETNX makes the write idempotent across
// retries and across instances: the first delivery wins, replays report
// false and change nothing.
type AnswerJournal struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnswerJournal(client *redis.Client, ttl time.Duration) *AnswerJournal {
	return &AnswerJournal{client: client, ttl: ttl}
}

func (j *AnswerJournal) Record(ctx context.Context, rec domain.AnswerRecord) (bool, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshal answer record: %w", err)
	}

	key := j.key(rec.GameID)
	field := fmt.Sprintf("%s:%d", rec.PlayerID, rec.QuestionIndex)
	first, err := j.client.HSetNX(ctx, key, field, data).Result()
	if err != nil {
		return false, fmt.Errorf("journal answer: %w", err)
	}
	if first && j.ttl > 0 {
		_ = j.client.Expire(ctx, key, j.ttl).Err()
	}
	return first, nil
}

// Records returns all journaled answers for a game.
func (j *AnswerJournal) Records(ctx context.Context, gameID string) ([]domain.AnswerRecord, error) {
	fields, err := j.client.HGetAll(ctx, j.key(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	records := make([]domain.AnswerRecord, 0, len(fields))
	for _, raw := range fields {
		var rec domain.AnswerRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal answer record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (j *AnswerJournal) key(gameID string) string {
	return "game:" + gameID + ":answers"
}
