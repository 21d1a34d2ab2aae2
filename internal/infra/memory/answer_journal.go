package memory

import (
	"context"
	"fmt"
	"sync"

	"sedetok-live/internal/domain"
)

// AnswerJournal keeps scored answers in memory, idempotent on the
// (game, player, question) key.
type AnswerJournal struct {
	mu      sync.Mutex
	records map[string]domain.AnswerRecord
}

func NewAnswerJournal() *AnswerJournal {
	return &AnswerJournal{records: make(map[string]domain.AnswerRecord)}
}

func (j *AnswerJournal) Record(_ context.Context, rec domain.AnswerRecord) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	key := answerRecordKey(rec)
	if _, exists := j.records[key]; exists {
		return false, nil
	}
	j.records[key] = rec
	return true, nil
}

// Records returns all journaled answers for a game, for tests and debugging.
func (j *AnswerJournal) Records(gameID string) []domain.AnswerRecord {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []domain.AnswerRecord
	for _, rec := range j.records {
		if rec.GameID == gameID {
			out = append(out, rec)
		}
	}
	return out
}

func answerRecordKey(rec domain.AnswerRecord) string {
	return fmt.Sprintf("%s:%s:%d", rec.GameID, rec.PlayerID, rec.QuestionIndex)
}
