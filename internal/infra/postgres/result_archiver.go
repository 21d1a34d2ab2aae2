package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"sedetok-live/internal/domain"
)

// ResultArchiver persists final standings of finished games. Inserts are
// idempotent on the game id so a retried archive cannot duplicate rows.
type ResultArchiver struct {
	pool *pgxpool.Pool
}

func NewResultArchiver(pool *pgxpool.Pool) *ResultArchiver {
	return &ResultArchiver{pool: pool}
}

func (a *ResultArchiver) Archive(ctx context.Context, result domain.GameResult) error {
	standings, err := json.Marshal(result.Standings)
	if err != nil {
		return fmt.Errorf("marshal standings: %w", err)
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO game_results (game_id, title, pin, standings, finished_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (game_id) DO NOTHING`,
		result.GameID, result.Title, result.PIN, standings, result.FinishedAt)
	if err != nil {
		return fmt.Errorf("archive game result: %w", err)
	}
	return nil
}
