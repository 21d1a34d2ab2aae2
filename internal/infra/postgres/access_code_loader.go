package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"sedetok-live/internal/domain"
)

// AccessCodeLoader loads evaluation access codes from Postgres.
type AccessCodeLoader struct {
	pool *pgxpool.Pool
}

func NewAccessCodeLoader(pool *pgxpool.Pool) *AccessCodeLoader {
	return &AccessCodeLoader{pool: pool}
}

func (l *AccessCodeLoader) LoadAccessCode(ctx context.Context, code string) (domain.AccessCode, error) {
	var (
		ac     domain.AccessCode
		endsAt *time.Time // NULL means the code never expires
	)
	err := l.pool.QueryRow(ctx, `
		SELECT code, quiz_id, starts_at, ends_at, require_auth, allow_multiple_attempts, show_immediate_results
		FROM access_codes WHERE code=$1`, code).
		Scan(&ac.Code, &ac.QuizID, &ac.StartsAt, &endsAt, &ac.RequireAuth, &ac.AllowMultipleAttempts, &ac.ShowImmediateResults)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.AccessCode{}, domain.ErrAccessCodeNotFound
	}
	if err != nil {
		return domain.AccessCode{}, fmt.Errorf("load access code: %w", err)
	}
	if endsAt != nil {
		ac.EndsAt = *endsAt
	}
	return ac, nil
}
