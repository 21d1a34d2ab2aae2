package memory

import (
	"context"

	"sedetok-live/internal/domain"
)

// StaticAccessCodeLoader resolves access codes from an in-memory map
// (useful for tests/demos).
type StaticAccessCodeLoader struct {
	codes map[string]domain.AccessCode
}

func NewStaticAccessCodeLoader(codes map[string]domain.AccessCode) *StaticAccessCodeLoader {
	return &StaticAccessCodeLoader{codes: codes}
}

func (l *StaticAccessCodeLoader) LoadAccessCode(_ context.Context, code string) (domain.AccessCode, error) {
	if ac, ok := l.codes[code]; ok {
		return ac, nil
	}
	return domain.AccessCode{}, domain.ErrAccessCodeNotFound
}

// GetAccessCode lets the static loader double as a repository when no
// cache layer is configured.
func (l *StaticAccessCodeLoader) GetAccessCode(ctx context.Context, code string) (domain.AccessCode, error) {
	return l.LoadAccessCode(ctx, code)
}

// NoopArchiver discards final results; used when Postgres is not configured.
type NoopArchiver struct{}

func (NoopArchiver) Archive(context.Context, domain.GameResult) error { return nil }
