package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"sedetok-live/internal/domain"
)

// AccessCodeLoader fetches access codes from a backing store.
type AccessCodeLoader interface {
	LoadAccessCode(ctx context.Context, code string) (domain.AccessCode, error)
}

// AccessCodeRepository caches resolved access codes in Redis. Codes change
// rarely, so a plain value cache with TTL is enough.
type AccessCodeRepository struct {
	client *redis.Client
	loader AccessCodeLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewAccessCodeRepository(client *redis.Client, loader AccessCodeLoader, ttl time.Duration) *AccessCodeRepository {
	return &AccessCodeRepository{client: client, loader: loader, ttl: ttl}
}

func (r *AccessCodeRepository) GetAccessCode(ctx context.Context, code string) (domain.AccessCode, error) {
	key := "access_code:" + code

	if data, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var ac domain.AccessCode
		if err := json.Unmarshal(data, &ac); err == nil {
			return ac, nil
		}
	}

	result, err, _ := r.sf.Do(code, func() (interface{}, error) {
		ac, err := r.loader.LoadAccessCode(ctx, code)
		if err != nil {
			return domain.AccessCode{}, err
		}
		if data, err := json.Marshal(ac); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttl).Err()
		}
		return ac, nil
	})
	if err != nil {
		return domain.AccessCode{}, err
	}
	return result.(domain.AccessCode), nil
}
