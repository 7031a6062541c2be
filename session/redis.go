package session

import (
	"context"
	"fmt"

	"github.com/joy-dx/sessionnet/dto"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the pair under <prefix>:access and <prefix>:refresh.
// Both keys are written in one MULTI/EXEC so readers never see a mixed pair.
type RedisStore struct {
	rdb        redis.UniversalClient
	accessKey  string
	refreshKey string
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{
		rdb:        rdb,
		accessKey:  prefixed(prefix, KeyAccess),
		refreshKey: prefixed(prefix, KeyRefresh),
	}
}

func (s *RedisStore) Get(ctx context.Context) (dto.Credentials, error) {
	vals, err := s.rdb.MGet(ctx, s.accessKey, s.refreshKey).Result()
	if err != nil {
		return dto.Credentials{}, fmt.Errorf("redis mget session: %w", err)
	}

	var creds dto.Credentials
	if len(vals) == 2 {
		creds.AccessToken, _ = vals[0].(string)
		creds.RefreshToken, _ = vals[1].(string)
	}
	return creds, nil
}

func (s *RedisStore) Set(ctx context.Context, creds dto.Credentials) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accessKey, creds.AccessToken, 0)
		if creds.RefreshToken == "" {
			pipe.Del(ctx, s.refreshKey)
		} else {
			pipe.Set(ctx, s.refreshKey, creds.RefreshToken, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.accessKey, s.refreshKey).Err(); err != nil {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}
