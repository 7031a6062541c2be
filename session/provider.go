package session

import (
	"context"
	"fmt"

	"github.com/joy-dx/sessionnet/config"
	"github.com/joy-dx/sessionnet/dto"
	"github.com/redis/go-redis/v9"
)

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.SessionConfig) (dto.SessionStore, error) {
	switch cfg.Backend {
	case "", config.SessionMemory:
		return NewMemoryStore(cfg.KeyPrefix), nil
	case config.SessionFile:
		return NewFileStore(cfg.FilePath), nil
	case config.SessionRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisStore(rdb, cfg.KeyPrefix), nil
	case config.SessionS3:
		key := "session.json"
		if cfg.KeyPrefix != "" {
			key = cfg.KeyPrefix + "/" + key
		}
		return NewS3Store(ctx, S3StoreConfig{
			Region:         cfg.S3Region,
			Bucket:         cfg.S3Bucket,
			Key:            key,
			Endpoint:       cfg.S3Endpoint,
			ForcePathStyle: cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.Backend)
	}
}
