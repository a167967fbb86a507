package urlcache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "stratafiles:url:"

// Redis is a cache shared between instances. Redis failures are logged and
// treated as misses; the cache is never a source of truth.
type Redis struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client, logger *zap.Logger) *Redis {
	return &Redis{rdb: rdb, logger: logger}
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	v, err := r.rdb.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("url cache get failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return v, true
}

func (r *Redis) Set(ctx context.Context, key, url string, ttl time.Duration) {
	if err := r.rdb.Set(ctx, keyPrefix+key, url, ttl).Err(); err != nil {
		r.logger.Warn("url cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		r.logger.Warn("url cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
