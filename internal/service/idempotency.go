package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// IdempotencyStore remembers client supplied request keys.
type IdempotencyStore interface {
	// Reserve records key and reports whether it was unused.
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisIdempotency struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIdempotency(rdb *redis.Client, ttl time.Duration) *RedisIdempotency {
	return &RedisIdempotency{rdb: rdb, ttl: ttl}
}

func (r *RedisIdempotency) Reserve(ctx context.Context, key string) (bool, error) {
	return r.rdb.SetNX(ctx, redisKey(key), "exists", r.ttl).Result()
}

func (r *RedisIdempotency) Release(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, redisKey(key)).Err()
}

func redisKey(key string) string {
	return fmt.Sprintf("idempotent-key:%s", key)
}
