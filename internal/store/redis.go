package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "bookshop:collection:"

// RedisBackend keeps each collection as one JSON value, replaced atomically
// with SET.
type RedisBackend struct {
	rdb *redis.Client
}

// NewRedisBackend connects and pings before returning.
func NewRedisBackend(addr, password string, db int) (*RedisBackend, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBackend{rdb: rdb}, nil
}

func (r *RedisBackend) Load(ctx context.Context, collection string, out interface{}) error {
	data, err := r.rdb.Get(ctx, redisKeyPrefix+collection).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load collection %s: %w", collection, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		// Undecodable value is treated the same as a missing one.
		return nil
	}
	return nil
}

func (r *RedisBackend) Replace(ctx context.Context, collection string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal collection %s: %w", collection, err)
	}

	if err := r.rdb.Set(ctx, redisKeyPrefix+collection, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to replace collection %s: %w", collection, err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	return r.rdb.Close()
}
