package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCounterStore shares denial counters across instances. Keys expire
// with the window, so Redis handles the reset itself.
type RedisCounterStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCounterStore creates a Redis-backed counter store.
func NewRedisCounterStore(client *redis.Client, prefix string) *RedisCounterStore {
	if prefix == "" {
		prefix = "denials"
	}
	return &RedisCounterStore{
		client: client,
		prefix: prefix,
	}
}

// Increment bumps the counter using an INCR/EXPIRE pipeline. The expiry
// refresh on every hit is acceptable; repeated denials keep the window
// alive, which errs toward persisting.
func (s *RedisCounterStore) Increment(ctx context.Context, key string, _ time.Time, window time.Duration) (int64, error) {
	redisKey := fmt.Sprintf("%s:%s", s.prefix, key)

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val(), nil
}

// Reset removes the counter for a key.
func (s *RedisCounterStore) Reset(ctx context.Context, key string) error {
	redisKey := fmt.Sprintf("%s:%s", s.prefix, key)
	if err := s.client.Del(ctx, redisKey).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}
