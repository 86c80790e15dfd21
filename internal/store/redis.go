package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of a go-redis client. The caller
// owns the client lifecycle.
type RedisStore struct {
	client redis.Cmdable
}

var _ Store = (*RedisStore)(nil)

// NewRedis wraps an existing Redis client.
func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

// Client returns the underlying Redis client.
func (s *RedisStore) Client() redis.Cmdable { return s.client }

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("rjq/redis: get %s: %w", key, err)
	}
	return val, nil
}

func (s *RedisStore) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("rjq/redis: set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("rjq/redis: del %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) RightPush(ctx context.Context, listKey, value string) error {
	if err := s.client.RPush(ctx, listKey, value).Err(); err != nil {
		return fmt.Errorf("rjq/redis: rpush %s: %w", listKey, err)
	}
	return nil
}

// BlockingLeftPop claims the head of the list via BLPOP. A wait window
// that elapses without data is not an error.
func (s *RedisStore) BlockingLeftPop(ctx context.Context, listKey string, wait time.Duration) (string, bool, error) {
	res, err := s.client.BLPop(ctx, wait, listKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("rjq/redis: blpop %s: %w", listKey, err)
	}
	// BLPOP replies [key, value].
	if len(res) < 2 {
		return "", false, nil
	}
	return res[1], true, nil
}

func (s *RedisStore) ListLen(ctx context.Context, listKey string) (int64, error) {
	n, err := s.client.LLen(ctx, listKey).Result()
	if err != nil {
		return 0, fmt.Errorf("rjq/redis: llen %s: %w", listKey, err)
	}
	return n, nil
}

// Ping verifies the Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
