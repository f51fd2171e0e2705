package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore keeps replayable responses in Redis
type IdempotencyStore struct {
	client *redis.Client
	prefix string
}

func NewIdempotencyStore(c *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: c, prefix: "idem"}
}

func (s *IdempotencyStore) Key(scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, scope, key)
}

// Get returns the stored payload; found is false when the key is absent
func (s *IdempotencyStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetNX stores payload only if no record exists yet
func (s *IdempotencyStore) SetNX(ctx context.Context, key, payload string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, payload, ttl).Result()
}

// Set overwrites the record, used once the reserved request has finished
func (s *IdempotencyStore) Set(ctx context.Context, key, payload string, ttl time.Duration) error {
	return s.client.Set(ctx, key, payload, ttl).Err()
}

// Delete releases a reservation so the request may be retried
func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
