package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore claims sends with SETNX so concurrent workers race on one key.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisStore builds a store; retention bounds how long claims are kept.
func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

// RecordKey builds the redis key for a claim.
func RecordKey(periodKey, thresholdLabel string) string {
	return fmt.Sprintf("tax:alert:%s:%s", periodKey, thresholdLabel)
}

// TryMarkSent sets the key only if it does not exist yet.
func (s *RedisStore) TryMarkSent(ctx context.Context, periodKey, thresholdLabel string, sentAt time.Time) (bool, error) {
	ok, err := s.client.SetNX(ctx, RecordKey(periodKey, thresholdLabel), sentAt.UTC().Format(time.RFC3339), s.retention).Result()
	if err != nil {
		return false, fmt.Errorf("alerts: redis setnx: %w", err)
	}
	return ok, nil
}

// Release deletes the claim.
func (s *RedisStore) Release(ctx context.Context, periodKey, thresholdLabel string) error {
	if err := s.client.Del(ctx, RecordKey(periodKey, thresholdLabel)).Err(); err != nil {
		return fmt.Errorf("alerts: redis del: %w", err)
	}
	return nil
}
