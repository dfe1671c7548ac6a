package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const intentKeyPrefix = "checkout:intent:"

var extendIntentKeyScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

// RedisIntentKeyStore reserves idempotency keys with SET NX so duplicate
// submissions are suppressed across instances.
type RedisIntentKeyStore struct {
	client *redis.Client
}

// NewRedisIntentKeyStore creates a key store on top of client.
func NewRedisIntentKeyStore(client *redis.Client) *RedisIntentKeyStore {
	return &RedisIntentKeyStore{client: client}
}

func (s *RedisIntentKeyStore) Reserve(ctx context.Context, key, attemptID string, ttl time.Duration) (string, bool, error) {
	// A holder can expire between SETNX and GET; one more round settles it.
	for i := 0; i < 2; i++ {
		ok, err := s.client.SetNX(ctx, intentKeyPrefix+key, attemptID, ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("redis reserve intent key failed: %w", err)
		}
		if ok {
			return "", true, nil
		}

		holder, err := s.client.Get(ctx, intentKeyPrefix+key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("redis read intent key failed: %w", err)
		}
		return holder, false, nil
	}
	return "", false, fmt.Errorf("intent key %s kept changing hands", key)
}

func (s *RedisIntentKeyStore) Extend(ctx context.Context, key, attemptID string, ttl time.Duration) error {
	n, err := extendIntentKeyScript.Run(ctx, s.client, []string{intentKeyPrefix + key}, attemptID, ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("redis extend intent key failed: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisIntentKeyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, intentKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis release intent key failed: %w", err)
	}
	return nil
}
