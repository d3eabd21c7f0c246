package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ripplefeed/backend/internal/cache"
)

// ChallengeStore is the cache-store port the reset and email-verification
// flows run on. Implementations must make SetBatch all-or-nothing: a
// partially applied batch is indistinguishable from a corrupted state
// machine, so callers treat any SetBatch error as a server fault.
type ChallengeStore interface {
	// Get returns the value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)
	// Exists reports whether any of the keys exist
	Exists(ctx context.Context, keys ...string) (bool, error)
	// Incr atomically increments an integer key
	Incr(ctx context.Context, key string) (int64, error)
	// Del removes the keys
	Del(ctx context.Context, keys ...string) error
	// SetBatch atomically deletes delKeys and writes pairs with one shared
	// TTL in a single transaction
	SetBatch(ctx context.Context, ttl time.Duration, pairs map[string]string, delKeys ...string) error
}

// RedisChallengeStore implements ChallengeStore on the shared cache store
type RedisChallengeStore struct {
	rc *cache.RedisClient
}

// NewRedisChallengeStore wraps the redis client
func NewRedisChallengeStore(rc *cache.RedisClient) *RedisChallengeStore {
	return &RedisChallengeStore{rc: rc}
}

func (s *RedisChallengeStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.rc.Get(ctx, key)
	if cache.IsNil(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisChallengeStore) Exists(ctx context.Context, keys ...string) (bool, error) {
	n, err := s.rc.Exists(ctx, keys...)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisChallengeStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.rc.Incr(ctx, key)
}

func (s *RedisChallengeStore) Del(ctx context.Context, keys ...string) error {
	return s.rc.Del(ctx, keys...)
}

func (s *RedisChallengeStore) SetBatch(ctx context.Context, ttl time.Duration, pairs map[string]string, delKeys ...string) error {
	client := s.rc.Client()
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range delKeys {
			pipe.Del(ctx, key)
		}
		for key, value := range pairs {
			pipe.Set(ctx, key, value, ttl)
		}
		return nil
	})
	return err
}
