package engagement

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Field is one counter hash field
type Field string

const (
	FieldLikes    Field = "likes"
	FieldDislikes Field = "dislikes"
	FieldComments Field = "comments"
)

// CounterTTL bounds how stale a warm entry can get; it doubles as the
// self-healing window for any delta lost between the two rating writes.
const CounterTTL = 60 * time.Second

// PostRef pairs a post id with its durable raw view counter, which the
// read path adds to the deduplicated estimate.
type PostRef struct {
	ID          string
	StoredViews int64
}

// FieldValues is one post's slice of the batched read: whichever counter
// fields were present, plus the unique-view cardinality estimate.
type FieldValues struct {
	Fields       map[Field]int64
	ViewEstimate int64
}

// CounterStore is the cache-store port for per-post engagement counters.
// The backend must give linearizable per-field increments; the surrounding
// read-refill-write sequence is not transactional and callers know it.
type CounterStore interface {
	// BatchGet performs the whole read round trip in one batch per spec'd
	// behavior: hash fields, conditional viewer insert into the unique-view
	// estimator (skipped for anonymous reads), estimator cardinality, and
	// registration in the global tracking set.
	BatchGet(ctx context.Context, refs []PostRef, viewerID string) (map[string]FieldValues, error)
	// IncrField increments a field only when the post's hash is warm and
	// reports whether the increment applied. A delta into a cold hash is
	// dropped so a partial hash never materializes.
	IncrField(ctx context.Context, postID string, field Field, delta int64) (bool, error)
	// Warm writes recovered fields and restarts the entry TTL
	Warm(ctx context.Context, entries map[string]map[Field]int64) error
}

func counterKey(postID string) string { return "post:" + postID }
func viewsKey(postID string) string   { return "postpf:" + postID }

// trackingSetKey collects every post id the read path has seen; external
// maintenance jobs consume it.
const trackingSetKey = "postvs"

// RedisCounterStore implements CounterStore on Redis using a hash per post
// and a HyperLogLog per post for deduplicated views
type RedisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore wraps a connected go-redis client
func NewRedisCounterStore(client *redis.Client) *RedisCounterStore {
	return &RedisCounterStore{client: client}
}

func (s *RedisCounterStore) BatchGet(ctx context.Context, refs []PostRef, viewerID string) (map[string]FieldValues, error) {
	if len(refs) == 0 {
		return map[string]FieldValues{}, nil
	}

	hashCmds := make([]*redis.SliceCmd, len(refs))
	countCmds := make([]*redis.IntCmd, len(refs))

	pipe := s.client.Pipeline()
	for i, ref := range refs {
		hashCmds[i] = pipe.HMGet(ctx, counterKey(ref.ID),
			string(FieldLikes), string(FieldDislikes), string(FieldComments))
		if viewerID != "" {
			pipe.PFAdd(ctx, viewsKey(ref.ID), viewerID)
		}
		countCmds[i] = pipe.PFCount(ctx, viewsKey(ref.ID))
		pipe.SAdd(ctx, trackingSetKey, ref.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	fields := []Field{FieldLikes, FieldDislikes, FieldComments}
	out := make(map[string]FieldValues, len(refs))
	for i, ref := range refs {
		fv := FieldValues{
			Fields:       make(map[Field]int64, 3),
			ViewEstimate: countCmds[i].Val(),
		}
		for j, raw := range hashCmds[i].Val() {
			str, ok := raw.(string)
			if !ok {
				continue // field absent: this entry is cold
			}
			if n, err := strconv.ParseInt(str, 10, 64); err == nil {
				fv.Fields[fields[j]] = n
			}
		}
		out[ref.ID] = fv
	}
	return out, nil
}

func (s *RedisCounterStore) IncrField(ctx context.Context, postID string, field Field, delta int64) (bool, error) {
	exists, err := s.client.Exists(ctx, counterKey(postID)).Result()
	if err != nil {
		return false, err
	}
	if exists == 0 {
		return false, nil
	}
	if err := s.client.HIncrBy(ctx, counterKey(postID), string(field), delta).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisCounterStore) Warm(ctx context.Context, entries map[string]map[Field]int64) error {
	if len(entries) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for postID, fields := range entries {
		args := make([]interface{}, 0, len(fields)*2)
		for field, value := range fields {
			args = append(args, string(field), value)
		}
		pipe.HSet(ctx, counterKey(postID), args...)
		pipe.Expire(ctx, counterKey(postID), CounterTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}
