package statecache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed Store. Keys are the raw state values so the
// callback service can read them without knowing about this proxy.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore constructs a Redis-backed state cache writing entries that
// expire after ttl.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Store upserts the descriptor and, only once that succeeded, sets the expiry.
// A failed upsert leaves any previous value's TTL untouched.
func (s *RedisStore) Store(ctx context.Context, state, descriptor string) error {
	if err := s.client.Set(ctx, state, descriptor, 0).Err(); err != nil {
		return &Error{Op: OpStore, Key: state, Err: err}
	}
	if err := s.client.Expire(ctx, state, s.ttl).Err(); err != nil {
		return &Error{Op: OpExpire, Key: state, Err: err}
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
