package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a JSON-encoding cache backed by Redis.
type Redis[V any] struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
}

// NewRedis creates a Redis-backed cache. Keys are stored as "{prefix}:{key}".
func NewRedis[V any](client redis.UniversalClient, prefix string, defaultTTL time.Duration) *Redis[V] {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &Redis[V]{client: client, prefix: prefix, defaultTTL: defaultTTL}
}

// Get implements Cache.
func (r *Redis[V]) Get(ctx context.Context, key string) (V, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		var zero V
		if errors.Is(err, redis.Nil) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return unmarshal[V](data)
}

// Set implements Cache.
func (r *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	data, err := marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	return r.client.Set(ctx, r.key(key), data, ttl).Err()
}

// Delete implements Cache.
func (r *Redis[V]) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *Redis[V]) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

var _ Cache[any] = (*Redis[any])(nil)
