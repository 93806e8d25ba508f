// Package cache provides a small generic cache with Redis and in-memory backends
// and a stampede-safe GetOrSet helper.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Errors.
var (
	ErrNotFound  = errors.New("cache: entry not found")
	ErrMarshal   = errors.New("cache: failed to marshal value")
	ErrUnmarshal = errors.New("cache: failed to unmarshal value")
)

// Cache is a generic key-value cache.
// A zero TTL in Set means the backend's default TTL.
type Cache[V any] interface {
	// Get returns ErrNotFound if the key does not exist or has expired.
	Get(ctx context.Context, key string) (V, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// groups holds one singleflight group per cache so equal keys in different caches never share a call.
var groups sync.Map // Cache -> *singleflight.Group

func groupFor(c any) *singleflight.Group {
	g, _ := groups.LoadOrStore(c, new(singleflight.Group))
	return g.(*singleflight.Group)
}

// GetOrSet returns the cached value for key, or computes it with fn on a miss.
// Concurrent misses for the same key share a single call to fn.
// A failed fn result is never cached. A failed cache write is ignored.
func GetOrSet[V any](ctx context.Context, c Cache[V], key string, ttl time.Duration, fn func(ctx context.Context) (V, error)) (V, error) {
	if v, err := c.Get(ctx, key); err == nil {
		return v, nil
	}

	v, err, _ := groupFor(c).Do(key, func() (any, error) {
		val, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		_ = c.Set(ctx, key, val, ttl)
		return val, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

func marshal[V any](v V) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func unmarshal[V any](data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}
