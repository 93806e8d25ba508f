package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

func backends(t *testing.T) map[string]Cache[[]item] {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]Cache[[]item]{
		"memory": NewMemory[[]item](time.Minute),
		"redis":  NewRedis[[]item](client, "test", time.Minute),
	}
}

func TestCache_Backends(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := c.Get(ctx, "missing")
			require.ErrorIs(t, err, ErrNotFound)

			want := []item{{Name: "Book", Price: 1299}}
			require.NoError(t, c.Set(ctx, "products", want, 0))

			got, err := c.Get(ctx, "products")
			require.NoError(t, err)
			require.Equal(t, want, got)

			require.NoError(t, c.Delete(ctx, "products"))
			_, err = c.Get(ctx, "products")
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemory_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Now()
	m := NewMemory[string](time.Minute)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", "v", time.Second))
	_, err := m.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = m.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedis_PrefixAndTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedis[string](client, "catalog", 30*time.Second)
	require.NoError(t, c.Set(ctx, "list", "x", 0))

	require.True(t, mr.Exists("catalog:list"))
	require.Equal(t, 30*time.Second, mr.TTL("catalog:list"))

	require.NoError(t, mr.Set("catalog:bad", "{"))
	_, err := c.Get(ctx, "bad")
	require.ErrorIs(t, err, ErrUnmarshal)
}

func TestGetOrSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("computes once for concurrent misses", func(t *testing.T) {
		t.Parallel()
		c := NewMemory[int](time.Minute)

		var calls atomic.Int32
		release := make(chan struct{})
		fn := func(context.Context) (int, error) {
			calls.Add(1)
			<-release
			return 42, nil
		}

		var wg sync.WaitGroup
		results := make([]int, 10)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := GetOrSet(ctx, c, "answer-concurrent", 0, fn)
				require.NoError(t, err)
				results[i] = v
			}()
		}

		time.Sleep(50 * time.Millisecond)
		close(release)
		wg.Wait()

		require.Equal(t, int32(1), calls.Load())
		for _, v := range results {
			require.Equal(t, 42, v)
		}

		v, err := c.Get(ctx, "answer-concurrent")
		require.NoError(t, err)
		require.Equal(t, 42, v)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		t.Parallel()
		c := NewMemory[int](time.Minute)
		boom := errors.New("boom")

		_, err := GetOrSet(ctx, c, "answer-error", 0, func(context.Context) (int, error) { return 0, boom })
		require.ErrorIs(t, err, boom)

		_, err = c.Get(ctx, "answer-error")
		require.ErrorIs(t, err, ErrNotFound)
	})
}
