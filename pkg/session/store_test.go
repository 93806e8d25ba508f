package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/session"
)

func newRedisStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return session.NewRedisStore(client, session.WithRedisPrefix("test:sess:")), mr
}

func TestStores_Contract(t *testing.T) {
	t.Parallel()

	stores := map[string]func(t *testing.T) session.Store{
		"redis": func(t *testing.T) session.Store {
			s, _ := newRedisStore(t)
			return s
		},
		"memory": func(t *testing.T) session.Store {
			return session.NewMemoryStore()
		},
	}

	for name, factory := range stores {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := factory(t)

			_, err := store.Get(ctx, "missing")
			require.ErrorIs(t, err, session.ErrNotFound)

			_, err = store.Get(ctx, "")
			require.ErrorIs(t, err, session.ErrInvalidToken)

			sess := session.New("sid", "tok", "secret", time.Now().Add(time.Hour))
			sess.SetValue("cart", "3 items")
			sess.Authenticate("user-1")
			require.NoError(t, store.Save(ctx, sess))

			got, err := store.Get(ctx, "tok")
			require.NoError(t, err)
			require.Equal(t, "sid", got.ID)
			require.Equal(t, "secret", got.CSRFSecret)
			require.True(t, got.IsAuthenticated())
			require.Equal(t, "user-1", *got.UserID)
			require.Equal(t, "3 items", got.Values["cart"])
			require.False(t, got.IsNew())

			// last writer wins
			got.SetValue("cart", "empty")
			require.NoError(t, store.Save(ctx, got))
			again, err := store.Get(ctx, "tok")
			require.NoError(t, err)
			require.Equal(t, "empty", again.Values["cart"])

			require.NoError(t, store.Delete(ctx, "tok"))
			require.NoError(t, store.Delete(ctx, "tok"))
			_, err = store.Get(ctx, "tok")
			require.ErrorIs(t, err, session.ErrNotFound)
		})
	}
}

func TestRedisStore_ExpiresWithSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newRedisStore(t)

	sess := session.New("sid", "tok", "secret", time.Now().Add(time.Minute))
	require.NoError(t, store.Save(ctx, sess))

	ttl := mr.TTL("test:sess:tok")
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, time.Minute)

	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "tok")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestRedisStore_SaveExpiredDeletes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newRedisStore(t)

	sess := session.New("sid", "tok", "secret", time.Now().Add(time.Hour))
	require.NoError(t, store.Save(ctx, sess))

	sess.ExpiresAt = time.Now().Add(-time.Second)
	require.NoError(t, store.Save(ctx, sess))
	require.False(t, mr.Exists("test:sess:tok"))
}

func TestRedisStore_CorruptRecordIsNotFound(t *testing.T) {
	t.Parallel()
	store, mr := newRedisStore(t)

	require.NoError(t, mr.Set("test:sess:bad", "{not json"))

	_, err := store.Get(context.Background(), "bad")
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestRedisStore_Unavailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newRedisStore(t)
	mr.Close()

	_, err := store.Get(ctx, "tok")
	require.ErrorIs(t, err, session.ErrUnavailable)
	require.NotErrorIs(t, err, session.ErrNotFound)

	sess := session.New("sid", "tok", "secret", time.Now().Add(time.Hour))
	require.ErrorIs(t, store.Save(ctx, sess), session.ErrUnavailable)
	require.ErrorIs(t, store.Delete(ctx, "tok"), session.ErrUnavailable)
}

func TestMemoryStore_ExpiredAndPurge(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := session.NewMemoryStore()

	live := session.New("a", "live", "s", time.Now().Add(time.Hour))
	dead := session.New("b", "dead", "s", time.Now().Add(-time.Second))
	require.NoError(t, store.Save(ctx, live))
	require.NoError(t, store.Save(ctx, dead))

	_, err := store.Get(ctx, "dead")
	require.ErrorIs(t, err, session.ErrExpired)

	n, err := store.DeleteExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, 1, store.Len())
}

func TestMemoryStore_IsolatesCallers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := session.NewMemoryStore()

	sess := session.New("a", "tok", "s", time.Now().Add(time.Hour))
	require.NoError(t, store.Save(ctx, sess))
	sess.SetValue("later", true)

	got, err := store.Get(ctx, "tok")
	require.NoError(t, err)
	_, ok := got.GetValue("later")
	require.False(t, ok)
}
