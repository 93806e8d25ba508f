package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/internal/config"
	"github.com/dmitrymomot/storefront/pkg/storage"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoadFrom_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFrom(map[string]string{
		"SESSION_SECRET": secret,
		"DATABASE_URL":   "postgres://localhost/shop",
	})
	require.NoError(t, err)

	require.Equal(t, ":3000", cfg.HTTP.Addr)
	require.Equal(t, 30*time.Second, cfg.HTTP.RequestTimeout)
	require.Equal(t, int64(10<<20), cfg.HTTP.MaxBodySize)
	require.Equal(t, int64(8<<20), cfg.HTTP.MultipartMemory)
	require.Equal(t, "storefront.sid", cfg.Session.CookieName)
	require.Equal(t, config.BackendRedis, cfg.Session.Backend)
	require.Equal(t, 3*time.Second, cfg.Session.StoreTimeout)
	require.Equal(t, time.Minute, cfg.Session.TouchInterval)
	require.Equal(t, 30*time.Second, cfg.Upload.Timeout)
	require.Equal(t, "storefront", cfg.Storage.Bucket)
	require.Equal(t, storage.ACLPublicRead, cfg.Storage.DefaultACL)
	require.Equal(t, slog.LevelInfo, cfg.Log.Level)
	require.Equal(t, "*/15 * * * *", cfg.Jobs.PurgeSchedule)
	require.True(t, cfg.NeedsPostgres())
	require.True(t, cfg.NeedsRedis())
}

func TestLoadFrom_MemoryBackends(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFrom(map[string]string{
		"SESSION_SECRET":  secret,
		"STORE_BACKEND":   "memory",
		"SESSION_BACKEND": "memory",
		"STORAGE_BACKEND": "memory",
		"LOG_LEVEL":       "debug",
	})
	require.NoError(t, err)
	require.False(t, cfg.NeedsPostgres())
	require.False(t, cfg.NeedsRedis())
	require.Equal(t, slog.LevelDebug, cfg.Log.Level)
}

func TestLoadFrom_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		vars map[string]string
	}{
		{"short secret", map[string]string{"SESSION_SECRET": "short", "STORE_BACKEND": "memory", "SESSION_BACKEND": "memory"}},
		{"postgres without url", map[string]string{"SESSION_SECRET": secret}},
		{"unknown session backend", map[string]string{"SESSION_SECRET": secret, "STORE_BACKEND": "memory", "SESSION_BACKEND": "cookie"}},
		{"unknown storage backend", map[string]string{"SESSION_SECRET": secret, "STORE_BACKEND": "memory", "SESSION_BACKEND": "memory", "STORAGE_BACKEND": "disk"}},
		{"bad duration", map[string]string{"SESSION_SECRET": secret, "HTTP_REQUEST_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFrom(tt.vars)
			require.Error(t, err)
		})
	}
}

func TestLoadDatabase(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadDatabaseFrom(map[string]string{"DATABASE_URL": "postgres://localhost/shop"})
	require.NoError(t, err)
	require.Equal(t, "postgres://localhost/shop", cfg.DB.URL)
	require.Empty(t, cfg.Session.Secret)

	_, err = config.LoadDatabaseFrom(map[string]string{})
	require.ErrorIs(t, err, config.ErrInvalid)
}
