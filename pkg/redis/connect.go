// Package redis opens go-redis clients from a connection URL and exposes
// health and shutdown hooks for the application runtime.
package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config describes a Redis connection.
type Config struct {
	URL            string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	PoolSize       int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns   int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	ConnectRetries int           `env:"REDIS_CONNECT_RETRIES" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"2s"`
	DialTimeout    time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout    time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout   time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	MaxIdleTime    time.Duration `env:"REDIS_MAX_IDLE_TIME" envDefault:"10m"`
}

// Open parses the URL, applies pool settings and pings the server,
// retrying with a linear backoff until ConnectRetries is exhausted.
// Both redis:// and rediss:// (TLS) schemes are accepted.
func Open(ctx context.Context, cfg Config) (redis.UniversalClient, error) {
	opts, err := parse(cfg)
	if err != nil {
		return nil, err
	}
	return connect(ctx, opts, cfg.ConnectRetries, cfg.RetryInterval)
}

func parse(cfg Config) (*redis.Options, error) {
	if cfg.URL == "" {
		return nil, ErrEmptyConnectionURL
	}
	if !strings.HasPrefix(cfg.URL, "redis://") && !strings.HasPrefix(cfg.URL, "rediss://") {
		return nil, ErrFailedToParseURL
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseURL, err)
	}

	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.MaxIdleTime > 0 {
		opts.ConnMaxIdleTime = cfg.MaxIdleTime
	}
	return opts, nil
}

func connect(ctx context.Context, opts *redis.Options, attempts int, interval time.Duration) (redis.UniversalClient, error) {
	attempts = max(attempts, 1)

	var lastErr error
	for i := range attempts {
		client := redis.NewClient(opts)

		lastErr = client.Ping(ctx).Err()
		if lastErr == nil {
			return client, nil
		}
		_ = client.Close()

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrConnectionFailed, ctx.Err())
		case <-time.After(time.Duration(i+1) * interval):
		}
	}

	return nil, errors.Join(ErrConnectionFailed, lastErr)
}
