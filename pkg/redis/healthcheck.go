package redis

import (
	"context"
	"errors"
	"io"

	"github.com/redis/go-redis/v9"
)

// Healthcheck returns a readiness probe that pings the server.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrHealthcheckFailed
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// Shutdown returns a shutdown hook that closes the client.
func Shutdown(client io.Closer) func(context.Context) error {
	return func(context.Context) error {
		return client.Close()
	}
}
