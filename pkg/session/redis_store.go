package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "session:"

// RedisStore keeps session records in Redis with a key expiry equal to the session expiry.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix sets the key prefix. Default is "session:".
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: defaultRedisPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(token string) string {
	return s.prefix + token
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sess, err := decode(data)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired(s.now()) {
		return nil, ErrExpired
	}
	return sess, nil
}

// Save implements Store.
// A session that is already past its expiry is removed instead of written.
func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.Token == "" {
		return ErrInvalidToken
	}

	ttl := sess.TTL(s.now())
	if ttl <= 0 {
		return s.Delete(ctx, sess.Token)
	}

	data, err := encode(sess)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key(sess.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
