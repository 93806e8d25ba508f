package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by PostgresStore.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore keeps session records in the "sessions" table.
// Expired rows stay in place until DeleteExpired sweeps them.
type PostgresStore struct {
	db  DB
	now func() time.Time
}

// NewPostgresStore creates a Postgres-backed session store.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

const (
	pgSelectSession = `SELECT data, expires_at FROM sessions WHERE token = $1`
	pgUpsertSession = `INSERT INTO sessions (token, session_id, data, expires_at, updated_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (token) DO UPDATE
SET session_id = EXCLUDED.session_id, data = EXCLUDED.data, expires_at = EXCLUDED.expires_at, updated_at = now()`
	pgDeleteSession = `DELETE FROM sessions WHERE token = $1`
	pgDeleteExpired = `DELETE FROM sessions WHERE expires_at <= $1`
)

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	var (
		data      []byte
		expiresAt time.Time
	)
	if err := s.db.QueryRow(ctx, pgSelectSession, token).Scan(&data, &expiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if !s.now().Before(expiresAt) {
		return nil, ErrExpired
	}
	return decode(data)
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, sess *Session) error {
	if sess == nil || sess.Token == "" {
		return ErrInvalidToken
	}

	data, err := encode(sess)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(ctx, pgUpsertSession, sess.Token, sess.ID, data, sess.ExpiresAt); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete implements Store.
func (s *PostgresStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if _, err := s.db.Exec(ctx, pgDeleteSession, token); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteExpired removes every record past its expiry and returns how many were removed.
func (s *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, pgDeleteExpired, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return tag.RowsAffected(), nil
}
