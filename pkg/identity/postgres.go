package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// DB is the subset of pgxpool.Pool used by PostgresStore.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads and writes identities in the "users" table.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a Postgres-backed identity store.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	pgSelectByID    = `SELECT id, email, name, password_hash, created_at FROM users WHERE id = $1`
	pgSelectByEmail = `SELECT id, email, name, password_hash, created_at FROM users WHERE email = $1`
	pgInsertUser    = `INSERT INTO users (id, email, name, password_hash) VALUES ($1, $2, $3, $4)
RETURNING id, email, name, password_hash, created_at`
)

// FindByID implements Store.
// References that are not valid UUIDs cannot exist and resolve to ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Identity, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.scanOne(s.db.QueryRow(ctx, pgSelectByID, uid))
}

// FindByEmail looks up an identity by normalized email.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}
	return s.scanOne(s.db.QueryRow(ctx, pgSelectByEmail, email))
}

// Create inserts a new identity.
func (s *PostgresStore) Create(ctx context.Context, email, name, passwordHash string) (*Identity, error) {
	email = NormalizeEmail(email)
	if email == "" || passwordHash == "" {
		return nil, ErrInvalid
	}

	ident, err := s.scanOne(s.db.QueryRow(ctx, pgInsertUser, uuid.New(), email, name, passwordHash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return ident, nil
}

func (s *PostgresStore) scanOne(row pgx.Row) (*Identity, error) {
	var (
		ident Identity
		id    uuid.UUID
	)
	err := row.Scan(&id, &ident.Email, &ident.Name, &ident.PasswordHash, &ident.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	ident.ID = id.String()
	return &ident, nil
}
