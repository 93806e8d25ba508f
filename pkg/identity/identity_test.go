package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/identity"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := identity.NewMemoryStore()

	created, err := store.Create(ctx, "  Alice@Example.com ", "Alice", "hash")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", created.Email)
	require.NotEmpty(t, created.ID)

	_, err = store.Create(ctx, "alice@example.com", "Other", "hash")
	require.ErrorIs(t, err, identity.ErrEmailTaken)

	_, err = store.Create(ctx, "", "Nobody", "hash")
	require.ErrorIs(t, err, identity.ErrInvalid)

	byID, err := store.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Alice", byID.Name)

	byEmail, err := store.FindByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	require.Equal(t, created.ID, byEmail.ID)

	store.Delete(created.ID)
	_, err = store.FindByID(ctx, created.ID)
	require.ErrorIs(t, err, identity.ErrNotFound)
	_, err = store.FindByEmail(ctx, "alice@example.com")
	require.ErrorIs(t, err, identity.ErrNotFound)
}

type stubRow struct {
	err    error
	values []any
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			if s, ok := d.(interface{ Scan(any) error }); ok {
				if err := s.Scan(r.values[i]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

type stubDB struct {
	row   stubRow
	calls int
}

func (db *stubDB) QueryRow(context.Context, string, ...any) pgx.Row {
	db.calls++
	return db.row
}

func TestPostgresStore_FindByID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	const id = "6f1c1a0e-3b7e-4a5e-9a51-0c7f3a2f9d10"

	tests := []struct {
		name    string
		id      string
		row     stubRow
		wantErr error
		queried bool
	}{
		{
			name:    "found",
			id:      id,
			row:     stubRow{values: []any{id, "a@b.c", "A", "hash", time.Unix(0, 0)}},
			queried: true,
		},
		{
			name:    "no rows",
			id:      id,
			row:     stubRow{err: pgx.ErrNoRows},
			wantErr: identity.ErrNotFound,
			queried: true,
		},
		{
			name:    "connection failure",
			id:      id,
			row:     stubRow{err: errors.New("dial tcp: connection refused")},
			wantErr: identity.ErrUnavailable,
			queried: true,
		},
		{
			name:    "malformed reference",
			id:      "not-a-uuid",
			wantErr: identity.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db := &stubDB{row: tt.row}
			store := identity.NewPostgresStore(db)

			got, err := store.FindByID(ctx, tt.id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				if errors.Is(tt.wantErr, identity.ErrUnavailable) {
					require.NotErrorIs(t, err, identity.ErrNotFound)
				}
			} else {
				require.NoError(t, err)
				require.Equal(t, id, got.ID)
				require.Equal(t, "a@b.c", got.Email)
			}
			require.Equal(t, tt.queried, db.calls == 1)
		})
	}
}

func TestPostgresStore_CreateDuplicate(t *testing.T) {
	t.Parallel()
	db := &stubDB{row: stubRow{err: &pgconn.PgError{Code: "23505"}}}
	store := identity.NewPostgresStore(db)

	_, err := store.Create(context.Background(), "a@b.c", "A", "hash")
	require.ErrorIs(t, err, identity.ErrEmailTaken)
}
