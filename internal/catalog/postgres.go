package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DB is the subset of pgxpool.Pool used by PostgresRepository.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores products in the "products" table.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository creates a Postgres-backed repository.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const productColumns = `id, owner_id, title, price_cents, description, image_key, image_url, created_at`

const (
	pgListProducts = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
	pgListByOwner  = `SELECT ` + productColumns + ` FROM products WHERE owner_id = $1 ORDER BY created_at DESC, id`
	pgGetProduct   = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
)

const pgInsertProduct = `INSERT INTO products (id, owner_id, title, price_cents, description, image_key, image_url)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING ` + productColumns

// List implements Repository. One extra row is fetched to tell whether a next page exists.
func (r *PostgresRepository) List(ctx context.Context, page, size int) (Page, error) {
	page, size = normalizePage(page, size)

	rows, err := r.db.Query(ctx, pgListProducts, size+1, (page-1)*size)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	products, err := collect(rows)
	if err != nil {
		return Page{}, err
	}

	out := Page{Number: page, HasNext: len(products) > size}
	if out.HasNext {
		products = products[:size]
	}
	out.Products = products
	return out, nil
}

// ListByOwner implements Repository.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]Product, error) {
	uid, err := uuid.Parse(ownerID)
	if err != nil {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, pgListByOwner, uid)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return collect(rows)
}

// Get implements Repository.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	p, err := scanProduct(r.db.QueryRow(ctx, pgGetProduct, uid))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create implements Repository.
func (r *PostgresRepository) Create(ctx context.Context, in NewProduct) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	owner, err := uuid.Parse(in.OwnerID)
	if err != nil {
		return nil, errors.Join(ErrInvalid, err)
	}

	p, err := scanProduct(r.db.QueryRow(ctx, pgInsertProduct,
		uuid.New(), owner, in.Title, in.PriceCents, in.Description, in.ImageKey, in.ImageURL))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collect(rows pgx.Rows) ([]Product, error) {
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return products, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p         Product
		id, owner uuid.UUID
	)
	err := row.Scan(&id, &owner, &p.Title, &p.PriceCents, &p.Description, &p.ImageKey, &p.ImageURL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	p.ID = id.String()
	p.OwnerID = owner.String()
	return p, nil
}
