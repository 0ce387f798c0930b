package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Repository persists customers.
type Repository interface {
	Create(ctx context.Context, c Customer) (*Customer, error)
	Get(ctx context.Context, ownerID, id int64) (*Customer, error)
	List(ctx context.Context, ownerID int64, limit, offset int) ([]Customer, int, error)
	Update(ctx context.Context, c Customer) (*Customer, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = "id, owner_id, name, email, phone, address, gstin, created_at, updated_at"

func (r *repository) Create(ctx context.Context, c Customer) (*Customer, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (owner_id, name, email, phone, address, gstin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		c.OwnerID, c.Name, c.Email, c.Phone, c.Address, c.GSTIN).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &c, nil
}

func (r *repository) Get(ctx context.Context, ownerID, id int64) (*Customer, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+columns+` FROM customers WHERE owner_id = $1 AND id = $2`, ownerID, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: customer %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, ownerID int64, limit, offset int) ([]Customer, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+columns+` FROM customers WHERE owner_id = $1 ORDER BY name, id LIMIT $2 OFFSET $3`,
		ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *repository) Update(ctx context.Context, c Customer) (*Customer, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers SET name = $3, email = $4, phone = $5, address = $6, gstin = $7, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2`,
		c.OwnerID, c.ID, c.Name, c.Email, c.Phone, c.Address, c.GSTIN)
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: customer %d", httpx.ErrNotFound, c.ID)
	}
	return r.Get(ctx, c.OwnerID, c.ID)
}

func (r *repository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: customer %d", httpx.ErrNotFound, id)
	}
	return nil
}

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.GSTIN, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
