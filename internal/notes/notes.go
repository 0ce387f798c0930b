// Package notes implements free-form notes scoped to the owner.
package notes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

type Note struct {
	ID        int64
	OwnerID   int64
	Title     string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository persists notes.
type Repository interface {
	Create(ctx context.Context, n Note) (*Note, error)
	Get(ctx context.Context, ownerID, id int64) (*Note, error)
	List(ctx context.Context, ownerID int64) ([]Note, error)
	Update(ctx context.Context, n Note) (*Note, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Create(ctx context.Context, n Note) (*Note, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notes (owner_id, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		n.OwnerID, n.Title, n.Body).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}
	return &n, nil
}

func (r *repository) Get(ctx context.Context, ownerID, id int64) (*Note, error) {
	var n Note
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, title, body, created_at, updated_at
		FROM notes WHERE owner_id = $1 AND id = $2`, ownerID, id).
		Scan(&n.ID, &n.OwnerID, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: note %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return &n, nil
}

func (r *repository) List(ctx context.Context, ownerID int64) ([]Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, title, body, created_at, updated_at
		FROM notes WHERE owner_id = $1 ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Title, &n.Body, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *repository) Update(ctx context.Context, n Note) (*Note, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notes SET title = $3, body = $4, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2`, n.OwnerID, n.ID, n.Title, n.Body)
	if err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: note %d", httpx.ErrNotFound, n.ID)
	}
	return r.Get(ctx, n.OwnerID, n.ID)
}

func (r *repository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: note %d", httpx.ErrNotFound, id)
	}
	return nil
}
