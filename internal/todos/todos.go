// Package todos implements the owner's task list with a done toggle.
package todos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

type Todo struct {
	ID        int64
	OwnerID   int64
	Title     string
	Done      bool
	DueDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository persists todos.
type Repository interface {
	Create(ctx context.Context, t Todo) (*Todo, error)
	Get(ctx context.Context, ownerID, id int64) (*Todo, error)
	List(ctx context.Context, ownerID int64) ([]Todo, error)
	Update(ctx context.Context, t Todo) (*Todo, error)
	Toggle(ctx context.Context, ownerID, id int64) (*Todo, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = "id, owner_id, title, done, due_date, created_at, updated_at"

func (r *repository) Create(ctx context.Context, t Todo) (*Todo, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO todos (owner_id, title, done, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		t.OwnerID, t.Title, t.Done, t.DueDate).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	return &t, nil
}

func (r *repository) Get(ctx context.Context, ownerID, id int64) (*Todo, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+columns+` FROM todos WHERE owner_id = $1 AND id = $2`, ownerID, id)
	t, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: todo %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return t, nil
}

func (r *repository) List(ctx context.Context, ownerID int64) ([]Todo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+columns+` FROM todos WHERE owner_id = $1 ORDER BY done, due_date NULLS LAST, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *repository) Update(ctx context.Context, t Todo) (*Todo, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE todos SET title = $3, due_date = $4, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2`, t.OwnerID, t.ID, t.Title, t.DueDate)
	if err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: todo %d", httpx.ErrNotFound, t.ID)
	}
	return r.Get(ctx, t.OwnerID, t.ID)
}

func (r *repository) Toggle(ctx context.Context, ownerID, id int64) (*Todo, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE todos SET done = NOT done, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2
		RETURNING `+columns, ownerID, id)
	t, err := scanTodo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: todo %d", httpx.ErrNotFound, id)
		}
		return nil, fmt.Errorf("toggle todo: %w", err)
	}
	return t, nil
}

func (r *repository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM todos WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: todo %d", httpx.ErrNotFound, id)
	}
	return nil
}

func scanTodo(row pgx.Row) (*Todo, error) {
	var t Todo
	err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Done, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
