package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Repository persists transactions.
type Repository interface {
	Create(ctx context.Context, t Transaction) (*Transaction, error)
	List(ctx context.Context, ownerID int64, from, to time.Time, limit, offset int) ([]Transaction, int, error)
	Delete(ctx context.Context, ownerID, id int64) error
	Summarize(ctx context.Context, ownerID int64, from, to time.Time) (*Summary, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = "id, owner_id, kind, category, description, amount, occurred_at, created_at"

func (r *repository) Create(ctx context.Context, t Transaction) (*Transaction, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO transactions (owner_id, kind, category, description, amount, occurred_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at`,
		t.OwnerID, t.Kind, t.Category, t.Description, t.Amount.String(), t.OccurredAt).
		Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return &t, nil
}

func (r *repository) List(ctx context.Context, ownerID int64, from, to time.Time, limit, offset int) ([]Transaction, int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE owner_id = $1 AND occurred_at >= $2 AND occurred_at < $3`,
		ownerID, from, to).Scan(&total)
	if err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+columns+` FROM transactions
		WHERE owner_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at DESC, id DESC LIMIT $4 OFFSET $5`,
		ownerID, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

func (r *repository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %d", httpx.ErrNotFound, id)
	}
	return nil
}

// Summarize totals income and expense over [from, to) in SQL so the database
// does the decimal arithmetic.
func (r *repository) Summarize(ctx context.Context, ownerID int64, from, to time.Time) (*Summary, error) {
	var income, expense pgtype.Numeric
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE kind = 'income'), 0),
			COALESCE(SUM(amount) FILTER (WHERE kind = 'expense'), 0)
		FROM transactions
		WHERE owner_id = $1 AND occurred_at >= $2 AND occurred_at < $3`,
		ownerID, from, to).Scan(&income, &expense)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	in := numericToDecimal(income)
	out := numericToDecimal(expense)
	return &Summary{From: from, To: to, Income: in, Expense: out, Net: in.Sub(out)}, nil
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var (
		t      Transaction
		amount pgtype.Numeric
	)
	err := row.Scan(&t.ID, &t.OwnerID, &t.Kind, &t.Category, &t.Description, &amount, &t.OccurredAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, httpx.ErrNotFound
		}
		return nil, err
	}
	t.Amount = numericToDecimal(amount)
	return &t, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
