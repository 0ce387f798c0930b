package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Repository persists products.
type Repository interface {
	Create(ctx context.Context, p Product) (*Product, error)
	Get(ctx context.Context, ownerID, id int64) (*Product, error)
	List(ctx context.Context, ownerID int64, limit, offset int) ([]Product, int, error)
	Update(ctx context.Context, p Product) (*Product, error)
	Delete(ctx context.Context, ownerID, id int64) error
	AdjustStock(ctx context.Context, ownerID, id, delta int64) (*Product, error)
	LowStock(ctx context.Context, ownerID int64) ([]Product, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const columns = "id, owner_id, name, sku, description, unit_price, vat_rate, stock, low_stock_threshold, created_at, updated_at"

func (r *repository) Create(ctx context.Context, p Product) (*Product, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (owner_id, name, sku, description, unit_price, vat_rate, stock, low_stock_threshold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		p.OwnerID, p.Name, p.SKU, p.Description, p.UnitPrice.String(), p.VATRate.String(),
		p.Stock, p.LowStockThreshold).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sku %q already exists", httpx.ErrConflict, p.SKU)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}
	return &p, nil
}

func (r *repository) Get(ctx context.Context, ownerID, id int64) (*Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+columns+` FROM products WHERE owner_id = $1 AND id = $2`, ownerID, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: product %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, ownerID int64, limit, offset int) ([]Product, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+columns+` FROM products WHERE owner_id = $1 ORDER BY name, id LIMIT $2 OFFSET $3`,
		ownerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repository) Update(ctx context.Context, p Product) (*Product, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET name = $3, sku = $4, description = $5, unit_price = $6,
			vat_rate = $7, stock = $8, low_stock_threshold = $9, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2`,
		p.OwnerID, p.ID, p.Name, p.SKU, p.Description, p.UnitPrice.String(), p.VATRate.String(),
		p.Stock, p.LowStockThreshold)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: sku %q already exists", httpx.ErrConflict, p.SKU)
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: product %d", httpx.ErrNotFound, p.ID)
	}
	return r.Get(ctx, p.OwnerID, p.ID)
}

func (r *repository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", httpx.ErrNotFound, id)
	}
	return nil
}

// AdjustStock applies a signed delta atomically and rejects adjustments that
// would drive stock negative.
func (r *repository) AdjustStock(ctx context.Context, ownerID, id, delta int64) (*Product, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE products SET stock = stock + $3, updated_at = NOW()
		WHERE owner_id = $1 AND id = $2 AND stock + $3 >= 0
		RETURNING `+columns,
		ownerID, id, delta)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if _, getErr := r.Get(ctx, ownerID, id); getErr != nil {
				return nil, getErr
			}
			return nil, fmt.Errorf("%w: insufficient stock", httpx.ErrConflict)
		}
		return nil, fmt.Errorf("adjust stock: %w", err)
	}
	return p, nil
}

func (r *repository) LowStock(ctx context.Context, ownerID int64) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+columns+` FROM products
		WHERE owner_id = $1 AND low_stock_threshold > 0 AND stock <= low_stock_threshold
		ORDER BY stock, name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		p     Product
		price pgtype.Numeric
		vat   pgtype.Numeric
	)
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.SKU, &p.Description, &price, &vat,
		&p.Stock, &p.LowStockThreshold, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.UnitPrice = numericToDecimal(price)
	p.VATRate = numericToDecimal(vat)
	return &p, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
