package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// numberPrefix is fixed; the sequence is zero-padded per owner.
const numberPrefix = "INV-"

// Repository provides persistence for invoices, their line items and the
// per-owner number counters.
type Repository interface {
	Create(ctx context.Context, inv Invoice) (*Invoice, error)
	Get(ctx context.Context, ownerID, id int64) (*Invoice, error)
	List(ctx context.Context, ownerID int64, req ListInvoicesRequest) ([]Invoice, int, error)
	Update(ctx context.Context, inv Invoice) (*Invoice, error)
	UpdateStatus(ctx context.Context, ownerID, id int64, status Status, paidDate *time.Time) error
	Delete(ctx context.Context, ownerID, id int64) error
	PeekNextNumber(ctx context.Context, ownerID int64) (string, error)
	Stats(ctx context.Context, ownerID int64, now time.Time) (Stats, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const invoiceColumns = `id, owner_id, number,
	customer_name, customer_email, customer_phone, customer_address, customer_gstin,
	subtotal, total_vat, total_item_discount,
	overall_discount_type, overall_discount_value, overall_discount_amount,
	grand_total, without_vat, status, issue_date, due_date, paid_date,
	payment_method, notes, created_at, updated_at`

// Create allocates the next invoice number and inserts the invoice and its
// lines in one transaction. The counter upsert is a single atomic statement;
// at Read Committed two concurrent creates for the same owner block on the
// counter row and draw consecutive sequences, where a higher isolation level
// would abort the loser with a serialization failure instead. If the insert
// fails the transaction rolls back and the counter does not advance.
func (r *repository) Create(ctx context.Context, inv Invoice) (*Invoice, error) {
	var created *Invoice
	err := db.WithTxReadCommitted(ctx, r.pool, func(tx pgx.Tx) error {
		var seq int64
		err := tx.QueryRow(ctx, `
			INSERT INTO invoice_counters (owner_id, seq) VALUES ($1, 1)
			ON CONFLICT (owner_id) DO UPDATE SET seq = invoice_counters.seq + 1
			RETURNING seq`, inv.OwnerID).Scan(&seq)
		if err != nil {
			return fmt.Errorf("allocate invoice number: %w", err)
		}
		inv.Number = fmt.Sprintf("%s%06d", numberPrefix, seq)

		row := tx.QueryRow(ctx, `
			INSERT INTO invoices (owner_id, number,
				customer_name, customer_email, customer_phone, customer_address, customer_gstin,
				subtotal, total_vat, total_item_discount,
				overall_discount_type, overall_discount_value, overall_discount_amount,
				grand_total, without_vat, status, issue_date, due_date,
				payment_method, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			inv.OwnerID, inv.Number,
			inv.Customer.Name, inv.Customer.Email, inv.Customer.Phone, inv.Customer.Address, inv.Customer.GSTIN,
			inv.Subtotal.String(), inv.TotalVAT.String(), inv.TotalItemDiscount.String(),
			string(inv.OverallDiscountType), inv.OverallDiscountValue.String(), inv.OverallDiscountAmount.String(),
			inv.GrandTotal.String(), inv.WithoutVAT, string(inv.Status), inv.IssueDate, inv.DueDate,
			inv.PaymentMethod, inv.Notes)
		if err := row.Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: invoice number %s already exists", httpx.ErrConflict, inv.Number)
			}
			return fmt.Errorf("insert invoice: %w", err)
		}

		if err := insertItems(ctx, tx, inv.ID, inv.Items); err != nil {
			return err
		}
		created = &inv
		return nil
	})
	if err != nil {
		return nil, classifyCreateError(err)
	}
	return r.Get(ctx, created.OwnerID, created.ID)
}

// classifyCreateError maps serialization aborts from racing creates to the
// retriable conflict sentinel; everything else passes through.
func classifyCreateError(err error) error {
	if isSerializationFailure(err) {
		return fmt.Errorf("%w: concurrent invoice create aborted, retry", httpx.ErrConflict)
	}
	return err
}

func insertItems(ctx context.Context, tx pgx.Tx, invoiceID int64, items []LineItem) error {
	for i, it := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO invoice_items (invoice_id, product_id, product_name, sku,
				quantity, unit_price, vat_rate, vat_amount,
				discount_type, discount_value, discount_amount, line_total, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			invoiceID, it.ProductID, it.ProductName, it.SKU,
			it.Quantity, it.UnitPrice.String(), it.VATRate.String(), it.VATAmount.String(),
			string(it.DiscountType), it.DiscountValue.String(), it.DiscountAmount.String(),
			it.LineTotal.String(), i+1)
		if err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}
	return nil
}

func (r *repository) Get(ctx context.Context, ownerID, id int64) (*Invoice, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE owner_id = $1 AND id = $2`, ownerID, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
		}
		return nil, err
	}
	items, err := r.listItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

func (r *repository) listItems(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, product_id, product_name, sku,
			quantity, unit_price, vat_rate, vat_amount,
			discount_type, discount_value, discount_amount, line_total, position
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var it LineItem
		var unitPrice, vatRate, vatAmount, discountValue, discountAmount, lineTotal pgtype.Numeric
		var discountType string
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.ProductName, &it.SKU,
			&it.Quantity, &unitPrice, &vatRate, &vatAmount,
			&discountType, &discountValue, &discountAmount, &lineTotal, &it.Position); err != nil {
			return nil, err
		}
		it.UnitPrice = numericToDecimal(unitPrice)
		it.VATRate = numericToDecimal(vatRate)
		it.VATAmount = numericToDecimal(vatAmount)
		it.DiscountType = DiscountType(discountType)
		it.DiscountValue = numericToDecimal(discountValue)
		it.DiscountAmount = numericToDecimal(discountAmount)
		it.LineTotal = numericToDecimal(lineTotal)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, ownerID int64, req ListInvoicesRequest) ([]Invoice, int, error) {
	where := "WHERE owner_id = $1"
	args := []any{ownerID}
	if req.Status != nil {
		// Overdue is a projection over sent invoices, so filter on due date.
		switch *req.Status {
		case StatusOverdue:
			where += " AND status = 'sent' AND due_date < NOW()"
		case StatusSent:
			where += " AND status = 'sent' AND due_date >= NOW()"
		default:
			args = append(args, string(*req.Status))
			where += fmt.Sprintf(" AND status = $%d", len(args))
		}
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, req.Offset)
	query := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range invoices {
		items, err := r.listItems(ctx, invoices[i].ID)
		if err != nil {
			return nil, 0, err
		}
		invoices[i].Items = items
	}
	return invoices, total, nil
}

// Update replaces the priced fields and line items of an invoice. The number
// and customer snapshot are immutable; draft-only enforcement lives in the
// service.
func (r *repository) Update(ctx context.Context, inv Invoice) (*Invoice, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE invoices SET
				subtotal = $3, total_vat = $4, total_item_discount = $5,
				overall_discount_type = $6, overall_discount_value = $7, overall_discount_amount = $8,
				grand_total = $9, without_vat = $10, issue_date = $11, due_date = $12,
				payment_method = $13, notes = $14, updated_at = NOW()
			WHERE owner_id = $1 AND id = $2`,
			inv.OwnerID, inv.ID,
			inv.Subtotal.String(), inv.TotalVAT.String(), inv.TotalItemDiscount.String(),
			string(inv.OverallDiscountType), inv.OverallDiscountValue.String(), inv.OverallDiscountAmount.String(),
			inv.GrandTotal.String(), inv.WithoutVAT, inv.IssueDate, inv.DueDate,
			inv.PaymentMethod, inv.Notes)
		if err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, inv.ID)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
			return fmt.Errorf("delete invoice items: %w", err)
		}
		return insertItems(ctx, tx, inv.ID, inv.Items)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, inv.OwnerID, inv.ID)
}

func (r *repository) UpdateStatus(ctx context.Context, ownerID, id int64, status Status, paidDate *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE invoices SET status = $3, paid_date = COALESCE($4, paid_date), updated_at = NOW()
		WHERE owner_id = $1 AND id = $2`, ownerID, id, string(status), paidDate)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
	}
	return nil
}

// Delete removes an invoice in any status. The counter is untouched so the
// number is never reissued.
func (r *repository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invoices WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
	}
	return nil
}

// PeekNextNumber previews the next number without consuming it. Advisory: it
// may race with concurrent creates.
func (r *repository) PeekNextNumber(ctx context.Context, ownerID int64) (string, error) {
	var seq int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE((SELECT seq FROM invoice_counters WHERE owner_id = $1), 0) + 1`, ownerID).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("peek invoice number: %w", err)
	}
	return fmt.Sprintf("%s%06d", numberPrefix, seq), nil
}

func (r *repository) Stats(ctx context.Context, ownerID int64, now time.Time) (Stats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT CASE WHEN status = 'sent' AND due_date < $2 THEN 'overdue' ELSE status END AS display_status,
			COUNT(*), COALESCE(SUM(grand_total), 0)
		FROM invoices WHERE owner_id = $1
		GROUP BY display_status`, ownerID, now)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	stats := Stats{TotalAmount: decimal.Zero, ByStatus: make(map[Status]StatusStat)}
	for rows.Next() {
		var status string
		var count int
		var amount pgtype.Numeric
		if err := rows.Scan(&status, &count, &amount); err != nil {
			return Stats{}, err
		}
		sum := numericToDecimal(amount)
		stats.ByStatus[Status(status)] = StatusStat{Count: count, Amount: sum}
		stats.TotalCount += count
		stats.TotalAmount = stats.TotalAmount.Add(sum)
	}
	return stats, rows.Err()
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var subtotal, totalVAT, totalItemDiscount, overallValue, overallAmount, grandTotal pgtype.Numeric
	var overallType, status string
	var paidDate pgtype.Timestamptz
	err := row.Scan(&inv.ID, &inv.OwnerID, &inv.Number,
		&inv.Customer.Name, &inv.Customer.Email, &inv.Customer.Phone, &inv.Customer.Address, &inv.Customer.GSTIN,
		&subtotal, &totalVAT, &totalItemDiscount,
		&overallType, &overallValue, &overallAmount,
		&grandTotal, &inv.WithoutVAT, &status, &inv.IssueDate, &inv.DueDate, &paidDate,
		&inv.PaymentMethod, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.Subtotal = numericToDecimal(subtotal)
	inv.TotalVAT = numericToDecimal(totalVAT)
	inv.TotalItemDiscount = numericToDecimal(totalItemDiscount)
	inv.OverallDiscountType = DiscountType(overallType)
	inv.OverallDiscountValue = numericToDecimal(overallValue)
	inv.OverallDiscountAmount = numericToDecimal(overallAmount)
	inv.GrandTotal = numericToDecimal(grandTotal)
	inv.Status = Status(status)
	if paidDate.Valid {
		t := paidDate.Time
		inv.PaidDate = &t
	}
	return &inv, nil
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

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}
