// Package catalog manages the product list. Line items copy the product name
// and SKU at invoice creation time, so later edits never touch old invoices.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product model.
type Product struct {
	ID                int64
	OwnerID           int64
	Name              string
	SKU               string
	Description       string
	UnitPrice         decimal.Decimal
	VATRate           decimal.Decimal
	Stock             int64
	LowStockThreshold int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LowOnStock reports whether the product sits at or below its threshold.
func (p Product) LowOnStock() bool {
	return p.LowStockThreshold > 0 && p.Stock <= p.LowStockThreshold
}
