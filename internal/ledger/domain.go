// Package ledger records simple income and expense transactions and produces
// period summaries. It is a cash book, not double-entry accounting.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a transaction.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// ValidKind reports whether k is a known transaction kind.
func ValidKind(k Kind) bool {
	return k == KindIncome || k == KindExpense
}

// Transaction model.
type Transaction struct {
	ID          int64
	OwnerID     int64
	Kind        Kind
	Category    string
	Description string
	Amount      decimal.Decimal
	OccurredAt  time.Time
	CreatedAt   time.Time
}

// Summary aggregates a period.
type Summary struct {
	From    time.Time
	To      time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}
