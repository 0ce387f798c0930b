// Package invoices implements the invoice pricing and lifecycle engine:
// line pricing, invoice totals, sequential number allocation and the
// status state machine.
package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType enumerates how a discount value is interpreted.
type DiscountType string

const (
	DiscountNone       DiscountType = "none"
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

// Status enumerates invoice lifecycle states.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSent      Status = "sent"
	StatusPaid      Status = "paid"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

// CustomerSnapshot is the customer contact data frozen onto the invoice at
// creation time. Later edits to the live customer record do not touch it.
type CustomerSnapshot struct {
	Name    string
	Email   string
	Phone   string
	Address string
	GSTIN   string
}

// LineItem is one priced product entry within an invoice. VATAmount,
// DiscountAmount and LineTotal are derived and always recomputed server-side.
type LineItem struct {
	ID             int64
	InvoiceID      int64
	ProductID      int64
	ProductName    string
	SKU            string
	Quantity       int64
	UnitPrice      decimal.Decimal
	VATRate        decimal.Decimal
	VATAmount      decimal.Decimal
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	DiscountAmount decimal.Decimal
	LineTotal      decimal.Decimal
	Position       int
}

// Invoice model.
type Invoice struct {
	ID                    int64
	OwnerID               int64
	Number                string
	Customer              CustomerSnapshot
	Items                 []LineItem
	Subtotal              decimal.Decimal
	TotalVAT              decimal.Decimal
	TotalItemDiscount     decimal.Decimal
	OverallDiscountType   DiscountType
	OverallDiscountValue  decimal.Decimal
	OverallDiscountAmount decimal.Decimal
	GrandTotal            decimal.Decimal
	WithoutVAT            bool
	Status                Status
	IssueDate             time.Time
	DueDate               time.Time
	PaidDate              *time.Time
	PaymentMethod         string
	Notes                 string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// DisplayStatus projects the stored status for presentation: a sent invoice
// past its due date reads as overdue. The projection is never persisted, so
// the stored state machine only ever holds client-driven states. Drafts are
// excluded because they have not been issued.
func (inv *Invoice) DisplayStatus(now time.Time) Status {
	if inv.Status == StatusSent && inv.DueDate.Before(now) {
		return StatusOverdue
	}
	return inv.Status
}

// StatusStat aggregates one display-status bucket for the stats endpoint.
type StatusStat struct {
	Count  int
	Amount decimal.Decimal
}

// Stats summarises an owner's invoices by display status.
type Stats struct {
	TotalCount  int
	TotalAmount decimal.Decimal
	ByStatus    map[Status]StatusStat
}
