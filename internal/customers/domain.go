// Package customers provides owner-scoped customer records. Invoices copy a
// snapshot of these fields at creation time and never read back.
package customers

import "time"

// Customer model.
type Customer struct {
	ID        int64
	OwnerID   int64
	Name      string
	Email     string
	Phone     string
	Address   string
	GSTIN     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
