package invoices

import (
	"fmt"
	"time"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// transitions lists the legal client-requested status changes. Overdue never
// appears as a target: it is derived at read time, not requested. It appears
// as a source so a past-due sent invoice can still be settled or cancelled.
var transitions = map[Status]map[Status]bool{
	StatusDraft:   {StatusSent: true, StatusCancelled: true},
	StatusSent:    {StatusPaid: true, StatusCancelled: true},
	StatusOverdue: {StatusPaid: true, StatusCancelled: true},
}

// ValidStatus reports whether s names a known lifecycle state.
func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Transition validates a client-requested status change against the
// invoice's current persisted status and applies it, stamping PaidDate on
// payment. Paid and cancelled are terminal.
func Transition(inv *Invoice, target Status, now time.Time) error {
	if !ValidStatus(target) {
		return fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, target)
	}
	if target == StatusOverdue {
		return fmt.Errorf("%w: overdue is derived from the due date, not requestable", httpx.ErrState)
	}

	// Validate against the stored status, never a client-supplied one. The
	// stored status is never overdue, so the overdue row of the table is
	// reached through the display projection.
	from := inv.Status
	if inv.DisplayStatus(now) == StatusOverdue {
		from = StatusOverdue
	}

	if !transitions[from][target] {
		return fmt.Errorf("%w: cannot move invoice from %s to %s", httpx.ErrState, from, target)
	}

	inv.Status = target
	if target == StatusPaid {
		paidAt := now
		inv.PaidDate = &paidAt
	}
	inv.UpdatedAt = now
	return nil
}
