package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ledgerline/ledgerline/internal/invoices"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// InvoiceSentJob emails the customer when an invoice is sent. Delivery is a
// structured log line until an SMTP relay is configured.
type InvoiceSentJob struct {
	Repo   invoices.Repository
	Logger *slog.Logger
}

// NewInvoiceSentJob initialises the handler.
func NewInvoiceSentJob(repo invoices.Repository, logger *slog.Logger) *InvoiceSentJob {
	return &InvoiceSentJob{Repo: repo, Logger: logger}
}

// Handle processes TaskInvoiceSent tasks.
func (j *InvoiceSentJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Repo == nil {
		return errors.New("invoice sent: handler not configured")
	}
	var payload InvoiceSentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	inv, err := j.Repo.Get(ctx, payload.OwnerID, payload.InvoiceID)
	if err != nil {
		// The invoice may have been deleted between enqueue and run.
		if errors.Is(err, httpx.ErrNotFound) {
			return asynq.SkipRetry
		}
		return err
	}
	if inv.Customer.Email == "" {
		j.Logger.Info("invoice sent, customer has no email",
			slog.String("number", inv.Number),
			slog.Int64("invoice_id", inv.ID))
		return nil
	}

	j.Logger.Info("invoice sent notification",
		slog.String("number", inv.Number),
		slog.String("to", inv.Customer.Email),
		slog.String("grand_total", inv.GrandTotal.StringFixed(2)),
		slog.Int64("invoice_id", inv.ID))
	return nil
}
