// Package jobs holds the background task definitions and the Asynq worker
// that processes them.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceSent fires when an invoice moves to sent and an email
	// notification should go out.
	TaskInvoiceSent = "invoice:sent"
	// TaskLowStockScan walks the catalog flagging products at or below
	// their low stock threshold.
	TaskLowStockScan = "catalog:low_stock_scan"
)

// InvoiceSentPayload identifies the invoice to notify about.
type InvoiceSentPayload struct {
	OwnerID   int64 `json:"ownerId"`
	InvoiceID int64 `json:"invoiceId"`
}

// NewInvoiceSentTask constructs the Asynq task for a sent invoice.
func NewInvoiceSentTask(payload InvoiceSentPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceSent, data), nil
}

// NewLowStockScanTask constructs the scheduled low stock scan task.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TaskLowStockScan, nil)
}

// Client submits jobs to the queue. It satisfies the invoice service's
// Notifier interface.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// InvoiceSent enqueues the notification task for an invoice that just moved
// to sent.
func (c *Client) InvoiceSent(ctx context.Context, ownerID, invoiceID int64) error {
	task, err := NewInvoiceSentTask(InvoiceSentPayload{OwnerID: ownerID, InvoiceID: invoiceID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
