package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRenderer struct {
	lastHTML string
}

func (r *stubRenderer) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	r.lastHTML = html
	return []byte("%PDF-1.7 stub"), nil
}

func TestRenderInvoiceHTML(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	inv := &Invoice{
		Number:   "INV-000042",
		Customer: CustomerSnapshot{Name: "Acme GmbH", GSTIN: "22AAAAA0000A1Z5"},
		Items: []LineItem{
			{ProductName: "Widget", SKU: "WID-1", Quantity: 2, UnitPrice: dec("500"),
				VATRate: dec("10"), VATAmount: dec("90"), DiscountType: DiscountFlat,
				DiscountValue: dec("100"), DiscountAmount: dec("100"), LineTotal: dec("990")},
		},
		Subtotal:          dec("1000"),
		TotalVAT:          dec("90"),
		TotalItemDiscount: dec("100"),
		GrandTotal:        dec("990"),
		Status:            StatusSent,
		IssueDate:         now.AddDate(0, 0, -10),
		DueDate:           now.AddDate(0, 0, 4),
	}

	html, err := renderInvoiceHTML(inv, now)
	require.NoError(t, err)
	require.Contains(t, html, "INV-000042")
	require.Contains(t, html, "Acme GmbH")
	require.Contains(t, html, "GSTIN: 22AAAAA0000A1Z5")
	require.Contains(t, html, "Widget")
	require.Contains(t, html, "990.00")
	require.Contains(t, html, "sent")
}

func TestRenderInvoiceHTMLEscapesContent(t *testing.T) {
	now := time.Now()
	inv := &Invoice{
		Number:    "INV-000001",
		Customer:  CustomerSnapshot{Name: "<script>alert(1)</script>"},
		Items:     []LineItem{{ProductName: "Widget", Quantity: 1, UnitPrice: dec("1"), LineTotal: dec("1")}},
		Status:    StatusDraft,
		IssueDate: now,
		DueDate:   now.AddDate(0, 0, 7),
	}
	html, err := renderInvoiceHTML(inv, now)
	require.NoError(t, err)
	require.NotContains(t, html, "<script>alert(1)</script>")
}

func TestServiceRenderPDF(t *testing.T) {
	renderer := &stubRenderer{}
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	svc.renderer = renderer
	ctx := context.Background()

	inv, err := svc.Create(ctx, 1, validCreateRequest())
	require.NoError(t, err)

	data, err := svc.RenderPDF(ctx, 1, inv.ID)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	require.Contains(t, renderer.lastHTML, inv.Number)
}

func TestServiceRenderPDFWithoutRenderer(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	_, err := svc.RenderPDF(context.Background(), 1, 1)
	require.Error(t, err)
}
