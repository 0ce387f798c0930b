package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateLineItemRequest carries one raw line item. Derived fields
// (discountAmount, vatAmount, lineTotal) are intentionally absent: the
// server recomputes them and would discard client-supplied values anyway.
type CreateLineItemRequest struct {
	ProductID     int64           `json:"productId" validate:"required,gt=0"`
	Quantity      int64           `json:"quantity" validate:"required,gte=1"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	VATRate       decimal.Decimal `json:"vatRate"`
	DiscountType  DiscountType    `json:"discountType" validate:"omitempty,oneof=none percentage flat"`
	DiscountValue decimal.Decimal `json:"discountValue"`
}

// CreateInvoiceRequest is the POST /invoices payload.
type CreateInvoiceRequest struct {
	CustomerID           int64                   `json:"customerId" validate:"required,gt=0"`
	Items                []CreateLineItemRequest `json:"items" validate:"required,min=1,dive"`
	OverallDiscountType  DiscountType            `json:"overallDiscountType" validate:"omitempty,oneof=none percentage flat"`
	OverallDiscountValue decimal.Decimal         `json:"overallDiscountValue"`
	WithoutVAT           bool                    `json:"withoutVat"`
	IssueDate            time.Time               `json:"issueDate" validate:"required"`
	DueDate              time.Time               `json:"dueDate" validate:"required"`
	PaymentMethod        string                  `json:"paymentMethod" validate:"max=100"`
	Notes                string                  `json:"notes" validate:"max=2000"`
}

// UpdateInvoiceRequest re-prices a draft invoice. Same shape as create minus
// the customer reference, which is immutable after creation.
type UpdateInvoiceRequest struct {
	Items                []CreateLineItemRequest `json:"items" validate:"required,min=1,dive"`
	OverallDiscountType  DiscountType            `json:"overallDiscountType" validate:"omitempty,oneof=none percentage flat"`
	OverallDiscountValue decimal.Decimal         `json:"overallDiscountValue"`
	WithoutVAT           bool                    `json:"withoutVat"`
	IssueDate            *time.Time              `json:"issueDate"`
	DueDate              *time.Time              `json:"dueDate"`
	PaymentMethod        *string                 `json:"paymentMethod" validate:"omitempty,max=100"`
	Notes                *string                 `json:"notes" validate:"omitempty,max=2000"`
}

// UpdateStatusRequest is the PATCH /invoices/{id}/status payload.
type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}

// ListInvoicesRequest captures list filters.
type ListInvoicesRequest struct {
	Status *Status
	Limit  int
	Offset int
}

// LineItemResponse serialises a priced line. Monetary fields round to two
// places here and nowhere earlier.
type LineItemResponse struct {
	ID             int64  `json:"id"`
	ProductID      int64  `json:"productId"`
	ProductName    string `json:"productName"`
	SKU            string `json:"sku"`
	Quantity       int64  `json:"quantity"`
	UnitPrice      string `json:"unitPrice"`
	VATRate        string `json:"vatRate"`
	VATAmount      string `json:"vatAmount"`
	DiscountType   string `json:"discountType"`
	DiscountValue  string `json:"discountValue"`
	DiscountAmount string `json:"discountAmount"`
	LineTotal      string `json:"lineTotal"`
}

// CustomerSnapshotResponse serialises the frozen customer data.
type CustomerSnapshotResponse struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	GSTIN   string `json:"gstin"`
}

// InvoiceResponse serialises a full invoice. Status carries the display
// projection, so a past-due sent invoice reads as overdue without a write.
type InvoiceResponse struct {
	ID                    int64                    `json:"id"`
	Number                string                   `json:"invoiceNumber"`
	Customer              CustomerSnapshotResponse `json:"customer"`
	Items                 []LineItemResponse       `json:"items"`
	Subtotal              string                   `json:"subtotal"`
	TotalVAT              string                   `json:"totalVat"`
	TotalItemDiscount     string                   `json:"totalItemDiscount"`
	OverallDiscountType   string                   `json:"overallDiscountType"`
	OverallDiscountValue  string                   `json:"overallDiscountValue"`
	OverallDiscountAmount string                   `json:"overallDiscountAmount"`
	GrandTotal            string                   `json:"grandTotal"`
	WithoutVAT            bool                     `json:"withoutVat"`
	Status                Status                   `json:"status"`
	IssueDate             time.Time                `json:"issueDate"`
	DueDate               time.Time                `json:"dueDate"`
	PaidDate              *time.Time               `json:"paidDate,omitempty"`
	PaymentMethod         string                   `json:"paymentMethod,omitempty"`
	Notes                 string                   `json:"notes,omitempty"`
	CreatedAt             time.Time                `json:"createdAt"`
	UpdatedAt             time.Time                `json:"updatedAt"`
}

// ListInvoicesResponse wraps a page of invoices.
type ListInvoicesResponse struct {
	Invoices []InvoiceResponse `json:"invoices"`
	Total    int               `json:"total"`
}

// NextNumberResponse previews the next invoice number. Advisory only: a
// concurrent create may consume the number before the caller does.
type NextNumberResponse struct {
	NextNumber string `json:"nextNumber"`
}

// StatusStatResponse is one stats bucket.
type StatusStatResponse struct {
	Count  int    `json:"count"`
	Amount string `json:"amount"`
}

// StatsResponse aggregates counts and amounts by display status.
type StatsResponse struct {
	TotalCount  int                           `json:"totalCount"`
	TotalAmount string                        `json:"totalAmount"`
	ByStatus    map[Status]StatusStatResponse `json:"byStatus"`
}

func toLineItemResponse(it LineItem) LineItemResponse {
	return LineItemResponse{
		ID:             it.ID,
		ProductID:      it.ProductID,
		ProductName:    it.ProductName,
		SKU:            it.SKU,
		Quantity:       it.Quantity,
		UnitPrice:      it.UnitPrice.StringFixed(2),
		VATRate:        it.VATRate.StringFixed(2),
		VATAmount:      it.VATAmount.StringFixed(2),
		DiscountType:   string(it.DiscountType),
		DiscountValue:  it.DiscountValue.StringFixed(2),
		DiscountAmount: it.DiscountAmount.StringFixed(2),
		LineTotal:      it.LineTotal.StringFixed(2),
	}
}

// ToResponse projects an invoice for serialisation at the given time.
func ToResponse(inv *Invoice, now time.Time) InvoiceResponse {
	items := make([]LineItemResponse, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, toLineItemResponse(it))
	}
	return InvoiceResponse{
		ID:     inv.ID,
		Number: inv.Number,
		Customer: CustomerSnapshotResponse{
			Name:    inv.Customer.Name,
			Email:   inv.Customer.Email,
			Phone:   inv.Customer.Phone,
			Address: inv.Customer.Address,
			GSTIN:   inv.Customer.GSTIN,
		},
		Items:                 items,
		Subtotal:              inv.Subtotal.StringFixed(2),
		TotalVAT:              inv.TotalVAT.StringFixed(2),
		TotalItemDiscount:     inv.TotalItemDiscount.StringFixed(2),
		OverallDiscountType:   string(inv.OverallDiscountType),
		OverallDiscountValue:  inv.OverallDiscountValue.StringFixed(2),
		OverallDiscountAmount: inv.OverallDiscountAmount.StringFixed(2),
		GrandTotal:            inv.GrandTotal.StringFixed(2),
		WithoutVAT:            inv.WithoutVAT,
		Status:                inv.DisplayStatus(now),
		IssueDate:             inv.IssueDate,
		DueDate:               inv.DueDate,
		PaidDate:              inv.PaidDate,
		PaymentMethod:         inv.PaymentMethod,
		Notes:                 inv.Notes,
		CreatedAt:             inv.CreatedAt,
		UpdatedAt:             inv.UpdatedAt,
	}
}

// ToStatsResponse rounds the aggregate amounts for serialisation.
func ToStatsResponse(s Stats) StatsResponse {
	out := StatsResponse{
		TotalCount:  s.TotalCount,
		TotalAmount: s.TotalAmount.StringFixed(2),
		ByStatus:    make(map[Status]StatusStatResponse, len(s.ByStatus)),
	}
	for status, stat := range s.ByStatus {
		out.ByStatus[status] = StatusStatResponse{Count: stat.Count, Amount: stat.Amount.StringFixed(2)}
	}
	return out
}
