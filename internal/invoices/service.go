package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// CustomerDirectory resolves the customer snapshot frozen onto a new invoice.
type CustomerDirectory interface {
	Snapshot(ctx context.Context, ownerID, customerID int64) (CustomerSnapshot, error)
}

// ProductSnapshot is the catalog data copied onto a line item.
type ProductSnapshot struct {
	Name string
	SKU  string
}

// ProductDirectory resolves product snapshots for line items.
type ProductDirectory interface {
	Snapshot(ctx context.Context, ownerID, productID int64) (ProductSnapshot, error)
}

// PDFRenderer converts rendered invoice HTML into a PDF document.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Notifier dispatches follow-up work after a status change.
type Notifier interface {
	InvoiceSent(ctx context.Context, ownerID, invoiceID int64) error
}

// Service implements the invoice engine on top of the repository.
type Service struct {
	repo      Repository
	customers CustomerDirectory
	products  ProductDirectory
	cache     *StatsCache
	renderer  PDFRenderer
	notifier  Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a Service. Cache, renderer and notifier are optional.
func NewService(repo Repository, customers CustomerDirectory, products ProductDirectory,
	cache *StatsCache, renderer PDFRenderer, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		customers: customers,
		products:  products,
		cache:     cache,
		renderer:  renderer,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// priceItems runs every line through the calculator, resolving product
// snapshots first. All validation happens before any persistence write.
func (s *Service) priceItems(ctx context.Context, ownerID int64, reqs []CreateLineItemRequest, withoutVAT bool) ([]LineItem, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: invoice requires at least one line item", httpx.ErrValidation)
	}
	items := make([]LineItem, 0, len(reqs))
	for i, lr := range reqs {
		snap, err := s.products.Snapshot(ctx, ownerID, lr.ProductID)
		if err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				return nil, fmt.Errorf("%w: line %d references unknown product %d", httpx.ErrValidation, i+1, lr.ProductID)
			}
			return nil, fmt.Errorf("resolve product %d: %w", lr.ProductID, err)
		}
		item, err := PriceLine(LineInput{
			ProductID:     lr.ProductID,
			ProductName:   snap.Name,
			SKU:           snap.SKU,
			Quantity:      lr.Quantity,
			UnitPrice:     lr.UnitPrice,
			VATRate:       lr.VATRate,
			DiscountType:  lr.DiscountType,
			DiscountValue: lr.DiscountValue,
		}, withoutVAT)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		item.Position = i + 1
		items = append(items, item)
	}
	return items, nil
}

// Create prices the request, snapshots the customer and persists the invoice
// with a freshly allocated number, in status draft.
func (s *Service) Create(ctx context.Context, ownerID int64, req CreateInvoiceRequest) (*Invoice, error) {
	if !req.DueDate.After(req.IssueDate) {
		return nil, fmt.Errorf("%w: due date must be after issue date", httpx.ErrValidation)
	}

	customer, err := s.customers.Snapshot(ctx, ownerID, req.CustomerID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown customer %d", httpx.ErrValidation, req.CustomerID)
		}
		return nil, fmt.Errorf("resolve customer: %w", err)
	}

	items, err := s.priceItems(ctx, ownerID, req.Items, req.WithoutVAT)
	if err != nil {
		return nil, err
	}
	totals, err := Aggregate(items, req.OverallDiscountType, req.OverallDiscountValue, req.WithoutVAT)
	if err != nil {
		return nil, err
	}

	inv := Invoice{
		OwnerID:               ownerID,
		Customer:              customer,
		Items:                 items,
		Subtotal:              totals.Subtotal,
		TotalVAT:              totals.TotalVAT,
		TotalItemDiscount:     totals.TotalItemDiscount,
		OverallDiscountType:   normaliseDiscountType(req.OverallDiscountType),
		OverallDiscountValue:  req.OverallDiscountValue,
		OverallDiscountAmount: totals.OverallDiscountAmount,
		GrandTotal:            totals.GrandTotal,
		WithoutVAT:            req.WithoutVAT,
		Status:                StatusDraft,
		IssueDate:             req.IssueDate,
		DueDate:               req.DueDate,
		PaymentMethod:         req.PaymentMethod,
		Notes:                 req.Notes,
	}

	created, err := s.repo.Create(ctx, inv)
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, ownerID)
	return created, nil
}

// Update re-prices a draft invoice in full. Number, customer snapshot and
// status are untouched.
func (s *Service) Update(ctx context.Context, ownerID, id int64, req UpdateInvoiceRequest) (*Invoice, error) {
	existing, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusDraft {
		return nil, fmt.Errorf("%w: only draft invoices can be re-priced", httpx.ErrState)
	}

	issueDate := existing.IssueDate
	if req.IssueDate != nil {
		issueDate = *req.IssueDate
	}
	dueDate := existing.DueDate
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}
	if !dueDate.After(issueDate) {
		return nil, fmt.Errorf("%w: due date must be after issue date", httpx.ErrValidation)
	}

	items, err := s.priceItems(ctx, ownerID, req.Items, req.WithoutVAT)
	if err != nil {
		return nil, err
	}
	totals, err := Aggregate(items, req.OverallDiscountType, req.OverallDiscountValue, req.WithoutVAT)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Items = items
	updated.Subtotal = totals.Subtotal
	updated.TotalVAT = totals.TotalVAT
	updated.TotalItemDiscount = totals.TotalItemDiscount
	updated.OverallDiscountType = normaliseDiscountType(req.OverallDiscountType)
	updated.OverallDiscountValue = req.OverallDiscountValue
	updated.OverallDiscountAmount = totals.OverallDiscountAmount
	updated.GrandTotal = totals.GrandTotal
	updated.WithoutVAT = req.WithoutVAT
	updated.IssueDate = issueDate
	updated.DueDate = dueDate
	if req.PaymentMethod != nil {
		updated.PaymentMethod = *req.PaymentMethod
	}
	if req.Notes != nil {
		updated.Notes = *req.Notes
	}

	result, err := s.repo.Update(ctx, updated)
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, ownerID)
	return result, nil
}

// UpdateStatus applies a client-requested transition, validated against the
// persisted status re-read here, not one the client claims.
func (s *Service) UpdateStatus(ctx context.Context, ownerID, id int64, target Status) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := Transition(inv, target, now); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, ownerID, id, inv.Status, inv.PaidDate); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, ownerID)

	if target == StatusSent && s.notifier != nil {
		if err := s.notifier.InvoiceSent(ctx, ownerID, id); err != nil {
			s.logger.Warn("enqueue invoice sent notification", slog.Any("error", err), slog.Int64("invoice_id", id))
		}
	}
	return s.repo.Get(ctx, ownerID, id)
}

// Get fetches one invoice, owner-scoped.
func (s *Service) Get(ctx context.Context, ownerID, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// List returns a page of the owner's invoices.
func (s *Service) List(ctx context.Context, ownerID int64, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.List(ctx, ownerID, req)
}

// Delete removes an invoice in any status. The allocated number stays burnt.
func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.invalidateStats(ctx, ownerID)
	return nil
}

// PeekNextNumber previews the next invoice number without consuming it.
func (s *Service) PeekNextNumber(ctx context.Context, ownerID int64) (string, error) {
	return s.repo.PeekNextNumber(ctx, ownerID)
}

// Stats aggregates counts and amounts by display status, cached briefly.
func (s *Service) Stats(ctx context.Context, ownerID int64) (Stats, error) {
	now := s.now()
	if s.cache == nil {
		return s.repo.Stats(ctx, ownerID, now)
	}
	return s.cache.Fetch(ctx, ownerID, func(ctx context.Context) (Stats, error) {
		return s.repo.Stats(ctx, ownerID, now)
	})
}

// RenderPDF hands the priced invoice snapshot to the external renderer.
func (s *Service) RenderPDF(ctx context.Context, ownerID, id int64) ([]byte, error) {
	if s.renderer == nil {
		return nil, errors.New("invoices: pdf renderer not configured")
	}
	inv, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	html, err := renderInvoiceHTML(inv, s.now())
	if err != nil {
		return nil, fmt.Errorf("render invoice html: %w", err)
	}
	return s.renderer.RenderHTML(ctx, html)
}

// Now exposes the service clock for projections at the HTTP edge.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) invalidateStats(ctx context.Context, ownerID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ownerID); err != nil {
		s.logger.Warn("invalidate stats cache", slog.Any("error", err), slog.Int64("owner_id", ownerID))
	}
}
