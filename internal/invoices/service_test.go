package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

type memoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	counters map[int64]int64
	invoices map[int64]*Invoice
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		counters: make(map[int64]int64),
		invoices: make(map[int64]*Invoice),
	}
}

func (r *memoryRepo) Create(ctx context.Context, inv Invoice) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[inv.OwnerID]++
	inv.Number = fmt.Sprintf("%s%06d", numberPrefix, r.counters[inv.OwnerID])
	r.nextID++
	inv.ID = r.nextID
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	stored := inv
	r.invoices[inv.ID] = &stored
	out := inv
	return &out, nil
}

func (r *memoryRepo) Get(ctx context.Context, ownerID, id int64) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
	}
	out := *inv
	return &out, nil
}

func (r *memoryRepo) List(ctx context.Context, ownerID int64, req ListInvoicesRequest) ([]Invoice, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invoice
	for _, inv := range r.invoices {
		if inv.OwnerID != ownerID {
			continue
		}
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Update(ctx context.Context, inv Invoice) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.invoices[inv.ID]
	if !ok || existing.OwnerID != inv.OwnerID {
		return nil, fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, inv.ID)
	}
	inv.Number = existing.Number
	inv.Status = existing.Status
	stored := inv
	r.invoices[inv.ID] = &stored
	out := inv
	return &out, nil
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, ownerID, id int64, status Status, paidDate *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
	}
	inv.Status = status
	if paidDate != nil {
		inv.PaidDate = paidDate
	}
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, ownerID, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return fmt.Errorf("%w: invoice %d", httpx.ErrNotFound, id)
	}
	delete(r.invoices, id)
	return nil
}

func (r *memoryRepo) PeekNextNumber(ctx context.Context, ownerID int64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("%s%06d", numberPrefix, r.counters[ownerID]+1), nil
}

func (r *memoryRepo) Stats(ctx context.Context, ownerID int64, now time.Time) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := Stats{TotalAmount: decimal.Zero, ByStatus: make(map[Status]StatusStat)}
	for _, inv := range r.invoices {
		if inv.OwnerID != ownerID {
			continue
		}
		status := inv.DisplayStatus(now)
		stat := stats.ByStatus[status]
		stat.Count++
		stat.Amount = stat.Amount.Add(inv.GrandTotal)
		stats.ByStatus[status] = stat
		stats.TotalCount++
		stats.TotalAmount = stats.TotalAmount.Add(inv.GrandTotal)
	}
	return stats, nil
}

type staticCustomers struct {
	known map[int64]CustomerSnapshot
}

func (d staticCustomers) Snapshot(ctx context.Context, ownerID, customerID int64) (CustomerSnapshot, error) {
	snap, ok := d.known[customerID]
	if !ok {
		return CustomerSnapshot{}, fmt.Errorf("%w: customer %d", httpx.ErrNotFound, customerID)
	}
	return snap, nil
}

type staticProducts struct {
	known map[int64]ProductSnapshot
}

func (d staticProducts) Snapshot(ctx context.Context, ownerID, productID int64) (ProductSnapshot, error) {
	snap, ok := d.known[productID]
	if !ok {
		return ProductSnapshot{}, fmt.Errorf("%w: product %d", httpx.ErrNotFound, productID)
	}
	return snap, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []int64
}

func (n *recordingNotifier) InvoiceSent(ctx context.Context, ownerID, invoiceID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, invoiceID)
	return nil
}

func newTestService(repo Repository, notifier Notifier) *Service {
	customers := staticCustomers{known: map[int64]CustomerSnapshot{
		7: {Name: "Acme GmbH", Email: "billing@acme.test"},
	}}
	products := staticProducts{known: map[int64]ProductSnapshot{
		1: {Name: "Widget", SKU: "WID-1"},
		2: {Name: "Gadget", SKU: "GAD-2"},
	}}
	return NewService(repo, customers, products, nil, nil, notifier, slog.Default())
}

func validCreateRequest() CreateInvoiceRequest {
	issue := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return CreateInvoiceRequest{
		CustomerID: 7,
		Items: []CreateLineItemRequest{
			{ProductID: 1, Quantity: 2, UnitPrice: dec("500"), VATRate: dec("10"), DiscountType: DiscountFlat, DiscountValue: dec("100")},
		},
		IssueDate: issue,
		DueDate:   issue.AddDate(0, 0, 14),
	}
}

func TestServiceCreate(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)

	inv, err := svc.Create(context.Background(), 1, validCreateRequest())
	require.NoError(t, err)

	require.Equal(t, "INV-000001", inv.Number)
	require.Equal(t, StatusDraft, inv.Status)
	require.Equal(t, "Acme GmbH", inv.Customer.Name)
	require.Len(t, inv.Items, 1)
	require.Equal(t, "Widget", inv.Items[0].ProductName)
	require.True(t, inv.GrandTotal.Equal(dec("990")), "grand = %s", inv.GrandTotal)
	require.True(t, inv.TotalVAT.Equal(dec("90")))
}

func TestServiceCreateRejectsBadDates(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	req := validCreateRequest()
	req.DueDate = req.IssueDate
	_, err := svc.Create(context.Background(), 1, req)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestServiceCreateUnknownCustomer(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	req := validCreateRequest()
	req.CustomerID = 404
	_, err := svc.Create(context.Background(), 1, req)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestServiceCreateUnknownProduct(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	req := validCreateRequest()
	req.Items[0].ProductID = 404
	_, err := svc.Create(context.Background(), 1, req)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

// Concurrent creates for the same owner must each get their own number.
func TestServiceCreateConcurrentNumbersDistinct(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)

	const n = 20
	var wg sync.WaitGroup
	numbers := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv, err := svc.Create(context.Background(), 1, validCreateRequest())
			if err != nil {
				errs <- err
				return
			}
			numbers <- inv.Number
		}()
	}
	wg.Wait()
	close(numbers)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[string]bool, n)
	for num := range numbers {
		require.False(t, seen[num], "number %s issued twice", num)
		seen[num] = true
	}
	require.Len(t, seen, n)
}

func TestServiceNumberSurvivesDelete(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, 1, validCreateRequest())
	require.NoError(t, err)
	require.Equal(t, "INV-000001", first.Number)

	require.NoError(t, svc.Delete(ctx, 1, first.ID))

	second, err := svc.Create(ctx, 1, validCreateRequest())
	require.NoError(t, err)
	require.Equal(t, "INV-000002", second.Number, "deleted number must not be reissued")
}

func TestServicePeekNextNumberDoesNotConsume(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	ctx := context.Background()

	next, err := svc.PeekNextNumber(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "INV-000001", next)

	again, err := svc.PeekNextNumber(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, next, again)

	inv, err := svc.Create(ctx, 1, validCreateRequest())
	require.NoError(t, err)
	require.Equal(t, next, inv.Number)
}

func TestServiceNumbersScopedPerOwner(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	ctx := context.Background()

	a, err := svc.Create(ctx, 1, validCreateRequest())
	require.NoError(t, err)
	b, err := svc.Create(ctx, 2, validCreateRequest())
	require.NoError(t, err)

	require.Equal(t, "INV-000001", a.Number)
	require.Equal(t, "INV-000001", b.Number)
}

func TestServiceUpdateDraftOnly(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	inv, err := svc.Create(ctx, 1, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, 1, inv.ID, StatusSent)
	require.NoError(t, err)

	_, err = svc.Update(ctx, 1, inv.ID, UpdateInvoiceRequest{
		Items: []CreateLineItemRequest{{ProductID: 1, Quantity: 1, UnitPrice: dec("10")}},
	})
	require.ErrorIs(t, err, httpx.ErrState)
}

func TestServiceUpdateReprices(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	ctx := context.Background()

	inv, err := svc.Create(ctx, 1, validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, 1, inv.ID, UpdateInvoiceRequest{
		Items: []CreateLineItemRequest{
			{ProductID: 2, Quantity: 3, UnitPrice: dec("200"), VATRate: dec("20"), DiscountType: DiscountPercentage, DiscountValue: dec("25")},
		},
	})
	require.NoError(t, err)

	require.Equal(t, inv.Number, updated.Number, "number is immutable")
	require.Len(t, updated.Items, 1)
	require.Equal(t, "Gadget", updated.Items[0].ProductName)
	require.True(t, updated.GrandTotal.Equal(dec("540")), "grand = %s", updated.GrandTotal)
}

func TestServiceUpdateStatusStampsPaidDate(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	ctx := context.Background()

	inv, err := svc.Create(ctx, 1, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, 1, inv.ID, StatusSent)
	require.NoError(t, err)

	paid, err := svc.UpdateStatus(ctx, 1, inv.ID, StatusPaid)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidDate)
}

func TestServiceUpdateStatusValidatesPersistedStatus(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	ctx := context.Background()

	inv, err := svc.Create(ctx, 1, validCreateRequest())
	require.NoError(t, err)

	// draft -> paid skips sent and must be rejected.
	_, err = svc.UpdateStatus(ctx, 1, inv.ID, StatusPaid)
	require.ErrorIs(t, err, httpx.ErrState)
}

func TestServiceUpdateStatusNotifiesOnSent(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := newTestService(newMemoryRepo(), notifier)
	ctx := context.Background()

	inv, err := svc.Create(ctx, 1, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, 1, inv.ID, StatusSent)
	require.NoError(t, err)
	require.Equal(t, []int64{inv.ID}, notifier.sent)

	_, err = svc.UpdateStatus(ctx, 1, inv.ID, StatusPaid)
	require.NoError(t, err)
	require.Len(t, notifier.sent, 1, "only the sent transition notifies")
}

func TestServiceOverdueSettlement(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	ctx := context.Background()

	req := validCreateRequest()
	inv, err := svc.Create(ctx, 1, req)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, 1, inv.ID, StatusSent)
	require.NoError(t, err)

	// Move the clock past the due date; the invoice now reads overdue and
	// can still be paid.
	svc.now = func() time.Time { return req.DueDate.AddDate(0, 0, 30) }

	got, err := svc.Get(ctx, 1, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, got.DisplayStatus(svc.now()))
	require.Equal(t, StatusSent, got.Status, "overdue is never persisted")

	paid, err := svc.UpdateStatus(ctx, 1, inv.ID, StatusPaid)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
}

func TestServiceOwnershipIsolation(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	ctx := context.Background()

	inv, err := svc.Create(ctx, 1, validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Get(ctx, 2, inv.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, 2, inv.ID), httpx.ErrNotFound)
}

func TestServiceStatsBucketsByDisplayStatus(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	ctx := context.Background()

	req := validCreateRequest()

	draft, err := svc.Create(ctx, 1, req)
	require.NoError(t, err)
	_ = draft

	sent, err := svc.Create(ctx, 1, req)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, 1, sent.ID, StatusSent)
	require.NoError(t, err)

	svc.now = func() time.Time { return req.DueDate.AddDate(0, 0, 5) }

	stats, err := svc.Stats(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, stats.TotalCount)
	require.Equal(t, 1, stats.ByStatus[StatusDraft].Count)
	require.Equal(t, 1, stats.ByStatus[StatusOverdue].Count, "past-due sent invoice counts as overdue")
	require.Zero(t, stats.ByStatus[StatusSent].Count)
	require.True(t, stats.TotalAmount.Equal(dec("1980")))
}
