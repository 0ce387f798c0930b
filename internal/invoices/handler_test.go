package invoices

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/auth"
)

func newTestRouter(svc *Service, ownerID int64) http.Handler {
	h := NewHandler(slog.Default(), svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.ContextWithOwner(req.Context(), ownerID)))
		})
	})
	r.Route("/invoices", h.MountRoutes)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateInvoice(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	router := newTestRouter(svc, 1)

	rec := doJSON(t, router, http.MethodPost, "/invoices", validCreateRequest())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp InvoiceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "INV-000001", resp.Number)
	require.Equal(t, StatusDraft, resp.Status)
	require.Equal(t, "990.00", resp.GrandTotal)
	require.Equal(t, "90.00", resp.TotalVAT)
	require.Len(t, resp.Items, 1)
	require.Equal(t, "990.00", resp.Items[0].LineTotal)
}

func TestHandlerCreateRejectsEmptyItems(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	router := newTestRouter(svc, 1)

	req := validCreateRequest()
	req.Items = nil
	rec := doJSON(t, router, http.MethodPost, "/invoices", req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGetProjectsOverdue(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	router := newTestRouter(svc, 1)
	ctx := context.Background()

	req := validCreateRequest()
	inv, err := svc.Create(ctx, 1, req)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, 1, inv.ID, StatusSent)
	require.NoError(t, err)

	svc.now = func() time.Time { return req.DueDate.AddDate(0, 1, 0) }

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/invoices/%d", inv.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp InvoiceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, StatusOverdue, resp.Status)
}

func TestHandlerIllegalTransitionConflict(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	router := newTestRouter(svc, 1)

	inv, err := svc.Create(context.Background(), 1, validCreateRequest())
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/invoices/%d/status", inv.ID),
		UpdateStatusRequest{Status: StatusPaid})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestHandlerRequestingOverdueRejected(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	router := newTestRouter(svc, 1)

	inv, err := svc.Create(context.Background(), 1, validCreateRequest())
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPatch, fmt.Sprintf("/invoices/%d/status", inv.ID),
		UpdateStatusRequest{Status: StatusOverdue})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandlerBadIDIsNotFound(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	router := newTestRouter(svc, 1)

	rec := doJSON(t, router, http.MethodGet, "/invoices/banana", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerOtherOwnersInvoiceIsNotFound(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)

	inv, err := svc.Create(context.Background(), 1, validCreateRequest())
	require.NoError(t, err)

	// Same service, different authenticated owner.
	router := newTestRouter(svc, 2)
	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/invoices/%d", inv.ID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerNextNumber(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	router := newTestRouter(svc, 1)

	rec := doJSON(t, router, http.MethodGet, "/invoices/next-number", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp NextNumberResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "INV-000001", resp.NextNumber)
}

func TestHandlerListFiltersByStatus(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	router := newTestRouter(svc, 1)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, validCreateRequest())
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/invoices?status=bogus", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/invoices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ListInvoicesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
}

func TestHandlerDelete(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	router := newTestRouter(svc, 1)
	ctx := context.Background()

	inv, err := svc.Create(ctx, 1, validCreateRequest())
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/invoices/%d", inv.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/invoices/%d", inv.ID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
