package catalog

import (
	"context"

	"github.com/ledgerline/ledgerline/internal/invoices"
)

// Service wraps the repository and exposes the product snapshot lookup used
// by the invoice engine.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, p Product) (*Product, error) {
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, ownerID, id int64) (*Product, error) {
	return s.repo.Get(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID int64, limit, offset int) ([]Product, int, error) {
	return s.repo.List(ctx, ownerID, limit, offset)
}

func (s *Service) Update(ctx context.Context, p Product) (*Product, error) {
	return s.repo.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	return s.repo.Delete(ctx, ownerID, id)
}

func (s *Service) AdjustStock(ctx context.Context, ownerID, id, delta int64) (*Product, error) {
	return s.repo.AdjustStock(ctx, ownerID, id, delta)
}

func (s *Service) LowStock(ctx context.Context, ownerID int64) ([]Product, error) {
	return s.repo.LowStock(ctx, ownerID)
}

// Snapshot implements invoices.ProductDirectory.
func (s *Service) Snapshot(ctx context.Context, ownerID, productID int64) (invoices.ProductSnapshot, error) {
	p, err := s.repo.Get(ctx, ownerID, productID)
	if err != nil {
		return invoices.ProductSnapshot{}, err
	}
	return invoices.ProductSnapshot{Name: p.Name, SKU: p.SKU}, nil
}
