package customers

import (
	"context"

	"github.com/ledgerline/ledgerline/internal/invoices"
)

// Service wraps the repository with owner scoping and the snapshot lookup
// used by the invoice engine.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, c Customer) (*Customer, error) {
	return s.repo.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, ownerID, id int64) (*Customer, error) {
	return s.repo.Get(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID int64, limit, offset int) ([]Customer, int, error) {
	return s.repo.List(ctx, ownerID, limit, offset)
}

func (s *Service) Update(ctx context.Context, c Customer) (*Customer, error) {
	return s.repo.Update(ctx, c)
}

func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	return s.repo.Delete(ctx, ownerID, id)
}

// Snapshot implements invoices.CustomerDirectory.
func (s *Service) Snapshot(ctx context.Context, ownerID, customerID int64) (invoices.CustomerSnapshot, error) {
	c, err := s.repo.Get(ctx, ownerID, customerID)
	if err != nil {
		return invoices.CustomerSnapshot{}, err
	}
	return invoices.CustomerSnapshot{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
		GSTIN:   c.GSTIN,
	}, nil
}
