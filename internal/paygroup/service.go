package paygroup

import (
	"context"

	"github.com/meridian-hcm/meridian/internal/shared"
)

// Store abstracts pay group persistence for the service.
type Store interface {
	Get(ctx context.Context, id int64) (PayGroup, error)
	List(ctx context.Context, companyID int64, limit, offset int) ([]PayGroup, error)
	Count(ctx context.Context, companyID int64) (int, error)
}

// Service exposes read access to pay group configuration.
type Service struct {
	store Store
}

// NewService constructs a Service instance.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns a single pay group.
func (s *Service) Get(ctx context.Context, id int64) (PayGroup, error) {
	return s.store.Get(ctx, id)
}

// ListResult bundles a page of pay groups with pagination metadata.
type ListResult struct {
	Groups []PayGroup
	Paging shared.Pagination
}

// List returns a paginated listing of a company's pay groups.
func (s *Service) List(ctx context.Context, companyID int64, page, perPage int) (ListResult, error) {
	paging := shared.NewPagination(page, perPage, 0)
	total, err := s.store.Count(ctx, companyID)
	if err != nil {
		return ListResult{}, err
	}
	paging = shared.NewPagination(paging.Page, paging.PerPage, total)
	offset := (paging.Page - 1) * paging.PerPage
	groups, err := s.store.List(ctx, companyID, paging.PerPage, offset)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Groups: groups, Paging: paging}, nil
}
