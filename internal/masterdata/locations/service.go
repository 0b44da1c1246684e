package locations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stockline-erp/stockline/internal/masterdata/shared"
	internalShared "github.com/stockline-erp/stockline/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Location, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, location Location) (Location, error) {
	if err := validate(location); err != nil {
		return Location{}, err
	}
	return s.repo.Create(ctx, location)
}

func (s *Service) Update(ctx context.Context, id int64, location Location) error {
	if err := validate(location); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, location)
}

// Delete refuses to remove locations still holding stock or referenced by
// the ledger.
func (s *Service) Delete(ctx context.Context, id int64) error {
	inUse, err := s.repo.HasStock(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("locations: location has stock history: %w", internalShared.ErrInUse)
	}
	return s.repo.Delete(ctx, id)
}

func validate(location Location) error {
	if strings.TrimSpace(location.Name) == "" {
		return errors.New("location name is required")
	}
	return nil
}
