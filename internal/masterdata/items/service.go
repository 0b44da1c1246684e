package items

import (
	"context"
	"fmt"

	"github.com/stockline-erp/stockline/internal/masterdata/shared"
	internalShared "github.com/stockline-erp/stockline/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Item, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, item Item) (Item, error) {
	if err := s.validate(item); err != nil {
		return Item{}, err
	}
	return s.repo.Create(ctx, item)
}

// Update edits descriptive fields only. The SKU is fixed for the lifetime of
// the item; an attempt to change it is rejected rather than silently dropped.
func (s *Service) Update(ctx context.Context, id int64, item Item) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.SKU != "" && item.SKU != existing.SKU {
		return fmt.Errorf("items: sku is immutable: %w", internalShared.ErrInUse)
	}
	item.SKU = existing.SKU
	if err := s.validate(item); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, item)
}

// Delete refuses to remove items the ledger references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	inUse, err := s.repo.HasMovements(ctx, id)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("items: item has stock history: %w", internalShared.ErrInUse)
	}
	return s.repo.Delete(ctx, id)
}
