package items

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stockline-erp/stockline/internal/masterdata/shared"
	internalShared "github.com/stockline-erp/stockline/internal/shared"
)

type memoryRepo struct {
	items     map[int64]Item
	nextID    int64
	withMoves map[int64]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[int64]Item), withMoves: make(map[int64]bool)}
}

func (r *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Item, int, error) {
	var result []Item
	for _, item := range r.items {
		result = append(result, item)
	}
	return result, len(result), nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Item, error) {
	item, ok := r.items[id]
	if !ok {
		return Item{}, internalShared.ErrNotFound
	}
	return item, nil
}

func (r *memoryRepo) Create(ctx context.Context, item Item) (Item, error) {
	for _, existing := range r.items {
		if existing.SKU == item.SKU {
			return Item{}, internalShared.ErrDuplicate
		}
	}
	r.nextID++
	item.ID = r.nextID
	r.items[item.ID] = item
	return item, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, item Item) error {
	existing, ok := r.items[id]
	if !ok {
		return internalShared.ErrNotFound
	}
	item.ID = id
	item.SKU = existing.SKU
	r.items[id] = item
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.items[id]; !ok {
		return internalShared.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) HasMovements(ctx context.Context, id int64) (bool, error) {
	return r.withMoves[id], nil
}

func TestCreateItemValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Item{Name: "Widget"})
	require.Error(t, err)

	_, err = svc.Create(ctx, Item{SKU: "WID-1"})
	require.Error(t, err)

	_, err = svc.Create(ctx, Item{SKU: "WID-1", Name: "Widget", Price: decimal.NewFromInt(-1)})
	require.Error(t, err)

	created, err := svc.Create(ctx, Item{SKU: "WID-1", Name: "Widget", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
}

func TestDuplicateSKURejected(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Item{SKU: "WID-1", Name: "Widget"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Item{SKU: "WID-1", Name: "Other Widget"})
	require.ErrorIs(t, err, internalShared.ErrDuplicate)
}

func TestSKUIsImmutable(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Item{SKU: "WID-1", Name: "Widget"})
	require.NoError(t, err)

	err = svc.Update(ctx, created.ID, Item{SKU: "WID-2", Name: "Widget v2"})
	require.Error(t, err)

	// Descriptive fields stay editable.
	err = svc.Update(ctx, created.ID, Item{Name: "Widget v2", Price: decimal.NewFromInt(12)})
	require.NoError(t, err)
	updated, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "WID-1", updated.SKU)
	require.Equal(t, "Widget v2", updated.Name)
}

func TestDeleteBlockedWhileReferencedByLedger(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, Item{SKU: "WID-1", Name: "Widget"})
	require.NoError(t, err)
	repo.withMoves[created.ID] = true

	err = svc.Delete(ctx, created.ID)
	require.ErrorIs(t, err, internalShared.ErrInUse)

	repo.withMoves[created.ID] = false
	require.NoError(t, svc.Delete(ctx, created.ID))
}
