package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	store.AddItem(1)
	store.AddLocation(10)
	store.AddLocation(20)
	return NewService(store, nil, nil, nil), store
}

func TestReceiptShipmentTransferScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 10, DestLocationID: 10, Note: "initial delivery"})
	require.NoError(t, err)
	qty, err := svc.GetBalance(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 10, qty)

	_, err = svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeShipment, Quantity: 5, SourceLocationID: 10})
	require.NoError(t, err)
	qty, err = svc.GetBalance(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 5, qty)

	_, err = svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeTransfer, Quantity: 5, SourceLocationID: 10, DestLocationID: 20})
	require.NoError(t, err)
	qty, err = svc.GetBalance(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 0, qty)
	qty, err = svc.GetBalance(ctx, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 5, qty)

	_, err = svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeShipment, Quantity: 1, SourceLocationID: 10})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.EqualValues(t, 10, insufficient.LocationID)
	require.EqualValues(t, 0, insufficient.Available)
	require.EqualValues(t, 1, insufficient.Requested)

	// Balances unchanged after the rejection.
	qty, err = svc.GetBalance(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 0, qty)
	qty, err = svc.GetBalance(ctx, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 5, qty)
}

func TestRejectedMovementLeavesNoTrace(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 3, SourceLocationID: 10, DestLocationID: 20})
	require.ErrorIs(t, err, ErrInvalidLocationCombination)

	movements, err := store.ListByItem(ctx, 1, 100)
	require.NoError(t, err)
	require.Empty(t, movements)
	total, err := store.TotalStock(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 0, total)
}

func TestInsufficientShipmentRollsBackEverything(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 2, DestLocationID: 10})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeShipment, Quantity: 5, SourceLocationID: 10})
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)

	movements, err := store.ListByItem(ctx, 1, 100)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	qty, err := svc.GetBalance(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 2, qty)
}

func TestTransferConservesTotal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 12, DestLocationID: 10})
	require.NoError(t, err)

	before, err := svc.GetTotalStock(ctx, 1)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeTransfer, Quantity: 7, SourceLocationID: 10, DestLocationID: 20})
	require.NoError(t, err)

	after, err := svc.GetTotalStock(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestUnknownReferences(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, MovementInput{ItemID: 99, Type: MovementTypeReceipt, Quantity: 1, DestLocationID: 10})
	require.ErrorIs(t, err, ErrUnknownItem)

	_, err = svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 1, DestLocationID: 99})
	require.ErrorIs(t, err, ErrUnknownLocation)
}

func TestListRecentMovementsNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: int64(i + 1), DestLocationID: 10})
		require.NoError(t, err)
	}

	movements, err := svc.ListRecentMovements(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	require.EqualValues(t, 3, movements[0].Quantity)
	require.EqualValues(t, 2, movements[1].Quantity)
	require.True(t, movements[0].CommittedAt.After(movements[1].CommittedAt))
}

func TestCommitTimestampsMonotonic(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var previous Movement
	for i := 0; i < 50; i++ {
		committed, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 1, DestLocationID: 10})
		require.NoError(t, err)
		if i > 0 {
			require.True(t, committed.CommittedAt.After(previous.CommittedAt))
			require.Greater(t, committed.ID, previous.ID)
		}
		previous = committed
	}
}

func TestListItemBalancesPerLocation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 9, DestLocationID: 20})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeTransfer, Quantity: 4, SourceLocationID: 20, DestLocationID: 10})
	require.NoError(t, err)

	balances, err := svc.ListItemBalances(ctx, 1)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	require.EqualValues(t, 10, balances[0].LocationID)
	require.EqualValues(t, 4, balances[0].Quantity)
	require.EqualValues(t, 20, balances[1].LocationID)
	require.EqualValues(t, 5, balances[1].Quantity)
}

func TestTotalStockMatchesLedgerReplay(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	inputs := []MovementInput{
		{ItemID: 1, Type: MovementTypeReceipt, Quantity: 10, DestLocationID: 10},
		{ItemID: 1, Type: MovementTypeReceipt, Quantity: 4, DestLocationID: 20},
		{ItemID: 1, Type: MovementTypeTransfer, Quantity: 3, SourceLocationID: 10, DestLocationID: 20},
		{ItemID: 1, Type: MovementTypeShipment, Quantity: 6, SourceLocationID: 20},
		{ItemID: 1, Type: MovementTypeShipment, Quantity: 2, SourceLocationID: 10},
	}
	for _, in := range inputs {
		_, err := svc.Submit(ctx, in)
		require.NoError(t, err)
	}

	rows, err := store.IntegritySnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, rows[0].BalanceTotal, rows[0].LedgerTotal)

	total, err := svc.GetTotalStock(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, rows[0].BalanceTotal, total)
}
