package stock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/stretchr/testify/require"
)

func TestConcurrentShipmentsNeverOverdraw(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const starting = 60
	const attempts = 100

	_, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: starting, DestLocationID: 10})
	require.NoError(t, err)

	var succeeded, rejected atomic.Int64
	var group errgroup.Group
	for i := 0; i < attempts; i++ {
		group.Go(func() error {
			_, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeShipment, Quantity: 1, SourceLocationID: 10})
			if err == nil {
				succeeded.Add(1)
				return nil
			}
			var insufficient *InsufficientStockError
			if errors.As(err, &insufficient) {
				rejected.Add(1)
				return nil
			}
			return err
		})
	}
	require.NoError(t, group.Wait())

	require.EqualValues(t, starting, succeeded.Load())
	require.EqualValues(t, attempts-starting, rejected.Load())

	qty, err := svc.GetBalance(ctx, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 0, qty)
}

func TestOpposingTransfersDoNotDeadlock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 100, DestLocationID: 10})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 100, DestLocationID: 20})
	require.NoError(t, err)

	var group errgroup.Group
	for i := 0; i < 50; i++ {
		group.Go(func() error {
			_, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeTransfer, Quantity: 1, SourceLocationID: 10, DestLocationID: 20})
			return err
		})
		group.Go(func() error {
			_, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeTransfer, Quantity: 1, SourceLocationID: 20, DestLocationID: 10})
			return err
		})
	}
	require.NoError(t, group.Wait())

	// Opposing transfers in equal numbers leave both balances where they
	// started, and the total is conserved throughout.
	a, err := svc.GetBalance(ctx, 1, 10)
	require.NoError(t, err)
	b, err := svc.GetBalance(ctx, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 100, a)
	require.EqualValues(t, 100, b)
}

func TestConcurrentCommitsKeepLedgerMonotonic(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	var group errgroup.Group
	for i := 0; i < 40; i++ {
		group.Go(func() error {
			_, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 1, DestLocationID: 10})
			return err
		})
		group.Go(func() error {
			_, err := svc.Submit(ctx, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 1, DestLocationID: 20})
			return err
		})
	}
	require.NoError(t, group.Wait())

	movements, err := store.ListByItem(ctx, 1, 200)
	require.NoError(t, err)
	require.Len(t, movements, 80)
	for i := 1; i < len(movements); i++ {
		// Newest first: each entry is strictly later than its successor.
		require.True(t, movements[i-1].CommittedAt.After(movements[i].CommittedAt))
		require.Greater(t, movements[i-1].ID, movements[i].ID)
	}
}

func TestCancelledContextBeforeLockHasNoSideEffects(t *testing.T) {
	svc, store := newTestService(t)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Submit(cancelled, MovementInput{ItemID: 1, Type: MovementTypeReceipt, Quantity: 5, DestLocationID: 10})
	require.ErrorIs(t, err, context.Canceled)

	movements, err := store.ListByItem(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Empty(t, movements)
	total, err := store.TotalStock(context.Background(), 1)
	require.NoError(t, err)
	require.EqualValues(t, 0, total)
}
