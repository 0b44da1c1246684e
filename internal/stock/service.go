package stock

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stockline-erp/stockline/internal/shared"
)

// Store is the persistence port for the movement executor. Implementations
// must serialise concurrent writers per balance key: LockBalances grants
// exclusive access to the given keys until the surrounding WithTx callback
// returns, and AppendMovement assigns ledger positions under a single global
// sequencer so commit timestamps are monotonic across the whole ledger.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	GetBalance(ctx context.Context, itemID, locationID int64) (int64, error)
	BalancesByItem(ctx context.Context, itemID int64) ([]Balance, error)
	TotalStock(ctx context.Context, itemID int64) (int64, error)
	ListByItem(ctx context.Context, itemID int64, limit int) ([]Movement, error)
}

// TxStore exposes the operations available inside an executor transaction.
type TxStore interface {
	ItemExists(ctx context.Context, itemID int64) (bool, error)
	LocationExists(ctx context.Context, locationID int64) (bool, error)
	// LockBalances acquires the balance keys in the given order (callers pass
	// them pre-sorted) and returns the live quantity per location, 0 for rows
	// that do not exist yet.
	LockBalances(ctx context.Context, itemID int64, locationIDs []int64) (map[int64]int64, error)
	// ApplyDelta adjusts one locked balance, failing with ErrWouldGoNegative
	// if the result would drop below minAllowed.
	ApplyDelta(ctx context.Context, itemID, locationID, delta, minAllowed int64) error
	// AppendMovement assigns id and commit timestamp and appends the entry.
	AppendMovement(ctx context.Context, m Movement) (Movement, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the movement executor: the single entry point for all
// quantity-affecting writes.
type Service struct {
	store       Store
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	cache       *TotalStockCache
}

// NewService builds Service. audit, idempotency and cache are optional.
func NewService(store Store, audit AuditPort, idem *shared.IdempotencyStore, cache *TotalStockCache) *Service {
	return &Service{store: store, audit: audit, idempotency: idem, cache: cache}
}

// Submit validates and atomically applies a proposed movement. Either the
// balance mutation and the ledger append both happen, or neither does.
func (s *Service) Submit(ctx context.Context, input MovementInput) (Movement, error) {
	if err := Validate(input); err != nil {
		return Movement{}, err
	}

	reference := input.Reference
	if reference == "" {
		reference = uuid.NewString()
	}

	insertedKey := false
	idemKey := fmt.Sprintf("stock:movement:%s", reference)
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "stock"); err != nil {
			return Movement{}, err
		}
		insertedKey = true
	}

	var committed Movement
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		ok, err := tx.ItemExists(ctx, input.ItemID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUnknownItem
		}
		for _, locationID := range input.balanceKeys() {
			ok, err := tx.LocationExists(ctx, locationID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrUnknownLocation
			}
		}

		balances, err := tx.LockBalances(ctx, input.ItemID, input.balanceKeys())
		if err != nil {
			return err
		}

		// Mandatory re-check against live balances: anything read before the
		// locks were held may be stale.
		if debit := input.debitLocation(); debit != 0 {
			available := balances[debit]
			if available < input.Quantity {
				return &InsufficientStockError{LocationID: debit, Available: available, Requested: input.Quantity}
			}
			if err := tx.ApplyDelta(ctx, input.ItemID, debit, -input.Quantity, 0); err != nil {
				return err
			}
		}
		if credit := input.creditLocation(); credit != 0 {
			if err := tx.ApplyDelta(ctx, input.ItemID, credit, input.Quantity, 0); err != nil {
				return err
			}
		}

		committed, err = tx.AppendMovement(ctx, Movement{
			Reference:        reference,
			ItemID:           input.ItemID,
			Type:             input.Type,
			Quantity:         input.Quantity,
			SourceLocationID: input.SourceLocationID,
			DestLocationID:   input.DestLocationID,
			Note:             input.Note,
			CreatedBy:        input.ActorID,
		})
		return err
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return Movement{}, err
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, input.ItemID)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   fmt.Sprintf("stock:%s", input.Type),
			Entity:   "stock_movement",
			EntityID: committed.Reference,
			Meta: map[string]any{
				"item_id":  input.ItemID,
				"quantity": input.Quantity,
				"source":   input.SourceLocationID,
				"dest":     input.DestLocationID,
			},
		})
	}
	return committed, nil
}

// GetBalance returns the current quantity of an item at a location, 0 when no
// balance row exists yet.
func (s *Service) GetBalance(ctx context.Context, itemID, locationID int64) (int64, error) {
	return s.store.GetBalance(ctx, itemID, locationID)
}

// ListItemBalances returns the item's per-location balances.
func (s *Service) ListItemBalances(ctx context.Context, itemID int64) ([]Balance, error) {
	return s.store.BalancesByItem(ctx, itemID)
}

// GetTotalStock sums the item's balances across all locations.
func (s *Service) GetTotalStock(ctx context.Context, itemID int64) (int64, error) {
	if s.cache != nil {
		return s.cache.Get(ctx, itemID, func(ctx context.Context) (int64, error) {
			return s.store.TotalStock(ctx, itemID)
		})
	}
	return s.store.TotalStock(ctx, itemID)
}

// ListRecentMovements returns the item's ledger entries, newest first.
func (s *Service) ListRecentMovements(ctx context.Context, itemID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	return s.store.ListByItem(ctx, itemID, limit)
}
