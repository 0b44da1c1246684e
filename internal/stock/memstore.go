package stock

import (
	"context"
	"sort"
	"sync"
	"time"
)

type balanceKey struct {
	itemID     int64
	locationID int64
}

// keyLock is a channel-backed mutex so acquisition can honour context
// cancellation while still blocking a pending caller until the key is free.
type keyLock struct {
	ch chan struct{}
}

// MemoryStore is an in-memory Store implementation. It is the reference model
// for the executor's concurrency contract: one lock per (item, location) key,
// acquired in the caller-supplied sorted order, plus a single commit clock
// that totally orders ledger appends. Tests run against it; it also backs the
// server's no-database mode.
type MemoryStore struct {
	mu        sync.Mutex
	locks     map[balanceKey]*keyLock
	balances  map[balanceKey]int64
	updatedAt map[balanceKey]time.Time
	items     map[int64]struct{}
	locations map[int64]struct{}

	ledgerMu sync.Mutex
	ledger   []Movement
	nextID   int64
	clock    commitClock
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks:     make(map[balanceKey]*keyLock),
		balances:  make(map[balanceKey]int64),
		updatedAt: make(map[balanceKey]time.Time),
		items:     make(map[int64]struct{}),
		locations: make(map[int64]struct{}),
	}
}

// AddItem registers an item id so movements may reference it.
func (s *MemoryStore) AddItem(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = struct{}{}
}

// AddLocation registers a location id so movements may reference it.
func (s *MemoryStore) AddLocation(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[id] = struct{}{}
}

// WithTx runs fn with exclusive access to whatever balance keys it locks. On
// error every balance write and ledger append made inside fn is undone before
// the locks are released.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	tx := &memTx{store: s}
	defer tx.release()
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// GetBalance returns the quantity for the key, 0 if absent.
func (s *MemoryStore) GetBalance(ctx context.Context, itemID, locationID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[balanceKey{itemID, locationID}], nil
}

// BalancesByItem returns the item's balances per location, ordered by
// location id.
func (s *MemoryStore) BalancesByItem(ctx context.Context, itemID int64) ([]Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var balances []Balance
	for key, qty := range s.balances {
		if key.itemID != itemID {
			continue
		}
		balances = append(balances, Balance{
			ItemID:     key.itemID,
			LocationID: key.locationID,
			Quantity:   qty,
			UpdatedAt:  s.updatedAt[key],
		})
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].LocationID < balances[j].LocationID })
	return balances, nil
}

// TotalStock sums the item's balances across all locations.
func (s *MemoryStore) TotalStock(ctx context.Context, itemID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for key, qty := range s.balances {
		if key.itemID == itemID {
			total += qty
		}
	}
	return total, nil
}

// ListByItem returns the item's movements, newest first.
func (s *MemoryStore) ListByItem(ctx context.Context, itemID int64, limit int) ([]Movement, error) {
	s.ledgerMu.Lock()
	defer s.ledgerMu.Unlock()
	var result []Movement
	for i := len(s.ledger) - 1; i >= 0 && len(result) < limit; i-- {
		if s.ledger[i].ItemID == itemID {
			result = append(result, s.ledger[i])
		}
	}
	return result, nil
}

// IntegritySnapshot reports, per item, the balance total next to the signed
// sum replayed from the ledger. The two must agree at every quiescent point.
func (s *MemoryStore) IntegritySnapshot(ctx context.Context) ([]IntegrityRow, error) {
	s.mu.Lock()
	balanceTotals := make(map[int64]int64)
	for key, qty := range s.balances {
		balanceTotals[key.itemID] += qty
	}
	s.mu.Unlock()

	s.ledgerMu.Lock()
	ledgerTotals := make(map[int64]int64)
	for _, m := range s.ledger {
		switch m.Type {
		case MovementTypeReceipt:
			ledgerTotals[m.ItemID] += m.Quantity
		case MovementTypeShipment:
			ledgerTotals[m.ItemID] -= m.Quantity
		case MovementTypeTransfer:
			// net zero across locations
			ledgerTotals[m.ItemID] += 0
		}
	}
	s.ledgerMu.Unlock()

	seen := make(map[int64]struct{})
	var rows []IntegrityRow
	for itemID, total := range balanceTotals {
		rows = append(rows, IntegrityRow{ItemID: itemID, BalanceTotal: total, LedgerTotal: ledgerTotals[itemID]})
		seen[itemID] = struct{}{}
	}
	for itemID, total := range ledgerTotals {
		if _, ok := seen[itemID]; !ok {
			rows = append(rows, IntegrityRow{ItemID: itemID, LedgerTotal: total})
		}
	}
	return rows, nil
}

func (s *MemoryStore) lockFor(key balanceKey) *keyLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	lk, ok := s.locks[key]
	if !ok {
		lk = &keyLock{ch: make(chan struct{}, 1)}
		s.locks[key] = lk
	}
	return lk
}

type memTx struct {
	store *MemoryStore
	held  []*keyLock
	undo  []func()
}

func (tx *memTx) ItemExists(ctx context.Context, itemID int64) (bool, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	_, ok := tx.store.items[itemID]
	return ok, nil
}

func (tx *memTx) LocationExists(ctx context.Context, locationID int64) (bool, error) {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	_, ok := tx.store.locations[locationID]
	return ok, nil
}

func (tx *memTx) LockBalances(ctx context.Context, itemID int64, locationIDs []int64) (map[int64]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, locationID := range locationIDs {
		lk := tx.store.lockFor(balanceKey{itemID, locationID})
		select {
		case lk.ch <- struct{}{}:
			tx.held = append(tx.held, lk)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	balances := make(map[int64]int64, len(locationIDs))
	for _, locationID := range locationIDs {
		balances[locationID] = tx.store.balances[balanceKey{itemID, locationID}]
	}
	return balances, nil
}

func (tx *memTx) ApplyDelta(ctx context.Context, itemID, locationID, delta, minAllowed int64) error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	key := balanceKey{itemID, locationID}
	current, existed := tx.store.balances[key]
	next := current + delta
	if next < minAllowed {
		return ErrWouldGoNegative
	}
	tx.store.balances[key] = next
	tx.store.updatedAt[key] = time.Now().UTC()
	tx.undo = append(tx.undo, func() {
		if existed {
			tx.store.balances[key] = current
		} else {
			delete(tx.store.balances, key)
		}
	})
	return nil
}

func (tx *memTx) AppendMovement(ctx context.Context, m Movement) (Movement, error) {
	tx.store.ledgerMu.Lock()
	defer tx.store.ledgerMu.Unlock()
	tx.store.nextID++
	m.ID = tx.store.nextID
	m.CommittedAt = tx.store.clock.Next()
	tx.store.ledger = append(tx.store.ledger, m)
	tx.undo = append(tx.undo, func() {
		tx.store.ledger = tx.store.ledger[:len(tx.store.ledger)-1]
		tx.store.nextID--
	})
	return m, nil
}

func (tx *memTx) rollback() {
	tx.store.ledgerMu.Lock()
	tx.store.mu.Lock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.store.mu.Unlock()
	tx.store.ledgerMu.Unlock()
}

func (tx *memTx) release() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		<-tx.held[i].ch
	}
	tx.held = nil
}
