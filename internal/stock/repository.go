package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ledgerSeqLockID scopes the advisory lock that serialises ledger appends.
// Balance rows are locked per key; the append itself still needs a single
// writer because the ledger has one global ordering.
const ledgerSeqLockID = 874511

// Repository persists stock data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a read-committed transaction. Balance
// keys locked via LockBalances stay locked until commit or rollback; the
// serialisation the executor needs comes from those row locks and the re-read
// under them, not from snapshot isolation. Repeatable read would be wrong
// here: a writer blocked on FOR UPDATE would fail with a serialization error
// (or miss a row created after its snapshot) instead of seeing the committed
// balance, and the MAX(committed_at) clamp in AppendMovement must read the
// latest committed ledger row, not a stale snapshot.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// GetBalance returns the quantity for the key, 0 when no row exists.
func (r *Repository) GetBalance(ctx context.Context, itemID, locationID int64) (int64, error) {
	var qty int64
	err := r.pool.QueryRow(ctx, `SELECT quantity FROM stock_balances WHERE item_id=$1 AND location_id=$2`, itemID, locationID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

// BalancesByItem returns the item's balances per location, ordered by
// location id.
func (r *Repository) BalancesByItem(ctx context.Context, itemID int64) ([]Balance, error) {
	rows, err := r.pool.Query(ctx, `SELECT item_id, location_id, quantity, updated_at
FROM stock_balances
WHERE item_id=$1
ORDER BY location_id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	balances := []Balance{}
	for rows.Next() {
		var b Balance
		if err := rows.Scan(&b.ItemID, &b.LocationID, &b.Quantity, &b.UpdatedAt); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// TotalStock sums the item's balances across all locations.
func (r *Repository) TotalStock(ctx context.Context, itemID int64) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM stock_balances WHERE item_id=$1`, itemID).Scan(&total)
	return total, err
}

// ListByItem returns the item's movements, newest first.
func (r *Repository) ListByItem(ctx context.Context, itemID int64, limit int) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, reference, item_id, movement_type, quantity, COALESCE(source_location_id, 0), COALESCE(dest_location_id, 0), note, COALESCE(created_by, 0), committed_at
FROM stock_movements
WHERE item_id=$1
ORDER BY id DESC
LIMIT $2`, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.Reference, &m.ItemID, &m.Type, &m.Quantity, &m.SourceLocationID, &m.DestLocationID, &m.Note, &m.CreatedBy, &m.CommittedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// IntegritySnapshot compares balance totals against the replayed ledger, per
// item, in a single query. Transfers net to zero so only receipts and
// shipments contribute to the ledger total.
func (r *Repository) IntegritySnapshot(ctx context.Context) ([]IntegrityRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT COALESCE(b.item_id, l.item_id),
       COALESCE(b.total, 0),
       COALESCE(l.total, 0)
FROM (SELECT item_id, SUM(quantity) AS total FROM stock_balances GROUP BY item_id) b
FULL OUTER JOIN (SELECT item_id,
                        SUM(CASE movement_type WHEN 'RECEIPT' THEN quantity WHEN 'SHIPMENT' THEN -quantity ELSE 0 END) AS total
                 FROM stock_movements GROUP BY item_id) l
  ON b.item_id = l.item_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []IntegrityRow{}
	for rows.Next() {
		var row IntegrityRow
		if err := rows.Scan(&row.ItemID, &row.BalanceTotal, &row.LedgerTotal); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) ItemExists(ctx context.Context, itemID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM items WHERE id=$1)`, itemID).Scan(&exists)
	return exists, err
}

func (r *txRepository) LocationExists(ctx context.Context, locationID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM locations WHERE id=$1)`, locationID).Scan(&exists)
	return exists, err
}

// LockBalances creates missing rows, then row-locks the full key set. Both
// passes walk the ids in the caller's sorted order so two movements touching
// the same pair of keys always contend in the same sequence.
func (r *txRepository) LockBalances(ctx context.Context, itemID int64, locationIDs []int64) (map[int64]int64, error) {
	for _, locationID := range locationIDs {
		if _, err := r.tx.Exec(ctx, `INSERT INTO stock_balances (item_id, location_id, quantity, updated_at)
VALUES ($1, $2, 0, NOW())
ON CONFLICT (item_id, location_id) DO NOTHING`, itemID, locationID); err != nil {
			return nil, err
		}
	}
	balances := make(map[int64]int64, len(locationIDs))
	for _, locationID := range locationIDs {
		var qty int64
		if err := r.tx.QueryRow(ctx, `SELECT quantity FROM stock_balances WHERE item_id=$1 AND location_id=$2 FOR UPDATE`, itemID, locationID).Scan(&qty); err != nil {
			return nil, err
		}
		balances[locationID] = qty
	}
	return balances, nil
}

func (r *txRepository) ApplyDelta(ctx context.Context, itemID, locationID, delta, minAllowed int64) error {
	var qty int64
	err := r.tx.QueryRow(ctx, `UPDATE stock_balances
SET quantity = quantity + $3, updated_at = NOW()
WHERE item_id=$1 AND location_id=$2 AND quantity + $3 >= $4
RETURNING quantity`, itemID, locationID, delta, minAllowed).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrWouldGoNegative
	}
	return err
}

// AppendMovement serialises the append under an advisory lock held to the end
// of the transaction, and clamps the commit timestamp to stay monotonic
// against the newest committed entry.
func (r *txRepository) AppendMovement(ctx context.Context, m Movement) (Movement, error) {
	if _, err := r.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerSeqLockID); err != nil {
		return Movement{}, err
	}
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (reference, item_id, movement_type, quantity, source_location_id, dest_location_id, note, created_by, committed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8,
        GREATEST(clock_timestamp(), (SELECT COALESCE(MAX(committed_at) + interval '1 microsecond', clock_timestamp()) FROM stock_movements)))
RETURNING id, committed_at`,
		m.Reference, m.ItemID, string(m.Type), m.Quantity, nullInt(m.SourceLocationID), nullInt(m.DestLocationID), m.Note, nullInt(m.CreatedBy)).
		Scan(&m.ID, &m.CommittedAt)
	return m, err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
