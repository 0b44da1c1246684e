package items

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockline-erp/stockline/internal/masterdata/shared"
	"github.com/stockline-erp/stockline/internal/platform/db"
	internalShared "github.com/stockline-erp/stockline/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Item, int, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, id int64, item Item) error
	Delete(ctx context.Context, id int64) error
	HasMovements(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Item, int, error) {
	query := `SELECT id, COALESCE(category_id, 0), sku, name, description, price, created_at, updated_at FROM items WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	countQuery := `SELECT COUNT(*) FROM items WHERE 1=1`
	countArgs := []interface{}{}

	if filters.CategoryID != nil {
		argCount++
		clause := ` AND category_id = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *filters.CategoryID)
		countArgs = append(countArgs, *filters.CategoryID)
	}
	if filters.Search != "" {
		argCount++
		clause := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR sku ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)

	limit := filters.Limit
	if limit < 1 {
		limit = shared.DefaultLimit
	}
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.CategoryID, &item.SKU, &item.Name, &item.Description, &item.Price, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Item, error) {
	var item Item
	err := r.pool.QueryRow(ctx, `SELECT id, COALESCE(category_id, 0), sku, name, description, price, created_at, updated_at FROM items WHERE id=$1`, id).
		Scan(&item.ID, &item.CategoryID, &item.SKU, &item.Name, &item.Description, &item.Price, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, internalShared.ErrNotFound
	}
	return item, err
}

func (r *repository) Create(ctx context.Context, item Item) (Item, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `INSERT INTO items (category_id, sku, name, description, price, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		nullInt(item.CategoryID), item.SKU, item.Name, item.Description, item.Price, now).Scan(&item.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Item{}, internalShared.ErrDuplicate
		}
		return Item{}, err
	}
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, nil
}

// Update never touches the sku column.
func (r *repository) Update(ctx context.Context, id int64, item Item) error {
	tag, err := r.pool.Exec(ctx, `UPDATE items SET category_id=$1, name=$2, description=$3, price=$4, updated_at=NOW() WHERE id=$5`,
		nullInt(item.CategoryID), item.Name, item.Description, item.Price, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return internalShared.ErrNotFound
	}
	return nil
}

// Delete re-checks the ledger inside the transaction: a movement committed
// between the service guard and the delete must still block it.
func (r *repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_movements WHERE item_id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return internalShared.ErrInUse
		}
		tag, err := tx.Exec(ctx, `DELETE FROM items WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return internalShared.ErrNotFound
		}
		return nil
	})
}

// HasMovements reports whether the ledger references the item.
func (r *repository) HasMovements(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_movements WHERE item_id=$1)`, id).Scan(&exists)
	return exists, err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "sku":
		return "sku " + dir
	case "name":
		return "name " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
