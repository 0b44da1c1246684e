package locations

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
	List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error)
	Get(ctx context.Context, id int64) (Location, error)
	Create(ctx context.Context, location Location) (Location, error)
	Update(ctx context.Context, id int64, location Location) error
	Delete(ctx context.Context, id int64) error
	HasStock(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	query := `SELECT id, name, longitude, latitude, created_at, updated_at FROM locations WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM locations WHERE 1=1`
	args := []interface{}{}
	countArgs := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND name ILIKE $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if filters.SortDir == shared.SortDesc {
		dir = "DESC"
	}
	query += " ORDER BY name " + dir

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

	var locations []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Longitude, &loc.Latitude, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
			return nil, 0, err
		}
		locations = append(locations, loc)
	}
	return locations, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Location, error) {
	var loc Location
	err := r.pool.QueryRow(ctx, `SELECT id, name, longitude, latitude, created_at, updated_at FROM locations WHERE id=$1`, id).
		Scan(&loc.ID, &loc.Name, &loc.Longitude, &loc.Latitude, &loc.CreatedAt, &loc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Location{}, internalShared.ErrNotFound
	}
	return loc, err
}

func (r *repository) Create(ctx context.Context, location Location) (Location, error) {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx, `INSERT INTO locations (name, longitude, latitude, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4) RETURNING id`, location.Name, location.Longitude, location.Latitude, now).Scan(&location.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Location{}, internalShared.ErrDuplicate
		}
		return Location{}, err
	}
	location.CreatedAt = now
	location.UpdatedAt = now
	return location, nil
}

func (r *repository) Update(ctx context.Context, id int64, location Location) error {
	tag, err := r.pool.Exec(ctx, `UPDATE locations SET name=$1, longitude=$2, latitude=$3, updated_at=NOW() WHERE id=$4`,
		location.Name, location.Longitude, location.Latitude, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return internalShared.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return internalShared.ErrNotFound
	}
	return nil
}

// Delete re-checks stock references inside the transaction so a movement
// committed after the service guard still blocks the delete.
func (r *repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_balances WHERE location_id=$1 AND quantity > 0)
    OR EXISTS (SELECT 1 FROM stock_movements WHERE source_location_id=$1 OR dest_location_id=$1)`, id).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return internalShared.ErrInUse
		}
		tag, err := tx.Exec(ctx, `DELETE FROM locations WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return internalShared.ErrNotFound
		}
		return nil
	})
}

// HasStock reports whether any balance row or ledger entry references the
// location.
func (r *repository) HasStock(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_balances WHERE location_id=$1 AND quantity > 0)
    OR EXISTS (SELECT 1 FROM stock_movements WHERE source_location_id=$1 OR dest_location_id=$1)`, id).Scan(&exists)
	return exists, err
}
