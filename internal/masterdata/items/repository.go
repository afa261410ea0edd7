package items

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumbung-wms/lumbung-wms/internal/masterdata/shared"
	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Item, int, error)
	Get(ctx context.Context, id int64) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, id int64, item Item) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const itemColumns = `i.id, i.code, i.name, i.category_id, i.unit, i.buy_price, i.sell_price,
	i.min_stock, i.max_stock, i.is_active, i.created_at, i.updated_at,
	COALESCE((SELECT SUM(b.qty) FROM stock_balances b WHERE b.item_id = i.id), 0)`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Item, int, error) {
	query := `SELECT ` + itemColumns + ` FROM items i WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM items i WHERE 1=1`
	args := []any{}
	argCount := 0

	clause := ``
	if !filters.IncludeInactive {
		clause += ` AND i.is_active`
	}
	if filters.CategoryID != nil {
		argCount++
		clause += ` AND i.category_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.CategoryID)
	}
	if filters.Search != "" {
		argCount++
		clause += ` AND (i.name ILIKE $` + strconv.Itoa(argCount) + ` OR i.code ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += clause + ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filters.EffectiveLimit())
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
		var it Item
		if err := scanItem(rows, &it); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	return items, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Item, error) {
	var it Item
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items i WHERE i.id = $1`, id)
	if err := scanItem(row, &it); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, httpx.ErrNotFound
		}
		return Item{}, err
	}
	return it, nil
}

func (r *repository) Create(ctx context.Context, item Item) (Item, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO items (code, name, category_id, unit, buy_price, sell_price, min_stock, max_stock, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		item.Code, item.Name, item.CategoryID, item.Unit, item.BuyPrice, item.SellPrice, item.MinStock, item.MaxStock).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Item{}, shared.MapWriteError(err, "item")
	}
	item.IsActive = true
	return item, nil
}

func (r *repository) Update(ctx context.Context, id int64, item Item) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE items
		SET code = $1, name = $2, category_id = $3, unit = $4, buy_price = $5,
		    sell_price = $6, min_stock = $7, max_stock = $8, updated_at = NOW()
		WHERE id = $9`,
		item.Code, item.Name, item.CategoryID, item.Unit, item.BuyPrice, item.SellPrice, item.MinStock, item.MaxStock, id)
	if err != nil {
		return shared.MapWriteError(err, "item")
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

// Delete soft-deletes by clearing the active flag. Stock history survives.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE items SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func scanItem(row pgx.Row, it *Item) error {
	return row.Scan(
		&it.ID, &it.Code, &it.Name, &it.CategoryID, &it.Unit, &it.BuyPrice, &it.SellPrice,
		&it.MinStock, &it.MaxStock, &it.IsActive, &it.CreatedAt, &it.UpdatedAt,
		&it.TotalStock,
	)
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "i.code " + dir
	case "name":
		return "i.name " + dir
	default:
		return "i.name " + dir
	}
}
