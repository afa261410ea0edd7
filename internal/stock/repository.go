package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads balances for reporting and background scans.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListBalances returns balances joined with item and warehouse master data.
func (r *Repository) ListBalances(ctx context.Context, filter BalanceFilter) ([]BalanceDetail, int, error) {
	const base = `
		FROM stock_balances b
		JOIN items i ON i.id = b.item_id
		JOIN warehouses w ON w.id = b.warehouse_id
		WHERE i.is_active
		  AND ($1 = 0 OR b.item_id = $1)
		  AND ($2 = 0 OR b.warehouse_id = $2)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+base, filter.ItemID, filter.WarehouseID).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT b.item_id, b.warehouse_id, b.qty, b.updated_at,
		       i.code, i.name, w.code, w.name, i.min_stock, i.max_stock`+base+`
		ORDER BY i.code, w.code
		LIMIT $3 OFFSET $4`,
		filter.ItemID, filter.WarehouseID, limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var details []BalanceDetail
	for rows.Next() {
		var d BalanceDetail
		if err := rows.Scan(
			&d.ItemID, &d.WarehouseID, &d.Qty, &d.UpdatedAt,
			&d.ItemCode, &d.ItemName, &d.WarehouseCode, &d.WarehouseName,
			&d.MinStock, &d.MaxStock,
		); err != nil {
			return nil, 0, err
		}
		d.BelowMin = d.Qty < d.MinStock
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if filter.BelowMin {
		filtered := details[:0]
		for _, d := range details {
			if d.BelowMin {
				filtered = append(filtered, d)
			}
		}
		details = filtered
	}
	return details, total, nil
}

// ListLowStock returns active items whose summed balance is below min_stock.
func (r *Repository) ListLowStock(ctx context.Context) ([]LowStockItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.code, i.name, COALESCE(SUM(b.qty), 0) AS total, i.min_stock
		FROM items i
		LEFT JOIN stock_balances b ON b.item_id = i.id
		WHERE i.is_active
		GROUP BY i.id, i.code, i.name, i.min_stock
		HAVING COALESCE(SUM(b.qty), 0) < i.min_stock
		ORDER BY i.code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LowStockItem
	for rows.Next() {
		var it LowStockItem
		if err := rows.Scan(&it.ItemID, &it.ItemCode, &it.ItemName, &it.Total, &it.MinStock); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// PgTxStore implements TxStore against an open pgx transaction.
type PgTxStore struct {
	tx pgx.Tx
}

// NewPgTxStore wraps a transaction.
func NewPgTxStore(tx pgx.Tx) *PgTxStore {
	return &PgTxStore{tx: tx}
}

// GetBalanceForUpdate loads and locks a balance row.
func (s *PgTxStore) GetBalanceForUpdate(ctx context.Context, itemID, warehouseID int64) (Balance, error) {
	var b Balance
	err := s.tx.QueryRow(ctx, `
		SELECT item_id, warehouse_id, qty, updated_at
		FROM stock_balances
		WHERE item_id = $1 AND warehouse_id = $2
		FOR UPDATE`, itemID, warehouseID).
		Scan(&b.ItemID, &b.WarehouseID, &b.Qty, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{ItemID: itemID, WarehouseID: warehouseID}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

// UpsertBalance creates or replaces the balance row.
func (s *PgTxStore) UpsertBalance(ctx context.Context, balance Balance) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO stock_balances (item_id, warehouse_id, qty, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (item_id, warehouse_id)
		DO UPDATE SET qty = EXCLUDED.qty, updated_at = NOW()`,
		balance.ItemID, balance.WarehouseID, balance.Qty)
	return err
}

// LowestWarehouseBalance returns the item's balance with the smallest warehouse id.
func (s *PgTxStore) LowestWarehouseBalance(ctx context.Context, itemID int64) (Balance, error) {
	var b Balance
	err := s.tx.QueryRow(ctx, `
		SELECT item_id, warehouse_id, qty, updated_at
		FROM stock_balances
		WHERE item_id = $1
		ORDER BY warehouse_id ASC
		LIMIT 1
		FOR UPDATE`, itemID).
		Scan(&b.ItemID, &b.WarehouseID, &b.Qty, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{ItemID: itemID}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

// FirstWarehouseID returns the smallest warehouse id.
func (s *PgTxStore) FirstWarehouseID(ctx context.Context) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `SELECT id FROM warehouses WHERE is_active ORDER BY id ASC LIMIT 1`).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNoWarehouse
		}
		return 0, err
	}
	return id, nil
}
