package receiving

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumbung-wms/lumbung-wms/internal/platform/db"
	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
	"github.com/lumbung-wms/lumbung-wms/internal/stock"
)

// Repository persists goods receipts.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]GoodsReceipt, int, error)
	Get(ctx context.Context, id int64) (GoodsReceipt, error)
	Create(ctx context.Context, receipt GoodsReceipt) (GoodsReceipt, error)
	Update(ctx context.Context, receipt GoodsReceipt) error
	WithTx(ctx context.Context, fn func(tx TxRepository) error) error
}

// TxRepository exposes the write surface available inside a posting
// transaction. Header mutation and stock movement share one commit.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (GoodsReceipt, error)
	SetStatus(ctx context.Context, id int64, status string) error
	Stock() stock.TxStore
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const headerColumns = `
	r.id, r.number, r.supplier_id, s.name, r.warehouse_id, w.name,
	r.date, r.status, r.note, r.created_by, r.created_at, r.updated_at`

func scanHeader(row pgx.Row) (GoodsReceipt, error) {
	var r GoodsReceipt
	err := row.Scan(&r.ID, &r.Number, &r.SupplierID, &r.SupplierName, &r.WarehouseID, &r.WarehouseName,
		&r.Date, &r.Status, &r.Note, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]GoodsReceipt, int, error) {
	clause := ``
	args := []any{}
	argCount := 0
	if filters.Status != "" {
		argCount++
		clause += ` AND r.status = $` + strconv.Itoa(argCount)
		args = append(args, filters.Status)
	}
	if filters.Search != "" {
		argCount++
		clause += ` AND (r.number ILIKE $` + strconv.Itoa(argCount) + ` OR s.name ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.From != nil {
		argCount++
		clause += ` AND r.date >= $` + strconv.Itoa(argCount)
		args = append(args, *filters.From)
	}
	if filters.To != nil {
		argCount++
		clause += ` AND r.date <= $` + strconv.Itoa(argCount)
		args = append(args, *filters.To)
	}

	base := ` FROM goods_receipts r
		JOIN suppliers s ON s.id = r.supplier_id
		JOIN warehouses w ON w.id = r.warehouse_id
		WHERE 1=1` + clause

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + headerColumns + base + ` ORDER BY r.date DESC, r.id DESC`
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

	var receipts []GoodsReceipt
	for rows.Next() {
		receipt, err := scanHeader(rows)
		if err != nil {
			return nil, 0, err
		}
		receipts = append(receipts, receipt)
	}
	return receipts, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (GoodsReceipt, error) {
	receipt, err := scanHeader(r.pool.QueryRow(ctx, `SELECT `+headerColumns+`
		FROM goods_receipts r
		JOIN suppliers s ON s.id = r.supplier_id
		JOIN warehouses w ON w.id = r.warehouse_id
		WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GoodsReceipt{}, httpx.ErrNotFound
		}
		return GoodsReceipt{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.item_id, i.code, i.name, l.qty, l.price
		FROM goods_receipt_lines l
		JOIN items i ON i.id = l.item_id
		WHERE l.receipt_id = $1
		ORDER BY l.id`, id)
	if err != nil {
		return GoodsReceipt{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var line ReceiptLine
		if err := rows.Scan(&line.ID, &line.ItemID, &line.ItemCode, &line.ItemName, &line.Qty, &line.Price); err != nil {
			return GoodsReceipt{}, err
		}
		receipt.Lines = append(receipt.Lines, line)
	}
	return receipt, rows.Err()
}

func (r *repository) Create(ctx context.Context, receipt GoodsReceipt) (GoodsReceipt, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO goods_receipts (number, supplier_id, warehouse_id, date, status, note, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			receipt.Number, receipt.SupplierID, receipt.WarehouseID, receipt.Date, receipt.Status, receipt.Note, receipt.CreatedBy).
			Scan(&receipt.ID, &receipt.CreatedAt, &receipt.UpdatedAt)
		if err != nil {
			return err
		}
		return insertLines(ctx, tx, receipt.ID, receipt.Lines)
	})
	if err != nil {
		return GoodsReceipt{}, err
	}
	return receipt, nil
}

// Update replaces a draft header and its lines.
func (r *repository) Update(ctx context.Context, receipt GoodsReceipt) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE goods_receipts
			SET supplier_id = $1, warehouse_id = $2, date = $3, note = $4, updated_at = NOW()
			WHERE id = $5 AND status = $6`,
			receipt.SupplierID, receipt.WarehouseID, receipt.Date, receipt.Note, receipt.ID, StatusDraft)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM goods_receipt_lines WHERE receipt_id = $1`, receipt.ID); err != nil {
			return err
		}
		return insertLines(ctx, tx, receipt.ID, receipt.Lines)
	})
}

func insertLines(ctx context.Context, tx pgx.Tx, receiptID int64, lines []ReceiptLine) error {
	for _, line := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO goods_receipt_lines (receipt_id, item_id, qty, price)
			VALUES ($1, $2, $3, $4)`,
			receiptID, line.ItemID, line.Qty, line.Price); err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) WithTx(ctx context.Context, fn func(tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txRepository{tx: tx, stock: stock.NewPgTxStore(tx)})
	})
}

type txRepository struct {
	tx    pgx.Tx
	stock *stock.PgTxStore
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (GoodsReceipt, error) {
	var r GoodsReceipt
	err := t.tx.QueryRow(ctx, `
		SELECT id, number, supplier_id, warehouse_id, date, status, note, created_by, created_at, updated_at
		FROM goods_receipts WHERE id = $1 FOR UPDATE`, id).
		Scan(&r.ID, &r.Number, &r.SupplierID, &r.WarehouseID, &r.Date, &r.Status, &r.Note, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GoodsReceipt{}, httpx.ErrNotFound
		}
		return GoodsReceipt{}, err
	}

	rows, err := t.tx.Query(ctx, `SELECT id, item_id, qty, price FROM goods_receipt_lines WHERE receipt_id = $1 ORDER BY id`, id)
	if err != nil {
		return GoodsReceipt{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line ReceiptLine
		if err := rows.Scan(&line.ID, &line.ItemID, &line.Qty, &line.Price); err != nil {
			return GoodsReceipt{}, err
		}
		r.Lines = append(r.Lines, line)
	}
	return r, rows.Err()
}

func (t *txRepository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE goods_receipts SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (t *txRepository) Stock() stock.TxStore {
	return t.stock
}
