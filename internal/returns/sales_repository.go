package returns

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

// SalesRepository persists sales returns.
type SalesRepository interface {
	List(ctx context.Context, filters ListFilters) ([]SalesReturn, int, error)
	Get(ctx context.Context, id int64) (SalesReturn, error)
	Create(ctx context.Context, ret SalesReturn) (SalesReturn, error)
	Update(ctx context.Context, ret SalesReturn) error
	WithTx(ctx context.Context, fn func(tx SalesTxRepository) error) error
}

// SalesTxRepository is the write surface inside an approval transaction so
// the status change and the restock share one commit.
type SalesTxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (SalesReturn, error)
	SetStatus(ctx context.Context, id int64, status string) error
	Stock() stock.TxStore
}

type salesRepository struct {
	pool *pgxpool.Pool
}

func NewSalesRepository(pool *pgxpool.Pool) SalesRepository {
	return &salesRepository{pool: pool}
}

func (r *salesRepository) List(ctx context.Context, filters ListFilters) ([]SalesReturn, int, error) {
	clause, args := filterClause(filters, "c.name")

	base := ` FROM sales_returns p
		JOIN customers c ON c.id = p.customer_id
		WHERE 1=1` + clause

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT p.id, p.number, p.customer_id, c.name, p.date, p.status, p.reason, p.created_by, p.created_at, p.updated_at` +
		base + ` ORDER BY p.date DESC, p.id DESC` +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filters.EffectiveLimit(), filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rets []SalesReturn
	for rows.Next() {
		var ret SalesReturn
		if err := rows.Scan(&ret.ID, &ret.Number, &ret.CustomerID, &ret.CustomerName, &ret.Date,
			&ret.Status, &ret.Reason, &ret.CreatedBy, &ret.CreatedAt, &ret.UpdatedAt); err != nil {
			return nil, 0, err
		}
		rets = append(rets, ret)
	}
	return rets, total, rows.Err()
}

func (r *salesRepository) Get(ctx context.Context, id int64) (SalesReturn, error) {
	var ret SalesReturn
	err := r.pool.QueryRow(ctx, `
		SELECT p.id, p.number, p.customer_id, c.name, p.date, p.status, p.reason, p.created_by, p.created_at, p.updated_at
		FROM sales_returns p
		JOIN customers c ON c.id = p.customer_id
		WHERE p.id = $1`, id).
		Scan(&ret.ID, &ret.Number, &ret.CustomerID, &ret.CustomerName, &ret.Date,
			&ret.Status, &ret.Reason, &ret.CreatedBy, &ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SalesReturn{}, httpx.ErrNotFound
		}
		return SalesReturn{}, err
	}

	lines, err := fetchLines(ctx, r.pool, "sales_return_lines", "return_id", id, true)
	if err != nil {
		return SalesReturn{}, err
	}
	ret.Lines = lines
	return ret, nil
}

func (r *salesRepository) Create(ctx context.Context, ret SalesReturn) (SalesReturn, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO sales_returns (number, customer_id, date, status, reason, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			ret.Number, ret.CustomerID, ret.Date, ret.Status, ret.Reason, ret.CreatedBy).
			Scan(&ret.ID, &ret.CreatedAt, &ret.UpdatedAt)
		if err != nil {
			return err
		}
		return insertSalesLines(ctx, tx, ret.ID, ret.Lines)
	})
	if err != nil {
		return SalesReturn{}, err
	}
	return ret, nil
}

func (r *salesRepository) Update(ctx context.Context, ret SalesReturn) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE sales_returns
			SET customer_id = $1, date = $2, reason = $3, updated_at = NOW()
			WHERE id = $4 AND status = $5`,
			ret.CustomerID, ret.Date, ret.Reason, ret.ID, StatusDraft)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM sales_return_lines WHERE return_id = $1`, ret.ID); err != nil {
			return err
		}
		return insertSalesLines(ctx, tx, ret.ID, ret.Lines)
	})
}

func insertSalesLines(ctx context.Context, tx pgx.Tx, returnID int64, lines []ReturnLine) error {
	for _, line := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO sales_return_lines (return_id, item_id, qty, price, condition)
			VALUES ($1, $2, $3, $4, $5)`,
			returnID, line.ItemID, line.Qty, line.Price, line.Condition); err != nil {
			return err
		}
	}
	return nil
}

func (r *salesRepository) WithTx(ctx context.Context, fn func(tx SalesTxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&salesTxRepository{tx: tx, stock: stock.NewPgTxStore(tx)})
	})
}

type salesTxRepository struct {
	tx    pgx.Tx
	stock *stock.PgTxStore
}

func (t *salesTxRepository) GetForUpdate(ctx context.Context, id int64) (SalesReturn, error) {
	var ret SalesReturn
	err := t.tx.QueryRow(ctx, `
		SELECT id, number, customer_id, date, status, reason, created_by, created_at, updated_at
		FROM sales_returns WHERE id = $1 FOR UPDATE`, id).
		Scan(&ret.ID, &ret.Number, &ret.CustomerID, &ret.Date, &ret.Status, &ret.Reason,
			&ret.CreatedBy, &ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SalesReturn{}, httpx.ErrNotFound
		}
		return SalesReturn{}, err
	}

	rows, err := t.tx.Query(ctx, `SELECT id, item_id, qty, price, condition FROM sales_return_lines WHERE return_id = $1 ORDER BY id`, id)
	if err != nil {
		return SalesReturn{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line ReturnLine
		if err := rows.Scan(&line.ID, &line.ItemID, &line.Qty, &line.Price, &line.Condition); err != nil {
			return SalesReturn{}, err
		}
		ret.Lines = append(ret.Lines, line)
	}
	return ret, rows.Err()
}

func (t *salesTxRepository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE sales_returns SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (t *salesTxRepository) Stock() stock.TxStore {
	return t.stock
}
