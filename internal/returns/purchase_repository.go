package returns

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumbung-wms/lumbung-wms/internal/platform/db"
	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
)

// PurchaseRepository persists purchase returns.
type PurchaseRepository interface {
	List(ctx context.Context, filters ListFilters) ([]PurchaseReturn, int, error)
	Get(ctx context.Context, id int64) (PurchaseReturn, error)
	Create(ctx context.Context, ret PurchaseReturn) (PurchaseReturn, error)
	Update(ctx context.Context, ret PurchaseReturn) error
	Transition(ctx context.Context, id int64, from, to string) (PurchaseReturn, error)
}

type purchaseRepository struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepository(pool *pgxpool.Pool) PurchaseRepository {
	return &purchaseRepository{pool: pool}
}

func (r *purchaseRepository) List(ctx context.Context, filters ListFilters) ([]PurchaseReturn, int, error) {
	clause, args := filterClause(filters, "s.name")

	base := ` FROM purchase_returns p
		JOIN suppliers s ON s.id = p.supplier_id
		WHERE 1=1` + clause

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT p.id, p.number, p.supplier_id, s.name, p.date, p.status, p.reason, p.created_by, p.created_at, p.updated_at` +
		base + ` ORDER BY p.date DESC, p.id DESC` +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, filters.EffectiveLimit(), filters.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rets []PurchaseReturn
	for rows.Next() {
		var ret PurchaseReturn
		if err := rows.Scan(&ret.ID, &ret.Number, &ret.SupplierID, &ret.SupplierName, &ret.Date,
			&ret.Status, &ret.Reason, &ret.CreatedBy, &ret.CreatedAt, &ret.UpdatedAt); err != nil {
			return nil, 0, err
		}
		rets = append(rets, ret)
	}
	return rets, total, rows.Err()
}

func (r *purchaseRepository) Get(ctx context.Context, id int64) (PurchaseReturn, error) {
	var ret PurchaseReturn
	err := r.pool.QueryRow(ctx, `
		SELECT p.id, p.number, p.supplier_id, s.name, p.date, p.status, p.reason, p.created_by, p.created_at, p.updated_at
		FROM purchase_returns p
		JOIN suppliers s ON s.id = p.supplier_id
		WHERE p.id = $1`, id).
		Scan(&ret.ID, &ret.Number, &ret.SupplierID, &ret.SupplierName, &ret.Date,
			&ret.Status, &ret.Reason, &ret.CreatedBy, &ret.CreatedAt, &ret.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseReturn{}, httpx.ErrNotFound
		}
		return PurchaseReturn{}, err
	}

	lines, err := fetchLines(ctx, r.pool, "purchase_return_lines", "return_id", id, false)
	if err != nil {
		return PurchaseReturn{}, err
	}
	ret.Lines = lines
	return ret, nil
}

func (r *purchaseRepository) Create(ctx context.Context, ret PurchaseReturn) (PurchaseReturn, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO purchase_returns (number, supplier_id, date, status, reason, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			ret.Number, ret.SupplierID, ret.Date, ret.Status, ret.Reason, ret.CreatedBy).
			Scan(&ret.ID, &ret.CreatedAt, &ret.UpdatedAt)
		if err != nil {
			return err
		}
		return insertPurchaseLines(ctx, tx, ret.ID, ret.Lines)
	})
	if err != nil {
		return PurchaseReturn{}, err
	}
	return ret, nil
}

func (r *purchaseRepository) Update(ctx context.Context, ret PurchaseReturn) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE purchase_returns
			SET supplier_id = $1, date = $2, reason = $3, updated_at = NOW()
			WHERE id = $4 AND status = $5`,
			ret.SupplierID, ret.Date, ret.Reason, ret.ID, StatusDraft)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM purchase_return_lines WHERE return_id = $1`, ret.ID); err != nil {
			return err
		}
		return insertPurchaseLines(ctx, tx, ret.ID, ret.Lines)
	})
}

func insertPurchaseLines(ctx context.Context, tx pgx.Tx, returnID int64, lines []ReturnLine) error {
	for _, line := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_return_lines (return_id, item_id, qty, price)
			VALUES ($1, $2, $3, $4)`,
			returnID, line.ItemID, line.Qty, line.Price); err != nil {
			return err
		}
	}
	return nil
}

func (r *purchaseRepository) Transition(ctx context.Context, id int64, from, to string) (PurchaseReturn, error) {
	var ret PurchaseReturn
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT id, number, supplier_id, date, status, reason, created_by, created_at, updated_at
			FROM purchase_returns WHERE id = $1 FOR UPDATE`, id).
			Scan(&ret.ID, &ret.Number, &ret.SupplierID, &ret.Date, &ret.Status, &ret.Reason,
				&ret.CreatedBy, &ret.CreatedAt, &ret.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return httpx.ErrNotFound
			}
			return err
		}
		if ret.Status != from {
			return fmt.Errorf("%w: purchase return %s is %s", httpx.ErrInvalidState, ret.Number, ret.Status)
		}
		if _, err := tx.Exec(ctx, `UPDATE purchase_returns SET status = $1, updated_at = NOW() WHERE id = $2`, to, id); err != nil {
			return err
		}
		ret.Status = to
		return nil
	})
	if err != nil {
		return PurchaseReturn{}, err
	}
	return ret, nil
}

func filterClause(filters ListFilters, partyColumn string) (string, []any) {
	clause := ``
	args := []any{}
	argCount := 0
	if filters.Status != "" {
		argCount++
		clause += ` AND p.status = $` + strconv.Itoa(argCount)
		args = append(args, filters.Status)
	}
	if filters.Search != "" {
		argCount++
		clause += ` AND (p.number ILIKE $` + strconv.Itoa(argCount) + ` OR ` + partyColumn + ` ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.From != nil {
		argCount++
		clause += ` AND p.date >= $` + strconv.Itoa(argCount)
		args = append(args, *filters.From)
	}
	if filters.To != nil {
		argCount++
		clause += ` AND p.date <= $` + strconv.Itoa(argCount)
		args = append(args, *filters.To)
	}
	return clause, args
}

func fetchLines(ctx context.Context, pool *pgxpool.Pool, table, fk string, id int64, withCondition bool) ([]ReturnLine, error) {
	columns := `l.id, l.item_id, i.code, i.name, l.qty, l.price`
	if withCondition {
		columns += `, l.condition`
	}
	rows, err := pool.Query(ctx, `
		SELECT `+columns+`
		FROM `+table+` l
		JOIN items i ON i.id = l.item_id
		WHERE l.`+fk+` = $1
		ORDER BY l.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ReturnLine
	for rows.Next() {
		var line ReturnLine
		dest := []any{&line.ID, &line.ItemID, &line.ItemCode, &line.ItemName, &line.Qty, &line.Price}
		if withCondition {
			dest = append(dest, &line.Condition)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
