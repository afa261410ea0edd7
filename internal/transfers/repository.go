package transfers

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

// Repository persists delivery orders.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]DeliveryOrder, int, error)
	Get(ctx context.Context, id int64) (DeliveryOrder, error)
	Create(ctx context.Context, order DeliveryOrder) (DeliveryOrder, error)
	Update(ctx context.Context, order DeliveryOrder) error
	Transition(ctx context.Context, id int64, from, to string) (DeliveryOrder, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const headerColumns = `
	o.id, o.number, o.warehouse_id, w.name, o.destination,
	o.date, o.status, o.note, o.created_by, o.created_at, o.updated_at`

func scanHeader(row pgx.Row) (DeliveryOrder, error) {
	var o DeliveryOrder
	err := row.Scan(&o.ID, &o.Number, &o.WarehouseID, &o.WarehouseName, &o.Destination,
		&o.Date, &o.Status, &o.Note, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]DeliveryOrder, int, error) {
	clause := ``
	args := []any{}
	argCount := 0
	if filters.Status != "" {
		argCount++
		clause += ` AND o.status = $` + strconv.Itoa(argCount)
		args = append(args, filters.Status)
	}
	if filters.Search != "" {
		argCount++
		clause += ` AND (o.number ILIKE $` + strconv.Itoa(argCount) + ` OR o.destination ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.From != nil {
		argCount++
		clause += ` AND o.date >= $` + strconv.Itoa(argCount)
		args = append(args, *filters.From)
	}
	if filters.To != nil {
		argCount++
		clause += ` AND o.date <= $` + strconv.Itoa(argCount)
		args = append(args, *filters.To)
	}

	base := ` FROM delivery_orders o
		JOIN warehouses w ON w.id = o.warehouse_id
		WHERE 1=1` + clause

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + headerColumns + base + ` ORDER BY o.date DESC, o.id DESC`
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

	var orders []DeliveryOrder
	for rows.Next() {
		order, err := scanHeader(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, order)
	}
	return orders, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (DeliveryOrder, error) {
	order, err := scanHeader(r.pool.QueryRow(ctx, `SELECT `+headerColumns+`
		FROM delivery_orders o
		JOIN warehouses w ON w.id = o.warehouse_id
		WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DeliveryOrder{}, httpx.ErrNotFound
		}
		return DeliveryOrder{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.item_id, i.code, i.name, l.qty
		FROM delivery_order_lines l
		JOIN items i ON i.id = l.item_id
		WHERE l.order_id = $1
		ORDER BY l.id`, id)
	if err != nil {
		return DeliveryOrder{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var line TransferLine
		if err := rows.Scan(&line.ID, &line.ItemID, &line.ItemCode, &line.ItemName, &line.Qty); err != nil {
			return DeliveryOrder{}, err
		}
		order.Lines = append(order.Lines, line)
	}
	return order, rows.Err()
}

func (r *repository) Create(ctx context.Context, order DeliveryOrder) (DeliveryOrder, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO delivery_orders (number, warehouse_id, destination, date, status, note, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			order.Number, order.WarehouseID, order.Destination, order.Date, order.Status, order.Note, order.CreatedBy).
			Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return err
		}
		return insertLines(ctx, tx, order.ID, order.Lines)
	})
	if err != nil {
		return DeliveryOrder{}, err
	}
	return order, nil
}

func (r *repository) Update(ctx context.Context, order DeliveryOrder) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE delivery_orders
			SET warehouse_id = $1, destination = $2, date = $3, note = $4, updated_at = NOW()
			WHERE id = $5 AND status = $6`,
			order.WarehouseID, order.Destination, order.Date, order.Note, order.ID, StatusDraft)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM delivery_order_lines WHERE order_id = $1`, order.ID); err != nil {
			return err
		}
		return insertLines(ctx, tx, order.ID, order.Lines)
	})
}

func insertLines(ctx context.Context, tx pgx.Tx, orderID int64, lines []TransferLine) error {
	for _, line := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO delivery_order_lines (order_id, item_id, qty)
			VALUES ($1, $2, $3)`,
			orderID, line.ItemID, line.Qty); err != nil {
			return err
		}
	}
	return nil
}

// Transition moves a document between statuses, locking the row first so two
// concurrent actions cannot both observe the source status.
func (r *repository) Transition(ctx context.Context, id int64, from, to string) (DeliveryOrder, error) {
	var order DeliveryOrder
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT id, number, warehouse_id, destination, date, status, note, created_by, created_at, updated_at
			FROM delivery_orders WHERE id = $1 FOR UPDATE`, id).
			Scan(&order.ID, &order.Number, &order.WarehouseID, &order.Destination, &order.Date,
				&order.Status, &order.Note, &order.CreatedBy, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return httpx.ErrNotFound
			}
			return err
		}
		if order.Status != from {
			return fmt.Errorf("%w: delivery order %s is %s", httpx.ErrInvalidState, order.Number, order.Status)
		}
		if _, err := tx.Exec(ctx, `UPDATE delivery_orders SET status = $1, updated_at = NOW() WHERE id = $2`, to, id); err != nil {
			return err
		}
		order.Status = to
		return nil
	})
	if err != nil {
		return DeliveryOrder{}, err
	}
	return order, nil
}
