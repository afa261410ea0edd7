package shipping

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumbung-wms/lumbung-wms/internal/platform/db"
	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
	"github.com/lumbung-wms/lumbung-wms/internal/stock"
)

// Repository persists delivery notes.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]DeliveryNote, int, error)
	Get(ctx context.Context, id int64) (DeliveryNote, error)
	Create(ctx context.Context, note DeliveryNote) (DeliveryNote, error)
	Update(ctx context.Context, note DeliveryNote) error
	WithTx(ctx context.Context, fn func(tx TxRepository) error) error
}

// TxRepository is the write surface inside a lifecycle transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (DeliveryNote, error)
	SetStatus(ctx context.Context, id int64, status string) error
	MarkDelivered(ctx context.Context, id int64, at time.Time) error
	Stock() stock.TxStore
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const headerColumns = `
	n.id, n.number, n.customer_id, c.name, n.warehouse_id, w.name,
	n.date, n.status, n.note, n.delivered_at, n.created_by, n.created_at, n.updated_at`

func scanHeader(row pgx.Row) (DeliveryNote, error) {
	var n DeliveryNote
	err := row.Scan(&n.ID, &n.Number, &n.CustomerID, &n.CustomerName, &n.WarehouseID, &n.WarehouseName,
		&n.Date, &n.Status, &n.Note, &n.DeliveredAt, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]DeliveryNote, int, error) {
	clause := ``
	args := []any{}
	argCount := 0
	if filters.Status != "" {
		argCount++
		clause += ` AND n.status = $` + strconv.Itoa(argCount)
		args = append(args, filters.Status)
	}
	if filters.Search != "" {
		argCount++
		clause += ` AND (n.number ILIKE $` + strconv.Itoa(argCount) + ` OR c.name ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.From != nil {
		argCount++
		clause += ` AND n.date >= $` + strconv.Itoa(argCount)
		args = append(args, *filters.From)
	}
	if filters.To != nil {
		argCount++
		clause += ` AND n.date <= $` + strconv.Itoa(argCount)
		args = append(args, *filters.To)
	}

	base := ` FROM delivery_notes n
		JOIN customers c ON c.id = n.customer_id
		JOIN warehouses w ON w.id = n.warehouse_id
		WHERE 1=1` + clause

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+base, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + headerColumns + base + ` ORDER BY n.date DESC, n.id DESC`
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

	var notes []DeliveryNote
	for rows.Next() {
		note, err := scanHeader(rows)
		if err != nil {
			return nil, 0, err
		}
		notes = append(notes, note)
	}
	return notes, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (DeliveryNote, error) {
	note, err := scanHeader(r.pool.QueryRow(ctx, `SELECT `+headerColumns+`
		FROM delivery_notes n
		JOIN customers c ON c.id = n.customer_id
		JOIN warehouses w ON w.id = n.warehouse_id
		WHERE n.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DeliveryNote{}, httpx.ErrNotFound
		}
		return DeliveryNote{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.item_id, i.code, i.name, l.qty, l.price, l.dropship
		FROM delivery_note_lines l
		JOIN items i ON i.id = l.item_id
		WHERE l.note_id = $1
		ORDER BY l.id`, id)
	if err != nil {
		return DeliveryNote{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var line DeliveryLine
		if err := rows.Scan(&line.ID, &line.ItemID, &line.ItemCode, &line.ItemName, &line.Qty, &line.Price, &line.Dropship); err != nil {
			return DeliveryNote{}, err
		}
		note.Lines = append(note.Lines, line)
	}
	return note, rows.Err()
}

func (r *repository) Create(ctx context.Context, note DeliveryNote) (DeliveryNote, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO delivery_notes (number, customer_id, warehouse_id, date, status, note, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			note.Number, note.CustomerID, note.WarehouseID, note.Date, note.Status, note.Note, note.CreatedBy).
			Scan(&note.ID, &note.CreatedAt, &note.UpdatedAt)
		if err != nil {
			return err
		}
		return insertLines(ctx, tx, note.ID, note.Lines)
	})
	if err != nil {
		return DeliveryNote{}, err
	}
	return note, nil
}

func (r *repository) Update(ctx context.Context, note DeliveryNote) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE delivery_notes
			SET customer_id = $1, warehouse_id = $2, date = $3, note = $4, updated_at = NOW()
			WHERE id = $5 AND status = $6`,
			note.CustomerID, note.WarehouseID, note.Date, note.Note, note.ID, StatusDraft)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM delivery_note_lines WHERE note_id = $1`, note.ID); err != nil {
			return err
		}
		return insertLines(ctx, tx, note.ID, note.Lines)
	})
}

func insertLines(ctx context.Context, tx pgx.Tx, noteID int64, lines []DeliveryLine) error {
	for _, line := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO delivery_note_lines (note_id, item_id, qty, price, dropship)
			VALUES ($1, $2, $3, $4, $5)`,
			noteID, line.ItemID, line.Qty, line.Price, line.Dropship); err != nil {
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

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (DeliveryNote, error) {
	var n DeliveryNote
	err := t.tx.QueryRow(ctx, `
		SELECT id, number, customer_id, warehouse_id, date, status, note, delivered_at, created_by, created_at, updated_at
		FROM delivery_notes WHERE id = $1 FOR UPDATE`, id).
		Scan(&n.ID, &n.Number, &n.CustomerID, &n.WarehouseID, &n.Date, &n.Status, &n.Note, &n.DeliveredAt, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DeliveryNote{}, httpx.ErrNotFound
		}
		return DeliveryNote{}, err
	}

	rows, err := t.tx.Query(ctx, `SELECT id, item_id, qty, price, dropship FROM delivery_note_lines WHERE note_id = $1 ORDER BY id`, id)
	if err != nil {
		return DeliveryNote{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line DeliveryLine
		if err := rows.Scan(&line.ID, &line.ItemID, &line.Qty, &line.Price, &line.Dropship); err != nil {
			return DeliveryNote{}, err
		}
		n.Lines = append(n.Lines, line)
	}
	return n, rows.Err()
}

func (t *txRepository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE delivery_notes SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}

func (t *txRepository) MarkDelivered(ctx context.Context, id int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE delivery_notes SET status = $1, delivered_at = $2, updated_at = NOW() WHERE id = $3`,
		StatusDelivered, at, id)
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
