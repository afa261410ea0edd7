package reports

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SourceRepository reads the four mutation sources. Each query returns
// signed, date-ordered entries; the service interleaves them.
type SourceRepository interface {
	ReceiptMovements(ctx context.Context, filters Filters) ([]MutationEntry, error)
	DeliveryMovements(ctx context.Context, filters Filters) ([]MutationEntry, error)
	PurchaseReturnMovements(ctx context.Context, filters Filters) ([]MutationEntry, error)
	SalesReturnMovements(ctx context.Context, filters Filters) ([]MutationEntry, error)
	PurchaseSummary(ctx context.Context, filters Filters) ([]PurchaseRow, error)
	SalesSummary(ctx context.Context, filters Filters) ([]SalesRow, error)
}

type sourceRepository struct {
	pool *pgxpool.Pool
}

func NewSourceRepository(pool *pgxpool.Pool) SourceRepository {
	return &sourceRepository{pool: pool}
}

func dateClause(filters Filters, column string, args *[]any) string {
	clause := ``
	if filters.From != nil {
		*args = append(*args, *filters.From)
		clause += ` AND ` + column + ` >= $` + strconv.Itoa(len(*args))
	}
	if filters.To != nil {
		*args = append(*args, *filters.To)
		clause += ` AND ` + column + ` <= $` + strconv.Itoa(len(*args))
	}
	return clause
}

func itemClause(filters Filters, column string, args *[]any) string {
	if filters.ItemID <= 0 {
		return ``
	}
	*args = append(*args, filters.ItemID)
	return ` AND ` + column + ` = $` + strconv.Itoa(len(*args))
}

func collectEntries(rows pgx.Rows) ([]MutationEntry, error) {
	defer rows.Close()
	var entries []MutationEntry
	for rows.Next() {
		var e MutationEntry
		if err := rows.Scan(&e.Date, &e.DocNumber, &e.Source, &e.ItemID, &e.ItemCode, &e.ItemName, &e.WarehouseID, &e.Qty, &e.Price, &e.Value); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReceiptMovements: every posted goods receipt line adds stock to the
// receipt's warehouse.
func (r *sourceRepository) ReceiptMovements(ctx context.Context, filters Filters) ([]MutationEntry, error) {
	args := []any{}
	query := `
		SELECT h.date, h.number, 'BM', l.item_id, i.code, i.name, h.warehouse_id, l.qty, l.price, l.qty * l.price
		FROM goods_receipts h
		JOIN goods_receipt_lines l ON l.receipt_id = h.id
		JOIN items i ON i.id = l.item_id
		WHERE h.status = 'POSTED'` +
		dateClause(filters, "h.date", &args) +
		itemClause(filters, "l.item_id", &args) +
		` ORDER BY h.date, h.id, l.id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// DeliveryMovements: dispatched and delivered note lines remove stock from
// the shipping warehouse. Dropship lines never held stock and are excluded.
func (r *sourceRepository) DeliveryMovements(ctx context.Context, filters Filters) ([]MutationEntry, error) {
	args := []any{}
	query := `
		SELECT h.date, h.number, 'SJ', l.item_id, i.code, i.name, h.warehouse_id, -l.qty, l.price, -(l.qty * l.price)
		FROM delivery_notes h
		JOIN delivery_note_lines l ON l.note_id = h.id
		JOIN items i ON i.id = l.item_id
		WHERE h.status IN ('IN_TRANSIT', 'DELIVERED') AND NOT l.dropship` +
		dateClause(filters, "h.date", &args) +
		itemClause(filters, "l.item_id", &args) +
		` ORDER BY h.date, h.id, l.id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// PurchaseReturnMovements: completed purchase returns remove stock at the
// company level; the documents carry no warehouse.
func (r *sourceRepository) PurchaseReturnMovements(ctx context.Context, filters Filters) ([]MutationEntry, error) {
	args := []any{}
	query := `
		SELECT h.date, h.number, 'RB', l.item_id, i.code, i.name, 0::bigint, -l.qty, l.price, -(l.qty * l.price)
		FROM purchase_returns h
		JOIN purchase_return_lines l ON l.return_id = h.id
		JOIN items i ON i.id = l.item_id
		WHERE h.status = 'COMPLETED'` +
		dateClause(filters, "h.date", &args) +
		itemClause(filters, "l.item_id", &args) +
		` ORDER BY h.date, h.id, l.id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// SalesReturnMovements: completed sales returns add their resellable lines
// back, also at the company level.
func (r *sourceRepository) SalesReturnMovements(ctx context.Context, filters Filters) ([]MutationEntry, error) {
	args := []any{}
	query := `
		SELECT h.date, h.number, 'RJ', l.item_id, i.code, i.name, 0::bigint, l.qty, l.price, l.qty * l.price
		FROM sales_returns h
		JOIN sales_return_lines l ON l.return_id = h.id
		JOIN items i ON i.id = l.item_id
		WHERE h.status = 'COMPLETED' AND l.condition = 'RESELLABLE'` +
		dateClause(filters, "h.date", &args) +
		itemClause(filters, "l.item_id", &args) +
		` ORDER BY h.date, h.id, l.id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func (r *sourceRepository) PurchaseSummary(ctx context.Context, filters Filters) ([]PurchaseRow, error) {
	args := []any{}
	query := `
		SELECT h.supplier_id, s.name, l.item_id, i.code, i.name, SUM(l.qty), SUM(l.qty * l.price)
		FROM goods_receipts h
		JOIN goods_receipt_lines l ON l.receipt_id = h.id
		JOIN items i ON i.id = l.item_id
		JOIN suppliers s ON s.id = h.supplier_id
		WHERE h.status = 'POSTED'` +
		dateClause(filters, "h.date", &args) +
		itemClause(filters, "l.item_id", &args) +
		` GROUP BY h.supplier_id, s.name, l.item_id, i.code, i.name
		ORDER BY s.name, i.name`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PurchaseRow
	for rows.Next() {
		var row PurchaseRow
		if err := rows.Scan(&row.SupplierID, &row.SupplierName, &row.ItemID, &row.ItemCode, &row.ItemName, &row.Qty, &row.Value); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *sourceRepository) SalesSummary(ctx context.Context, filters Filters) ([]SalesRow, error) {
	args := []any{}
	query := `
		SELECT h.customer_id, c.name, l.item_id, i.code, i.name, SUM(l.qty), SUM(l.qty * l.price)
		FROM delivery_notes h
		JOIN delivery_note_lines l ON l.note_id = h.id
		JOIN items i ON i.id = l.item_id
		JOIN customers c ON c.id = h.customer_id
		WHERE h.status = 'DELIVERED'` +
		dateClause(filters, "h.date", &args) +
		itemClause(filters, "l.item_id", &args) +
		` GROUP BY h.customer_id, c.name, l.item_id, i.code, i.name
		ORDER BY c.name, i.name`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SalesRow
	for rows.Next() {
		var row SalesRow
		if err := rows.Scan(&row.CustomerID, &row.CustomerName, &row.ItemID, &row.ItemCode, &row.ItemName, &row.Qty, &row.Value); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
