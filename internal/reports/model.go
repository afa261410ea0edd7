package reports

import "time"

// Modules appearing as mutation sources.
const (
	SourceGoodsReceipt   = "BM"
	SourceDeliveryNote   = "SJ"
	SourcePurchaseReturn = "RB"
	SourceSalesReturn    = "RJ"
)

// GlobalWarehouse marks ledger entries that are not tied to a single
// warehouse (returns move stock at the company level).
const GlobalWarehouse int64 = 0

// MutationEntry is one signed stock movement in the reconstructed ledger.
// Value carries the same sign as Qty (qty times unit price); Balance is the
// running total for the entry's (item, warehouse) key after this movement.
type MutationEntry struct {
	Date        time.Time `json:"date"`
	DocNumber   string    `json:"doc_number"`
	Source      string    `json:"source"`
	ItemID      int64     `json:"item_id"`
	ItemCode    string    `json:"item_code"`
	ItemName    string    `json:"item_name"`
	WarehouseID int64     `json:"warehouse_id"`
	Qty         int64     `json:"qty"`
	Price       float64   `json:"price"`
	Value       float64   `json:"value"`
	Balance     int64     `json:"balance"`
}

// PurchaseRow aggregates posted receipts per supplier and item.
type PurchaseRow struct {
	SupplierID   int64   `json:"supplier_id"`
	SupplierName string  `json:"supplier_name"`
	ItemID       int64   `json:"item_id"`
	ItemCode     string  `json:"item_code"`
	ItemName     string  `json:"item_name"`
	Qty          int64   `json:"qty"`
	Value        float64 `json:"value"`
}

// SalesRow aggregates delivered notes per customer and item.
type SalesRow struct {
	CustomerID   int64   `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	ItemID       int64   `json:"item_id"`
	ItemCode     string  `json:"item_code"`
	ItemName     string  `json:"item_name"`
	Qty          int64   `json:"qty"`
	Value        float64 `json:"value"`
}

// Filters narrows report output.
type Filters struct {
	From   *time.Time
	To     *time.Time
	ItemID int64
}
