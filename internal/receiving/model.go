package receiving

import "time"

// Goods receipt document statuses.
const (
	StatusDraft     = "DRAFT"
	StatusPosted    = "POSTED"
	StatusCancelled = "CANCELLED"
)

// GoodsReceipt records incoming stock from a supplier into a warehouse.
// Stock only moves when the document is posted.
type GoodsReceipt struct {
	ID            int64         `json:"id"`
	Number        string        `json:"number"`
	SupplierID    int64         `json:"supplier_id"`
	SupplierName  string        `json:"supplier_name,omitempty"`
	WarehouseID   int64         `json:"warehouse_id"`
	WarehouseName string        `json:"warehouse_name,omitempty"`
	Date          time.Time     `json:"date"`
	Status        string        `json:"status"`
	Note          string        `json:"note"`
	Lines         []ReceiptLine `json:"lines,omitempty"`
	CreatedBy     int64         `json:"created_by"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ReceiptLine is one received item on a goods receipt.
type ReceiptLine struct {
	ID       int64   `json:"id"`
	ItemID   int64   `json:"item_id"`
	ItemCode string  `json:"item_code,omitempty"`
	ItemName string  `json:"item_name,omitempty"`
	Qty      int64   `json:"qty"`
	Price    float64 `json:"price"`
}

// ListFilters narrows goods receipt listings.
type ListFilters struct {
	Page   int
	Limit  int
	Search string
	Status string
	From   *time.Time
	To     *time.Time
}

func (f ListFilters) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.EffectiveLimit()
}

func (f ListFilters) EffectiveLimit() int {
	if f.Limit < 1 {
		return 10
	}
	return f.Limit
}
