package transfers

import "time"

// Delivery order statuses.
const (
	StatusDraft     = "DRAFT"
	StatusInTransit = "IN_TRANSIT"
	StatusDelivered = "DELIVERED"
	StatusCancelled = "CANCELLED"
)

// DeliveryOrder dispatches goods from a warehouse to a free-text internal
// destination. It tracks movement paperwork only and never adjusts stock
// balances.
type DeliveryOrder struct {
	ID            int64          `json:"id"`
	Number        string         `json:"number"`
	WarehouseID   int64          `json:"warehouse_id"`
	WarehouseName string         `json:"warehouse_name,omitempty"`
	Destination   string         `json:"destination"`
	Date          time.Time      `json:"date"`
	Status        string         `json:"status"`
	Note          string         `json:"note"`
	Lines         []TransferLine `json:"lines,omitempty"`
	CreatedBy     int64          `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TransferLine is one moved item on a delivery order.
type TransferLine struct {
	ID       int64  `json:"id"`
	ItemID   int64  `json:"item_id"`
	ItemCode string `json:"item_code,omitempty"`
	ItemName string `json:"item_name,omitempty"`
	Qty      int64  `json:"qty"`
}

// ListFilters narrows delivery order listings.
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
