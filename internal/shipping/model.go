package shipping

import "time"

// Delivery note statuses.
const (
	StatusDraft     = "DRAFT"
	StatusInTransit = "IN_TRANSIT"
	StatusDelivered = "DELIVERED"
	StatusCancelled = "CANCELLED"
)

// DeliveryNote records outgoing stock from a warehouse to a customer.
// Dropship lines ship straight from the supplier and never touch warehouse
// stock; only non-dropship lines decrement balances on delivery.
type DeliveryNote struct {
	ID            int64          `json:"id"`
	Number        string         `json:"number"`
	CustomerID    int64          `json:"customer_id"`
	CustomerName  string         `json:"customer_name,omitempty"`
	WarehouseID   int64          `json:"warehouse_id"`
	WarehouseName string         `json:"warehouse_name,omitempty"`
	Date          time.Time      `json:"date"`
	Status        string         `json:"status"`
	Note          string         `json:"note"`
	Lines         []DeliveryLine `json:"lines,omitempty"`
	DeliveredAt   *time.Time     `json:"delivered_at,omitempty"`
	CreatedBy     int64          `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DeliveryLine is one shipped item on a delivery note.
type DeliveryLine struct {
	ID       int64   `json:"id"`
	ItemID   int64   `json:"item_id"`
	ItemCode string  `json:"item_code,omitempty"`
	ItemName string  `json:"item_name,omitempty"`
	Qty      int64   `json:"qty"`
	Price    float64 `json:"price"`
	Dropship bool    `json:"dropship"`
}

// ListFilters narrows delivery note listings.
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
