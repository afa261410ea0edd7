package returns

import "time"

// Return document statuses, shared by purchase and sales returns.
const (
	StatusDraft     = "DRAFT"
	StatusApproved  = "APPROVED"
	StatusCompleted = "COMPLETED"
)

// Line conditions on sales returns. Only resellable goods go back on the
// shelf; damaged goods are written off outside the stock ledger.
const (
	ConditionResellable = "RESELLABLE"
	ConditionDamaged    = "DAMAGED"
)

// PurchaseReturn sends goods back to a supplier. Approval and completion are
// administrative steps; the outbound movement appears in the mutation ledger
// without adjusting warehouse balances.
type PurchaseReturn struct {
	ID           int64        `json:"id"`
	Number       string       `json:"number"`
	SupplierID   int64        `json:"supplier_id"`
	SupplierName string       `json:"supplier_name,omitempty"`
	Date         time.Time    `json:"date"`
	Status       string       `json:"status"`
	Reason       string       `json:"reason"`
	Lines        []ReturnLine `json:"lines,omitempty"`
	CreatedBy    int64        `json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// SalesReturn takes goods back from a customer. Approving it restocks the
// resellable lines.
type SalesReturn struct {
	ID           int64        `json:"id"`
	Number       string       `json:"number"`
	CustomerID   int64        `json:"customer_id"`
	CustomerName string       `json:"customer_name,omitempty"`
	Date         time.Time    `json:"date"`
	Status       string       `json:"status"`
	Reason       string       `json:"reason"`
	Lines        []ReturnLine `json:"lines,omitempty"`
	CreatedBy    int64        `json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ReturnLine is one returned item. Condition is set on sales returns and
// empty on purchase returns.
type ReturnLine struct {
	ID        int64   `json:"id"`
	ItemID    int64   `json:"item_id"`
	ItemCode  string  `json:"item_code,omitempty"`
	ItemName  string  `json:"item_name,omitempty"`
	Qty       int64   `json:"qty"`
	Price     float64 `json:"price"`
	Condition string  `json:"condition,omitempty"`
}

// ListFilters narrows return listings.
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
