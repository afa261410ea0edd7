// Package stock owns per-item, per-warehouse quantity balances. Balances are
// the single source of truth for on-hand stock: item level totals are derived
// by summing warehouse balances, never stored separately.
package stock

import (
	"errors"
	"time"
)

// Balance summarises stock of one item in one warehouse.
type Balance struct {
	ItemID      int64     `json:"item_id"`
	WarehouseID int64     `json:"warehouse_id"`
	Qty         int64     `json:"qty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BalanceDetail joins a balance with master data for reporting.
type BalanceDetail struct {
	Balance
	ItemCode      string `json:"item_code"`
	ItemName      string `json:"item_name"`
	WarehouseCode string `json:"warehouse_code"`
	WarehouseName string `json:"warehouse_name"`
	MinStock      int64  `json:"min_stock"`
	MaxStock      *int64 `json:"max_stock,omitempty"`
	BelowMin      bool   `json:"below_min"`
}

// BalanceFilter narrows balance listings.
type BalanceFilter struct {
	ItemID      int64
	WarehouseID int64
	BelowMin    bool
	Limit       int
	Offset      int
}

// LowStockItem describes an item whose total stock fell below its minimum.
type LowStockItem struct {
	ItemID   int64
	ItemCode string
	ItemName string
	Total    int64
	MinStock int64
}

// ErrNegativeStock is returned when a movement would drive a balance below zero.
var ErrNegativeStock = errors.New("stock: negative stock not allowed")

// ErrInvalidQuantity indicates a non-positive movement quantity.
var ErrInvalidQuantity = errors.New("stock: quantity must be positive")

// ErrBalanceNotFound indicates a missing balance row.
var ErrBalanceNotFound = errors.New("stock: balance not found")

// ErrNoWarehouse indicates no warehouse exists to receive restocked goods.
var ErrNoWarehouse = errors.New("stock: no warehouse available")
