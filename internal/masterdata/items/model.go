package items

import (
	"time"
)

// Item represents an item (barang) master record.
type Item struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	CategoryID int64     `json:"category_id"`
	Unit       string    `json:"unit"`
	BuyPrice   float64   `json:"buy_price"`
	SellPrice  float64   `json:"sell_price"`
	MinStock   int64     `json:"min_stock"`
	MaxStock   *int64    `json:"max_stock,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// TotalStock is the sum of per-warehouse balances, derived at read time.
	TotalStock int64 `json:"total_stock"`
}
