package stock

import (
	"context"
	"errors"
	"fmt"
)

// TxStore is the balance persistence surface an Applier mutates. It is
// satisfied by PgTxStore inside a database transaction; the transaction
// packages pass it through so header updates and balance changes commit or
// roll back together.
type TxStore interface {
	// GetBalanceForUpdate loads a balance row with a row lock, returning
	// ErrBalanceNotFound when the pair has never been stocked.
	GetBalanceForUpdate(ctx context.Context, itemID, warehouseID int64) (Balance, error)
	// UpsertBalance creates or replaces the balance row.
	UpsertBalance(ctx context.Context, balance Balance) error
	// LowestWarehouseBalance returns the balance row for the item with the
	// smallest warehouse id, or ErrBalanceNotFound.
	LowestWarehouseBalance(ctx context.Context, itemID int64) (Balance, error)
	// FirstWarehouseID returns the smallest warehouse id, or ErrNoWarehouse.
	FirstWarehouseID(ctx context.Context) (int64, error)
}

// Applier adjusts balances. A zero Applier forbids negative stock.
type Applier struct {
	AllowNegative bool
}

// Increase raises the balance for (item, warehouse) by qty, creating the row
// on first stocking.
func (a Applier) Increase(ctx context.Context, store TxStore, itemID, warehouseID, qty int64) (Balance, error) {
	if itemID == 0 || warehouseID == 0 {
		return Balance{}, errors.New("stock: item and warehouse required")
	}
	if qty <= 0 {
		return Balance{}, ErrInvalidQuantity
	}
	balance, err := store.GetBalanceForUpdate(ctx, itemID, warehouseID)
	if err != nil && !errors.Is(err, ErrBalanceNotFound) {
		return Balance{}, err
	}
	if errors.Is(err, ErrBalanceNotFound) {
		balance = Balance{ItemID: itemID, WarehouseID: warehouseID}
	}
	balance.Qty += qty
	if err := store.UpsertBalance(ctx, balance); err != nil {
		return Balance{}, err
	}
	return balance, nil
}

// Decrease lowers the balance for (item, warehouse) by qty. Unless negative
// stock is allowed, the movement fails when the balance would go below zero.
func (a Applier) Decrease(ctx context.Context, store TxStore, itemID, warehouseID, qty int64) (Balance, error) {
	if itemID == 0 || warehouseID == 0 {
		return Balance{}, errors.New("stock: item and warehouse required")
	}
	if qty <= 0 {
		return Balance{}, ErrInvalidQuantity
	}
	balance, err := store.GetBalanceForUpdate(ctx, itemID, warehouseID)
	if err != nil {
		if errors.Is(err, ErrBalanceNotFound) {
			if !a.AllowNegative {
				return Balance{}, fmt.Errorf("%w: item %d has no stock in warehouse %d", ErrNegativeStock, itemID, warehouseID)
			}
			balance = Balance{ItemID: itemID, WarehouseID: warehouseID}
		} else {
			return Balance{}, err
		}
	}
	if !a.AllowNegative && balance.Qty-qty < 0 {
		return Balance{}, fmt.Errorf("%w: item %d warehouse %d has %d, need %d", ErrNegativeStock, itemID, warehouseID, balance.Qty, qty)
	}
	balance.Qty -= qty
	if err := store.UpsertBalance(ctx, balance); err != nil {
		return Balance{}, err
	}
	return balance, nil
}

// Restock adds returned goods back to the item's existing balance with the
// lowest warehouse id. When the item has never been stocked, the row is
// created against the first warehouse. The original shipping warehouse is not
// consulted; sales returns are not warehouse-accurate reversals.
func (a Applier) Restock(ctx context.Context, store TxStore, itemID, qty int64) (Balance, error) {
	if itemID == 0 {
		return Balance{}, errors.New("stock: item required")
	}
	if qty <= 0 {
		return Balance{}, ErrInvalidQuantity
	}
	balance, err := store.LowestWarehouseBalance(ctx, itemID)
	if err != nil {
		if !errors.Is(err, ErrBalanceNotFound) {
			return Balance{}, err
		}
		warehouseID, err := store.FirstWarehouseID(ctx)
		if err != nil {
			return Balance{}, err
		}
		balance = Balance{ItemID: itemID, WarehouseID: warehouseID}
	}
	balance.Qty += qty
	if err := store.UpsertBalance(ctx, balance); err != nil {
		return Balance{}, err
	}
	return balance, nil
}
