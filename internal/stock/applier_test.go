package stock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	balances   map[string]Balance
	warehouses []int64
}

func newMemoryStore(warehouses ...int64) *memoryStore {
	return &memoryStore{balances: make(map[string]Balance), warehouses: warehouses}
}

func key(itemID, warehouseID int64) string {
	return fmt.Sprintf("%d:%d", itemID, warehouseID)
}

func (s *memoryStore) GetBalanceForUpdate(ctx context.Context, itemID, warehouseID int64) (Balance, error) {
	if b, ok := s.balances[key(itemID, warehouseID)]; ok {
		return b, nil
	}
	return Balance{ItemID: itemID, WarehouseID: warehouseID}, ErrBalanceNotFound
}

func (s *memoryStore) UpsertBalance(ctx context.Context, balance Balance) error {
	balance.UpdatedAt = time.Now()
	s.balances[key(balance.ItemID, balance.WarehouseID)] = balance
	return nil
}

func (s *memoryStore) LowestWarehouseBalance(ctx context.Context, itemID int64) (Balance, error) {
	var best *Balance
	for _, b := range s.balances {
		if b.ItemID != itemID {
			continue
		}
		if best == nil || b.WarehouseID < best.WarehouseID {
			copied := b
			best = &copied
		}
	}
	if best == nil {
		return Balance{ItemID: itemID}, ErrBalanceNotFound
	}
	return *best, nil
}

func (s *memoryStore) FirstWarehouseID(ctx context.Context) (int64, error) {
	if len(s.warehouses) == 0 {
		return 0, ErrNoWarehouse
	}
	first := s.warehouses[0]
	for _, id := range s.warehouses[1:] {
		if id < first {
			first = id
		}
	}
	return first, nil
}

func TestIncreaseCreatesAndAccumulates(t *testing.T) {
	store := newMemoryStore(1)
	applier := Applier{}
	ctx := context.Background()

	b, err := applier.Increase(ctx, store, 7, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 10, b.Qty)

	b, err = applier.Increase(ctx, store, 7, 1, 5)
	require.NoError(t, err)
	require.EqualValues(t, 15, b.Qty)
}

func TestIncreaseRejectsBadQty(t *testing.T) {
	store := newMemoryStore(1)
	applier := Applier{}

	_, err := applier.Increase(context.Background(), store, 7, 1, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = applier.Increase(context.Background(), store, 7, 1, -3)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestDecreaseGuardsNegativeStock(t *testing.T) {
	store := newMemoryStore(1)
	applier := Applier{}
	ctx := context.Background()

	_, err := applier.Increase(ctx, store, 7, 1, 4)
	require.NoError(t, err)

	_, err = applier.Decrease(ctx, store, 7, 1, 5)
	require.ErrorIs(t, err, ErrNegativeStock)

	b, err := applier.Decrease(ctx, store, 7, 1, 4)
	require.NoError(t, err)
	require.EqualValues(t, 0, b.Qty)
}

func TestDecreaseAllowNegative(t *testing.T) {
	store := newMemoryStore(1)
	applier := Applier{AllowNegative: true}
	ctx := context.Background()

	b, err := applier.Decrease(ctx, store, 7, 1, 3)
	require.NoError(t, err)
	require.EqualValues(t, -3, b.Qty)
}

func TestRestockPrefersLowestWarehouse(t *testing.T) {
	store := newMemoryStore(1, 2)
	applier := Applier{}
	ctx := context.Background()

	_, err := applier.Increase(ctx, store, 7, 2, 10)
	require.NoError(t, err)
	_, err = applier.Increase(ctx, store, 7, 5, 10)
	require.NoError(t, err)

	b, err := applier.Restock(ctx, store, 7, 3)
	require.NoError(t, err)
	require.EqualValues(t, 2, b.WarehouseID)
	require.EqualValues(t, 13, b.Qty)
}

func TestRestockFallsBackToFirstWarehouse(t *testing.T) {
	store := newMemoryStore(4, 2, 9)
	applier := Applier{}

	b, err := applier.Restock(context.Background(), store, 99, 6)
	require.NoError(t, err)
	require.EqualValues(t, 2, b.WarehouseID)
	require.EqualValues(t, 6, b.Qty)
}

func TestRestockNoWarehouse(t *testing.T) {
	store := newMemoryStore()
	applier := Applier{}

	_, err := applier.Restock(context.Background(), store, 99, 6)
	require.ErrorIs(t, err, ErrNoWarehouse)
}
