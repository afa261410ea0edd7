package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumbung-wms/lumbung-wms/internal/stock"
)

type fakeSources struct {
	receipts  []MutationEntry
	delivered []MutationEntry
	purchases []MutationEntry
	sales     []MutationEntry
}

func (f *fakeSources) ReceiptMovements(ctx context.Context, filters Filters) ([]MutationEntry, error) {
	return filterEntries(f.receipts, filters), nil
}

func (f *fakeSources) DeliveryMovements(ctx context.Context, filters Filters) ([]MutationEntry, error) {
	return filterEntries(f.delivered, filters), nil
}

func (f *fakeSources) PurchaseReturnMovements(ctx context.Context, filters Filters) ([]MutationEntry, error) {
	return filterEntries(f.purchases, filters), nil
}

func (f *fakeSources) SalesReturnMovements(ctx context.Context, filters Filters) ([]MutationEntry, error) {
	return filterEntries(f.sales, filters), nil
}

func (f *fakeSources) PurchaseSummary(ctx context.Context, filters Filters) ([]PurchaseRow, error) {
	return nil, nil
}

func (f *fakeSources) SalesSummary(ctx context.Context, filters Filters) ([]SalesRow, error) {
	return nil, nil
}

func filterEntries(entries []MutationEntry, filters Filters) []MutationEntry {
	var out []MutationEntry
	for _, e := range entries {
		if filters.From != nil && e.Date.Before(*filters.From) {
			continue
		}
		if filters.To != nil && e.Date.After(*filters.To) {
			continue
		}
		if filters.ItemID != 0 && e.ItemID != filters.ItemID {
			continue
		}
		out = append(out, e)
	}
	return out
}

type fakeBalances struct{}

func (fakeBalances) ListBalances(ctx context.Context, filter stock.BalanceFilter) ([]stock.BalanceDetail, int, error) {
	return nil, 0, nil
}

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 0, 0, 0, 0, time.UTC)
}

func entry(d int, number, source string, itemID, warehouseID, qty int64) MutationEntry {
	return priced(d, number, source, itemID, warehouseID, qty, 1000)
}

// priced mimics the source queries: value carries the sign of qty.
func priced(d int, number, source string, itemID, warehouseID, qty int64, price float64) MutationEntry {
	return MutationEntry{
		Date:        day(d),
		DocNumber:   number,
		Source:      source,
		ItemID:      itemID,
		WarehouseID: warehouseID,
		Qty:         qty,
		Price:       price,
		Value:       float64(qty) * price,
	}
}

func TestMutationLedgerRunningBalance(t *testing.T) {
	sources := &fakeSources{
		receipts: []MutationEntry{
			priced(1, "BM/2025/03/0001", SourceGoodsReceipt, 1, 10, 100, 62000),
			priced(5, "BM/2025/03/0002", SourceGoodsReceipt, 1, 10, 50, 62000),
		},
		delivered: []MutationEntry{
			priced(3, "SJ/2025/03/0001", SourceDeliveryNote, 1, 10, -40, 68000),
		},
	}
	svc := NewService(sources, fakeBalances{})

	entries, err := svc.MutationLedger(context.Background(), Filters{})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.Equal(t, "BM/2025/03/0001", entries[0].DocNumber)
	require.Equal(t, "SJ/2025/03/0001", entries[1].DocNumber)
	require.Equal(t, "BM/2025/03/0002", entries[2].DocNumber)

	require.Equal(t, int64(100), entries[0].Balance)
	require.Equal(t, int64(60), entries[1].Balance)
	require.Equal(t, int64(110), entries[2].Balance)

	// Each row keeps its unit price and a subtotal signed like its quantity.
	require.Equal(t, float64(62000), entries[0].Price)
	require.Equal(t, float64(100*62000), entries[0].Value)
	require.Equal(t, float64(68000), entries[1].Price)
	require.Equal(t, float64(-40*68000), entries[1].Value)
	require.Equal(t, float64(50*62000), entries[2].Value)
}

func TestMutationLedgerSeparatesKeys(t *testing.T) {
	sources := &fakeSources{
		receipts: []MutationEntry{
			entry(1, "BM/2025/03/0001", SourceGoodsReceipt, 1, 10, 100),
			entry(2, "BM/2025/03/0002", SourceGoodsReceipt, 1, 20, 30),
			entry(3, "BM/2025/03/0003", SourceGoodsReceipt, 2, 10, 7),
		},
	}
	svc := NewService(sources, fakeBalances{})

	entries, err := svc.MutationLedger(context.Background(), Filters{})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Each (item, warehouse) pair tracks its own running balance.
	require.Equal(t, int64(100), entries[0].Balance)
	require.Equal(t, int64(30), entries[1].Balance)
	require.Equal(t, int64(7), entries[2].Balance)
}

func TestMutationLedgerGlobalKeyForReturns(t *testing.T) {
	sources := &fakeSources{
		purchases: []MutationEntry{
			entry(2, "RB/2025/03/0001", SourcePurchaseReturn, 1, GlobalWarehouse, -10),
		},
		sales: []MutationEntry{
			entry(4, "RJ/2025/03/0001", SourceSalesReturn, 1, GlobalWarehouse, 10),
		},
	}
	svc := NewService(sources, fakeBalances{})

	entries, err := svc.MutationLedger(context.Background(), Filters{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Return documents carry no warehouse and share one global key per item.
	require.Equal(t, int64(-10), entries[0].Balance)
	require.Equal(t, int64(0), entries[1].Balance)
}

func TestMutationLedgerDateFilter(t *testing.T) {
	sources := &fakeSources{
		receipts: []MutationEntry{
			entry(1, "BM/2025/03/0001", SourceGoodsReceipt, 1, 10, 100),
			entry(10, "BM/2025/03/0002", SourceGoodsReceipt, 1, 10, 50),
		},
	}
	svc := NewService(sources, fakeBalances{})

	from := day(5)
	entries, err := svc.MutationLedger(context.Background(), Filters{From: &from})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "BM/2025/03/0002", entries[0].DocNumber)
}

func TestMutationLedgerItemFilter(t *testing.T) {
	sources := &fakeSources{
		receipts: []MutationEntry{
			entry(1, "BM/2025/03/0001", SourceGoodsReceipt, 1, 10, 100),
			entry(2, "BM/2025/03/0002", SourceGoodsReceipt, 2, 10, 5),
		},
	}
	svc := NewService(sources, fakeBalances{})

	entries, err := svc.MutationLedger(context.Background(), Filters{ItemID: 2})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, int64(2), entries[0].ItemID)
}
