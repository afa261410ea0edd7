package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/lumbung-wms/lumbung-wms/internal/stock"
)

// BalanceLister serves the stock report. Satisfied by stock.Repository.
type BalanceLister interface {
	ListBalances(ctx context.Context, filter stock.BalanceFilter) ([]stock.BalanceDetail, int, error)
}

// Service reconstructs the mutation ledger and serves the summary reports.
// Mutation requests with identical filters coalesce into one computation.
type Service struct {
	sources  SourceRepository
	balances BalanceLister
	group    singleflight.Group
}

func NewService(sources SourceRepository, balances BalanceLister) *Service {
	return &Service{sources: sources, balances: balances}
}

// StockReport lists current balances with the below-minimum flag.
func (s *Service) StockReport(ctx context.Context, filter stock.BalanceFilter) ([]stock.BalanceDetail, int, error) {
	return s.balances.ListBalances(ctx, filter)
}

// MutationLedger replays the four movement sources in chronological order and
// attaches a running balance per (item, warehouse) key. Entries from returns
// run on the company-level key since their documents carry no warehouse.
func (s *Service) MutationLedger(ctx context.Context, filters Filters) ([]MutationEntry, error) {
	key := ledgerKey(filters)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.buildLedger(ctx, filters)
	})
	if err != nil {
		return nil, err
	}
	return v.([]MutationEntry), nil
}

func (s *Service) buildLedger(ctx context.Context, filters Filters) ([]MutationEntry, error) {
	var receipts, deliveries, purchaseReturns, salesReturns []MutationEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		receipts, err = s.sources.ReceiptMovements(gctx, filters)
		return err
	})
	g.Go(func() error {
		var err error
		deliveries, err = s.sources.DeliveryMovements(gctx, filters)
		return err
	})
	g.Go(func() error {
		var err error
		purchaseReturns, err = s.sources.PurchaseReturnMovements(gctx, filters)
		return err
	})
	g.Go(func() error {
		var err error
		salesReturns, err = s.sources.SalesReturnMovements(gctx, filters)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := make([]MutationEntry, 0, len(receipts)+len(deliveries)+len(purchaseReturns)+len(salesReturns))
	entries = append(entries, receipts...)
	entries = append(entries, deliveries...)
	entries = append(entries, purchaseReturns...)
	entries = append(entries, salesReturns...)

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].DocNumber < entries[j].DocNumber
	})

	running := make(map[string]int64)
	for i := range entries {
		key := balanceKey(entries[i].ItemID, entries[i].WarehouseID)
		running[key] += entries[i].Qty
		entries[i].Balance = running[key]
	}
	return entries, nil
}

// PurchaseReport aggregates posted receipts per supplier and item.
func (s *Service) PurchaseReport(ctx context.Context, filters Filters) ([]PurchaseRow, error) {
	return s.sources.PurchaseSummary(ctx, filters)
}

// SalesReport aggregates delivered notes per customer and item.
func (s *Service) SalesReport(ctx context.Context, filters Filters) ([]SalesRow, error) {
	return s.sources.SalesSummary(ctx, filters)
}

func balanceKey(itemID, warehouseID int64) string {
	if warehouseID == GlobalWarehouse {
		return fmt.Sprintf("%d:global", itemID)
	}
	return fmt.Sprintf("%d:%d", itemID, warehouseID)
}

func ledgerKey(filters Filters) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("2006-01-02")
	}
	return fmt.Sprintf("mutasi|%s|%s|%d", format(filters.From), format(filters.To), filters.ItemID)
}
