package returns_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lumbung-wms/lumbung-wms/internal/docnum"
	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
	"github.com/lumbung-wms/lumbung-wms/internal/returns"
	"github.com/lumbung-wms/lumbung-wms/internal/shared"
	"github.com/lumbung-wms/lumbung-wms/internal/stock"
)

type memorySequencer struct {
	counters map[string]int
}

func (m *memorySequencer) Next(_ context.Context, prefix string, year, month int) (int, error) {
	if m.counters == nil {
		m.counters = map[string]int{}
	}
	key := fmt.Sprintf("%s-%d-%d", prefix, year, month)
	m.counters[key]++
	return m.counters[key], nil
}

type memoryStock struct {
	balances   map[string]stock.Balance
	warehouses []int64
}

func stockKey(itemID, warehouseID int64) string {
	return fmt.Sprintf("%d:%d", itemID, warehouseID)
}

func (m *memoryStock) GetBalanceForUpdate(_ context.Context, itemID, warehouseID int64) (stock.Balance, error) {
	b, ok := m.balances[stockKey(itemID, warehouseID)]
	if !ok {
		return stock.Balance{}, stock.ErrBalanceNotFound
	}
	return b, nil
}

func (m *memoryStock) UpsertBalance(_ context.Context, balance stock.Balance) error {
	if m.balances == nil {
		m.balances = map[string]stock.Balance{}
	}
	m.balances[stockKey(balance.ItemID, balance.WarehouseID)] = balance
	return nil
}

func (m *memoryStock) LowestWarehouseBalance(_ context.Context, itemID int64) (stock.Balance, error) {
	var best *stock.Balance
	for _, b := range m.balances {
		if b.ItemID != itemID {
			continue
		}
		b := b
		if best == nil || b.WarehouseID < best.WarehouseID {
			best = &b
		}
	}
	if best == nil {
		return stock.Balance{}, stock.ErrBalanceNotFound
	}
	return *best, nil
}

func (m *memoryStock) FirstWarehouseID(_ context.Context) (int64, error) {
	if len(m.warehouses) == 0 {
		return 0, stock.ErrNoWarehouse
	}
	first := m.warehouses[0]
	for _, id := range m.warehouses[1:] {
		if id < first {
			first = id
		}
	}
	return first, nil
}

type memorySalesRepo struct {
	rets   map[int64]returns.SalesReturn
	stock  *memoryStock
	nextID int64
}

func newMemorySalesRepo() *memorySalesRepo {
	return &memorySalesRepo{rets: map[int64]returns.SalesReturn{}, stock: &memoryStock{warehouses: []int64{1}}}
}

func (m *memorySalesRepo) List(_ context.Context, _ returns.ListFilters) ([]returns.SalesReturn, int, error) {
	var out []returns.SalesReturn
	for _, r := range m.rets {
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *memorySalesRepo) Get(_ context.Context, id int64) (returns.SalesReturn, error) {
	r, ok := m.rets[id]
	if !ok {
		return returns.SalesReturn{}, httpx.ErrNotFound
	}
	return r, nil
}

func (m *memorySalesRepo) Create(_ context.Context, ret returns.SalesReturn) (returns.SalesReturn, error) {
	m.nextID++
	ret.ID = m.nextID
	m.rets[ret.ID] = ret
	return ret, nil
}

func (m *memorySalesRepo) Update(_ context.Context, ret returns.SalesReturn) error {
	if _, ok := m.rets[ret.ID]; !ok {
		return httpx.ErrNotFound
	}
	m.rets[ret.ID] = ret
	return nil
}

func (m *memorySalesRepo) WithTx(_ context.Context, fn func(tx returns.SalesTxRepository) error) error {
	retsCopy := make(map[int64]returns.SalesReturn, len(m.rets))
	for k, v := range m.rets {
		retsCopy[k] = v
	}
	balancesCopy := make(map[string]stock.Balance, len(m.stock.balances))
	for k, v := range m.stock.balances {
		balancesCopy[k] = v
	}
	if err := fn(&memorySalesTx{repo: m}); err != nil {
		m.rets = retsCopy
		m.stock.balances = balancesCopy
		return err
	}
	return nil
}

type memorySalesTx struct {
	repo *memorySalesRepo
}

func (t *memorySalesTx) GetForUpdate(ctx context.Context, id int64) (returns.SalesReturn, error) {
	return t.repo.Get(ctx, id)
}

func (t *memorySalesTx) SetStatus(_ context.Context, id int64, status string) error {
	r, ok := t.repo.rets[id]
	if !ok {
		return httpx.ErrNotFound
	}
	r.Status = status
	t.repo.rets[id] = r
	return nil
}

func (t *memorySalesTx) Stock() stock.TxStore {
	return t.repo.stock
}

type memoryPurchaseRepo struct {
	rets   map[int64]returns.PurchaseReturn
	nextID int64
}

func newMemoryPurchaseRepo() *memoryPurchaseRepo {
	return &memoryPurchaseRepo{rets: map[int64]returns.PurchaseReturn{}}
}

func (m *memoryPurchaseRepo) List(_ context.Context, _ returns.ListFilters) ([]returns.PurchaseReturn, int, error) {
	var out []returns.PurchaseReturn
	for _, r := range m.rets {
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *memoryPurchaseRepo) Get(_ context.Context, id int64) (returns.PurchaseReturn, error) {
	r, ok := m.rets[id]
	if !ok {
		return returns.PurchaseReturn{}, httpx.ErrNotFound
	}
	return r, nil
}

func (m *memoryPurchaseRepo) Create(_ context.Context, ret returns.PurchaseReturn) (returns.PurchaseReturn, error) {
	m.nextID++
	ret.ID = m.nextID
	m.rets[ret.ID] = ret
	return ret, nil
}

func (m *memoryPurchaseRepo) Update(_ context.Context, ret returns.PurchaseReturn) error {
	if _, ok := m.rets[ret.ID]; !ok {
		return httpx.ErrNotFound
	}
	m.rets[ret.ID] = ret
	return nil
}

func (m *memoryPurchaseRepo) Transition(_ context.Context, id int64, from, to string) (returns.PurchaseReturn, error) {
	r, ok := m.rets[id]
	if !ok {
		return returns.PurchaseReturn{}, httpx.ErrNotFound
	}
	if r.Status != from {
		return returns.PurchaseReturn{}, fmt.Errorf("%w: purchase return %s is %s", httpx.ErrInvalidState, r.Number, r.Status)
	}
	r.Status = to
	m.rets[id] = r
	return r, nil
}

type memoryIdempotency struct {
	keys map[string]bool
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, _ string) error {
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type memoryApprovals struct {
	logs []shared.ApprovalLog
}

func (m *memoryApprovals) Record(_ context.Context, log shared.ApprovalLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newSalesService(t *testing.T) (*returns.SalesService, *memorySalesRepo, *memoryApprovals) {
	t.Helper()
	repo := newMemorySalesRepo()
	approvals := &memoryApprovals{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := returns.NewSalesService(logger, repo, docnum.NewGenerator(&memorySequencer{}), stock.Applier{}, &memoryIdempotency{}, approvals)
	return svc, repo, approvals
}

func newPurchaseService(t *testing.T) (*returns.PurchaseService, *memoryPurchaseRepo, *memoryApprovals) {
	t.Helper()
	repo := newMemoryPurchaseRepo()
	approvals := &memoryApprovals{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := returns.NewPurchaseService(logger, repo, docnum.NewGenerator(&memorySequencer{}), approvals)
	return svc, repo, approvals
}

func draftSalesReturn() returns.SalesReturn {
	return returns.SalesReturn{
		CustomerID: 5,
		Date:       time.Date(2024, 8, 20, 0, 0, 0, 0, time.UTC),
		Reason:     "barang tidak sesuai pesanan",
		Lines: []returns.ReturnLine{
			{ItemID: 401, Qty: 2, Price: 5000, Condition: returns.ConditionResellable},
			{ItemID: 402, Qty: 1, Price: 3000, Condition: returns.ConditionDamaged},
		},
	}
}

func draftPurchaseReturn() returns.PurchaseReturn {
	return returns.PurchaseReturn{
		SupplierID: 8,
		Date:       time.Date(2024, 8, 21, 0, 0, 0, 0, time.UTC),
		Reason:     "cacat produksi",
		Lines:      []returns.ReturnLine{{ItemID: 403, Qty: 4, Price: 2000}},
	}
}

func TestSalesReturnNumberPrefix(t *testing.T) {
	svc, _, _ := newSalesService(t)

	created, err := svc.Create(context.Background(), draftSalesReturn())
	require.NoError(t, err)
	require.Equal(t, "RJ/2024/08/0001", created.Number)
	require.Equal(t, returns.StatusDraft, created.Status)
}

func TestSalesReturnRequiresLineCondition(t *testing.T) {
	svc, _, _ := newSalesService(t)

	ret := draftSalesReturn()
	ret.Lines[0].Condition = ""
	_, err := svc.Create(context.Background(), ret)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSalesApproveRestocksResellableOnly(t *testing.T) {
	svc, repo, approvals := newSalesService(t)
	repo.stock.balances = map[string]stock.Balance{
		stockKey(401, 2): {ItemID: 401, WarehouseID: 2, Qty: 10},
		stockKey(401, 5): {ItemID: 401, WarehouseID: 5, Qty: 4},
	}

	created, err := svc.Create(context.Background(), draftSalesReturn())
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), created.ID, 7, "ok"))

	approved, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, returns.StatusApproved, approved.Status)

	// Resellable qty went to the lowest warehouse id; the damaged line and
	// the other warehouse stayed put.
	require.Equal(t, int64(12), repo.stock.balances[stockKey(401, 2)].Qty)
	require.Equal(t, int64(4), repo.stock.balances[stockKey(401, 5)].Qty)
	_, ok := repo.stock.balances[stockKey(402, 1)]
	require.False(t, ok)

	require.Len(t, approvals.logs, 1)
	require.Equal(t, shared.ApprovalApprove, approvals.logs[0].Action)
	require.Equal(t, int64(7), approvals.logs[0].ActorID)
}

func TestSalesApproveFallsBackToFirstWarehouse(t *testing.T) {
	svc, repo, _ := newSalesService(t)
	repo.stock.warehouses = []int64{3, 1, 9}

	created, err := svc.Create(context.Background(), draftSalesReturn())
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), created.ID, 7, ""))

	require.Equal(t, int64(2), repo.stock.balances[stockKey(401, 1)].Qty)
}

func TestSalesApproveTwiceFails(t *testing.T) {
	svc, _, _ := newSalesService(t)

	created, err := svc.Create(context.Background(), draftSalesReturn())
	require.NoError(t, err)
	require.NoError(t, svc.Approve(context.Background(), created.ID, 7, ""))

	err = svc.Approve(context.Background(), created.ID, 7, "")
	require.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestSalesCompleteRequiresApproval(t *testing.T) {
	svc, repo, _ := newSalesService(t)

	created, err := svc.Create(context.Background(), draftSalesReturn())
	require.NoError(t, err)

	err = svc.Complete(context.Background(), created.ID, 7, "")
	require.ErrorIs(t, err, httpx.ErrInvalidState)

	require.NoError(t, svc.Approve(context.Background(), created.ID, 7, ""))
	require.NoError(t, svc.Complete(context.Background(), created.ID, 7, "selesai"))

	completed, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, returns.StatusCompleted, completed.Status)
}

func TestPurchaseReturnLifecycle(t *testing.T) {
	svc, repo, approvals := newPurchaseService(t)

	created, err := svc.Create(context.Background(), draftPurchaseReturn())
	require.NoError(t, err)
	require.Equal(t, "RB/2024/08/0001", created.Number)

	require.NoError(t, svc.Approve(context.Background(), created.ID, 2, "disetujui"))
	require.NoError(t, svc.Complete(context.Background(), created.ID, 2, ""))

	completed, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, returns.StatusCompleted, completed.Status)
	require.Len(t, approvals.logs, 2)
}

func TestPurchaseCompleteBeforeApproveFails(t *testing.T) {
	svc, _, _ := newPurchaseService(t)

	created, err := svc.Create(context.Background(), draftPurchaseReturn())
	require.NoError(t, err)

	err = svc.Complete(context.Background(), created.ID, 2, "")
	require.ErrorIs(t, err, httpx.ErrInvalidState)
}
