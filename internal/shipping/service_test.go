package shipping_test

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
	"github.com/lumbung-wms/lumbung-wms/internal/shared"
	"github.com/lumbung-wms/lumbung-wms/internal/shipping"
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
	balances map[string]stock.Balance
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
	return stock.Balance{}, stock.ErrBalanceNotFound
}

func (m *memoryStock) FirstWarehouseID(_ context.Context) (int64, error) {
	return 1, nil
}

type memoryRepo struct {
	notes  map[int64]shipping.DeliveryNote
	stock  *memoryStock
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{notes: map[int64]shipping.DeliveryNote{}, stock: &memoryStock{}}
}

func (m *memoryRepo) List(_ context.Context, _ shipping.ListFilters) ([]shipping.DeliveryNote, int, error) {
	var out []shipping.DeliveryNote
	for _, n := range m.notes {
		out = append(out, n)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (shipping.DeliveryNote, error) {
	n, ok := m.notes[id]
	if !ok {
		return shipping.DeliveryNote{}, httpx.ErrNotFound
	}
	return n, nil
}

func (m *memoryRepo) Create(_ context.Context, note shipping.DeliveryNote) (shipping.DeliveryNote, error) {
	m.nextID++
	note.ID = m.nextID
	m.notes[note.ID] = note
	return note, nil
}

func (m *memoryRepo) Update(_ context.Context, note shipping.DeliveryNote) error {
	if _, ok := m.notes[note.ID]; !ok {
		return httpx.ErrNotFound
	}
	m.notes[note.ID] = note
	return nil
}

func (m *memoryRepo) WithTx(_ context.Context, fn func(tx shipping.TxRepository) error) error {
	notesCopy := make(map[int64]shipping.DeliveryNote, len(m.notes))
	for k, v := range m.notes {
		notesCopy[k] = v
	}
	balancesCopy := make(map[string]stock.Balance, len(m.stock.balances))
	for k, v := range m.stock.balances {
		balancesCopy[k] = v
	}
	if err := fn(&memoryTx{repo: m}); err != nil {
		m.notes = notesCopy
		m.stock.balances = balancesCopy
		return err
	}
	return nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id int64) (shipping.DeliveryNote, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryTx) SetStatus(_ context.Context, id int64, status string) error {
	n, ok := t.repo.notes[id]
	if !ok {
		return httpx.ErrNotFound
	}
	n.Status = status
	t.repo.notes[id] = n
	return nil
}

func (t *memoryTx) MarkDelivered(_ context.Context, id int64, at time.Time) error {
	n, ok := t.repo.notes[id]
	if !ok {
		return httpx.ErrNotFound
	}
	n.Status = shipping.StatusDelivered
	n.DeliveredAt = &at
	t.repo.notes[id] = n
	return nil
}

func (t *memoryTx) Stock() stock.TxStore {
	return t.repo.stock
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

type memoryAudit struct {
	logs []shared.AuditLog
}

func (m *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newService(t *testing.T) (*shipping.Service, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := shipping.NewService(logger, repo, docnum.NewGenerator(&memorySequencer{}), stock.Applier{}, &memoryIdempotency{}, &memoryAudit{})
	return svc, repo
}

func draftNote() shipping.DeliveryNote {
	return shipping.DeliveryNote{
		CustomerID:  3,
		WarehouseID: 1,
		Date:        time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC),
		Lines: []shipping.DeliveryLine{
			{ItemID: 201, Qty: 4, Price: 2500},
			{ItemID: 202, Qty: 2, Price: 1200, Dropship: true},
		},
	}
}

func seedStock(repo *memoryRepo, itemID, warehouseID, qty int64) {
	if repo.stock.balances == nil {
		repo.stock.balances = map[string]stock.Balance{}
	}
	repo.stock.balances[stockKey(itemID, warehouseID)] = stock.Balance{ItemID: itemID, WarehouseID: warehouseID, Qty: qty}
}

func TestCreateAssignsNumber(t *testing.T) {
	svc, _ := newService(t)

	created, err := svc.Create(context.Background(), draftNote())
	require.NoError(t, err)
	require.Equal(t, "SJ/2024/06/0001", created.Number)
	require.Equal(t, shipping.StatusDraft, created.Status)
}

func TestDeliverRequiresDispatch(t *testing.T) {
	svc, _ := newService(t)

	created, err := svc.Create(context.Background(), draftNote())
	require.NoError(t, err)

	err = svc.Deliver(context.Background(), created.ID, 1)
	require.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestDeliverDecrementsNonDropshipLines(t *testing.T) {
	svc, repo := newService(t)
	seedStock(repo, 201, 1, 10)

	created, err := svc.Create(context.Background(), draftNote())
	require.NoError(t, err)
	require.NoError(t, svc.Dispatch(context.Background(), created.ID, 1))
	require.NoError(t, svc.Deliver(context.Background(), created.ID, 1))

	delivered, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, shipping.StatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)

	// The warehouse line shrank, the dropship line never touched stock.
	require.Equal(t, int64(6), repo.stock.balances[stockKey(201, 1)].Qty)
	_, ok := repo.stock.balances[stockKey(202, 1)]
	require.False(t, ok)
}

func TestDeliverFailsOnInsufficientStock(t *testing.T) {
	svc, repo := newService(t)
	seedStock(repo, 201, 1, 3)

	created, err := svc.Create(context.Background(), draftNote())
	require.NoError(t, err)
	require.NoError(t, svc.Dispatch(context.Background(), created.ID, 1))

	err = svc.Deliver(context.Background(), created.ID, 1)
	require.ErrorIs(t, err, stock.ErrNegativeStock)

	unchanged, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, shipping.StatusInTransit, unchanged.Status)
	require.Equal(t, int64(3), repo.stock.balances[stockKey(201, 1)].Qty)
}

func TestDeliverTwiceFails(t *testing.T) {
	svc, repo := newService(t)
	seedStock(repo, 201, 1, 10)

	created, err := svc.Create(context.Background(), draftNote())
	require.NoError(t, err)
	require.NoError(t, svc.Dispatch(context.Background(), created.ID, 1))
	require.NoError(t, svc.Deliver(context.Background(), created.ID, 1))

	err = svc.Deliver(context.Background(), created.ID, 1)
	require.ErrorIs(t, err, httpx.ErrInvalidState)
	require.Equal(t, int64(6), repo.stock.balances[stockKey(201, 1)].Qty)
}

func TestCancelOnlyDraft(t *testing.T) {
	svc, _ := newService(t)

	created, err := svc.Create(context.Background(), draftNote())
	require.NoError(t, err)
	require.NoError(t, svc.Dispatch(context.Background(), created.ID, 1))

	err = svc.Cancel(context.Background(), created.ID, 1)
	require.ErrorIs(t, err, httpx.ErrInvalidState)
}
