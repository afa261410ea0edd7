package transfers_test

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
	"github.com/lumbung-wms/lumbung-wms/internal/transfers"
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

type memoryRepo struct {
	orders map[int64]transfers.DeliveryOrder
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: map[int64]transfers.DeliveryOrder{}}
}

func (m *memoryRepo) List(_ context.Context, _ transfers.ListFilters) ([]transfers.DeliveryOrder, int, error) {
	var out []transfers.DeliveryOrder
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (transfers.DeliveryOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return transfers.DeliveryOrder{}, httpx.ErrNotFound
	}
	return o, nil
}

func (m *memoryRepo) Create(_ context.Context, order transfers.DeliveryOrder) (transfers.DeliveryOrder, error) {
	m.nextID++
	order.ID = m.nextID
	m.orders[order.ID] = order
	return order, nil
}

func (m *memoryRepo) Update(_ context.Context, order transfers.DeliveryOrder) error {
	if _, ok := m.orders[order.ID]; !ok {
		return httpx.ErrNotFound
	}
	m.orders[order.ID] = order
	return nil
}

func (m *memoryRepo) Transition(_ context.Context, id int64, from, to string) (transfers.DeliveryOrder, error) {
	o, ok := m.orders[id]
	if !ok {
		return transfers.DeliveryOrder{}, httpx.ErrNotFound
	}
	if o.Status != from {
		return transfers.DeliveryOrder{}, fmt.Errorf("%w: delivery order %s is %s", httpx.ErrInvalidState, o.Number, o.Status)
	}
	o.Status = to
	m.orders[id] = o
	return o, nil
}

type memoryAudit struct {
	logs []shared.AuditLog
}

func (m *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newService(t *testing.T) (*transfers.Service, *memoryRepo, *memoryAudit) {
	t.Helper()
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := transfers.NewService(logger, repo, docnum.NewGenerator(&memorySequencer{}), audit)
	return svc, repo, audit
}

func draftOrder() transfers.DeliveryOrder {
	return transfers.DeliveryOrder{
		WarehouseID: 1,
		Destination: "Cabang Bandung",
		Date:        time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC),
		Lines:       []transfers.TransferLine{{ItemID: 301, Qty: 6}},
	}
}

func TestCreateAssignsNumber(t *testing.T) {
	svc, _, _ := newService(t)

	created, err := svc.Create(context.Background(), draftOrder())
	require.NoError(t, err)
	require.Equal(t, "DO/2024/07/0001", created.Number)
	require.Equal(t, transfers.StatusDraft, created.Status)
}

func TestFullLifecycle(t *testing.T) {
	svc, repo, audit := newService(t)

	created, err := svc.Create(context.Background(), draftOrder())
	require.NoError(t, err)

	require.NoError(t, svc.Dispatch(context.Background(), created.ID, 9))
	require.NoError(t, svc.Deliver(context.Background(), created.ID, 9))

	order, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, transfers.StatusDelivered, order.Status)
	require.Len(t, audit.logs, 2)
}

func TestCancelFromDraftAndInTransit(t *testing.T) {
	svc, repo, _ := newService(t)

	first, err := svc.Create(context.Background(), draftOrder())
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(context.Background(), first.ID, 1))

	second, err := svc.Create(context.Background(), draftOrder())
	require.NoError(t, err)
	require.NoError(t, svc.Dispatch(context.Background(), second.ID, 1))
	require.NoError(t, svc.Cancel(context.Background(), second.ID, 1))

	for _, id := range []int64{first.ID, second.ID} {
		order, err := repo.Get(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, transfers.StatusCancelled, order.Status)
	}
}

func TestCancelDeliveredFails(t *testing.T) {
	svc, _, _ := newService(t)

	created, err := svc.Create(context.Background(), draftOrder())
	require.NoError(t, err)
	require.NoError(t, svc.Dispatch(context.Background(), created.ID, 1))
	require.NoError(t, svc.Deliver(context.Background(), created.ID, 1))

	err = svc.Cancel(context.Background(), created.ID, 1)
	require.ErrorIs(t, err, httpx.ErrInvalidState)
}

func TestReopenCancelledOrder(t *testing.T) {
	svc, repo, _ := newService(t)

	created, err := svc.Create(context.Background(), draftOrder())
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(context.Background(), created.ID, 1))
	require.NoError(t, svc.Reopen(context.Background(), created.ID, 1))

	order, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, transfers.StatusDraft, order.Status)

	// The reopened draft can go through the lifecycle again.
	require.NoError(t, svc.Dispatch(context.Background(), created.ID, 1))
}

func TestReopenDraftFails(t *testing.T) {
	svc, _, _ := newService(t)

	created, err := svc.Create(context.Background(), draftOrder())
	require.NoError(t, err)

	err = svc.Reopen(context.Background(), created.ID, 1)
	require.ErrorIs(t, err, httpx.ErrInvalidState)
}
