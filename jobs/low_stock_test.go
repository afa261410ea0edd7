package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/lumbung-wms/lumbung-wms/internal/stock"
)

type stubLister struct {
	items []stock.LowStockItem
	err   error
}

func (s stubLister) ListLowStock(ctx context.Context) ([]stock.LowStockItem, error) {
	return s.items, s.err
}

func TestLowStockScannerHandle(t *testing.T) {
	scanner := NewLowStockScanner(stubLister{items: []stock.LowStockItem{
		{ItemID: 1, ItemCode: "BRG-001", ItemName: "Pipa PVC", Total: 3, MinStock: 10},
	}}, slog.New(slog.DiscardHandler))

	err := scanner.Handle(context.Background(), NewLowStockScanTask())
	require.NoError(t, err)
}

func TestLowStockScannerPropagatesError(t *testing.T) {
	scanner := NewLowStockScanner(stubLister{err: errors.New("db down")}, slog.New(slog.DiscardHandler))
	err := scanner.Handle(context.Background(), NewLowStockScanTask())
	require.Error(t, err)
}

type stubCleaner struct {
	got time.Duration
	err error
}

func (s *stubCleaner) Cleanup(ctx context.Context, olderThan time.Duration) error {
	s.got = olderThan
	return s.err
}

func TestIdempotencyJanitorDefaultsRetention(t *testing.T) {
	cleaner := &stubCleaner{}
	janitor := NewIdempotencyJanitor(cleaner, slog.New(slog.DiscardHandler))

	task := asynq.NewTask(TaskIdempotencyCleanup, nil)
	require.NoError(t, janitor.Handle(context.Background(), task))
	require.Equal(t, defaultIdempotencyRetention, cleaner.got)
}

func TestIdempotencyJanitorHonoursPayload(t *testing.T) {
	cleaner := &stubCleaner{}
	janitor := NewIdempotencyJanitor(cleaner, slog.New(slog.DiscardHandler))

	task, err := NewIdempotencyCleanupTask(IdempotencyCleanupPayload{OlderThan: time.Hour})
	require.NoError(t, err)
	require.NoError(t, janitor.Handle(context.Background(), task))
	require.Equal(t, time.Hour, cleaner.got)
}
