package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/lumbung-wms/lumbung-wms/internal/stock"
)

// LowStockLister reports items whose total stock fell below minimum.
type LowStockLister interface {
	ListLowStock(ctx context.Context) ([]stock.LowStockItem, error)
}

// LowStockScanner runs the scheduled scan and logs a per-item warning plus
// a summary line. Quantities are formatted with Indonesian digit grouping.
type LowStockScanner struct {
	balances LowStockLister
	logger   *slog.Logger
	printer  *message.Printer
}

func NewLowStockScanner(balances LowStockLister, logger *slog.Logger) *LowStockScanner {
	return &LowStockScanner{
		balances: balances,
		logger:   logger,
		printer:  message.NewPrinter(language.Indonesian),
	}
}

// Handle processes TaskLowStockScan tasks.
func (s *LowStockScanner) Handle(ctx context.Context, t *asynq.Task) error {
	items, err := s.balances.ListLowStock(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		s.logger.Warn("stock below minimum",
			slog.String("item_code", item.ItemCode),
			slog.String("item_name", item.ItemName),
			slog.String("total", s.printer.Sprintf("%d", item.Total)),
			slog.String("min_stock", s.printer.Sprintf("%d", item.MinStock)),
		)
	}
	s.logger.Info("low stock scan finished", slog.Int("items_below_min", len(items)))
	return nil
}
