package report

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumbung-wms/lumbung-wms/internal/rbac"
	"github.com/lumbung-wms/lumbung-wms/internal/shared"
	"github.com/lumbung-wms/lumbung-wms/internal/stock"
)

const exportLimit = 500

// BalanceLister supplies the rows for the printable stock report.
type BalanceLister interface {
	ListBalances(ctx context.Context, filter stock.BalanceFilter) ([]stock.BalanceDetail, int, error)
}

// Handler renders warehouse reports as PDF through Gotenberg.
type Handler struct {
	client   *Client
	balances BalanceLister
	rbac     rbac.Middleware
	logger   *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(client *Client, balances BalanceLister, rbac rbac.Middleware, logger *slog.Logger) *Handler {
	return &Handler{client: client, balances: balances, rbac: rbac, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportStock))
		r.Get("/stok.pdf", h.stockPDF)
	})
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) stockPDF(w http.ResponseWriter, r *http.Request) {
	filter := stock.BalanceFilter{Limit: exportLimit}
	if r.URL.Query().Get("below_min") == "true" {
		filter.BelowMin = true
	}
	rows, _, err := h.balances.ListBalances(r.Context(), filter)
	if err != nil {
		h.logger.Error("list balances for export", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	pdf, err := h.client.RenderHTML(r.Context(), stockReportHTML(rows))
	if err != nil {
		h.logger.Error("render stock pdf", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=laporan-stok.pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func stockReportHTML(rows []stock.BalanceDetail) string {
	var b strings.Builder
	b.WriteString(`<html><head><title>Laporan Stok</title><style>
		body { font-family: sans-serif; font-size: 12px; }
		table { border-collapse: collapse; width: 100%; }
		th, td { border: 1px solid #444; padding: 4px 8px; text-align: left; }
		td.num { text-align: right; }
		tr.low td { background: #fdd; }
	</style></head><body>`)
	b.WriteString("<h1>Laporan Stok</h1>")
	b.WriteString("<p>Dicetak " + time.Now().Format("02-01-2006 15:04") + "</p>")
	b.WriteString("<table><tr><th>Kode</th><th>Nama Barang</th><th>Gudang</th><th>Saldo</th><th>Min</th></tr>")
	for _, row := range rows {
		cls := ""
		if row.BelowMin {
			cls = ` class="low"`
		}
		fmt.Fprintf(&b, `<tr%s><td>%s</td><td>%s</td><td>%s</td><td class="num">%d</td><td class="num">%d</td></tr>`,
			cls,
			html.EscapeString(row.ItemCode),
			html.EscapeString(row.ItemName),
			html.EscapeString(row.WarehouseName),
			row.Qty,
			row.MinStock,
		)
	}
	b.WriteString("</table></body></html>")
	return b.String()
}
