package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
	"github.com/lumbung-wms/lumbung-wms/internal/rbac"
	"github.com/lumbung-wms/lumbung-wms/internal/shared"
	"github.com/lumbung-wms/lumbung-wms/internal/stock"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportStock))
		r.Get("/stok", h.stockReport)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportMutation))
		r.Get("/mutasi", h.mutationLedger)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportPurchase))
		r.Get("/pembelian", h.purchaseReport)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReportSales))
		r.Get("/penjualan", h.salesReport)
	})
}

func (h *Handler) stockReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 10
	}
	filter := stock.BalanceFilter{
		BelowMin: q.Get("below_min") == "true",
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	if itemID, err := strconv.ParseInt(q.Get("item_id"), 10, 64); err == nil {
		filter.ItemID = itemID
	}
	if warehouseID, err := strconv.ParseInt(q.Get("warehouse_id"), 10, 64); err == nil {
		filter.WarehouseID = warehouseID
	}

	balances, total, err := h.service.StockReport(r.Context(), filter)
	if err != nil {
		h.logger.Error("stock report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if balances == nil {
		balances = []stock.BalanceDetail{}
	}
	httpx.Paginated(w, balances, httpx.NewPagination(page, limit, total))
}

func (h *Handler) mutationLedger(w http.ResponseWriter, r *http.Request) {
	filters := reportFilters(r)
	entries, err := h.service.MutationLedger(r.Context(), filters)
	if err != nil {
		h.logger.Error("mutation ledger failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []MutationEntry{}
	}
	httpx.OK(w, entries)
}

func (h *Handler) purchaseReport(w http.ResponseWriter, r *http.Request) {
	filters := reportFilters(r)
	rows, err := h.service.PurchaseReport(r.Context(), filters)
	if err != nil {
		h.logger.Error("purchase report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if rows == nil {
		rows = []PurchaseRow{}
	}
	httpx.OK(w, rows)
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	filters := reportFilters(r)
	rows, err := h.service.SalesReport(r.Context(), filters)
	if err != nil {
		h.logger.Error("sales report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if rows == nil {
		rows = []SalesRow{}
	}
	httpx.OK(w, rows)
}

func reportFilters(r *http.Request) Filters {
	q := r.URL.Query()
	filters := Filters{}
	if from := q.Get("from"); from != "" {
		if parsed, err := time.Parse("2006-01-02", from); err == nil {
			filters.From = &parsed
		}
	}
	if to := q.Get("to"); to != "" {
		if parsed, err := time.Parse("2006-01-02", to); err == nil {
			filters.To = &parsed
		}
	}
	if itemID, err := strconv.ParseInt(q.Get("item_id"), 10, 64); err == nil {
		filters.ItemID = itemID
	}
	return filters
}
