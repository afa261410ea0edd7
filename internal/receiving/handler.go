package receiving

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
	"github.com/lumbung-wms/lumbung-wms/internal/rbac"
	"github.com/lumbung-wms/lumbung-wms/internal/shared"
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
		r.Use(h.rbac.RequireAny(shared.PermReceiptView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReceiptCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReceiptEdit))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReceiptPost))
		r.Post("/{id}/post", h.post)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReceiptCancel))
		r.Post("/{id}/cancel", h.cancel)
	})
}

type receiptPayload struct {
	SupplierID  int64         `json:"supplier_id"`
	WarehouseID int64         `json:"warehouse_id"`
	Date        string        `json:"date"`
	Note        string        `json:"note"`
	Lines       []linePayload `json:"lines"`
}

type linePayload struct {
	ItemID int64   `json:"item_id"`
	Qty    int64   `json:"qty"`
	Price  float64 `json:"price"`
}

func (p receiptPayload) toReceipt() (GoodsReceipt, error) {
	receipt := GoodsReceipt{
		SupplierID:  p.SupplierID,
		WarehouseID: p.WarehouseID,
		Note:        p.Note,
	}
	if p.Date != "" {
		date, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return GoodsReceipt{}, err
		}
		receipt.Date = date
	}
	for _, line := range p.Lines {
		receipt.Lines = append(receipt.Lines, ReceiptLine{ItemID: line.ItemID, Qty: line.Qty, Price: line.Price})
	}
	return receipt, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := listFilters(r)
	receipts, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list goods receipts failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if receipts == nil {
		receipts = []GoodsReceipt{}
	}
	httpx.Paginated(w, receipts, httpx.NewPagination(filters.Page, filters.EffectiveLimit(), total))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	receipt, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, receipt)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload receiptPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	receipt, err := payload.toReceipt()
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	receipt.CreatedBy = shared.ActorID(r.Context())
	created, err := h.service.Create(r.Context(), receipt)
	if err != nil {
		h.logger.Error("create goods receipt failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, created, "goods receipt created")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	var payload receiptPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	receipt, err := payload.toReceipt()
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	if err := h.service.Update(r.Context(), id, receipt); err != nil {
		h.logger.Error("update goods receipt failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "goods receipt updated")
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	if err := h.service.Post(r.Context(), id, shared.ActorID(r.Context())); err != nil {
		h.logger.Error("post goods receipt failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "goods receipt posted")
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid receipt id")
		return
	}
	if err := h.service.Cancel(r.Context(), id, shared.ActorID(r.Context())); err != nil {
		h.logger.Error("cancel goods receipt failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "goods receipt cancelled")
}

func listFilters(r *http.Request) ListFilters {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	filters := ListFilters{
		Page:   page,
		Limit:  limit,
		Search: q.Get("search"),
		Status: q.Get("status"),
	}
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
	return filters
}
