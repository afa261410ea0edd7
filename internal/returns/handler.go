package returns

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
	"github.com/lumbung-wms/lumbung-wms/internal/rbac"
	"github.com/lumbung-wms/lumbung-wms/internal/shared"
)

// PurchaseHandler serves the purchase return endpoints.
type PurchaseHandler struct {
	logger  *slog.Logger
	service *PurchaseService
	rbac    rbac.Middleware
}

func NewPurchaseHandler(logger *slog.Logger, service *PurchaseService, rbac rbac.Middleware) *PurchaseHandler {
	return &PurchaseHandler{logger: logger, service: service, rbac: rbac}
}

func (h *PurchaseHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReturnView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReturnCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReturnEdit))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReturnApprove))
		r.Post("/{id}/approve", h.approve)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReturnComplete))
		r.Post("/{id}/complete", h.complete)
	})
}

type purchasePayload struct {
	SupplierID int64               `json:"supplier_id"`
	Date       string              `json:"date"`
	Reason     string              `json:"reason"`
	Lines      []returnLinePayload `json:"lines"`
}

type salesPayload struct {
	CustomerID int64               `json:"customer_id"`
	Date       string              `json:"date"`
	Reason     string              `json:"reason"`
	Lines      []returnLinePayload `json:"lines"`
}

type returnLinePayload struct {
	ItemID    int64   `json:"item_id"`
	Qty       int64   `json:"qty"`
	Price     float64 `json:"price"`
	Condition string  `json:"condition"`
}

type actionPayload struct {
	Note string `json:"note"`
}

func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

func toLines(payload []returnLinePayload) []ReturnLine {
	var lines []ReturnLine
	for _, line := range payload {
		lines = append(lines, ReturnLine{ItemID: line.ItemID, Qty: line.Qty, Price: line.Price, Condition: line.Condition})
	}
	return lines
}

func (h *PurchaseHandler) list(w http.ResponseWriter, r *http.Request) {
	filters := listFilters(r)
	rets, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list purchase returns failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if rets == nil {
		rets = []PurchaseReturn{}
	}
	httpx.Paginated(w, rets, httpx.NewPagination(filters.Page, filters.EffectiveLimit(), total))
}

func (h *PurchaseHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ret, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, ret)
}

func (h *PurchaseHandler) create(w http.ResponseWriter, r *http.Request) {
	var payload purchasePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, ok := parseDate(payload.Date)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	ret := PurchaseReturn{
		SupplierID: payload.SupplierID,
		Date:       date,
		Reason:     payload.Reason,
		Lines:      toLines(payload.Lines),
		CreatedBy:  shared.ActorID(r.Context()),
	}
	created, err := h.service.Create(r.Context(), ret)
	if err != nil {
		h.logger.Error("create purchase return failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, created, "purchase return created")
}

func (h *PurchaseHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload purchasePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, ok := parseDate(payload.Date)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	ret := PurchaseReturn{
		SupplierID: payload.SupplierID,
		Date:       date,
		Reason:     payload.Reason,
		Lines:      toLines(payload.Lines),
	}
	if err := h.service.Update(r.Context(), id, ret); err != nil {
		h.logger.Error("update purchase return failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "purchase return updated")
}

func (h *PurchaseHandler) approve(w http.ResponseWriter, r *http.Request) {
	runAction(w, r, h.logger, h.service.Approve, "purchase return approved")
}

func (h *PurchaseHandler) complete(w http.ResponseWriter, r *http.Request) {
	runAction(w, r, h.logger, h.service.Complete, "purchase return completed")
}

// SalesHandler serves the sales return endpoints.
type SalesHandler struct {
	logger  *slog.Logger
	service *SalesService
	rbac    rbac.Middleware
}

func NewSalesHandler(logger *slog.Logger, service *SalesService, rbac rbac.Middleware) *SalesHandler {
	return &SalesHandler{logger: logger, service: service, rbac: rbac}
}

func (h *SalesHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermReturnView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReturnCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReturnEdit))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReturnApprove))
		r.Post("/{id}/approve", h.approve)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReturnComplete))
		r.Post("/{id}/complete", h.complete)
	})
}

func (h *SalesHandler) list(w http.ResponseWriter, r *http.Request) {
	filters := listFilters(r)
	rets, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list sales returns failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if rets == nil {
		rets = []SalesReturn{}
	}
	httpx.Paginated(w, rets, httpx.NewPagination(filters.Page, filters.EffectiveLimit(), total))
}

func (h *SalesHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ret, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, ret)
}

func (h *SalesHandler) create(w http.ResponseWriter, r *http.Request) {
	var payload salesPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, ok := parseDate(payload.Date)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	ret := SalesReturn{
		CustomerID: payload.CustomerID,
		Date:       date,
		Reason:     payload.Reason,
		Lines:      toLines(payload.Lines),
		CreatedBy:  shared.ActorID(r.Context()),
	}
	created, err := h.service.Create(r.Context(), ret)
	if err != nil {
		h.logger.Error("create sales return failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, created, "sales return created")
}

func (h *SalesHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload salesPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date, ok := parseDate(payload.Date)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	ret := SalesReturn{
		CustomerID: payload.CustomerID,
		Date:       date,
		Reason:     payload.Reason,
		Lines:      toLines(payload.Lines),
	}
	if err := h.service.Update(r.Context(), id, ret); err != nil {
		h.logger.Error("update sales return failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "sales return updated")
}

func (h *SalesHandler) approve(w http.ResponseWriter, r *http.Request) {
	runAction(w, r, h.logger, h.service.Approve, "sales return approved")
}

func (h *SalesHandler) complete(w http.ResponseWriter, r *http.Request) {
	runAction(w, r, h.logger, h.service.Complete, "sales return completed")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid return id")
		return 0, false
	}
	return id, true
}

func runAction(w http.ResponseWriter, r *http.Request, logger *slog.Logger, fn func(ctx context.Context, id, actorID int64, note string) error, message string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var payload actionPayload
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &payload); err != nil {
			httpx.Fail(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if err := fn(r.Context(), id, shared.ActorID(r.Context()), payload.Note); err != nil {
		logger.Error("return action failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, nil, message)
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
