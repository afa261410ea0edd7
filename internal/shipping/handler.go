package shipping

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
		r.Use(h.rbac.RequireAny(shared.PermDeliveryNoteView))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDeliveryNoteCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDeliveryNoteEdit))
		r.Put("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDeliveryNoteDispatch))
		r.Post("/{id}/dispatch", h.dispatch)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDeliveryNoteDeliver))
		r.Post("/{id}/deliver", h.deliver)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermDeliveryNoteCancel))
		r.Post("/{id}/cancel", h.cancel)
	})
}

type notePayload struct {
	CustomerID  int64         `json:"customer_id"`
	WarehouseID int64         `json:"warehouse_id"`
	Date        string        `json:"date"`
	Note        string        `json:"note"`
	Lines       []linePayload `json:"lines"`
}

type linePayload struct {
	ItemID   int64   `json:"item_id"`
	Qty      int64   `json:"qty"`
	Price    float64 `json:"price"`
	Dropship bool    `json:"dropship"`
}

func (p notePayload) toNote() (DeliveryNote, error) {
	note := DeliveryNote{
		CustomerID:  p.CustomerID,
		WarehouseID: p.WarehouseID,
		Note:        p.Note,
	}
	if p.Date != "" {
		date, err := time.Parse("2006-01-02", p.Date)
		if err != nil {
			return DeliveryNote{}, err
		}
		note.Date = date
	}
	for _, line := range p.Lines {
		note.Lines = append(note.Lines, DeliveryLine{ItemID: line.ItemID, Qty: line.Qty, Price: line.Price, Dropship: line.Dropship})
	}
	return note, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := listFilters(r)
	notes, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list delivery notes failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if notes == nil {
		notes = []DeliveryNote{}
	}
	httpx.Paginated(w, notes, httpx.NewPagination(filters.Page, filters.EffectiveLimit(), total))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid delivery note id")
		return
	}
	note, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, note)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload notePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	note, err := payload.toNote()
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	note.CreatedBy = shared.ActorID(r.Context())
	created, err := h.service.Create(r.Context(), note)
	if err != nil {
		h.logger.Error("create delivery note failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, created, "delivery note created")
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid delivery note id")
		return
	}
	var payload notePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	note, err := payload.toNote()
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	if err := h.service.Update(r.Context(), id, note); err != nil {
		h.logger.Error("update delivery note failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.OKMessage(w, nil, "delivery note updated")
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.Dispatch, "delivery note dispatched")
}

func (h *Handler) deliver(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.Deliver, "delivery note delivered")
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.service.Cancel, "delivery note cancelled")
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, actorID int64) error, message string) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid delivery note id")
		return
	}
	if err := fn(r.Context(), id, shared.ActorID(r.Context())); err != nil {
		h.logger.Error("delivery note action failed", slog.Any("error", err), slog.Int64("id", id))
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
