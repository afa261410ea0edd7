package transfers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lumbung-wms/lumbung-wms/internal/docnum"
	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
	"github.com/lumbung-wms/lumbung-wms/internal/shared"
)

const auditEntity = "delivery_order"

// AuditRecorder persists audit trail entries. Satisfied by shared.AuditLogger.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the delivery order lifecycle. Delivery orders are paperwork
// for internal movements; none of the transitions touch stock balances.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	numbers docnum.Issuer
	audit   AuditRecorder
}

func NewService(logger *slog.Logger, repo Repository, numbers docnum.Issuer, audit AuditRecorder) *Service {
	return &Service{logger: logger, repo: repo, numbers: numbers, audit: audit}
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]DeliveryOrder, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (DeliveryOrder, error) {
	if id <= 0 {
		return DeliveryOrder{}, fmt.Errorf("%w: invalid delivery order id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create stores a new draft and assigns its document number.
func (s *Service) Create(ctx context.Context, order DeliveryOrder) (DeliveryOrder, error) {
	if err := validate(order); err != nil {
		return DeliveryOrder{}, err
	}
	if order.Date.IsZero() {
		order.Date = time.Now()
	}
	number, err := s.numbers.Next(ctx, docnum.PrefixDeliveryOrder, order.Date)
	if err != nil {
		return DeliveryOrder{}, fmt.Errorf("transfers: issue number: %w", err)
	}
	order.Number = number
	order.Status = StatusDraft
	return s.repo.Create(ctx, order)
}

// Update replaces header fields and lines while the document is a draft.
func (s *Service) Update(ctx context.Context, id int64, order DeliveryOrder) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid delivery order id", httpx.ErrValidation)
	}
	if err := validate(order); err != nil {
		return err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != StatusDraft {
		return fmt.Errorf("%w: only drafts can be edited", httpx.ErrInvalidState)
	}
	order.ID = id
	return s.repo.Update(ctx, order)
}

// Dispatch moves DRAFT to IN_TRANSIT.
func (s *Service) Dispatch(ctx context.Context, id, actorID int64) error {
	return s.transition(ctx, id, actorID, "DISPATCH", StatusDraft, StatusInTransit)
}

// Deliver moves IN_TRANSIT to DELIVERED.
func (s *Service) Deliver(ctx context.Context, id, actorID int64) error {
	return s.transition(ctx, id, actorID, "DELIVER", StatusInTransit, StatusDelivered)
}

// Cancel voids a draft or in-transit order.
func (s *Service) Cancel(ctx context.Context, id, actorID int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid delivery order id", httpx.ErrValidation)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	switch current.Status {
	case StatusDraft, StatusInTransit:
	default:
		return fmt.Errorf("%w: delivery order %s is %s", httpx.ErrInvalidState, current.Number, current.Status)
	}
	order, err := s.repo.Transition(ctx, id, current.Status, StatusCancelled)
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "CANCEL", order)
	return nil
}

// Reopen puts a cancelled order back into DRAFT for correction.
func (s *Service) Reopen(ctx context.Context, id, actorID int64) error {
	return s.transition(ctx, id, actorID, "REOPEN", StatusCancelled, StatusDraft)
}

func (s *Service) transition(ctx context.Context, id, actorID int64, action, from, to string) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid delivery order id", httpx.ErrValidation)
	}
	order, err := s.repo.Transition(ctx, id, from, to)
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, action, order)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, order DeliveryOrder) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   auditEntity,
		EntityID: strconv.FormatInt(order.ID, 10),
		Meta:     map[string]any{"number": order.Number},
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("entity", auditEntity), slog.Any("error", err))
	}
}

func validate(o DeliveryOrder) error {
	if o.WarehouseID <= 0 {
		return fmt.Errorf("%w: warehouse is required", httpx.ErrValidation)
	}
	if strings.TrimSpace(o.Destination) == "" {
		return fmt.Errorf("%w: destination is required", httpx.ErrValidation)
	}
	if len(o.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", httpx.ErrValidation)
	}
	for i, line := range o.Lines {
		if line.ItemID <= 0 {
			return fmt.Errorf("%w: line %d has no item", httpx.ErrValidation, i+1)
		}
		if line.Qty <= 0 {
			return fmt.Errorf("%w: line %d quantity must be positive", httpx.ErrValidation, i+1)
		}
	}
	return nil
}
