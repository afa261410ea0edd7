package shipping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/lumbung-wms/lumbung-wms/internal/docnum"
	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
	"github.com/lumbung-wms/lumbung-wms/internal/shared"
	"github.com/lumbung-wms/lumbung-wms/internal/stock"
)

const auditEntity = "delivery_note"

// IdempotencyGuard protects delivery from concurrent duplicates. Satisfied by
// shared.IdempotencyStore.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditRecorder persists audit trail entries. Satisfied by shared.AuditLogger.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the delivery note lifecycle: draft, dispatch, deliver, cancel.
type Service struct {
	logger      *slog.Logger
	repo        Repository
	numbers     docnum.Issuer
	applier     stock.Applier
	idempotency IdempotencyGuard
	audit       AuditRecorder
}

func NewService(logger *slog.Logger, repo Repository, numbers docnum.Issuer, applier stock.Applier, idempotency IdempotencyGuard, audit AuditRecorder) *Service {
	return &Service{
		logger:      logger,
		repo:        repo,
		numbers:     numbers,
		applier:     applier,
		idempotency: idempotency,
		audit:       audit,
	}
}

func (s *Service) List(ctx context.Context, filters ListFilters) ([]DeliveryNote, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (DeliveryNote, error) {
	if id <= 0 {
		return DeliveryNote{}, fmt.Errorf("%w: invalid delivery note id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create stores a new draft and assigns its document number.
func (s *Service) Create(ctx context.Context, note DeliveryNote) (DeliveryNote, error) {
	if err := validate(note); err != nil {
		return DeliveryNote{}, err
	}
	if note.Date.IsZero() {
		note.Date = time.Now()
	}
	number, err := s.numbers.Next(ctx, docnum.PrefixDeliveryNote, note.Date)
	if err != nil {
		return DeliveryNote{}, fmt.Errorf("shipping: issue number: %w", err)
	}
	note.Number = number
	note.Status = StatusDraft
	return s.repo.Create(ctx, note)
}

// Update replaces header fields and lines while the document is a draft.
func (s *Service) Update(ctx context.Context, id int64, note DeliveryNote) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid delivery note id", httpx.ErrValidation)
	}
	if err := validate(note); err != nil {
		return err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != StatusDraft {
		return fmt.Errorf("%w: only drafts can be edited", httpx.ErrInvalidState)
	}
	note.ID = id
	return s.repo.Update(ctx, note)
}

// Dispatch moves DRAFT to IN_TRANSIT. Stock stays untouched until delivery
// is confirmed.
func (s *Service) Dispatch(ctx context.Context, id, actorID int64) error {
	return s.transition(ctx, id, actorID, "DISPATCH", StatusDraft, StatusInTransit)
}

// Deliver confirms receipt by the customer: IN_TRANSIT becomes DELIVERED and
// every non-dropship line decrements the shipping warehouse balance. A line
// without sufficient stock rolls back the whole delivery.
func (s *Service) Deliver(ctx context.Context, id, actorID int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid delivery note id", httpx.ErrValidation)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != StatusInTransit {
		return fmt.Errorf("%w: delivery note %s is %s", httpx.ErrInvalidState, current.Number, current.Status)
	}

	idemKey := docnum.PrefixDeliveryNote + ":" + current.Number
	if err := s.idempotency.CheckAndInsert(ctx, idemKey, auditEntity); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return fmt.Errorf("%w: delivery note %s already delivered", httpx.ErrInvalidState, current.Number)
		}
		return err
	}

	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		note, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if note.Status != StatusInTransit {
			return fmt.Errorf("%w: delivery note %s is %s", httpx.ErrInvalidState, note.Number, note.Status)
		}
		for _, line := range note.Lines {
			if line.Dropship {
				continue
			}
			if _, err := s.applier.Decrease(ctx, tx.Stock(), line.ItemID, note.WarehouseID, line.Qty); err != nil {
				return fmt.Errorf("shipping: apply line item %d: %w", line.ItemID, err)
			}
		}
		return tx.MarkDelivered(ctx, id, time.Now())
	})
	if err != nil {
		if delErr := s.idempotency.Delete(ctx, idemKey); delErr != nil {
			s.logger.Warn("release idempotency key", slog.String("key", idemKey), slog.Any("error", delErr))
		}
		return err
	}

	s.recordAudit(ctx, actorID, "DELIVER", current)
	return nil
}

// Cancel voids a draft. Dispatched or delivered notes cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, id, actorID int64) error {
	return s.transition(ctx, id, actorID, "CANCEL", StatusDraft, StatusCancelled)
}

func (s *Service) transition(ctx context.Context, id, actorID int64, action, from, to string) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid delivery note id", httpx.ErrValidation)
	}
	var moved DeliveryNote
	err := s.repo.WithTx(ctx, func(tx TxRepository) error {
		note, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if note.Status != from {
			return fmt.Errorf("%w: delivery note %s is %s", httpx.ErrInvalidState, note.Number, note.Status)
		}
		moved = note
		return tx.SetStatus(ctx, id, to)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, action, moved)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, note DeliveryNote) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   auditEntity,
		EntityID: strconv.FormatInt(note.ID, 10),
		Meta:     map[string]any{"number": note.Number},
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("entity", auditEntity), slog.Any("error", err))
	}
}

func validate(n DeliveryNote) error {
	if n.CustomerID <= 0 {
		return fmt.Errorf("%w: customer is required", httpx.ErrValidation)
	}
	if n.WarehouseID <= 0 {
		return fmt.Errorf("%w: warehouse is required", httpx.ErrValidation)
	}
	if len(n.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", httpx.ErrValidation)
	}
	for i, line := range n.Lines {
		if line.ItemID <= 0 {
			return fmt.Errorf("%w: line %d has no item", httpx.ErrValidation, i+1)
		}
		if line.Qty <= 0 {
			return fmt.Errorf("%w: line %d quantity must be positive", httpx.ErrValidation, i+1)
		}
		if line.Price < 0 {
			return fmt.Errorf("%w: line %d price must not be negative", httpx.ErrValidation, i+1)
		}
	}
	return nil
}
