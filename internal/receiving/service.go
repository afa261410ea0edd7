package receiving

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

const auditEntity = "goods_receipt"

// IdempotencyGuard protects posting from concurrent duplicates. Satisfied by
// shared.IdempotencyStore.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditRecorder persists audit trail entries. Satisfied by shared.AuditLogger.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the goods receipt lifecycle: draft, post, cancel.
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

func (s *Service) List(ctx context.Context, filters ListFilters) ([]GoodsReceipt, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (GoodsReceipt, error) {
	if id <= 0 {
		return GoodsReceipt{}, fmt.Errorf("%w: invalid receipt id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create stores a new draft and assigns its document number.
func (s *Service) Create(ctx context.Context, receipt GoodsReceipt) (GoodsReceipt, error) {
	if err := validate(receipt); err != nil {
		return GoodsReceipt{}, err
	}
	if receipt.Date.IsZero() {
		receipt.Date = time.Now()
	}
	number, err := s.numbers.Next(ctx, docnum.PrefixGoodsReceipt, receipt.Date)
	if err != nil {
		return GoodsReceipt{}, fmt.Errorf("receiving: issue number: %w", err)
	}
	receipt.Number = number
	receipt.Status = StatusDraft
	return s.repo.Create(ctx, receipt)
}

// Update replaces header fields and lines while the document is a draft.
func (s *Service) Update(ctx context.Context, id int64, receipt GoodsReceipt) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid receipt id", httpx.ErrValidation)
	}
	if err := validate(receipt); err != nil {
		return err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != StatusDraft {
		return fmt.Errorf("%w: only drafts can be edited", httpx.ErrInvalidState)
	}
	receipt.ID = id
	return s.repo.Update(ctx, receipt)
}

// Post transitions DRAFT to POSTED and increases stock for every line in the
// same transaction. A failed line rolls back the whole posting.
func (s *Service) Post(ctx context.Context, id, actorID int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid receipt id", httpx.ErrValidation)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != StatusDraft {
		return fmt.Errorf("%w: receipt %s is %s", httpx.ErrInvalidState, current.Number, current.Status)
	}

	idemKey := docnum.PrefixGoodsReceipt + ":" + current.Number
	if err := s.idempotency.CheckAndInsert(ctx, idemKey, auditEntity); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return fmt.Errorf("%w: receipt %s already posted", httpx.ErrInvalidState, current.Number)
		}
		return err
	}

	err = s.repo.WithTx(ctx, func(tx TxRepository) error {
		receipt, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if receipt.Status != StatusDraft {
			return fmt.Errorf("%w: receipt %s is %s", httpx.ErrInvalidState, receipt.Number, receipt.Status)
		}
		if len(receipt.Lines) == 0 {
			return fmt.Errorf("%w: receipt has no lines", httpx.ErrValidation)
		}
		for _, line := range receipt.Lines {
			if _, err := s.applier.Increase(ctx, tx.Stock(), line.ItemID, receipt.WarehouseID, line.Qty); err != nil {
				return fmt.Errorf("receiving: apply line item %d: %w", line.ItemID, err)
			}
		}
		return tx.SetStatus(ctx, id, StatusPosted)
	})
	if err != nil {
		if delErr := s.idempotency.Delete(ctx, idemKey); delErr != nil {
			s.logger.Warn("release idempotency key", slog.String("key", idemKey), slog.Any("error", delErr))
		}
		return err
	}

	s.recordAudit(ctx, actorID, "POST", current)
	return nil
}

// Cancel voids a draft. Posted receipts are immutable.
func (s *Service) Cancel(ctx context.Context, id, actorID int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid receipt id", httpx.ErrValidation)
	}
	var cancelled GoodsReceipt
	err := s.repo.WithTx(ctx, func(tx TxRepository) error {
		receipt, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if receipt.Status != StatusDraft {
			return fmt.Errorf("%w: receipt %s is %s", httpx.ErrInvalidState, receipt.Number, receipt.Status)
		}
		cancelled = receipt
		return tx.SetStatus(ctx, id, StatusCancelled)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "CANCEL", cancelled)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, receipt GoodsReceipt) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   auditEntity,
		EntityID: strconv.FormatInt(receipt.ID, 10),
		Meta:     map[string]any{"number": receipt.Number},
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("entity", auditEntity), slog.Any("error", err))
	}
}

func validate(r GoodsReceipt) error {
	if r.SupplierID <= 0 {
		return fmt.Errorf("%w: supplier is required", httpx.ErrValidation)
	}
	if r.WarehouseID <= 0 {
		return fmt.Errorf("%w: warehouse is required", httpx.ErrValidation)
	}
	if len(r.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", httpx.ErrValidation)
	}
	for i, line := range r.Lines {
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
