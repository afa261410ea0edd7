package returns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumbung-wms/lumbung-wms/internal/docnum"
	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
	"github.com/lumbung-wms/lumbung-wms/internal/shared"
	"github.com/lumbung-wms/lumbung-wms/internal/stock"
)

const salesModule = "sales_return"

// IdempotencyGuard protects approval from concurrent duplicates. Satisfied by
// shared.IdempotencyStore.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// SalesService owns the sales return lifecycle. Approval restocks the
// resellable lines; damaged lines are written off and never re-enter stock.
type SalesService struct {
	logger      *slog.Logger
	repo        SalesRepository
	numbers     docnum.Issuer
	applier     stock.Applier
	idempotency IdempotencyGuard
	approvals   ApprovalRecorder
}

func NewSalesService(logger *slog.Logger, repo SalesRepository, numbers docnum.Issuer, applier stock.Applier, idempotency IdempotencyGuard, approvals ApprovalRecorder) *SalesService {
	return &SalesService{
		logger:      logger,
		repo:        repo,
		numbers:     numbers,
		applier:     applier,
		idempotency: idempotency,
		approvals:   approvals,
	}
}

func (s *SalesService) List(ctx context.Context, filters ListFilters) ([]SalesReturn, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *SalesService) Get(ctx context.Context, id int64) (SalesReturn, error) {
	if id <= 0 {
		return SalesReturn{}, fmt.Errorf("%w: invalid return id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create stores a new draft and assigns its document number. Every line must
// carry a condition so approval knows what goes back on the shelf.
func (s *SalesService) Create(ctx context.Context, ret SalesReturn) (SalesReturn, error) {
	if ret.CustomerID <= 0 {
		return SalesReturn{}, fmt.Errorf("%w: customer is required", httpx.ErrValidation)
	}
	if err := validateLines(ret.Lines, true); err != nil {
		return SalesReturn{}, err
	}
	if ret.Date.IsZero() {
		ret.Date = time.Now()
	}
	number, err := s.numbers.Next(ctx, docnum.PrefixSalesReturn, ret.Date)
	if err != nil {
		return SalesReturn{}, fmt.Errorf("returns: issue number: %w", err)
	}
	ret.Number = number
	ret.Status = StatusDraft
	return s.repo.Create(ctx, ret)
}

// Update replaces header fields and lines while the document is a draft.
func (s *SalesService) Update(ctx context.Context, id int64, ret SalesReturn) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid return id", httpx.ErrValidation)
	}
	if ret.CustomerID <= 0 {
		return fmt.Errorf("%w: customer is required", httpx.ErrValidation)
	}
	if err := validateLines(ret.Lines, true); err != nil {
		return err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != StatusDraft {
		return fmt.Errorf("%w: only drafts can be edited", httpx.ErrInvalidState)
	}
	ret.ID = id
	return s.repo.Update(ctx, ret)
}

// Approve moves DRAFT to APPROVED and restocks every resellable line in the
// same transaction. Returned goods go back to the item's existing balance
// with the lowest warehouse id, not necessarily the warehouse that shipped
// them.
func (s *SalesService) Approve(ctx context.Context, id, actorID int64, note string) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid return id", httpx.ErrValidation)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != StatusDraft {
		return fmt.Errorf("%w: sales return %s is %s", httpx.ErrInvalidState, current.Number, current.Status)
	}

	idemKey := docnum.PrefixSalesReturn + ":" + current.Number
	if err := s.idempotency.CheckAndInsert(ctx, idemKey, salesModule); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return fmt.Errorf("%w: sales return %s already approved", httpx.ErrInvalidState, current.Number)
		}
		return err
	}

	err = s.repo.WithTx(ctx, func(tx SalesTxRepository) error {
		ret, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if ret.Status != StatusDraft {
			return fmt.Errorf("%w: sales return %s is %s", httpx.ErrInvalidState, ret.Number, ret.Status)
		}
		for _, line := range ret.Lines {
			if line.Condition != ConditionResellable {
				continue
			}
			if _, err := s.applier.Restock(ctx, tx.Stock(), line.ItemID, line.Qty); err != nil {
				return fmt.Errorf("returns: restock item %d: %w", line.ItemID, err)
			}
		}
		return tx.SetStatus(ctx, id, StatusApproved)
	})
	if err != nil {
		if delErr := s.idempotency.Delete(ctx, idemKey); delErr != nil {
			s.logger.Warn("release idempotency key", slog.String("key", idemKey), slog.Any("error", delErr))
		}
		return err
	}

	s.recordApproval(ctx, actorID, shared.ApprovalApprove, note, current.Number)
	return nil
}

// Complete moves APPROVED to COMPLETED. Stock already moved at approval.
func (s *SalesService) Complete(ctx context.Context, id, actorID int64, note string) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid return id", httpx.ErrValidation)
	}
	var completed SalesReturn
	err := s.repo.WithTx(ctx, func(tx SalesTxRepository) error {
		ret, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if ret.Status != StatusApproved {
			return fmt.Errorf("%w: sales return %s is %s", httpx.ErrInvalidState, ret.Number, ret.Status)
		}
		completed = ret
		return tx.SetStatus(ctx, id, StatusCompleted)
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, actorID, shared.ApprovalComplete, note, completed.Number)
	return nil
}

func (s *SalesService) recordApproval(ctx context.Context, actorID int64, action shared.ApprovalAction, note, number string) {
	err := s.approvals.Record(ctx, shared.ApprovalLog{
		Module:    salesModule,
		DocNumber: number,
		ActorID:   actorID,
		Action:    action,
		Note:      note,
	})
	if err != nil {
		s.logger.Warn("approval record failed", slog.String("module", salesModule), slog.Any("error", err))
	}
}
