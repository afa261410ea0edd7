package returns

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumbung-wms/lumbung-wms/internal/docnum"
	"github.com/lumbung-wms/lumbung-wms/internal/platform/httpx"
	"github.com/lumbung-wms/lumbung-wms/internal/shared"
)

const purchaseModule = "purchase_return"

// ApprovalRecorder persists who approved or completed a return. Satisfied by
// shared.ApprovalRecorder.
type ApprovalRecorder interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// PurchaseService owns the purchase return lifecycle. Returns to suppliers
// never adjust warehouse balances; the outbound quantities surface in the
// mutation ledger instead.
type PurchaseService struct {
	logger    *slog.Logger
	repo      PurchaseRepository
	numbers   docnum.Issuer
	approvals ApprovalRecorder
}

func NewPurchaseService(logger *slog.Logger, repo PurchaseRepository, numbers docnum.Issuer, approvals ApprovalRecorder) *PurchaseService {
	return &PurchaseService{logger: logger, repo: repo, numbers: numbers, approvals: approvals}
}

func (s *PurchaseService) List(ctx context.Context, filters ListFilters) ([]PurchaseReturn, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *PurchaseService) Get(ctx context.Context, id int64) (PurchaseReturn, error) {
	if id <= 0 {
		return PurchaseReturn{}, fmt.Errorf("%w: invalid return id", httpx.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create stores a new draft and assigns its document number.
func (s *PurchaseService) Create(ctx context.Context, ret PurchaseReturn) (PurchaseReturn, error) {
	if ret.SupplierID <= 0 {
		return PurchaseReturn{}, fmt.Errorf("%w: supplier is required", httpx.ErrValidation)
	}
	if err := validateLines(ret.Lines, false); err != nil {
		return PurchaseReturn{}, err
	}
	if ret.Date.IsZero() {
		ret.Date = time.Now()
	}
	number, err := s.numbers.Next(ctx, docnum.PrefixPurchaseReturn, ret.Date)
	if err != nil {
		return PurchaseReturn{}, fmt.Errorf("returns: issue number: %w", err)
	}
	ret.Number = number
	ret.Status = StatusDraft
	return s.repo.Create(ctx, ret)
}

// Update replaces header fields and lines while the document is a draft.
func (s *PurchaseService) Update(ctx context.Context, id int64, ret PurchaseReturn) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid return id", httpx.ErrValidation)
	}
	if ret.SupplierID <= 0 {
		return fmt.Errorf("%w: supplier is required", httpx.ErrValidation)
	}
	if err := validateLines(ret.Lines, false); err != nil {
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

// Approve moves DRAFT to APPROVED.
func (s *PurchaseService) Approve(ctx context.Context, id, actorID int64, note string) error {
	return s.transition(ctx, id, actorID, shared.ApprovalApprove, note, StatusDraft, StatusApproved)
}

// Complete moves APPROVED to COMPLETED once goods have left for the supplier.
func (s *PurchaseService) Complete(ctx context.Context, id, actorID int64, note string) error {
	return s.transition(ctx, id, actorID, shared.ApprovalComplete, note, StatusApproved, StatusCompleted)
}

func (s *PurchaseService) transition(ctx context.Context, id, actorID int64, action shared.ApprovalAction, note, from, to string) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid return id", httpx.ErrValidation)
	}
	ret, err := s.repo.Transition(ctx, id, from, to)
	if err != nil {
		return err
	}
	s.recordApproval(ctx, actorID, action, note, ret.Number)
	return nil
}

func (s *PurchaseService) recordApproval(ctx context.Context, actorID int64, action shared.ApprovalAction, note, number string) {
	err := s.approvals.Record(ctx, shared.ApprovalLog{
		Module:    purchaseModule,
		DocNumber: number,
		ActorID:   actorID,
		Action:    action,
		Note:      note,
	})
	if err != nil {
		s.logger.Warn("approval record failed", slog.String("module", purchaseModule), slog.Any("error", err))
	}
}

func validateLines(lines []ReturnLine, requireCondition bool) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", httpx.ErrValidation)
	}
	for i, line := range lines {
		if line.ItemID <= 0 {
			return fmt.Errorf("%w: line %d has no item", httpx.ErrValidation, i+1)
		}
		if line.Qty <= 0 {
			return fmt.Errorf("%w: line %d quantity must be positive", httpx.ErrValidation, i+1)
		}
		if line.Price < 0 {
			return fmt.Errorf("%w: line %d price must not be negative", httpx.ErrValidation, i+1)
		}
		if requireCondition {
			switch line.Condition {
			case ConditionResellable, ConditionDamaged:
			default:
				return fmt.Errorf("%w: line %d condition must be %s or %s", httpx.ErrValidation, i+1, ConditionResellable, ConditionDamaged)
			}
		}
	}
	return nil
}
