package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/pagination"
	"github.com/lonchera-pe/cantina-backend/pkg/types"
)

// Service is the single write path to the transaction ledger. All balance
// mutations go through Append so the denormalized balance and the ledger
// commit together or not at all.
type Service interface {
	Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	MarkCancelled(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	OutstandingDebt(ctx context.Context, ref AccountRef) (decimal.Decimal, error)
	SpentInWindow(ctx context.Context, ref AccountRef, window Window) (decimal.Decimal, error)
	PaidTotal(ctx context.Context, ref AccountRef) (decimal.Decimal, error)
	ListForAccount(ctx context.Context, ref AccountRef, params pagination.Params) ([]models.Transaction, error)
	ListPendingForAccount(ctx context.Context, ref AccountRef) ([]models.Transaction, error)
}

type service struct {
	repo Repository
}

// AppendInput captures the immutable data a ledger entry requires. Amount is
// signed: recharges and refunds positive, purchases negative.
type AppendInput struct {
	SchoolID              uuid.UUID
	Account               AccountRef
	Type                  enums.TransactionType
	Amount                decimal.Decimal
	PaymentStatus         enums.PaymentStatus
	PaymentMethod         enums.PaymentMethod
	Description           string
	Metadata              types.JSONMap
	LunchOrderID          *uuid.UUID
	RefundOfTransactionID *uuid.UUID
	RechargeRequestID     *uuid.UUID
	ActorUserID           uuid.UUID
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.Transaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger append requires a transaction")
	}
	if input.SchoolID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	if err := input.Account.Validate(); err != nil {
		return nil, err
	}
	if input.ActorUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.Type))
	}
	if !input.PaymentStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment status %q", input.PaymentStatus))
	}
	if input.PaymentStatus == enums.PaymentStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger entries are never born cancelled")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.Amount.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be zero")
	}
	if err := validateSign(input.Type, input.Amount); err != nil {
		return nil, err
	}

	row := &models.Transaction{
		SchoolID:              input.SchoolID,
		StudentID:             input.Account.StudentID,
		TeacherProfileID:      input.Account.TeacherProfileID,
		Type:                  input.Type,
		Amount:                input.Amount,
		PaymentStatus:         input.PaymentStatus,
		PaymentMethod:         input.PaymentMethod,
		Description:           input.Description,
		Metadata:              input.Metadata,
		LunchOrderID:          input.LunchOrderID,
		RefundOfTransactionID: input.RefundOfTransactionID,
		RechargeRequestID:     input.RechargeRequestID,
		ActorUserID:           input.ActorUserID,
	}

	repo := s.repo.WithTx(tx)
	if err := repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}

	// Paid entries move the denormalized balance; pending entries are debt
	// and settle later through MarkPaid without touching the balance.
	if input.PaymentStatus == enums.PaymentStatusPaid {
		if err := s.adjustBalance(ctx, repo, input.Account, input.Amount); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust account balance")
		}
	}

	return row, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "transaction not found")
	}
	return row, nil
}

func (s *service) MarkPaid(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	return s.transition(ctx, tx, ids, enums.PaymentStatusPaid)
}

func (s *service) MarkCancelled(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	return s.transition(ctx, tx, ids, enums.PaymentStatusCancelled)
}

func (s *service) transition(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, to enums.PaymentStatus) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "ledger transition requires a transaction")
	}
	if len(ids) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction ids required")
	}
	affected, err := s.repo.WithTx(tx).UpdateStatus(ctx, ids, enums.PaymentStatusPending, to)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
	}
	if affected != int64(len(ids)) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "some entries were not pending").
			WithDetails(map[string]any{"expected": len(ids), "updated": affected})
	}
	return nil
}

// OutstandingDebt is the negation of the pending sum floored at zero. This is
// the single debt definition; billing payments reduce it only by marking the
// underlying entries paid.
func (s *service) OutstandingDebt(ctx context.Context, ref AccountRef) (decimal.Decimal, error) {
	if err := ref.Validate(); err != nil {
		return decimal.Zero, err
	}
	pending, err := s.repo.SumPending(ctx, ref)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum pending entries")
	}
	debt := pending.Neg()
	if debt.IsNegative() {
		return decimal.Zero, nil
	}
	return debt, nil
}

func (s *service) SpentInWindow(ctx context.Context, ref AccountRef, window Window) (decimal.Decimal, error) {
	if err := ref.Validate(); err != nil {
		return decimal.Zero, err
	}
	spent, err := s.repo.SumSpentInWindow(ctx, ref, window)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum window spending")
	}
	// A refund landing in a later window than its purchase can push the
	// sum negative, which would inflate the remaining limit.
	if spent.IsNegative() {
		return decimal.Zero, nil
	}
	return spent, nil
}

// PaidTotal recomputes the balance from settled entries. Callers compare it
// against the denormalized account balance to detect drift.
func (s *service) PaidTotal(ctx context.Context, ref AccountRef) (decimal.Decimal, error) {
	if err := ref.Validate(); err != nil {
		return decimal.Zero, err
	}
	paid, err := s.repo.SumPaid(ctx, ref)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum paid entries")
	}
	return paid, nil
}

func (s *service) ListForAccount(ctx context.Context, ref AccountRef, params pagination.Params) ([]models.Transaction, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListForAccount(ctx, ref, params)
}

func (s *service) ListPendingForAccount(ctx context.Context, ref AccountRef) ([]models.Transaction, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ListPendingForAccount(ctx, ref)
}

func (s *service) adjustBalance(ctx context.Context, repo Repository, ref AccountRef, delta decimal.Decimal) error {
	if ref.StudentID != nil {
		return repo.AdjustStudentBalance(ctx, *ref.StudentID, delta)
	}
	return repo.AdjustTeacherBalance(ctx, *ref.TeacherProfileID, delta)
}

func validateSign(txType enums.TransactionType, amount decimal.Decimal) error {
	switch txType {
	case enums.TransactionTypeRecharge, enums.TransactionTypeRefund:
		if amount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s amount must be positive", txType))
		}
	case enums.TransactionTypePurchase:
		if amount.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "purchase amount must be negative")
		}
	}
	return nil
}
