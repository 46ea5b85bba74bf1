package recharges

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/ledger"
	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/config"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
	"github.com/lonchera-pe/cantina-backend/pkg/outbox"
	"github.com/lonchera-pe/cantina-backend/pkg/outbox/payloads"
)

const expiredReason = "voucher expired before review"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ledgerAppender interface {
	Append(ctx context.Context, tx *gorm.DB, input ledger.AppendInput) (*models.Transaction, error)
}

type accountDirectory interface {
	FindStudent(ctx context.Context, id uuid.UUID) (*models.Student, error)
	FindTeacherProfile(ctx context.Context, id uuid.UUID) (*models.TeacherProfile, error)
}

// Service runs the voucher workflow: parents submit, staff reviews, approval
// credits the ledger exactly once.
type Service interface {
	Submit(ctx context.Context, access scope.Access, input SubmitInput) (*models.RechargeRequest, error)
	Approve(ctx context.Context, access scope.Access, id uuid.UUID) (*models.RechargeRequest, error)
	Reject(ctx context.Context, access scope.Access, id uuid.UUID, reason string) (*models.RechargeRequest, error)
	Get(ctx context.Context, access scope.Access, id uuid.UUID) (*models.RechargeRequest, error)
	List(ctx context.Context, access scope.Access, filter ListFilter) ([]models.RechargeRequest, error)
	ExpirePending(ctx context.Context, now time.Time, batchSize int) (int, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	ledger   ledgerAppender
	outbox   outboxPublisher
	accounts accountDirectory
	cfg      config.RechargeConfig
	logg     *logger.Logger
}

// NewService builds a recharges service with the provided collaborators.
func NewService(repo Repository, tx txRunner, ledgerSvc ledgerAppender, outboxSvc outboxPublisher, accounts accountDirectory, cfg config.RechargeConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("recharges repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account directory required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		ledger:   ledgerSvc,
		outbox:   outboxSvc,
		accounts: accounts,
		cfg:      cfg,
		logg:     logg,
	}, nil
}

// SubmitInput captures a parent- or teacher-submitted voucher.
type SubmitInput struct {
	StudentID        *uuid.UUID
	TeacherProfileID *uuid.UUID
	Amount           decimal.Decimal
	PaymentMethod    enums.PaymentMethod
	ReferenceCode    *string
	VoucherKey       *string
	Notes            *string
}

func (s *service) Submit(ctx context.Context, access scope.Access, input SubmitInput) (*models.RechargeRequest, error) {
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.PaymentMethod.IsVoucherMethod() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("method %q not accepted for vouchers", input.PaymentMethod))
	}

	ref := ledger.AccountRef{StudentID: input.StudentID, TeacherProfileID: input.TeacherProfileID}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	schoolID, err := s.resolveSchool(ctx, access, ref)
	if err != nil {
		return nil, err
	}

	row := &models.RechargeRequest{
		SchoolID:         schoolID,
		StudentID:        input.StudentID,
		TeacherProfileID: input.TeacherProfileID,
		SubmittedBy:      access.UserID,
		Amount:           input.Amount,
		PaymentMethod:    input.PaymentMethod,
		ReferenceCode:    input.ReferenceCode,
		VoucherKey:       input.VoucherKey,
		Notes:            input.Notes,
		Status:           enums.RechargeRequestStatusPending,
		ExpiresAt:        time.Now().Add(s.cfg.VoucherTTL),
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create recharge request")
	}
	return row, nil
}

// Approve flips the request to approved and credits the ledger in one
// transaction. The conditional update makes retries and double clicks safe:
// a request leaves pending exactly once.
func (s *service) Approve(ctx context.Context, access scope.Access, id uuid.UUID) (*models.RechargeRequest, error) {
	request, err := s.Get(ctx, access, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.MarkApproved(ctx, request.ID, access.UserID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark approved")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "recharge request already reviewed")
		}

		entry, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
			SchoolID:          request.SchoolID,
			Account:           ledger.AccountRef{StudentID: request.StudentID, TeacherProfileID: request.TeacherProfileID},
			Type:              enums.TransactionTypeRecharge,
			Amount:            request.Amount,
			PaymentStatus:     enums.PaymentStatusPaid,
			PaymentMethod:     request.PaymentMethod,
			Description:       fmt.Sprintf("recharge via %s", request.PaymentMethod),
			RechargeRequestID: &request.ID,
			ActorUserID:       access.UserID,
		})
		if err != nil {
			return err
		}
		if err := repo.LinkTransaction(ctx, request.ID, entry.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link transaction")
		}

		request.Status = enums.RechargeRequestStatusApproved
		request.ReviewedBy = &access.UserID
		request.ReviewedAt = &now
		request.TransactionID = &entry.ID

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypeRechargeApproved,
			AggregateType: enums.OutboxAggregateTypeRechargeRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: access.UserID, SchoolID: access.SchoolID, Role: string(access.Role)},
			Data: payloads.RechargeApprovedEvent{
				RechargeRequestID: request.ID,
				SchoolID:          request.SchoolID,
				StudentID:         request.StudentID,
				TeacherProfileID:  request.TeacherProfileID,
				TransactionID:     entry.ID,
				Amount:            request.Amount,
				PaymentMethod:     request.PaymentMethod,
				ReviewedBy:        access.UserID,
				ReviewedAt:        now,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) Reject(ctx context.Context, access scope.Access, id uuid.UUID, reason string) (*models.RechargeRequest, error) {
	request, err := s.Get(ctx, access, id)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "voucher could not be verified"
	}

	now := time.Now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.MarkRejected(ctx, request.ID, &access.UserID, now, reason)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark rejected")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "recharge request already reviewed")
		}

		request.Status = enums.RechargeRequestStatusRejected
		request.ReviewedBy = &access.UserID
		request.ReviewedAt = &now
		request.RejectionReason = &reason

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypeRechargeRejected,
			AggregateType: enums.OutboxAggregateTypeRechargeRequest,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: access.UserID, SchoolID: access.SchoolID, Role: string(access.Role)},
			Data: payloads.RechargeRejectedEvent{
				RechargeRequestID: request.ID,
				SchoolID:          request.SchoolID,
				StudentID:         request.StudentID,
				TeacherProfileID:  request.TeacherProfileID,
				Reason:            reason,
				ReviewedBy:        access.UserID,
				ReviewedAt:        now,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) Get(ctx context.Context, access scope.Access, id uuid.UUID) (*models.RechargeRequest, error) {
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "recharge request not found")
	}
	if err := access.Require(row.SchoolID); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) List(ctx context.Context, access scope.Access, filter ListFilter) ([]models.RechargeRequest, error) {
	if access.Role == enums.UserRoleParent {
		// Parents only see their own submissions.
		filter.SubmittedBy = &access.UserID
	}
	rows, err := s.repo.List(ctx, access, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recharge requests")
	}
	return rows, nil
}

// ExpirePending rejects pending requests past their expiry. Each request is
// handled in its own transaction so a single bad row cannot stall the sweep.
func (s *service) ExpirePending(ctx context.Context, now time.Time, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	rows, err := s.repo.ListExpiredPending(ctx, now, batchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired requests")
	}

	expired := 0
	for _, row := range rows {
		row := row
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			affected, err := repo.MarkRejected(ctx, row.ID, nil, now, expiredReason)
			if err != nil {
				return err
			}
			if affected == 0 {
				// Reviewed between fetch and sweep; nothing to do.
				return nil
			}
			expired++
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.OutboxEventTypeRechargeRejected,
				AggregateType: enums.OutboxAggregateTypeRechargeRequest,
				AggregateID:   row.ID,
				Data: payloads.RechargeRejectedEvent{
					RechargeRequestID: row.ID,
					SchoolID:          row.SchoolID,
					StudentID:         row.StudentID,
					TeacherProfileID:  row.TeacherProfileID,
					Reason:            expiredReason,
					ReviewedAt:        now,
				},
				OccurredAt: now,
			})
		})
		if err != nil {
			failCtx := s.logg.WithField(ctx, "recharge_request_id", row.ID.String())
			s.logg.Error(failCtx, "expire recharge request failed", err)
		}
	}
	return expired, nil
}

// resolveSchool checks the submitter actually owns the target account and
// returns the account's school.
func (s *service) resolveSchool(ctx context.Context, access scope.Access, ref ledger.AccountRef) (uuid.UUID, error) {
	if ref.IsStudent() {
		student, err := s.accounts.FindStudent(ctx, *ref.StudentID)
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "student not found")
		}
		if access.Role == enums.UserRoleParent && student.GuardianUserID != access.UserID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "student is not under this guardian")
		}
		if err := access.Require(student.SchoolID); err != nil {
			return uuid.Nil, err
		}
		return student.SchoolID, nil
	}

	profile, err := s.accounts.FindTeacherProfile(ctx, *ref.TeacherProfileID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "teacher profile not found")
	}
	if access.Role == enums.UserRoleTeacher && profile.UserID != access.UserID {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "teacher profile belongs to another user")
	}
	if err := access.Require(profile.SchoolID); err != nil {
		return uuid.Nil, err
	}
	return profile.SchoolID, nil
}
