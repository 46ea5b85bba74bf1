package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/accounts"
	"github.com/lonchera-pe/cantina-backend/internal/ledger"
	"github.com/lonchera-pe/cantina-backend/internal/scope"
	dbpkg "github.com/lonchera-pe/cantina-backend/pkg/db"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	dbtypes "github.com/lonchera-pe/cantina-backend/pkg/db/types"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
	"github.com/lonchera-pe/cantina-backend/pkg/outbox"
	"github.com/lonchera-pe/cantina-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ledgerService interface {
	ListPendingForAccount(ctx context.Context, ref ledger.AccountRef) ([]models.Transaction, error)
	MarkPaid(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	Append(ctx context.Context, tx *gorm.DB, input ledger.AppendInput) (*models.Transaction, error)
}

type accountDirectory interface {
	FindStudent(ctx context.Context, id uuid.UUID) (*models.Student, error)
	FindTeacherProfile(ctx context.Context, id uuid.UUID) (*models.TeacherProfile, error)
}

type debtLister interface {
	TopDebtors(ctx context.Context, access scope.Access, limit int) ([]accounts.Debtor, error)
	TotalDebt(ctx context.Context, access scope.Access) (decimal.Decimal, error)
}

// Service manages billing periods and the cash settlement of free-account
// debt. Debt is never stored on the period; it is always refolded from the
// ledger when a summary is requested.
type Service interface {
	OpenPeriod(ctx context.Context, access scope.Access, input OpenPeriodInput) (*models.BillingPeriod, error)
	ClosePeriod(ctx context.Context, access scope.Access, id uuid.UUID) (*models.BillingPeriod, error)
	GetPeriod(ctx context.Context, access scope.Access, id uuid.UUID) (*models.BillingPeriod, error)
	ListPeriods(ctx context.Context, access scope.Access, schoolID uuid.UUID) ([]models.BillingPeriod, error)
	ApplyPayment(ctx context.Context, access scope.Access, input ApplyPaymentInput) (*models.BillingPayment, error)
	ListPayments(ctx context.Context, access scope.Access, periodID uuid.UUID) ([]models.BillingPayment, error)
	Summary(ctx context.Context, access scope.Access, periodID uuid.UUID) (*PeriodSummary, error)

	// Rollover closes elapsed open periods and opens their successors. Run
	// from the cron worker.
	Rollover(ctx context.Context, now time.Time, batchSize int) (int, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	ledger  ledgerService
	acct    accountDirectory
	debtors debtLister
	outbox  outboxPublisher
	logg    *logger.Logger
}

// NewService builds a billing service.
func NewService(repo Repository, tx txRunner, ledgerSvc ledgerService, acct accountDirectory, debtors debtLister, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("billing repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if acct == nil {
		return nil, fmt.Errorf("account directory required")
	}
	if debtors == nil {
		return nil, fmt.Errorf("debt lister required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, ledger: ledgerSvc, acct: acct, debtors: debtors, outbox: outboxSvc, logg: logg}, nil
}

// OpenPeriodInput starts a new billing period.
type OpenPeriodInput struct {
	SchoolID  uuid.UUID
	Cycle     enums.BillingCycle
	StartDate time.Time
}

// ApplyPaymentInput records a cash settlement against an account's pending
// purchases.
type ApplyPaymentInput struct {
	StudentID        *uuid.UUID
	TeacherProfileID *uuid.UUID
	Amount           decimal.Decimal
	PaymentMethod    enums.PaymentMethod
}

// PeriodSummary bundles a period with its payment totals and the school's
// current outstanding debt, refolded from the ledger.
type PeriodSummary struct {
	Period        *models.BillingPeriod
	PaymentsTotal decimal.Decimal
	PaymentCount  int
	Debtors       []accounts.Debtor
	DebtTotal     decimal.Decimal
}

func (s *service) OpenPeriod(ctx context.Context, access scope.Access, input OpenPeriodInput) (*models.BillingPeriod, error) {
	if input.SchoolID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "school id required")
	}
	if !input.Cycle.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid billing cycle %q", input.Cycle))
	}
	if input.StartDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start date required")
	}
	if err := access.Require(input.SchoolID); err != nil {
		return nil, err
	}
	if existing, err := s.repo.FindOpenPeriod(ctx, input.SchoolID); err == nil && existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "school already has an open billing period").
			WithDetails(map[string]any{"period_id": existing.ID})
	}

	start := truncateDate(input.StartDate)
	period := &models.BillingPeriod{
		SchoolID:  input.SchoolID,
		Cycle:     input.Cycle,
		StartDate: start,
		EndDate:   nextBoundary(start, input.Cycle),
		Status:    enums.BillingPeriodStatusOpen,
	}
	if err := s.repo.CreatePeriod(ctx, period); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_billing_periods_school_start") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a period already starts on this date")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create billing period")
	}
	return period, nil
}

func (s *service) ClosePeriod(ctx context.Context, access scope.Access, id uuid.UUID) (*models.BillingPeriod, error) {
	period, err := s.GetPeriod(ctx, access, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	actor := &outbox.ActorRef{UserID: access.UserID, SchoolID: access.SchoolID, Role: string(access.Role)}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.closePeriod(ctx, tx, period, now, actor)
	})
	if err != nil {
		return nil, err
	}
	period.Status = enums.BillingPeriodStatusClosed
	period.ClosedAt = &now
	return period, nil
}

func (s *service) GetPeriod(ctx context.Context, access scope.Access, id uuid.UUID) (*models.BillingPeriod, error) {
	period, err := s.repo.FindPeriod(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "billing period not found")
	}
	if err := access.Require(period.SchoolID); err != nil {
		return nil, err
	}
	return period, nil
}

func (s *service) ListPeriods(ctx context.Context, access scope.Access, schoolID uuid.UUID) ([]models.BillingPeriod, error) {
	if err := access.Require(schoolID); err != nil {
		return nil, err
	}
	periods, err := s.repo.ListPeriods(ctx, access, schoolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list billing periods")
	}
	return periods, nil
}

// ApplyPayment marks the account's oldest pending purchases paid, never
// overshooting the received amount. A purchase neutralized by a pending
// refund is skipped. Whatever the payment does not cover lands on the
// account as a paid recharge, so cash is never silently swallowed.
func (s *service) ApplyPayment(ctx context.Context, access scope.Access, input ApplyPaymentInput) (*models.BillingPayment, error) {
	ref := ledger.AccountRef{StudentID: input.StudentID, TeacherProfileID: input.TeacherProfileID}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.PaymentMethod.IsValid() || input.PaymentMethod == enums.PaymentMethodBalance {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "debt is settled in cash or by voucher method")
	}

	schoolID, err := s.resolveSchool(ctx, access, ref)
	if err != nil {
		return nil, err
	}
	period, err := s.repo.FindOpenPeriod(ctx, schoolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "no open billing period for school")
	}

	pending, err := s.ledger.ListPendingForAccount(ctx, ref)
	if err != nil {
		return nil, err
	}
	covered, remainder := coverOldest(pending, input.Amount)

	payment := &models.BillingPayment{
		SchoolID:              schoolID,
		PeriodID:              period.ID,
		StudentID:             input.StudentID,
		TeacherProfileID:      input.TeacherProfileID,
		Amount:                input.Amount,
		PaymentMethod:         input.PaymentMethod,
		CoveredTransactionIDs: dbtypes.UUIDArray(covered),
		ReceivedBy:            access.UserID,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if len(covered) > 0 {
			if err := s.ledger.MarkPaid(ctx, tx, covered); err != nil {
				return err
			}
		}
		if remainder.IsPositive() {
			if _, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				SchoolID:      schoolID,
				Account:       ref,
				Type:          enums.TransactionTypeRecharge,
				Amount:        remainder,
				PaymentStatus: enums.PaymentStatusPaid,
				PaymentMethod: input.PaymentMethod,
				Description:   "billing payment surplus credit",
				ActorUserID:   access.UserID,
			}); err != nil {
				return err
			}
		}
		if err := s.repo.WithTx(tx).CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record billing payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *service) ListPayments(ctx context.Context, access scope.Access, periodID uuid.UUID) ([]models.BillingPayment, error) {
	if _, err := s.GetPeriod(ctx, access, periodID); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, access, periodID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list billing payments")
	}
	return payments, nil
}

func (s *service) Summary(ctx context.Context, access scope.Access, periodID uuid.UUID) (*PeriodSummary, error) {
	period, err := s.GetPeriod(ctx, access, periodID)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, access, periodID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list billing payments")
	}
	summary := &PeriodSummary{Period: period, PaymentCount: len(payments), PaymentsTotal: decimal.Zero, DebtTotal: decimal.Zero}
	for _, p := range payments {
		summary.PaymentsTotal = summary.PaymentsTotal.Add(p.Amount)
	}
	// DebtTotal folds the whole scope; the debtor list is a capped preview.
	total, err := s.debtors.TotalDebt(ctx, access)
	if err != nil {
		return nil, err
	}
	summary.DebtTotal = total
	debtors, err := s.debtors.TopDebtors(ctx, access, 10)
	if err != nil {
		return nil, err
	}
	summary.Debtors = debtors
	return summary, nil
}

func (s *service) Rollover(ctx context.Context, now time.Time, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 50
	}
	periods, err := s.repo.ListOpenPeriodsEndedBefore(ctx, now, batchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list elapsed periods")
	}

	rolled := 0
	for i := range periods {
		period := periods[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := s.closePeriod(ctx, tx, &period, now, nil); err != nil {
				return err
			}
			next := &models.BillingPeriod{
				SchoolID:  period.SchoolID,
				Cycle:     period.Cycle,
				StartDate: period.EndDate,
				EndDate:   nextBoundary(period.EndDate, period.Cycle),
				Status:    enums.BillingPeriodStatusOpen,
			}
			if err := s.repo.WithTx(tx).CreatePeriod(ctx, next); err != nil {
				if dbpkg.IsUniqueViolation(err, "ux_billing_periods_school_start") {
					// Another worker already opened the successor.
					return nil
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open successor period")
			}
			return nil
		})
		if err != nil {
			if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeStateConflict {
				continue
			}
			failCtx := s.logg.WithField(ctx, "billing_period_id", period.ID.String())
			s.logg.Error(failCtx, "billing rollover failed", err)
			continue
		}
		rolled++
	}
	return rolled, nil
}

func (s *service) closePeriod(ctx context.Context, tx *gorm.DB, period *models.BillingPeriod, now time.Time, actor *outbox.ActorRef) error {
	affected, err := s.repo.WithTx(tx).ClosePeriod(ctx, period.ID, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close billing period")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "billing period already closed")
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.OutboxEventTypeBillingPeriodClosed,
		AggregateType: enums.OutboxAggregateTypeBillingPeriod,
		AggregateID:   period.ID,
		Actor:         actor,
		Data: payloads.BillingPeriodClosedEvent{
			BillingPeriodID: period.ID,
			SchoolID:        period.SchoolID,
			Cycle:           period.Cycle,
			PeriodStart:     period.StartDate.Format(dateLayout),
			PeriodEnd:       period.EndDate.Format(dateLayout),
			ClosedAt:        now,
		},
		OccurredAt: now,
	})
}

func (s *service) resolveSchool(ctx context.Context, access scope.Access, ref ledger.AccountRef) (uuid.UUID, error) {
	if ref.IsStudent() {
		student, err := s.acct.FindStudent(ctx, *ref.StudentID)
		if err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "student not found")
		}
		return student.SchoolID, access.Require(student.SchoolID)
	}
	profile, err := s.acct.FindTeacherProfile(ctx, *ref.TeacherProfileID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "teacher profile not found")
	}
	return profile.SchoolID, access.Require(profile.SchoolID)
}

// coverOldest walks pending entries in ledger order and selects the purchase
// ids the amount fully covers. Purchases referenced by a pending refund are
// already neutral and skipped.
func coverOldest(pending []models.Transaction, amount decimal.Decimal) ([]uuid.UUID, decimal.Decimal) {
	refunded := make(map[uuid.UUID]bool)
	for _, row := range pending {
		if row.Type == enums.TransactionTypeRefund && row.RefundOfTransactionID != nil {
			refunded[*row.RefundOfTransactionID] = true
		}
	}

	var covered []uuid.UUID
	remaining := amount
	for _, row := range pending {
		if row.Type != enums.TransactionTypePurchase || refunded[row.ID] {
			continue
		}
		charge := row.Amount.Neg()
		if charge.GreaterThan(remaining) {
			break
		}
		covered = append(covered, row.ID)
		remaining = remaining.Sub(charge)
	}
	return covered, remaining
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nextBoundary(start time.Time, cycle enums.BillingCycle) time.Time {
	if cycle == enums.BillingCycleWeekly {
		return start.AddDate(0, 0, 7)
	}
	return time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
