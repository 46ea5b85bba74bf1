package lunchorders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/accounts"
	"github.com/lonchera-pe/cantina-backend/internal/ledger"
	"github.com/lonchera-pe/cantina-backend/internal/schools"
	"github.com/lonchera-pe/cantina-backend/internal/scope"
	dbpkg "github.com/lonchera-pe/cantina-backend/pkg/db"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/outbox"
	"github.com/lonchera-pe/cantina-backend/pkg/outbox/payloads"
	"github.com/lonchera-pe/cantina-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ledgerService interface {
	Append(ctx context.Context, tx *gorm.DB, input ledger.AppendInput) (*models.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
}

type limitChecker interface {
	RemainingLimit(ctx context.Context, access scope.Access, ref ledger.AccountRef, now time.Time) (*accounts.LimitStatus, error)
}

type accountDirectory interface {
	FindStudent(ctx context.Context, id uuid.UUID) (*models.Student, error)
	FindTeacherProfile(ctx context.Context, id uuid.UUID) (*models.TeacherProfile, error)
}

type categoryReader interface {
	FindCategory(ctx context.Context, id uuid.UUID) (*models.LunchCategory, error)
}

type deadlineResolver interface {
	Deadlines(ctx context.Context, schoolID uuid.UUID) (*schools.DeadlineSet, error)
}

// Service drives the lunch order lifecycle. Orders move between
// pending_payment, confirmed, delivered, cancelled and postponed; every money
// effect rides the ledger inside the same transaction as the status change.
type Service interface {
	Place(ctx context.Context, access scope.Access, input PlaceInput) (*models.LunchOrder, error)
	Deliver(ctx context.Context, access scope.Access, id uuid.UUID) (*models.LunchOrder, error)
	Cancel(ctx context.Context, access scope.Access, id uuid.UUID, justification string) (*models.LunchOrder, error)
	Postpone(ctx context.Context, access scope.Access, id uuid.UUID, justification string) (*models.LunchOrder, error)
	DeliverWithoutOrder(ctx context.Context, access scope.Access, input NoOrderInput) (*models.LunchOrder, error)
	Get(ctx context.Context, access scope.Access, id uuid.UUID) (*models.LunchOrder, error)
	ListForDate(ctx context.Context, access scope.Access, date time.Time, status *enums.LunchOrderStatus) ([]models.LunchOrder, error)
	ListForAccount(ctx context.Context, access scope.Access, ref ledger.AccountRef, from, to time.Time) ([]models.LunchOrder, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	ledger   ledgerService
	limits   limitChecker
	accounts accountDirectory
	menus    categoryReader
	schools  deadlineResolver
	outbox   outboxPublisher
}

// ServiceParams bundles the collaborators; there are too many for positional
// arguments.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Ledger   ledgerService
	Limits   limitChecker
	Accounts accountDirectory
	Menus    categoryReader
	Schools  deadlineResolver
	Outbox   outboxPublisher
}

// NewService builds a lunch orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("lunch orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Limits == nil {
		return nil, fmt.Errorf("limit checker required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account directory required")
	}
	if params.Menus == nil {
		return nil, fmt.Errorf("category reader required")
	}
	if params.Schools == nil {
		return nil, fmt.Errorf("deadline resolver required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		ledger:   params.Ledger,
		limits:   params.Limits,
		accounts: params.Accounts,
		menus:    params.Menus,
		schools:  params.Schools,
		outbox:   params.Outbox,
	}, nil
}

// PlaceInput captures a new order.
type PlaceInput struct {
	StudentID        *uuid.UUID
	TeacherProfileID *uuid.UUID
	OrderDate        time.Time
	CategoryID       uuid.UUID
	MenuID           *uuid.UUID
	Addons           types.OrderAddons
}

// NoOrderInput captures a staff-recorded delivery with no prior order.
type NoOrderInput struct {
	StudentID        *uuid.UUID
	TeacherProfileID *uuid.UUID
	OrderDate        time.Time
	CategoryID       uuid.UUID
	Justification    string
}

// accountInfo flattens what the order flow needs from either account kind.
type accountInfo struct {
	ref         ledger.AccountRef
	schoolID    uuid.UUID
	freeAccount bool
	balance     decimal.Decimal
	limitType   enums.LimitType
	student     bool
}

func (s *service) Place(ctx context.Context, access scope.Access, input PlaceInput) (*models.LunchOrder, error) {
	ref := ledger.AccountRef{StudentID: input.StudentID, TeacherProfileID: input.TeacherProfileID}
	info, err := s.resolveAccount(ctx, access, ref)
	if err != nil {
		return nil, err
	}
	for _, addon := range input.Addons {
		if addon.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "addon price must not be negative")
		}
	}

	deadlines, err := s.schools.Deadlines(ctx, info.schoolID)
	if err != nil {
		return nil, err
	}
	orderDate := dateOnly(input.OrderDate)
	cutoff, err := ledger.ClockOn(orderDate, deadlines.OrderDeadline, deadlines.Location)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve order deadline")
	}
	now := time.Now()
	if !now.Before(cutoff) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order deadline for this date has passed")
	}

	category, err := s.loadCategory(ctx, info, input.CategoryID)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	if category.Price != nil {
		total = *category.Price
	}
	total = total.Add(input.Addons.Total())

	if total.IsPositive() && info.limitType != enums.LimitTypeNone {
		status, err := s.limits.RemainingLimit(ctx, access, ref, now)
		if err != nil {
			return nil, err
		}
		if !status.Unlimited() && total.GreaterThan(status.Remaining) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "spending limit exceeded").
				WithDetails(map[string]any{
					"remaining": status.Remaining.String(),
					"requested": total.String(),
				})
		}
	}

	// Prepaid accounts with funds settle immediately; everything else priced
	// becomes pending debt.
	settleNow := total.IsPositive() && !info.freeAccount && info.balance.GreaterThanOrEqual(total)
	orderStatus := enums.LunchOrderStatusConfirmed
	if total.IsPositive() && !info.freeAccount && !settleNow {
		orderStatus = enums.LunchOrderStatusPendingPayment
	}

	order := &models.LunchOrder{
		SchoolID:         info.schoolID,
		StudentID:        input.StudentID,
		TeacherProfileID: input.TeacherProfileID,
		OrderDate:        orderDate,
		CategoryID:       category.ID,
		MenuID:           input.MenuID,
		Status:           orderStatus,
		Addons:           input.Addons,
		PlacedBy:         access.UserID,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			if isDuplicateOrder(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "an order already exists for this date")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if total.IsPositive() {
			paymentStatus := enums.PaymentStatusPending
			if settleNow {
				paymentStatus = enums.PaymentStatusPaid
			}
			entry, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				SchoolID:      info.schoolID,
				Account:       ref,
				Type:          enums.TransactionTypePurchase,
				Amount:        total.Neg(),
				PaymentStatus: paymentStatus,
				PaymentMethod: enums.PaymentMethodBalance,
				Description:   fmt.Sprintf("lunch order %s", orderDate.Format(dateLayout)),
				LunchOrderID:  &order.ID,
				ActorUserID:   access.UserID,
			})
			if err != nil {
				return err
			}
			if err := repo.LinkTransaction(ctx, order.ID, entry.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link transaction")
			}
			order.TransactionID = &entry.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Deliver(ctx context.Context, access scope.Access, id uuid.UUID) (*models.LunchOrder, error) {
	order, err := s.Get(ctx, access, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.Transition(ctx, order.ID,
			[]enums.LunchOrderStatus{enums.LunchOrderStatusConfirmed, enums.LunchOrderStatusPostponed, enums.LunchOrderStatusPendingPayment},
			enums.LunchOrderStatusDelivered,
			map[string]interface{}{"delivered_at": now, "delivered_by": access.UserID},
		)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark delivered")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s, not deliverable", order.Status))
		}
		order.Status = enums.LunchOrderStatusDelivered
		order.DeliveredAt = &now
		order.DeliveredBy = &access.UserID

		return s.emitDelivered(ctx, tx, access, order, now)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Cancel(ctx context.Context, access scope.Access, id uuid.UUID, justification string) (*models.LunchOrder, error) {
	if justification == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "justification required")
	}
	order, err := s.Get(ctx, access, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnership(ctx, access, order); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.checkModificationCutoff(ctx, access, order, now, "cancel"); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		affected, err := repo.Transition(ctx, order.ID,
			[]enums.LunchOrderStatus{enums.LunchOrderStatusConfirmed, enums.LunchOrderStatusPendingPayment, enums.LunchOrderStatusPostponed},
			enums.LunchOrderStatusCancelled,
			map[string]interface{}{"cancelled_at": now, "cancelled_by": access.UserID, "justification": justification},
		)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark cancelled")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s, not cancellable", order.Status))
		}
		order.Status = enums.LunchOrderStatusCancelled
		order.CancelledAt = &now
		order.CancelledBy = &access.UserID
		order.Justification = &justification

		var refundID *uuid.UUID
		refundAmount := decimal.Zero
		if order.TransactionID != nil {
			purchase, err := s.ledger.Get(ctx, *order.TransactionID)
			if err != nil {
				return err
			}
			// Mirror the purchase: a settled purchase refunds paid and
			// restores the balance, a debt purchase refunds pending and
			// folds the debt back to zero.
			refund, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				SchoolID:              order.SchoolID,
				Account:               ledger.AccountRef{StudentID: order.StudentID, TeacherProfileID: order.TeacherProfileID},
				Type:                  enums.TransactionTypeRefund,
				Amount:                purchase.Amount.Neg(),
				PaymentStatus:         purchase.PaymentStatus,
				PaymentMethod:         purchase.PaymentMethod,
				Description:           fmt.Sprintf("refund for cancelled order %s", order.OrderDate.Format(dateLayout)),
				LunchOrderID:          &order.ID,
				RefundOfTransactionID: &purchase.ID,
				ActorUserID:           access.UserID,
			})
			if err != nil {
				return err
			}
			refundID = &refund.ID
			refundAmount = refund.Amount
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypeOrderCancelled,
			AggregateType: enums.OutboxAggregateTypeLunchOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: access.UserID, SchoolID: access.SchoolID, Role: string(access.Role)},
			Data: payloads.OrderCancelledEvent{
				OrderID:             order.ID,
				SchoolID:            order.SchoolID,
				StudentID:           order.StudentID,
				TeacherProfileID:    order.TeacherProfileID,
				OrderDate:           order.OrderDate.Format(dateLayout),
				RefundTransactionID: refundID,
				RefundAmount:        refundAmount,
				CancelledBy:         access.UserID,
				CancelledAt:         now,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Postpone(ctx context.Context, access scope.Access, id uuid.UUID, justification string) (*models.LunchOrder, error) {
	if justification == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "justification required")
	}
	order, err := s.Get(ctx, access, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwnership(ctx, access, order); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.checkModificationCutoff(ctx, access, order, now, "postpone"); err != nil {
		return nil, err
	}

	affected, err := s.repo.Transition(ctx, order.ID,
		[]enums.LunchOrderStatus{enums.LunchOrderStatusConfirmed, enums.LunchOrderStatusPendingPayment},
		enums.LunchOrderStatusPostponed,
		map[string]interface{}{"justification": justification},
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark postponed")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is %s, not postponable", order.Status))
	}
	order.Status = enums.LunchOrderStatusPostponed
	order.Justification = &justification
	return order, nil
}

// DeliverWithoutOrder records a serving-line delivery for an account with no
// order that day. The row is born delivered; a priced category still produces
// a pending purchase so the meal is billed.
func (s *service) DeliverWithoutOrder(ctx context.Context, access scope.Access, input NoOrderInput) (*models.LunchOrder, error) {
	if input.Justification == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "justification required")
	}
	ref := ledger.AccountRef{StudentID: input.StudentID, TeacherProfileID: input.TeacherProfileID}
	info, err := s.resolveAccount(ctx, access, ref)
	if err != nil {
		return nil, err
	}
	category, err := s.loadCategory(ctx, info, input.CategoryID)
	if err != nil {
		return nil, err
	}
	deadlines, err := s.schools.Deadlines(ctx, info.schoolID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = now.In(deadlines.Location)
	}
	orderDate = dateOnly(orderDate)

	order := &models.LunchOrder{
		SchoolID:          info.schoolID,
		StudentID:         input.StudentID,
		TeacherProfileID:  input.TeacherProfileID,
		OrderDate:         orderDate,
		CategoryID:        category.ID,
		Status:            enums.LunchOrderStatusDelivered,
		IsNoOrderDelivery: true,
		Justification:     &input.Justification,
		PlacedBy:          access.UserID,
		DeliveredAt:       &now,
		DeliveredBy:       &access.UserID,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			if isDuplicateOrder(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "an order already exists for this date")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create no-order delivery")
		}
		total := decimal.Zero
		if category.Price != nil {
			total = *category.Price
		}
		if total.IsPositive() {
			entry, err := s.ledger.Append(ctx, tx, ledger.AppendInput{
				SchoolID:      info.schoolID,
				Account:       ref,
				Type:          enums.TransactionTypePurchase,
				Amount:        total.Neg(),
				PaymentStatus: enums.PaymentStatusPending,
				PaymentMethod: enums.PaymentMethodBalance,
				Description:   fmt.Sprintf("no-order delivery %s", orderDate.Format(dateLayout)),
				LunchOrderID:  &order.ID,
				ActorUserID:   access.UserID,
			})
			if err != nil {
				return err
			}
			if err := repo.LinkTransaction(ctx, order.ID, entry.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link transaction")
			}
			order.TransactionID = &entry.ID
		}
		return s.emitDelivered(ctx, tx, access, order, now)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Get(ctx context.Context, access scope.Access, id uuid.UUID) (*models.LunchOrder, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if err := access.Require(order.SchoolID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListForDate(ctx context.Context, access scope.Access, date time.Time, status *enums.LunchOrderStatus) ([]models.LunchOrder, error) {
	rows, err := s.repo.ListForDate(ctx, access, date, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) ListForAccount(ctx context.Context, access scope.Access, ref ledger.AccountRef, from, to time.Time) ([]models.LunchOrder, error) {
	if _, err := s.resolveAccount(ctx, access, ref); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForAccount(ctx, ref, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) emitDelivered(ctx context.Context, tx *gorm.DB, access scope.Access, order *models.LunchOrder, now time.Time) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.OutboxEventTypeOrderDelivered,
		AggregateType: enums.OutboxAggregateTypeLunchOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: access.UserID, SchoolID: access.SchoolID, Role: string(access.Role)},
		Data: payloads.OrderDeliveredEvent{
			OrderID:          order.ID,
			SchoolID:         order.SchoolID,
			StudentID:        order.StudentID,
			TeacherProfileID: order.TeacherProfileID,
			OrderDate:        order.OrderDate.Format(dateLayout),
			NoOrderDelivery:  order.IsNoOrderDelivery,
			DeliveredBy:      access.UserID,
			DeliveredAt:      now,
		},
		OccurredAt: now,
	})
}

// checkModificationCutoff enforces the per-school deadlines: guardians and
// teachers are held to the cancel deadline, staff to the modification cutoff.
// Delivery itself is exempt.
func (s *service) checkModificationCutoff(ctx context.Context, access scope.Access, order *models.LunchOrder, now time.Time, action string) error {
	deadlines, err := s.schools.Deadlines(ctx, order.SchoolID)
	if err != nil {
		return err
	}
	clock := deadlines.ModificationCutoff
	if access.Role == enums.UserRoleParent || access.Role == enums.UserRoleTeacher {
		clock = deadlines.CancelDeadline
	}
	cutoff, err := ledger.ClockOn(order.OrderDate, clock, deadlines.Location)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve cutoff")
	}
	if !now.Before(cutoff) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("%s window for this date has closed", action))
	}
	return nil
}

// requireOwnership restricts guardians to their own students and teachers to
// their own profile. School staff passed the scope check already.
func (s *service) requireOwnership(ctx context.Context, access scope.Access, order *models.LunchOrder) error {
	switch access.Role {
	case enums.UserRoleParent:
		if order.StudentID == nil {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not a student order")
		}
		student, err := s.accounts.FindStudent(ctx, *order.StudentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "student not found")
		}
		if student.GuardianUserID != access.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "student is not under this guardian")
		}
	case enums.UserRoleTeacher:
		if order.TeacherProfileID == nil {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not a teacher order")
		}
		profile, err := s.accounts.FindTeacherProfile(ctx, *order.TeacherProfileID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "teacher profile not found")
		}
		if profile.UserID != access.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "teacher profile belongs to another user")
		}
	}
	return nil
}

func (s *service) resolveAccount(ctx context.Context, access scope.Access, ref ledger.AccountRef) (*accountInfo, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if ref.IsStudent() {
		student, err := s.accounts.FindStudent(ctx, *ref.StudentID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "student not found")
		}
		if !student.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "student account is inactive")
		}
		if access.Role == enums.UserRoleParent && student.GuardianUserID != access.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "student is not under this guardian")
		}
		if err := access.Require(student.SchoolID); err != nil {
			return nil, err
		}
		return &accountInfo{
			ref:         ref,
			schoolID:    student.SchoolID,
			freeAccount: student.FreeAccount,
			balance:     student.Balance,
			limitType:   student.LimitType,
			student:     true,
		}, nil
	}

	profile, err := s.accounts.FindTeacherProfile(ctx, *ref.TeacherProfileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "teacher profile not found")
	}
	if !profile.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "teacher account is inactive")
	}
	if access.Role == enums.UserRoleTeacher && profile.UserID != access.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "teacher profile belongs to another user")
	}
	if err := access.Require(profile.SchoolID); err != nil {
		return nil, err
	}
	return &accountInfo{
		ref:         ref,
		schoolID:    profile.SchoolID,
		freeAccount: profile.FreeAccount,
		balance:     profile.Balance,
		limitType:   profile.LimitType,
	}, nil
}

func (s *service) loadCategory(ctx context.Context, info *accountInfo, id uuid.UUID) (*models.LunchCategory, error) {
	category, err := s.menus.FindCategory(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "category not found")
	}
	if category.SchoolID != info.schoolID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "category belongs to another school")
	}
	if !category.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "category is inactive")
	}
	switch category.Audience {
	case enums.MenuAudienceStudents:
		if !info.student {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is student only")
		}
	case enums.MenuAudienceTeachers:
		if info.student {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is teacher only")
		}
	}
	return category, nil
}

func isDuplicateOrder(err error) bool {
	return dbpkg.IsUniqueViolation(err, "ux_lunch_orders_student_date") ||
		dbpkg.IsUniqueViolation(err, "ux_lunch_orders_teacher_date")
}

// dateOnly keeps the calendar day carried by t. Order dates are civil
// dates, so the components are read as given rather than shifted into
// another zone first.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
