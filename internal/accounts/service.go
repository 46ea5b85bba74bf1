package accounts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lonchera-pe/cantina-backend/internal/ledger"
	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/pagination"
)

type ledgerService interface {
	OutstandingDebt(ctx context.Context, ref ledger.AccountRef) (decimal.Decimal, error)
	SpentInWindow(ctx context.Context, ref ledger.AccountRef, window ledger.Window) (decimal.Decimal, error)
	PaidTotal(ctx context.Context, ref ledger.AccountRef) (decimal.Decimal, error)
	ListForAccount(ctx context.Context, ref ledger.AccountRef, params pagination.Params) ([]models.Transaction, error)
}

type schoolDirectory interface {
	Timezone(ctx context.Context, schoolID uuid.UUID) (*time.Location, error)
}

// Service exposes account lifecycle and ledger projections.
type Service interface {
	CreateStudent(ctx context.Context, access scope.Access, input CreateStudentInput) (*models.Student, error)
	UpdateStudent(ctx context.Context, access scope.Access, id uuid.UUID, input UpdateAccountInput) (*models.Student, error)
	DeactivateStudent(ctx context.Context, access scope.Access, id uuid.UUID) error
	GetStudent(ctx context.Context, access scope.Access, id uuid.UUID) (*models.Student, error)
	ListStudents(ctx context.Context, access scope.Access, guardianUserID *uuid.UUID) ([]models.Student, error)

	CreateTeacherProfile(ctx context.Context, access scope.Access, input CreateTeacherProfileInput) (*models.TeacherProfile, error)
	UpdateTeacherProfile(ctx context.Context, access scope.Access, id uuid.UUID, input UpdateAccountInput) (*models.TeacherProfile, error)
	DeactivateTeacherProfile(ctx context.Context, access scope.Access, id uuid.UUID) error
	ListTeacherProfiles(ctx context.Context, access scope.Access) ([]models.TeacherProfile, error)
	TeacherProfileByUser(ctx context.Context, access scope.Access, userID uuid.UUID) (*models.TeacherProfile, error)

	AvailableBalance(ctx context.Context, access scope.Access, ref ledger.AccountRef) (decimal.Decimal, error)
	OutstandingDebt(ctx context.Context, access scope.Access, ref ledger.AccountRef) (decimal.Decimal, error)
	RemainingLimit(ctx context.Context, access scope.Access, ref ledger.AccountRef, now time.Time) (*LimitStatus, error)
	VerifyBalance(ctx context.Context, access scope.Access, ref ledger.AccountRef) error
	TopDebtors(ctx context.Context, access scope.Access, limit int) ([]Debtor, error)
	TotalDebt(ctx context.Context, access scope.Access) (decimal.Decimal, error)
	ListTransactions(ctx context.Context, access scope.Access, ref ledger.AccountRef, params pagination.Params) ([]models.Transaction, error)
}

type service struct {
	repo    Repository
	ledger  ledgerService
	schools schoolDirectory
}

// NewService builds an accounts service with the provided collaborators.
func NewService(repo Repository, ledgerSvc ledgerService, schools schoolDirectory) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if schools == nil {
		return nil, fmt.Errorf("school directory required")
	}
	return &service{repo: repo, ledger: ledgerSvc, schools: schools}, nil
}

// CreateStudentInput captures the fields for a new student account.
type CreateStudentInput struct {
	SchoolID       uuid.UUID
	GuardianUserID uuid.UUID
	FullName       string
	Grade          *string
	Section        *string
	FreeAccount    bool
	LimitType      enums.LimitType
	DailyLimit     decimal.Decimal
	WeeklyLimit    decimal.Decimal
	MonthlyLimit   decimal.Decimal
}

// CreateTeacherProfileInput captures the fields for a new teacher account.
type CreateTeacherProfileInput struct {
	SchoolID    uuid.UUID
	UserID      uuid.UUID
	FullName    string
	FreeAccount bool
	LimitType   enums.LimitType
}

// UpdateAccountInput carries optional field updates shared by both account
// kinds. Nil fields are left untouched. Balance is never updatable here.
type UpdateAccountInput struct {
	FullName     *string
	Grade        *string
	Section      *string
	FreeAccount  *bool
	LimitType    *enums.LimitType
	DailyLimit   *decimal.Decimal
	WeeklyLimit  *decimal.Decimal
	MonthlyLimit *decimal.Decimal
}

// LimitStatus reports how much of a spending cap remains for the window
// containing now.
type LimitStatus struct {
	LimitType enums.LimitType
	Cap       decimal.Decimal
	Spent     decimal.Decimal
	Remaining decimal.Decimal
	Window    ledger.Window
}

// Unlimited reports whether no cap applies to the account.
func (l LimitStatus) Unlimited() bool {
	return l.LimitType == enums.LimitTypeNone
}

func (s *service) CreateStudent(ctx context.Context, access scope.Access, input CreateStudentInput) (*models.Student, error) {
	if err := access.Require(input.SchoolID); err != nil {
		return nil, err
	}
	if input.FullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name required")
	}
	if input.GuardianUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guardian user required")
	}
	if !input.LimitType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid limit type %q", input.LimitType))
	}
	if err := validateCaps(input.DailyLimit, input.WeeklyLimit, input.MonthlyLimit); err != nil {
		return nil, err
	}

	row := &models.Student{
		SchoolID:       input.SchoolID,
		GuardianUserID: input.GuardianUserID,
		FullName:       input.FullName,
		Grade:          input.Grade,
		Section:        input.Section,
		FreeAccount:    input.FreeAccount,
		LimitType:      input.LimitType,
		DailyLimit:     input.DailyLimit,
		WeeklyLimit:    input.WeeklyLimit,
		MonthlyLimit:   input.MonthlyLimit,
		IsActive:       true,
	}
	if err := s.repo.CreateStudent(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create student")
	}
	return row, nil
}

func (s *service) UpdateStudent(ctx context.Context, access scope.Access, id uuid.UUID, input UpdateAccountInput) (*models.Student, error) {
	row, err := s.GetStudent(ctx, access, id)
	if err != nil {
		return nil, err
	}
	if input.FullName != nil {
		if *input.FullName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name must not be blank")
		}
		row.FullName = *input.FullName
	}
	if input.Grade != nil {
		row.Grade = input.Grade
	}
	if input.Section != nil {
		row.Section = input.Section
	}
	if input.FreeAccount != nil {
		row.FreeAccount = *input.FreeAccount
	}
	if err := applyLimitUpdates(input, &row.LimitType, &row.DailyLimit, &row.WeeklyLimit, &row.MonthlyLimit); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStudent(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update student")
	}
	return row, nil
}

func (s *service) DeactivateStudent(ctx context.Context, access scope.Access, id uuid.UUID) error {
	row, err := s.GetStudent(ctx, access, id)
	if err != nil {
		return err
	}
	if !row.IsActive {
		return nil
	}
	row.IsActive = false
	if err := s.repo.UpdateStudent(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate student")
	}
	return nil
}

// TeacherProfileByUser resolves the cafeteria profile owned by a teacher
// user, for self-service lookups.
func (s *service) TeacherProfileByUser(ctx context.Context, access scope.Access, userID uuid.UUID) (*models.TeacherProfile, error) {
	row, err := s.repo.FindTeacherProfileByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "teacher profile not found")
	}
	if err := access.Require(row.SchoolID); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) findTeacherProfile(ctx context.Context, access scope.Access, id uuid.UUID) (*models.TeacherProfile, error) {
	row, err := s.repo.FindTeacherProfile(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "teacher profile not found")
	}
	if err := access.Require(row.SchoolID); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) GetStudent(ctx context.Context, access scope.Access, id uuid.UUID) (*models.Student, error) {
	row, err := s.repo.FindStudent(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "student not found")
	}
	if err := access.Require(row.SchoolID); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *service) ListStudents(ctx context.Context, access scope.Access, guardianUserID *uuid.UUID) ([]models.Student, error) {
	rows, err := s.repo.ListStudents(ctx, access, guardianUserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list students")
	}
	return rows, nil
}

func (s *service) CreateTeacherProfile(ctx context.Context, access scope.Access, input CreateTeacherProfileInput) (*models.TeacherProfile, error) {
	if err := access.Require(input.SchoolID); err != nil {
		return nil, err
	}
	if input.FullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user required")
	}
	if !input.LimitType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid limit type %q", input.LimitType))
	}

	row := &models.TeacherProfile{
		SchoolID:    input.SchoolID,
		UserID:      input.UserID,
		FullName:    input.FullName,
		FreeAccount: input.FreeAccount,
		LimitType:   input.LimitType,
		IsActive:    true,
	}
	if err := s.repo.CreateTeacherProfile(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create teacher profile")
	}
	return row, nil
}

func (s *service) UpdateTeacherProfile(ctx context.Context, access scope.Access, id uuid.UUID, input UpdateAccountInput) (*models.TeacherProfile, error) {
	row, err := s.findTeacherProfile(ctx, access, id)
	if err != nil {
		return nil, err
	}
	if input.FullName != nil {
		if *input.FullName == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "full name must not be blank")
		}
		row.FullName = *input.FullName
	}
	if input.FreeAccount != nil {
		row.FreeAccount = *input.FreeAccount
	}
	if err := applyLimitUpdates(input, &row.LimitType, &row.DailyLimit, &row.WeeklyLimit, &row.MonthlyLimit); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateTeacherProfile(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update teacher profile")
	}
	return row, nil
}

func (s *service) DeactivateTeacherProfile(ctx context.Context, access scope.Access, id uuid.UUID) error {
	row, err := s.findTeacherProfile(ctx, access, id)
	if err != nil {
		return err
	}
	if !row.IsActive {
		return nil
	}
	row.IsActive = false
	if err := s.repo.UpdateTeacherProfile(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate teacher profile")
	}
	return nil
}

func (s *service) ListTeacherProfiles(ctx context.Context, access scope.Access) ([]models.TeacherProfile, error) {
	rows, err := s.repo.ListTeacherProfiles(ctx, access)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list teacher profiles")
	}
	return rows, nil
}

// AvailableBalance is the denormalized balance. For free accounts it is
// always zero; money owed shows up through OutstandingDebt instead.
func (s *service) AvailableBalance(ctx context.Context, access scope.Access, ref ledger.AccountRef) (decimal.Decimal, error) {
	snap, err := s.snapshot(ctx, access, ref)
	if err != nil {
		return decimal.Zero, err
	}
	if snap.freeAccount {
		return decimal.Zero, nil
	}
	return snap.balance, nil
}

func (s *service) OutstandingDebt(ctx context.Context, access scope.Access, ref ledger.AccountRef) (decimal.Decimal, error) {
	if _, err := s.snapshot(ctx, access, ref); err != nil {
		return decimal.Zero, err
	}
	return s.ledger.OutstandingDebt(ctx, ref)
}

// ListTransactions pages the account's ledger history, newest first. The
// snapshot lookup doubles as the scope check.
func (s *service) ListTransactions(ctx context.Context, access scope.Access, ref ledger.AccountRef, params pagination.Params) ([]models.Transaction, error) {
	if _, err := s.snapshot(ctx, access, ref); err != nil {
		return nil, err
	}
	return s.ledger.ListForAccount(ctx, ref, params)
}

// RemainingLimit measures the cap left in the window containing now, in the
// school's time zone. Accounts without a limit type report Unlimited.
// Deactivated accounts have nothing left to spend; debt and balance
// projections stay readable for them.
func (s *service) RemainingLimit(ctx context.Context, access scope.Access, ref ledger.AccountRef, now time.Time) (*LimitStatus, error) {
	snap, err := s.snapshot(ctx, access, ref)
	if err != nil {
		return nil, err
	}
	if !snap.active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "account is inactive")
	}
	if snap.limitType == enums.LimitTypeNone {
		return &LimitStatus{LimitType: enums.LimitTypeNone}, nil
	}

	loc, err := s.schools.Timezone(ctx, snap.schoolID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve school timezone")
	}
	window, err := ledger.WindowFor(snap.limitType, now, loc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve limit window")
	}

	spent, err := s.ledger.SpentInWindow(ctx, ref, window)
	if err != nil {
		return nil, err
	}
	remaining := snap.cap.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return &LimitStatus{
		LimitType: snap.limitType,
		Cap:       snap.cap,
		Spent:     spent,
		Remaining: remaining,
		Window:    window,
	}, nil
}

// VerifyBalance refolds the settled ledger and compares it against the
// denormalized balance. Divergence is reported, never auto-fixed.
func (s *service) VerifyBalance(ctx context.Context, access scope.Access, ref ledger.AccountRef) error {
	snap, err := s.snapshot(ctx, access, ref)
	if err != nil {
		return err
	}
	folded, err := s.ledger.PaidTotal(ctx, ref)
	if err != nil {
		return err
	}
	if snap.balance.Equal(folded) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeConsistency, "balance diverges from ledger").
		WithDetails(map[string]any{
			"stored": snap.balance.String(),
			"folded": folded.String(),
			"drift":  snap.balance.Sub(folded).String(),
		})
}

func (s *service) TopDebtors(ctx context.Context, access scope.Access, limit int) ([]Debtor, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.repo.TopDebtors(ctx, access, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list top debtors")
	}
	return rows, nil
}

// TotalDebt sums pending debt across the whole scope, not just the accounts
// a capped debtor listing would surface.
func (s *service) TotalDebt(ctx context.Context, access scope.Access) (decimal.Decimal, error) {
	total, err := s.repo.PendingDebtTotal(ctx, access)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum pending debt")
	}
	return total, nil
}

// accountSnapshot flattens the fields shared by students and teacher
// profiles so projections treat both account kinds uniformly.
type accountSnapshot struct {
	schoolID    uuid.UUID
	freeAccount bool
	balance     decimal.Decimal
	limitType   enums.LimitType
	cap         decimal.Decimal
	active      bool
}

func (s *service) snapshot(ctx context.Context, access scope.Access, ref ledger.AccountRef) (*accountSnapshot, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if ref.IsStudent() {
		row, err := s.repo.FindStudent(ctx, *ref.StudentID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "student not found")
		}
		if err := access.Require(row.SchoolID); err != nil {
			return nil, err
		}
		return &accountSnapshot{
			schoolID:    row.SchoolID,
			freeAccount: row.FreeAccount,
			balance:     row.Balance,
			limitType:   row.LimitType,
			cap:         row.LimitCap(),
			active:      row.IsActive,
		}, nil
	}

	row, err := s.repo.FindTeacherProfile(ctx, *ref.TeacherProfileID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "teacher profile not found")
	}
	if err := access.Require(row.SchoolID); err != nil {
		return nil, err
	}
	return &accountSnapshot{
		schoolID:    row.SchoolID,
		freeAccount: row.FreeAccount,
		balance:     row.Balance,
		limitType:   row.LimitType,
		cap:         row.LimitCap(),
		active:      row.IsActive,
	}, nil
}

func validateCaps(caps ...decimal.Decimal) error {
	for _, value := range caps {
		if value.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "limit cap must not be negative")
		}
	}
	return nil
}

func applyLimitUpdates(input UpdateAccountInput, limitType *enums.LimitType, daily, weekly, monthly *decimal.Decimal) error {
	if input.LimitType != nil {
		if !input.LimitType.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid limit type %q", *input.LimitType))
		}
		*limitType = *input.LimitType
	}
	if input.DailyLimit != nil {
		if err := validateCaps(*input.DailyLimit); err != nil {
			return err
		}
		*daily = *input.DailyLimit
	}
	if input.WeeklyLimit != nil {
		if err := validateCaps(*input.WeeklyLimit); err != nil {
			return err
		}
		*weekly = *input.WeeklyLimit
	}
	if input.MonthlyLimit != nil {
		if err := validateCaps(*input.MonthlyLimit); err != nil {
			return err
		}
		*monthly = *input.MonthlyLimit
	}
	return nil
}
