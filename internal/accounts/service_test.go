package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/ledger"
	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/pagination"
)

type fakeAccountsRepo struct {
	students map[uuid.UUID]*models.Student
	teachers map[uuid.UUID]*models.TeacherProfile
	debtors  []Debtor
}

func newFakeAccountsRepo() *fakeAccountsRepo {
	return &fakeAccountsRepo{
		students: map[uuid.UUID]*models.Student{},
		teachers: map[uuid.UUID]*models.TeacherProfile{},
	}
}

func (f *fakeAccountsRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeAccountsRepo) CreateStudent(_ context.Context, row *models.Student) error {
	row.ID = uuid.New()
	f.students[row.ID] = row
	return nil
}

func (f *fakeAccountsRepo) FindStudent(_ context.Context, id uuid.UUID) (*models.Student, error) {
	row, ok := f.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeAccountsRepo) UpdateStudent(_ context.Context, row *models.Student) error {
	f.students[row.ID] = row
	return nil
}

func (f *fakeAccountsRepo) ListStudents(context.Context, scope.Access, *uuid.UUID) ([]models.Student, error) {
	return nil, nil
}

func (f *fakeAccountsRepo) CreateTeacherProfile(_ context.Context, row *models.TeacherProfile) error {
	row.ID = uuid.New()
	f.teachers[row.ID] = row
	return nil
}

func (f *fakeAccountsRepo) FindTeacherProfile(_ context.Context, id uuid.UUID) (*models.TeacherProfile, error) {
	row, ok := f.teachers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeAccountsRepo) FindTeacherProfileByUser(context.Context, uuid.UUID) (*models.TeacherProfile, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAccountsRepo) UpdateTeacherProfile(_ context.Context, row *models.TeacherProfile) error {
	f.teachers[row.ID] = row
	return nil
}

func (f *fakeAccountsRepo) ListTeacherProfiles(context.Context, scope.Access) ([]models.TeacherProfile, error) {
	return nil, nil
}

func (f *fakeAccountsRepo) TopDebtors(context.Context, scope.Access, int) ([]Debtor, error) {
	return f.debtors, nil
}

func (f *fakeAccountsRepo) PendingDebtTotal(context.Context, scope.Access) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, d := range f.debtors {
		total = total.Add(d.Debt)
	}
	return total, nil
}

type fakeLedgerService struct {
	debt  decimal.Decimal
	spent decimal.Decimal
	paid  decimal.Decimal
}

func (f *fakeLedgerService) OutstandingDebt(context.Context, ledger.AccountRef) (decimal.Decimal, error) {
	return f.debt, nil
}

func (f *fakeLedgerService) SpentInWindow(context.Context, ledger.AccountRef, ledger.Window) (decimal.Decimal, error) {
	return f.spent, nil
}

func (f *fakeLedgerService) PaidTotal(context.Context, ledger.AccountRef) (decimal.Decimal, error) {
	return f.paid, nil
}

func (f *fakeLedgerService) ListForAccount(context.Context, ledger.AccountRef, pagination.Params) ([]models.Transaction, error) {
	return nil, nil
}

type fakeSchoolDirectory struct{}

func (fakeSchoolDirectory) Timezone(context.Context, uuid.UUID) (*time.Location, error) {
	return time.LoadLocation("America/Lima")
}

func newTestAccountsService(t *testing.T, repo *fakeAccountsRepo, ledgerSvc *fakeLedgerService) Service {
	t.Helper()
	svc, err := NewService(repo, ledgerSvc, fakeSchoolDirectory{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seedStudent(repo *fakeAccountsRepo, schoolID uuid.UUID, mutate func(*models.Student)) *models.Student {
	row := &models.Student{
		ID:             uuid.New(),
		SchoolID:       schoolID,
		GuardianUserID: uuid.New(),
		FullName:       "Ana Quispe",
		Balance:        decimal.RequireFromString("40.00"),
		LimitType:      enums.LimitTypeNone,
		IsActive:       true,
	}
	if mutate != nil {
		mutate(row)
	}
	repo.students[row.ID] = row
	return row
}

func staffAccess(schoolID uuid.UUID) scope.Access {
	return scope.Access{UserID: uuid.New(), Role: enums.UserRoleStaff, SchoolID: &schoolID}
}

func TestAvailableBalancePrepaid(t *testing.T) {
	repo := newFakeAccountsRepo()
	svc := newTestAccountsService(t, repo, &fakeLedgerService{})

	schoolID := uuid.New()
	student := seedStudent(repo, schoolID, nil)

	balance, err := svc.AvailableBalance(context.Background(), staffAccess(schoolID), ledger.StudentAccount(student.ID))
	if err != nil {
		t.Fatalf("AvailableBalance: %v", err)
	}
	if !balance.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("expected 40.00, got %s", balance)
	}
}

func TestAvailableBalanceFreeAccountIsZero(t *testing.T) {
	repo := newFakeAccountsRepo()
	svc := newTestAccountsService(t, repo, &fakeLedgerService{})

	schoolID := uuid.New()
	student := seedStudent(repo, schoolID, func(s *models.Student) {
		s.FreeAccount = true
		s.Balance = decimal.RequireFromString("15.00")
	})

	balance, err := svc.AvailableBalance(context.Background(), staffAccess(schoolID), ledger.StudentAccount(student.ID))
	if err != nil {
		t.Fatalf("AvailableBalance: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("free account balance must read zero, got %s", balance)
	}
}

func TestAvailableBalanceForeignSchoolForbidden(t *testing.T) {
	repo := newFakeAccountsRepo()
	svc := newTestAccountsService(t, repo, &fakeLedgerService{})

	student := seedStudent(repo, uuid.New(), nil)
	_, err := svc.AvailableBalance(context.Background(), staffAccess(uuid.New()), ledger.StudentAccount(student.ID))
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRemainingLimitDaily(t *testing.T) {
	repo := newFakeAccountsRepo()
	ledgerSvc := &fakeLedgerService{spent: decimal.RequireFromString("7.50")}
	svc := newTestAccountsService(t, repo, ledgerSvc)

	schoolID := uuid.New()
	student := seedStudent(repo, schoolID, func(s *models.Student) {
		s.LimitType = enums.LimitTypeDaily
		s.DailyLimit = decimal.RequireFromString("10.00")
	})

	status, err := svc.RemainingLimit(context.Background(), staffAccess(schoolID), ledger.StudentAccount(student.ID), time.Now())
	if err != nil {
		t.Fatalf("RemainingLimit: %v", err)
	}
	if status.Unlimited() {
		t.Fatal("daily limit must not report unlimited")
	}
	if !status.Remaining.Equal(decimal.RequireFromString("2.50")) {
		t.Fatalf("expected remaining 2.50, got %s", status.Remaining)
	}
}

func TestRemainingLimitFloorsAtZero(t *testing.T) {
	repo := newFakeAccountsRepo()
	ledgerSvc := &fakeLedgerService{spent: decimal.RequireFromString("12.00")}
	svc := newTestAccountsService(t, repo, ledgerSvc)

	schoolID := uuid.New()
	student := seedStudent(repo, schoolID, func(s *models.Student) {
		s.LimitType = enums.LimitTypeDaily
		s.DailyLimit = decimal.RequireFromString("10.00")
	})

	status, err := svc.RemainingLimit(context.Background(), staffAccess(schoolID), ledger.StudentAccount(student.ID), time.Now())
	if err != nil {
		t.Fatalf("RemainingLimit: %v", err)
	}
	if !status.Remaining.IsZero() {
		t.Fatalf("overspent cap must floor at zero, got %s", status.Remaining)
	}
}

func TestRemainingLimitInactiveAccountRejected(t *testing.T) {
	repo := newFakeAccountsRepo()
	svc := newTestAccountsService(t, repo, &fakeLedgerService{})

	schoolID := uuid.New()
	student := seedStudent(repo, schoolID, func(s *models.Student) {
		s.IsActive = false
		s.LimitType = enums.LimitTypeDaily
		s.DailyLimit = decimal.RequireFromString("10.00")
	})

	_, err := svc.RemainingLimit(context.Background(), staffAccess(schoolID), ledger.StudentAccount(student.ID), time.Now())
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for inactive account, got %v", err)
	}

	// Debt stays readable after deactivation.
	if _, err := svc.OutstandingDebt(context.Background(), staffAccess(schoolID), ledger.StudentAccount(student.ID)); err != nil {
		t.Fatalf("OutstandingDebt: %v", err)
	}
}

func TestRemainingLimitNone(t *testing.T) {
	repo := newFakeAccountsRepo()
	svc := newTestAccountsService(t, repo, &fakeLedgerService{})

	schoolID := uuid.New()
	student := seedStudent(repo, schoolID, nil)

	status, err := svc.RemainingLimit(context.Background(), staffAccess(schoolID), ledger.StudentAccount(student.ID), time.Now())
	if err != nil {
		t.Fatalf("RemainingLimit: %v", err)
	}
	if !status.Unlimited() {
		t.Fatal("limit type none must report unlimited")
	}
}

func TestVerifyBalanceDetectsDrift(t *testing.T) {
	repo := newFakeAccountsRepo()
	ledgerSvc := &fakeLedgerService{paid: decimal.RequireFromString("35.00")}
	svc := newTestAccountsService(t, repo, ledgerSvc)

	schoolID := uuid.New()
	student := seedStudent(repo, schoolID, nil) // stored balance 40.00

	err := svc.VerifyBalance(context.Background(), staffAccess(schoolID), ledger.StudentAccount(student.ID))
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeConsistency {
		t.Fatalf("expected consistency error, got %v", err)
	}

	ledgerSvc.paid = decimal.RequireFromString("40.00")
	if err := svc.VerifyBalance(context.Background(), staffAccess(schoolID), ledger.StudentAccount(student.ID)); err != nil {
		t.Fatalf("matching balance must verify clean: %v", err)
	}
}

func TestCreateStudentValidation(t *testing.T) {
	repo := newFakeAccountsRepo()
	svc := newTestAccountsService(t, repo, &fakeLedgerService{})
	schoolID := uuid.New()

	base := CreateStudentInput{
		SchoolID:       schoolID,
		GuardianUserID: uuid.New(),
		FullName:       "Luis Huaman",
		LimitType:      enums.LimitTypeNone,
	}

	if _, err := svc.CreateStudent(context.Background(), staffAccess(schoolID), base); err != nil {
		t.Fatalf("CreateStudent: %v", err)
	}

	missingName := base
	missingName.FullName = ""
	if _, err := svc.CreateStudent(context.Background(), staffAccess(schoolID), missingName); err == nil {
		t.Fatal("expected validation error for blank name")
	}

	negativeCap := base
	negativeCap.DailyLimit = decimal.RequireFromString("-1.00")
	if _, err := svc.CreateStudent(context.Background(), staffAccess(schoolID), negativeCap); err == nil {
		t.Fatal("expected validation error for negative cap")
	}

	if _, err := svc.CreateStudent(context.Background(), staffAccess(uuid.New()), base); err == nil {
		t.Fatal("expected forbidden for foreign school")
	}
}

func TestDeactivateStudentIdempotent(t *testing.T) {
	repo := newFakeAccountsRepo()
	svc := newTestAccountsService(t, repo, &fakeLedgerService{})

	schoolID := uuid.New()
	student := seedStudent(repo, schoolID, nil)

	if err := svc.DeactivateStudent(context.Background(), staffAccess(schoolID), student.ID); err != nil {
		t.Fatalf("DeactivateStudent: %v", err)
	}
	if repo.students[student.ID].IsActive {
		t.Fatal("student must be inactive")
	}
	if err := svc.DeactivateStudent(context.Background(), staffAccess(schoolID), student.ID); err != nil {
		t.Fatalf("second deactivate must be a no-op: %v", err)
	}
}

func seedTeacherProfile(repo *fakeAccountsRepo, schoolID uuid.UUID) *models.TeacherProfile {
	row := &models.TeacherProfile{
		ID:        uuid.New(),
		SchoolID:  schoolID,
		UserID:    uuid.New(),
		FullName:  "Marta Flores",
		LimitType: enums.LimitTypeNone,
		IsActive:  true,
	}
	repo.teachers[row.ID] = row
	return row
}

func TestUpdateTeacherProfileScopedToSchool(t *testing.T) {
	repo := newFakeAccountsRepo()
	svc := newTestAccountsService(t, repo, &fakeLedgerService{})

	schoolID := uuid.New()
	teacher := seedTeacherProfile(repo, schoolID)

	name := "Marta Flores Vega"
	row, err := svc.UpdateTeacherProfile(context.Background(), staffAccess(schoolID), teacher.ID, UpdateAccountInput{FullName: &name})
	if err != nil {
		t.Fatalf("UpdateTeacherProfile: %v", err)
	}
	if row.FullName != name {
		t.Fatalf("expected updated name, got %q", row.FullName)
	}
	if repo.teachers[teacher.ID].FullName != name {
		t.Fatal("update must persist")
	}

	_, err = svc.UpdateTeacherProfile(context.Background(), staffAccess(uuid.New()), teacher.ID, UpdateAccountInput{FullName: &name})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for foreign school, got %v", err)
	}

	_, err = svc.UpdateTeacherProfile(context.Background(), staffAccess(schoolID), uuid.New(), UpdateAccountInput{FullName: &name})
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown profile, got %v", err)
	}
}

func TestDeactivateTeacherProfileIdempotent(t *testing.T) {
	repo := newFakeAccountsRepo()
	svc := newTestAccountsService(t, repo, &fakeLedgerService{})

	schoolID := uuid.New()
	teacher := seedTeacherProfile(repo, schoolID)

	if err := svc.DeactivateTeacherProfile(context.Background(), staffAccess(schoolID), teacher.ID); err != nil {
		t.Fatalf("DeactivateTeacherProfile: %v", err)
	}
	if repo.teachers[teacher.ID].IsActive {
		t.Fatal("profile must be inactive")
	}
	if err := svc.DeactivateTeacherProfile(context.Background(), staffAccess(schoolID), teacher.ID); err != nil {
		t.Fatalf("second deactivate must be a no-op: %v", err)
	}
}
