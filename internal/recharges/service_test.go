package recharges

import (
	"context"
	"errors"
	"io"
	"testing"
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
)

type fakeRechargesRepo struct {
	rows    map[uuid.UUID]*models.RechargeRequest
	expired []models.RechargeRequest
}

func newFakeRechargesRepo() *fakeRechargesRepo {
	return &fakeRechargesRepo{rows: map[uuid.UUID]*models.RechargeRequest{}}
}

func (f *fakeRechargesRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRechargesRepo) Create(_ context.Context, row *models.RechargeRequest) error {
	row.ID = uuid.New()
	f.rows[row.ID] = row
	return nil
}

func (f *fakeRechargesRepo) FindByID(_ context.Context, id uuid.UUID) (*models.RechargeRequest, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (f *fakeRechargesRepo) List(context.Context, scope.Access, ListFilter) ([]models.RechargeRequest, error) {
	return nil, nil
}

func (f *fakeRechargesRepo) ListExpiredPending(context.Context, time.Time, int) ([]models.RechargeRequest, error) {
	return f.expired, nil
}

func (f *fakeRechargesRepo) MarkApproved(_ context.Context, id, reviewedBy uuid.UUID, at time.Time) (int64, error) {
	row, ok := f.rows[id]
	if !ok || row.Status != enums.RechargeRequestStatusPending {
		return 0, nil
	}
	row.Status = enums.RechargeRequestStatusApproved
	row.ReviewedBy = &reviewedBy
	row.ReviewedAt = &at
	return 1, nil
}

func (f *fakeRechargesRepo) MarkRejected(_ context.Context, id uuid.UUID, reviewedBy *uuid.UUID, at time.Time, reason string) (int64, error) {
	row, ok := f.rows[id]
	if !ok || row.Status != enums.RechargeRequestStatusPending {
		return 0, nil
	}
	row.Status = enums.RechargeRequestStatusRejected
	row.ReviewedBy = reviewedBy
	row.ReviewedAt = &at
	row.RejectionReason = &reason
	return 1, nil
}

func (f *fakeRechargesRepo) LinkTransaction(_ context.Context, id, transactionID uuid.UUID) error {
	if row, ok := f.rows[id]; ok {
		row.TransactionID = &transactionID
	}
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeAppender struct {
	appended []ledger.AppendInput
	err      error
}

func (f *fakeAppender) Append(_ context.Context, _ *gorm.DB, input ledger.AppendInput) (*models.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.appended = append(f.appended, input)
	return &models.Transaction{ID: uuid.New(), Amount: input.Amount}, nil
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeAccounts struct {
	students map[uuid.UUID]*models.Student
	teachers map[uuid.UUID]*models.TeacherProfile
}

func (f *fakeAccounts) FindStudent(_ context.Context, id uuid.UUID) (*models.Student, error) {
	row, ok := f.students[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (f *fakeAccounts) FindTeacherProfile(_ context.Context, id uuid.UUID) (*models.TeacherProfile, error) {
	row, ok := f.teachers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

type testHarness struct {
	svc      Service
	repo     *fakeRechargesRepo
	appender *fakeAppender
	outbox   *fakeOutbox
	accounts *fakeAccounts
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	repo := newFakeRechargesRepo()
	appender := &fakeAppender{}
	outboxSvc := &fakeOutbox{}
	accounts := &fakeAccounts{
		students: map[uuid.UUID]*models.Student{},
		teachers: map[uuid.UUID]*models.TeacherProfile{},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(repo, passthroughTx{}, appender, outboxSvc, accounts, config.RechargeConfig{VoucherTTL: 48 * time.Hour}, logg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &testHarness{svc: svc, repo: repo, appender: appender, outbox: outboxSvc, accounts: accounts}
}

func (h *testHarness) seedStudent(schoolID uuid.UUID, guardianID uuid.UUID) *models.Student {
	student := &models.Student{
		ID:             uuid.New(),
		SchoolID:       schoolID,
		GuardianUserID: guardianID,
		FullName:       "Ana Quispe",
		IsActive:       true,
	}
	h.accounts.students[student.ID] = student
	return student
}

func parentAccess(schoolID, userID uuid.UUID) scope.Access {
	return scope.Access{UserID: userID, Role: enums.UserRoleParent, SchoolID: &schoolID}
}

func staffAccess(schoolID uuid.UUID) scope.Access {
	return scope.Access{UserID: uuid.New(), Role: enums.UserRoleStaff, SchoolID: &schoolID}
}

func TestSubmitSetsExpiry(t *testing.T) {
	h := newTestHarness(t)
	schoolID := uuid.New()
	guardianID := uuid.New()
	student := h.seedStudent(schoolID, guardianID)

	before := time.Now()
	row, err := h.svc.Submit(context.Background(), parentAccess(schoolID, guardianID), SubmitInput{
		StudentID:     &student.ID,
		Amount:        decimal.RequireFromString("50.00"),
		PaymentMethod: enums.PaymentMethodYape,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if row.Status != enums.RechargeRequestStatusPending {
		t.Fatalf("expected pending, got %s", row.Status)
	}
	min := before.Add(47 * time.Hour)
	max := time.Now().Add(49 * time.Hour)
	if row.ExpiresAt.Before(min) || row.ExpiresAt.After(max) {
		t.Fatalf("expiry %s outside the 48h window", row.ExpiresAt)
	}
}

func TestSubmitRejectsForeignStudent(t *testing.T) {
	h := newTestHarness(t)
	schoolID := uuid.New()
	student := h.seedStudent(schoolID, uuid.New())

	_, err := h.svc.Submit(context.Background(), parentAccess(schoolID, uuid.New()), SubmitInput{
		StudentID:     &student.ID,
		Amount:        decimal.RequireFromString("50.00"),
		PaymentMethod: enums.PaymentMethodPlin,
	})
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	h := newTestHarness(t)
	schoolID := uuid.New()
	guardianID := uuid.New()
	student := h.seedStudent(schoolID, guardianID)
	access := parentAccess(schoolID, guardianID)

	if _, err := h.svc.Submit(context.Background(), access, SubmitInput{
		StudentID:     &student.ID,
		Amount:        decimal.Zero,
		PaymentMethod: enums.PaymentMethodYape,
	}); err == nil {
		t.Fatal("zero amount must fail")
	}

	if _, err := h.svc.Submit(context.Background(), access, SubmitInput{
		StudentID:     &student.ID,
		Amount:        decimal.RequireFromString("10.00"),
		PaymentMethod: enums.PaymentMethodBalance,
	}); err == nil {
		t.Fatal("balance is not a voucher method")
	}
}

func TestApproveCreditsOnce(t *testing.T) {
	h := newTestHarness(t)
	schoolID := uuid.New()
	guardianID := uuid.New()
	student := h.seedStudent(schoolID, guardianID)

	row, err := h.svc.Submit(context.Background(), parentAccess(schoolID, guardianID), SubmitInput{
		StudentID:     &student.ID,
		Amount:        decimal.RequireFromString("50.00"),
		PaymentMethod: enums.PaymentMethodYape,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	staff := staffAccess(schoolID)
	approved, err := h.svc.Approve(context.Background(), staff, row.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != enums.RechargeRequestStatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.TransactionID == nil {
		t.Fatal("approved request must link its transaction")
	}
	if len(h.appender.appended) != 1 {
		t.Fatalf("expected one ledger append, got %d", len(h.appender.appended))
	}
	entry := h.appender.appended[0]
	if entry.Type != enums.TransactionTypeRecharge || entry.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("unexpected ledger entry %+v", entry)
	}
	if len(h.outbox.events) != 1 || h.outbox.events[0].EventType != enums.OutboxEventTypeRechargeApproved {
		t.Fatalf("expected recharge.approved event, got %+v", h.outbox.events)
	}

	// A second approval must conflict, not double credit.
	_, err = h.svc.Approve(context.Background(), staff, row.ID)
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(h.appender.appended) != 1 {
		t.Fatalf("double approval must not append again, got %d", len(h.appender.appended))
	}
}

func TestRejectDefaultsReason(t *testing.T) {
	h := newTestHarness(t)
	schoolID := uuid.New()
	guardianID := uuid.New()
	student := h.seedStudent(schoolID, guardianID)

	row, err := h.svc.Submit(context.Background(), parentAccess(schoolID, guardianID), SubmitInput{
		StudentID:     &student.ID,
		Amount:        decimal.RequireFromString("50.00"),
		PaymentMethod: enums.PaymentMethodYape,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	rejected, err := h.svc.Reject(context.Background(), staffAccess(schoolID), row.ID, "")
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if rejected.RejectionReason == nil || *rejected.RejectionReason == "" {
		t.Fatal("blank reason must be defaulted")
	}
	if len(h.appender.appended) != 0 {
		t.Fatal("rejection must not touch the ledger")
	}
	if len(h.outbox.events) != 1 || h.outbox.events[0].EventType != enums.OutboxEventTypeRechargeRejected {
		t.Fatalf("expected recharge.rejected event, got %+v", h.outbox.events)
	}
}

func TestExpirePending(t *testing.T) {
	h := newTestHarness(t)
	schoolID := uuid.New()
	guardianID := uuid.New()
	student := h.seedStudent(schoolID, guardianID)

	row, err := h.svc.Submit(context.Background(), parentAccess(schoolID, guardianID), SubmitInput{
		StudentID:     &student.ID,
		Amount:        decimal.RequireFromString("20.00"),
		PaymentMethod: enums.PaymentMethodTransferencia,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	h.repo.expired = []models.RechargeRequest{*h.repo.rows[row.ID]}

	expired, err := h.svc.ExpirePending(context.Background(), time.Now(), 10)
	if err != nil {
		t.Fatalf("ExpirePending: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired, got %d", expired)
	}
	stored := h.repo.rows[row.ID]
	if stored.Status != enums.RechargeRequestStatusRejected {
		t.Fatalf("expected rejected, got %s", stored.Status)
	}
	if stored.ReviewedBy != nil {
		t.Fatal("system expiry has no reviewer")
	}
}
