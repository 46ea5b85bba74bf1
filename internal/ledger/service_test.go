package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/pagination"
)

type fakeLedgerRepo struct {
	created        []*models.Transaction
	studentDeltas  map[uuid.UUID]decimal.Decimal
	teacherDeltas  map[uuid.UUID]decimal.Decimal
	pendingSum     decimal.Decimal
	paidSum        decimal.Decimal
	spentSum       decimal.Decimal
	updateAffected int64
	updateErr      error
	createErr      error
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{
		studentDeltas: map[uuid.UUID]decimal.Decimal{},
		teacherDeltas: map[uuid.UUID]decimal.Decimal{},
	}
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeLedgerRepo) Create(_ context.Context, row *models.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, row)
	return nil
}

func (f *fakeLedgerRepo) FindByID(context.Context, uuid.UUID) (*models.Transaction, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLedgerRepo) ListForAccount(context.Context, AccountRef, pagination.Params) ([]models.Transaction, error) {
	return nil, nil
}

func (f *fakeLedgerRepo) ListPendingForAccount(context.Context, AccountRef) ([]models.Transaction, error) {
	return nil, nil
}

func (f *fakeLedgerRepo) SumPending(context.Context, AccountRef) (decimal.Decimal, error) {
	return f.pendingSum, nil
}

func (f *fakeLedgerRepo) SumPaid(context.Context, AccountRef) (decimal.Decimal, error) {
	return f.paidSum, nil
}

func (f *fakeLedgerRepo) SumSpentInWindow(context.Context, AccountRef, Window) (decimal.Decimal, error) {
	return f.spentSum, nil
}

func (f *fakeLedgerRepo) UpdateStatus(_ context.Context, ids []uuid.UUID, from, to enums.PaymentStatus) (int64, error) {
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	return f.updateAffected, nil
}

func (f *fakeLedgerRepo) AdjustStudentBalance(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	f.studentDeltas[id] = f.studentDeltas[id].Add(delta)
	return nil
}

func (f *fakeLedgerRepo) AdjustTeacherBalance(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	f.teacherDeltas[id] = f.teacherDeltas[id].Add(delta)
	return nil
}

func validAppendInput(ref AccountRef) AppendInput {
	return AppendInput{
		SchoolID:      uuid.New(),
		Account:       ref,
		Type:          enums.TransactionTypeRecharge,
		Amount:        decimal.RequireFromString("25.00"),
		PaymentStatus: enums.PaymentStatusPaid,
		PaymentMethod: enums.PaymentMethodYape,
		Description:   "voucher approved",
		ActorUserID:   uuid.New(),
	}
}

func TestAppendPaidAdjustsStudentBalance(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	studentID := uuid.New()
	row, err := svc.Append(context.Background(), &gorm.DB{}, validAppendInput(StudentAccount(studentID)))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if row.StudentID == nil || *row.StudentID != studentID {
		t.Fatalf("expected student id %s on row, got %v", studentID, row.StudentID)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 created row, got %d", len(repo.created))
	}
	if got := repo.studentDeltas[studentID]; !got.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected balance delta 25.00, got %s", got)
	}
}

func TestAppendPendingLeavesBalanceUntouched(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc, _ := NewService(repo)

	studentID := uuid.New()
	input := validAppendInput(StudentAccount(studentID))
	input.Type = enums.TransactionTypePurchase
	input.Amount = decimal.RequireFromString("-8.50")
	input.PaymentStatus = enums.PaymentStatusPending

	if _, err := svc.Append(context.Background(), &gorm.DB{}, input); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(repo.studentDeltas) != 0 {
		t.Fatalf("pending entry must not move the balance, got %v", repo.studentDeltas)
	}
}

func TestAppendPaidTeacherAccount(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc, _ := NewService(repo)

	teacherID := uuid.New()
	if _, err := svc.Append(context.Background(), &gorm.DB{}, validAppendInput(TeacherAccount(teacherID))); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := repo.teacherDeltas[teacherID]; !got.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected teacher balance delta 25.00, got %s", got)
	}
}

func TestAppendRejectsInvalidInput(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc, _ := NewService(repo)
	studentID := uuid.New()

	cases := []struct {
		name   string
		mutate func(*AppendInput)
	}{
		{"zero amount", func(in *AppendInput) { in.Amount = decimal.Zero }},
		{"negative recharge", func(in *AppendInput) { in.Amount = decimal.RequireFromString("-5.00") }},
		{"positive purchase", func(in *AppendInput) {
			in.Type = enums.TransactionTypePurchase
			in.Amount = decimal.RequireFromString("5.00")
		}},
		{"missing school", func(in *AppendInput) { in.SchoolID = uuid.Nil }},
		{"missing actor", func(in *AppendInput) { in.ActorUserID = uuid.Nil }},
		{"born cancelled", func(in *AppendInput) { in.PaymentStatus = enums.PaymentStatusCancelled }},
		{"unknown method", func(in *AppendInput) { in.PaymentMethod = enums.PaymentMethod("bitcoin") }},
		{"both accounts", func(in *AppendInput) {
			in.Account = AccountRef{StudentID: &studentID, TeacherProfileID: &studentID}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validAppendInput(StudentAccount(studentID))
			tc.mutate(&input)
			if _, err := svc.Append(context.Background(), &gorm.DB{}, input); err == nil {
				t.Fatal("expected validation error")
			}
			if len(repo.created) != 0 {
				t.Fatalf("no row should be created on validation failure")
			}
		})
	}
}

func TestMarkPaidRequiresAllPending(t *testing.T) {
	repo := newFakeLedgerRepo()
	repo.updateAffected = 1
	svc, _ := NewService(repo)

	ids := []uuid.UUID{uuid.New(), uuid.New()}
	err := svc.MarkPaid(context.Background(), &gorm.DB{}, ids)
	if err == nil {
		t.Fatal("expected state conflict when not all entries were pending")
	}
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected %s, got %v", pkgerrors.CodeStateConflict, err)
	}
}

func TestMarkCancelledAllPending(t *testing.T) {
	repo := newFakeLedgerRepo()
	repo.updateAffected = 2
	svc, _ := NewService(repo)

	if err := svc.MarkCancelled(context.Background(), &gorm.DB{}, []uuid.UUID{uuid.New(), uuid.New()}); err != nil {
		t.Fatalf("MarkCancelled: %v", err)
	}
}

func TestOutstandingDebtFloorsAtZero(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc, _ := NewService(repo)
	ref := StudentAccount(uuid.New())

	repo.pendingSum = decimal.RequireFromString("-12.50")
	debt, err := svc.OutstandingDebt(context.Background(), ref)
	if err != nil {
		t.Fatalf("OutstandingDebt: %v", err)
	}
	if !debt.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("expected debt 12.50, got %s", debt)
	}

	repo.pendingSum = decimal.RequireFromString("4.00")
	debt, err = svc.OutstandingDebt(context.Background(), ref)
	if err != nil {
		t.Fatalf("OutstandingDebt: %v", err)
	}
	if !debt.IsZero() {
		t.Fatalf("positive pending sum must floor to zero debt, got %s", debt)
	}
}

func TestSpentInWindowFloorsAtZero(t *testing.T) {
	repo := newFakeLedgerRepo()
	svc, _ := NewService(repo)
	ref := StudentAccount(uuid.New())

	// A refund for last week's purchase lands in this week's window.
	repo.spentSum = decimal.RequireFromString("-8.00")
	spent, err := svc.SpentInWindow(context.Background(), ref, Window{})
	if err != nil {
		t.Fatalf("SpentInWindow: %v", err)
	}
	if !spent.IsZero() {
		t.Fatalf("refund-heavy window must read as zero spend, got %s", spent)
	}
}
