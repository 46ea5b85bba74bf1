package lunchorders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/internal/accounts"
	"github.com/lonchera-pe/cantina-backend/internal/ledger"
	"github.com/lonchera-pe/cantina-backend/internal/schools"
	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/outbox"
	"github.com/lonchera-pe/cantina-backend/pkg/types"
)

type fakeOrderRepo struct {
	orders map[uuid.UUID]*models.LunchOrder
	dupeOn bool
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]*models.LunchOrder)}
}

func (f *fakeOrderRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.LunchOrder) error {
	if f.dupeOn {
		return errors.New(`duplicate key value violates unique constraint "ux_lunch_orders_student_date"`)
	}
	order.ID = uuid.New()
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.LunchOrder, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s not found", id)
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrderRepo) ListForDate(ctx context.Context, access scope.Access, date time.Time, status *enums.LunchOrderStatus) ([]models.LunchOrder, error) {
	var out []models.LunchOrder
	for _, o := range f.orders {
		if o.OrderDate.Equal(date) && (status == nil || o.Status == *status) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) ListForAccount(ctx context.Context, ref ledger.AccountRef, from, to time.Time) ([]models.LunchOrder, error) {
	var out []models.LunchOrder
	for _, o := range f.orders {
		if ref.IsStudent() && o.StudentID != nil && *o.StudentID == *ref.StudentID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) LinkTransaction(ctx context.Context, id, transactionID uuid.UUID) error {
	order, ok := f.orders[id]
	if !ok {
		return fmt.Errorf("order %s not found", id)
	}
	order.TransactionID = &transactionID
	return nil
}

func (f *fakeOrderRepo) Transition(ctx context.Context, id uuid.UUID, from []enums.LunchOrderStatus, to enums.LunchOrderStatus, sets map[string]interface{}) (int64, error) {
	order, ok := f.orders[id]
	if !ok {
		return 0, nil
	}
	allowed := false
	for _, st := range from {
		if order.Status == st {
			allowed = true
		}
	}
	if !allowed {
		return 0, nil
	}
	order.Status = to
	if v, ok := sets["justification"]; ok {
		j := v.(string)
		order.Justification = &j
	}
	return 1, nil
}

type fakeOrderLedger struct {
	entries []ledger.AppendInput
	created map[uuid.UUID]*models.Transaction
}

func newFakeOrderLedger() *fakeOrderLedger {
	return &fakeOrderLedger{created: make(map[uuid.UUID]*models.Transaction)}
}

func (f *fakeOrderLedger) Append(ctx context.Context, tx *gorm.DB, input ledger.AppendInput) (*models.Transaction, error) {
	f.entries = append(f.entries, input)
	row := &models.Transaction{
		ID:            uuid.New(),
		SchoolID:      input.SchoolID,
		StudentID:     input.Account.StudentID,
		Type:          input.Type,
		Amount:        input.Amount,
		PaymentStatus: input.PaymentStatus,
		PaymentMethod: input.PaymentMethod,
	}
	f.created[row.ID] = row
	return row, nil
}

func (f *fakeOrderLedger) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row, ok := f.created[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return row, nil
}

type fakeLimits struct {
	status accounts.LimitStatus
}

func (f *fakeLimits) RemainingLimit(ctx context.Context, access scope.Access, ref ledger.AccountRef, now time.Time) (*accounts.LimitStatus, error) {
	s := f.status
	return &s, nil
}

type fakeOrderAccounts struct {
	students map[uuid.UUID]*models.Student
	profiles map[uuid.UUID]*models.TeacherProfile
}

func (f *fakeOrderAccounts) FindStudent(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, fmt.Errorf("student %s not found", id)
	}
	return s, nil
}

func (f *fakeOrderAccounts) FindTeacherProfile(ctx context.Context, id uuid.UUID) (*models.TeacherProfile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s not found", id)
	}
	return p, nil
}

type fakeCategories struct {
	categories map[uuid.UUID]*models.LunchCategory
}

func (f *fakeCategories) FindCategory(ctx context.Context, id uuid.UUID) (*models.LunchCategory, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %s not found", id)
	}
	return c, nil
}

type fakeDeadlines struct {
	set schools.DeadlineSet
}

func (f *fakeDeadlines) Deadlines(ctx context.Context, schoolID uuid.UUID) (*schools.DeadlineSet, error) {
	s := f.set
	return &s, nil
}

type fakeOrderOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOrderOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type orderTxRunner struct{}

func (orderTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type orderHarness struct {
	svc        Service
	repo       *fakeOrderRepo
	ledger     *fakeOrderLedger
	limits     *fakeLimits
	accounts   *fakeOrderAccounts
	categories *fakeCategories
	deadlines  *fakeDeadlines
	outbox     *fakeOrderOutbox

	school   uuid.UUID
	guardian uuid.UUID
	student  uuid.UUID
	category uuid.UUID
}

func newOrderHarness(t *testing.T) *orderHarness {
	t.Helper()

	loc, err := time.LoadLocation("America/Lima")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}

	h := &orderHarness{
		repo:       newFakeOrderRepo(),
		ledger:     newFakeOrderLedger(),
		limits:     &fakeLimits{status: accounts.LimitStatus{LimitType: enums.LimitTypeNone}},
		accounts:   &fakeOrderAccounts{students: make(map[uuid.UUID]*models.Student), profiles: make(map[uuid.UUID]*models.TeacherProfile)},
		categories: &fakeCategories{categories: make(map[uuid.UUID]*models.LunchCategory)},
		deadlines: &fakeDeadlines{set: schools.DeadlineSet{
			OrderDeadline:      "23:59",
			CancelDeadline:     "23:59",
			ModificationCutoff: "23:59",
			Location:           loc,
		}},
		outbox:   &fakeOrderOutbox{},
		school:   uuid.New(),
		guardian: uuid.New(),
		student:  uuid.New(),
		category: uuid.New(),
	}

	price := decimal.RequireFromString("12.50")
	h.accounts.students[h.student] = &models.Student{
		ID:             h.student,
		SchoolID:       h.school,
		GuardianUserID: h.guardian,
		FullName:       "Valentina Rojas",
		Balance:        decimal.RequireFromString("50.00"),
		LimitType:      enums.LimitTypeNone,
		IsActive:       true,
	}
	h.categories.categories[h.category] = &models.LunchCategory{
		ID:       h.category,
		SchoolID: h.school,
		Name:     "Menu Escolar",
		Audience: enums.MenuAudienceStudents,
		Price:    &price,
		IsActive: true,
	}

	svc, err := NewService(ServiceParams{
		Repo:     h.repo,
		Tx:       orderTxRunner{},
		Ledger:   h.ledger,
		Limits:   h.limits,
		Accounts: h.accounts,
		Menus:    h.categories,
		Schools:  h.deadlines,
		Outbox:   h.outbox,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h.svc = svc
	return h
}

func (h *orderHarness) parentAccess() scope.Access {
	return scope.Access{UserID: h.guardian, Role: enums.UserRoleParent, SchoolID: &h.school}
}

func (h *orderHarness) staffAccess() scope.Access {
	staff := uuid.New()
	return scope.Access{UserID: staff, Role: enums.UserRoleStaff, SchoolID: &h.school}
}

func (h *orderHarness) placeInput() PlaceInput {
	return PlaceInput{
		StudentID:  &h.student,
		OrderDate:  time.Now().Add(48 * time.Hour),
		CategoryID: h.category,
	}
}

func errCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected app error, got %v", err)
	}
	return appErr.Code()
}

func TestPlacePrepaidWithFundsSettlesImmediately(t *testing.T) {
	h := newOrderHarness(t)

	order, err := h.svc.Place(context.Background(), h.parentAccess(), h.placeInput())
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if order.Status != enums.LunchOrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", order.Status)
	}
	if len(h.ledger.entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(h.ledger.entries))
	}
	entry := h.ledger.entries[0]
	if entry.Type != enums.TransactionTypePurchase {
		t.Fatalf("expected purchase, got %s", entry.Type)
	}
	if !entry.Amount.Equal(decimal.RequireFromString("-12.50")) {
		t.Fatalf("expected -12.50, got %s", entry.Amount)
	}
	if entry.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", entry.PaymentStatus)
	}
	if entry.PaymentMethod != enums.PaymentMethodBalance {
		t.Fatalf("expected balance method, got %s", entry.PaymentMethod)
	}
	if order.TransactionID == nil {
		t.Fatal("expected linked transaction")
	}
}

func TestPlaceAddonsRaiseTheTotal(t *testing.T) {
	h := newOrderHarness(t)

	input := h.placeInput()
	input.Addons = types.OrderAddons{{Name: "jugo", Price: decimal.RequireFromString("2.00")}}

	if _, err := h.svc.Place(context.Background(), h.parentAccess(), input); err != nil {
		t.Fatalf("place: %v", err)
	}
	if !h.ledger.entries[0].Amount.Equal(decimal.RequireFromString("-14.50")) {
		t.Fatalf("expected -14.50, got %s", h.ledger.entries[0].Amount)
	}
}

func TestPlaceInsufficientBalanceIsPendingPayment(t *testing.T) {
	h := newOrderHarness(t)
	h.accounts.students[h.student].Balance = decimal.RequireFromString("5.00")

	order, err := h.svc.Place(context.Background(), h.parentAccess(), h.placeInput())
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if order.Status != enums.LunchOrderStatusPendingPayment {
		t.Fatalf("expected pending_payment, got %s", order.Status)
	}
	if h.ledger.entries[0].PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("expected pending entry, got %s", h.ledger.entries[0].PaymentStatus)
	}
}

func TestPlaceFreeAccountConfirmsWithDebt(t *testing.T) {
	h := newOrderHarness(t)
	h.accounts.students[h.student].FreeAccount = true
	h.accounts.students[h.student].Balance = decimal.Zero

	order, err := h.svc.Place(context.Background(), h.parentAccess(), h.placeInput())
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if order.Status != enums.LunchOrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", order.Status)
	}
	if h.ledger.entries[0].PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("expected pending entry, got %s", h.ledger.entries[0].PaymentStatus)
	}
}

func TestPlaceUnpricedCategorySkipsLedger(t *testing.T) {
	h := newOrderHarness(t)
	h.categories.categories[h.category].Price = nil

	order, err := h.svc.Place(context.Background(), h.parentAccess(), h.placeInput())
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if order.Status != enums.LunchOrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", order.Status)
	}
	if len(h.ledger.entries) != 0 {
		t.Fatalf("expected no ledger entries, got %d", len(h.ledger.entries))
	}
	if order.TransactionID != nil {
		t.Fatal("expected no linked transaction")
	}
}

func TestPlaceAfterDeadlineRejected(t *testing.T) {
	h := newOrderHarness(t)

	input := h.placeInput()
	input.OrderDate = time.Now().Add(-48 * time.Hour)

	_, err := h.svc.Place(context.Background(), h.parentAccess(), input)
	if code := errCode(t, err); code != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", code)
	}
}

func TestPlaceKeepsCivilOrderDate(t *testing.T) {
	h := newOrderHarness(t)

	// Controllers parse "YYYY-MM-DD" in UTC while the school runs behind
	// UTC; the stored order must land on the requested day anyway.
	day := time.Now().AddDate(0, 0, 2)
	requested := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	input := h.placeInput()
	input.OrderDate = requested

	order, err := h.svc.Place(context.Background(), h.parentAccess(), input)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if y, m, d := order.OrderDate.Date(); y != day.Year() || m != day.Month() || d != day.Day() {
		t.Fatalf("order date shifted to %s, want %s",
			order.OrderDate.Format("2006-01-02"), requested.Format("2006-01-02"))
	}
}

func TestPlaceOverLimitRejected(t *testing.T) {
	h := newOrderHarness(t)
	h.accounts.students[h.student].LimitType = enums.LimitTypeDaily
	h.limits.status = accounts.LimitStatus{
		LimitType: enums.LimitTypeDaily,
		Cap:       decimal.RequireFromString("10.00"),
		Spent:     decimal.RequireFromString("8.00"),
		Remaining: decimal.RequireFromString("2.00"),
	}

	_, err := h.svc.Place(context.Background(), h.parentAccess(), h.placeInput())
	if code := errCode(t, err); code != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %s", code)
	}
	if len(h.ledger.entries) != 0 {
		t.Fatal("no ledger entry expected on limit rejection")
	}
}

func TestPlaceSecondOrderSameDateConflicts(t *testing.T) {
	h := newOrderHarness(t)
	h.repo.dupeOn = true

	_, err := h.svc.Place(context.Background(), h.parentAccess(), h.placeInput())
	if code := errCode(t, err); code != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %s", code)
	}
}

func TestPlaceForeignGuardianForbidden(t *testing.T) {
	h := newOrderHarness(t)

	stranger := scope.Access{UserID: uuid.New(), Role: enums.UserRoleParent, SchoolID: &h.school}
	_, err := h.svc.Place(context.Background(), stranger, h.placeInput())
	if code := errCode(t, err); code != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %s", code)
	}
}

func TestPlaceAudienceMismatchRejected(t *testing.T) {
	h := newOrderHarness(t)
	h.categories.categories[h.category].Audience = enums.MenuAudienceTeachers

	_, err := h.svc.Place(context.Background(), h.parentAccess(), h.placeInput())
	if code := errCode(t, err); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation, got %s", code)
	}
}

func TestCancelPaidOrderRefundsAndRestores(t *testing.T) {
	h := newOrderHarness(t)

	order, err := h.svc.Place(context.Background(), h.parentAccess(), h.placeInput())
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	cancelled, err := h.svc.Cancel(context.Background(), h.parentAccess(), order.ID, "viaje familiar")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.LunchOrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if len(h.ledger.entries) != 2 {
		t.Fatalf("expected purchase + refund, got %d entries", len(h.ledger.entries))
	}
	refund := h.ledger.entries[1]
	if refund.Type != enums.TransactionTypeRefund {
		t.Fatalf("expected refund, got %s", refund.Type)
	}
	if !refund.Amount.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("expected 12.50, got %s", refund.Amount)
	}
	if refund.PaymentStatus != enums.PaymentStatusPaid {
		t.Fatalf("expected paid refund, got %s", refund.PaymentStatus)
	}
	if refund.RefundOfTransactionID == nil || *refund.RefundOfTransactionID != *order.TransactionID {
		t.Fatal("refund must reference the purchase")
	}
	if refund.LunchOrderID == nil || *refund.LunchOrderID != order.ID {
		t.Fatal("refund must reference the order")
	}
	if len(h.outbox.events) != 1 || h.outbox.events[0].EventType != enums.OutboxEventTypeOrderCancelled {
		t.Fatal("expected order.cancelled event")
	}
}

func TestCancelPendingOrderRefundsPending(t *testing.T) {
	h := newOrderHarness(t)
	h.accounts.students[h.student].FreeAccount = true

	order, err := h.svc.Place(context.Background(), h.parentAccess(), h.placeInput())
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, err := h.svc.Cancel(context.Background(), h.parentAccess(), order.ID, "enfermedad"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if h.ledger.entries[1].PaymentStatus != enums.PaymentStatusPending {
		t.Fatalf("pending purchase must refund pending, got %s", h.ledger.entries[1].PaymentStatus)
	}
}

func TestCancelRequiresJustification(t *testing.T) {
	h := newOrderHarness(t)

	_, err := h.svc.Cancel(context.Background(), h.parentAccess(), uuid.New(), "")
	if code := errCode(t, err); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation, got %s", code)
	}
}

func TestCancelPastDeadlineRejected(t *testing.T) {
	h := newOrderHarness(t)

	order, err := h.svc.Place(context.Background(), h.parentAccess(), h.placeInput())
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	h.deadlines.set.CancelDeadline = "00:00"
	h.repo.orders[order.ID].OrderDate = time.Now().Add(-24 * time.Hour)

	_, err = h.svc.Cancel(context.Background(), h.parentAccess(), order.ID, "tarde")
	if code := errCode(t, err); code != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", code)
	}
	if len(h.ledger.entries) != 1 {
		t.Fatal("no refund expected past the deadline")
	}
}

func TestCancelTwiceConflicts(t *testing.T) {
	h := newOrderHarness(t)

	order, err := h.svc.Place(context.Background(), h.parentAccess(), h.placeInput())
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, err := h.svc.Cancel(context.Background(), h.parentAccess(), order.ID, "primera"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err = h.svc.Cancel(context.Background(), h.parentAccess(), order.ID, "segunda")
	if code := errCode(t, err); code != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", code)
	}
	if len(h.ledger.entries) != 2 {
		t.Fatal("a second cancel must not append another refund")
	}
}

func TestDeliverMarksAndEmits(t *testing.T) {
	h := newOrderHarness(t)

	order, err := h.svc.Place(context.Background(), h.parentAccess(), h.placeInput())
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	delivered, err := h.svc.Deliver(context.Background(), h.staffAccess(), order.ID)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.Status != enums.LunchOrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", delivered.Status)
	}
	if delivered.DeliveredAt == nil || delivered.DeliveredBy == nil {
		t.Fatal("expected delivery stamp")
	}
	if len(h.outbox.events) != 1 || h.outbox.events[0].EventType != enums.OutboxEventTypeOrderDelivered {
		t.Fatal("expected order.delivered event")
	}

	_, err = h.svc.Deliver(context.Background(), h.staffAccess(), order.ID)
	if code := errCode(t, err); code != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on double delivery, got %s", code)
	}
}

func TestPostponeLeavesLedgerAlone(t *testing.T) {
	h := newOrderHarness(t)

	order, err := h.svc.Place(context.Background(), h.parentAccess(), h.placeInput())
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	entriesBefore := len(h.ledger.entries)

	postponed, err := h.svc.Postpone(context.Background(), h.staffAccess(), order.ID, "feriado")
	if err != nil {
		t.Fatalf("postpone: %v", err)
	}
	if postponed.Status != enums.LunchOrderStatusPostponed {
		t.Fatalf("expected postponed, got %s", postponed.Status)
	}
	if len(h.ledger.entries) != entriesBefore {
		t.Fatal("postpone must not touch the ledger")
	}
}

func TestDeliverWithoutOrderBillsPending(t *testing.T) {
	h := newOrderHarness(t)

	order, err := h.svc.DeliverWithoutOrder(context.Background(), h.staffAccess(), NoOrderInput{
		StudentID:     &h.student,
		CategoryID:    h.category,
		Justification: "sin pedido, se atendio en linea",
	})
	if err != nil {
		t.Fatalf("deliver without order: %v", err)
	}
	if order.Status != enums.LunchOrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", order.Status)
	}
	if !order.IsNoOrderDelivery {
		t.Fatal("expected no-order flag")
	}
	if len(h.ledger.entries) != 1 || h.ledger.entries[0].PaymentStatus != enums.PaymentStatusPending {
		t.Fatal("expected one pending purchase")
	}
	if len(h.outbox.events) != 1 {
		t.Fatal("expected delivered event")
	}
}
