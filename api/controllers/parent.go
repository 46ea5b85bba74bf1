package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lonchera-pe/cantina-backend/api/responses"
	"github.com/lonchera-pe/cantina-backend/api/validators"
	"github.com/lonchera-pe/cantina-backend/internal/accounts"
	"github.com/lonchera-pe/cantina-backend/internal/ledger"
	"github.com/lonchera-pe/cantina-backend/internal/lunchorders"
	"github.com/lonchera-pe/cantina-backend/internal/recharges"
	"github.com/lonchera-pe/cantina-backend/internal/scope"
	"github.com/lonchera-pe/cantina-backend/pkg/db/models"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
	"github.com/lonchera-pe/cantina-backend/pkg/pagination"
	"github.com/lonchera-pe/cantina-backend/pkg/types"
)

// selfAccountRef resolves the caller's own cafeteria account. Teachers map
// to their profile; parents must name one of their wards via student_id.
func selfAccountRef(ctx context.Context, svc accounts.Service, access scope.Access, r *http.Request) (ledger.AccountRef, error) {
	if access.Role == enums.UserRoleTeacher {
		profile, err := svc.TeacherProfileByUser(ctx, access, access.UserID)
		if err != nil {
			return ledger.AccountRef{}, err
		}
		return ledger.TeacherAccount(profile.ID), nil
	}

	studentID, err := queryUUID(r, "student_id")
	if err != nil {
		return ledger.AccountRef{}, err
	}
	if studentID == nil {
		return ledger.AccountRef{}, pkgerrors.New(pkgerrors.CodeValidation, "student_id is required")
	}
	student, err := svc.GetStudent(ctx, access, *studentID)
	if err != nil {
		return ledger.AccountRef{}, err
	}
	if student.GuardianUserID != access.UserID {
		return ledger.AccountRef{}, pkgerrors.New(pkgerrors.CodeForbidden, "student is not under your guardianship")
	}
	return ledger.StudentAccount(student.ID), nil
}

// ParentStudents lists the caller's wards.
func ParentStudents(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		students, err := svc.ListStudents(r.Context(), access, &access.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, students)
	}
}

func ParentBalance(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref, err := selfAccountRef(r.Context(), svc, access, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.AvailableBalance(r.Context(), access, ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"balance": balance})
	}
}

func ParentDebt(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref, err := selfAccountRef(r.Context(), svc, access, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		debt, err := svc.OutstandingDebt(r.Context(), access, ref)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"debt": debt})
	}
}

func ParentLimits(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref, err := selfAccountRef(r.Context(), svc, access, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := svc.RemainingLimit(r.Context(), access, ref, time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// ParentTransactions pages the account's ledger history.
func ParentTransactions(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref, err := selfAccountRef(r.Context(), svc, access, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListTransactions(r.Context(), access, ref, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type submitRechargeRequest struct {
	StudentID        *uuid.UUID      `json:"student_id,omitempty"`
	TeacherProfileID *uuid.UUID      `json:"teacher_profile_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    string          `json:"payment_method" validate:"required"`
	ReferenceCode    *string         `json:"reference_code,omitempty"`
	VoucherKey       *string         `json:"voucher_key,omitempty"`
	Notes            *string         `json:"notes,omitempty"`
}

// ParentSubmitRecharge files a voucher-backed recharge request.
func ParentSubmitRecharge(svc recharges.Service, accountsSvc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body submitRechargeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := requireOwnAccount(r.Context(), accountsSvc, access, body.StudentID, body.TeacherProfileID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Submit(r.Context(), access, recharges.SubmitInput{
			StudentID:        body.StudentID,
			TeacherProfileID: body.TeacherProfileID,
			Amount:           body.Amount,
			PaymentMethod:    enums.PaymentMethod(body.PaymentMethod),
			ReferenceCode:    body.ReferenceCode,
			VoucherKey:       body.VoucherKey,
			Notes:            body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// ParentRecharges lists the caller's own recharge requests.
func ParentRecharges(svc recharges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := recharges.ListFilter{SubmittedBy: &access.UserID}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status := enums.RechargeRequestStatus(raw)
			filter.Status = &status
		}
		rows, err := svc.List(r.Context(), access, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type placeOrderRequest struct {
	StudentID        *uuid.UUID        `json:"student_id,omitempty"`
	TeacherProfileID *uuid.UUID        `json:"teacher_profile_id,omitempty"`
	OrderDate        string            `json:"order_date" validate:"required"`
	CategoryID       uuid.UUID         `json:"category_id" validate:"required"`
	MenuID           *uuid.UUID        `json:"menu_id,omitempty"`
	Addons           types.OrderAddons `json:"addons,omitempty"`
}

// ParentPlaceOrder books a lunch for a future date.
func ParentPlaceOrder(svc lunchorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body placeOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderDate, err := time.Parse(dateLayout, body.OrderDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "order_date must be YYYY-MM-DD"))
			return
		}

		order, err := svc.Place(r.Context(), access, lunchorders.PlaceInput{
			StudentID:        body.StudentID,
			TeacherProfileID: body.TeacherProfileID,
			OrderDate:        orderDate,
			CategoryID:       body.CategoryID,
			MenuID:           body.MenuID,
			Addons:           body.Addons,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

type justificationRequest struct {
	Justification string `json:"justification" validate:"required"`
}

// ParentCancelOrder cancels a booked lunch and refunds its charge.
func ParentCancelOrder(svc lunchorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderActionWithJustification(svc.Cancel, logg)
}

// ParentPostponeOrder moves a booked lunch out of its date without charge
// movement.
func ParentPostponeOrder(svc lunchorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderActionWithJustification(svc.Postpone, logg)
}

// ParentOrders lists the account's lunch orders over a date range.
func ParentOrders(svc lunchorders.Service, accountsSvc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref, err := selfAccountRef(r.Context(), accountsSvc, access, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		now := time.Now()
		from, err := queryDate(r, "from", now.AddDate(0, -1, 0))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := queryDate(r, "to", now.AddDate(0, 0, 14))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListForAccount(r.Context(), access, ref, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// requireOwnAccount rejects account references that do not belong to the
// caller. Teachers may only act on their own profile, parents on their wards.
func requireOwnAccount(ctx context.Context, svc accounts.Service, access scope.Access, studentID, teacherProfileID *uuid.UUID) error {
	ref := ledger.AccountRef{StudentID: studentID, TeacherProfileID: teacherProfileID}
	if err := ref.Validate(); err != nil {
		return err
	}
	if ref.IsStudent() {
		student, err := svc.GetStudent(ctx, access, *studentID)
		if err != nil {
			return err
		}
		if access.Role == enums.UserRoleParent && student.GuardianUserID != access.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "student is not under your guardianship")
		}
		return nil
	}
	if access.Role == enums.UserRoleTeacher {
		profile, err := svc.TeacherProfileByUser(ctx, access, access.UserID)
		if err != nil {
			return err
		}
		if profile.ID != *teacherProfileID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "teacher profile is not yours")
		}
	}
	return nil
}

type orderAction func(ctx context.Context, access scope.Access, id uuid.UUID, justification string) (*models.LunchOrder, error)

func orderActionWithJustification(action orderAction, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body justificationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := action(r.Context(), access, id, body.Justification)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
