package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lonchera-pe/cantina-backend/api/responses"
	"github.com/lonchera-pe/cantina-backend/api/validators"
	"github.com/lonchera-pe/cantina-backend/internal/lunchorders"
	"github.com/lonchera-pe/cantina-backend/internal/recharges"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
)

// StaffRecharges lists recharge requests for review, optionally filtered by
// status.
func StaffRecharges(svc recharges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var filter recharges.ListFilter
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

// StaffApproveRecharge credits the account after the voucher checks out.
func StaffApproveRecharge(svc recharges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "rechargeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.Approve(r.Context(), access, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

type rejectRechargeRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// StaffRejectRecharge declines a voucher with a reason the submitter sees.
func StaffRejectRecharge(svc recharges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "rechargeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body rejectRechargeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		request, err := svc.Reject(r.Context(), access, id, body.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// StaffOrdersForDate lists the day's orders for the serving line.
func StaffOrdersForDate(svc lunchorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := queryDate(r, "date", time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var status *enums.LunchOrderStatus
		if raw := r.URL.Query().Get("status"); raw != "" {
			candidate := enums.LunchOrderStatus(raw)
			status = &candidate
		}
		rows, err := svc.ListForDate(r.Context(), access, date, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// StaffDeliverOrder marks an order as served.
func StaffDeliverOrder(svc lunchorders.Service, logg *logger.Logger) http.HandlerFunc {
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
		order, err := svc.Deliver(r.Context(), access, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// StaffCancelOrder cancels on behalf of the family, refunding any charge.
func StaffCancelOrder(svc lunchorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderActionWithJustification(svc.Cancel, logg)
}

// StaffPostponeOrder moves an order out of its date.
func StaffPostponeOrder(svc lunchorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderActionWithJustification(svc.Postpone, logg)
}

type noOrderDeliveryRequest struct {
	StudentID        *uuid.UUID `json:"student_id,omitempty"`
	TeacherProfileID *uuid.UUID `json:"teacher_profile_id,omitempty"`
	OrderDate        string     `json:"order_date,omitempty"`
	CategoryID       uuid.UUID  `json:"category_id" validate:"required"`
	Justification    string     `json:"justification" validate:"required"`
}

// StaffDeliverWithoutOrder records a walk-up serving with no prior booking.
// The charge lands as pending debt.
func StaffDeliverWithoutOrder(svc lunchorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body noOrderDeliveryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var orderDate time.Time
		if body.OrderDate != "" {
			orderDate, err = time.Parse(dateLayout, body.OrderDate)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "order_date must be YYYY-MM-DD"))
				return
			}
		}

		order, err := svc.DeliverWithoutOrder(r.Context(), access, lunchorders.NoOrderInput{
			StudentID:        body.StudentID,
			TeacherProfileID: body.TeacherProfileID,
			OrderDate:        orderDate,
			CategoryID:       body.CategoryID,
			Justification:    body.Justification,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
