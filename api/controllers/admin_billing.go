package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lonchera-pe/cantina-backend/api/responses"
	"github.com/lonchera-pe/cantina-backend/api/validators"
	"github.com/lonchera-pe/cantina-backend/internal/billing"
	"github.com/lonchera-pe/cantina-backend/pkg/config"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
)

type openPeriodRequest struct {
	SchoolID  uuid.UUID `json:"school_id" validate:"required"`
	Cycle     string    `json:"cycle" validate:"omitempty,oneof=weekly monthly"`
	StartDate string    `json:"start_date" validate:"required"`
}

// AdminOpenBillingPeriod opens a weekly or monthly settlement period. An
// omitted cycle falls back to the configured default.
func AdminOpenBillingPeriod(svc billing.Service, defaults config.BillingConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body openPeriodRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		startDate, err := time.Parse(dateLayout, body.StartDate)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "start_date must be YYYY-MM-DD"))
			return
		}
		cycle := body.Cycle
		if cycle == "" {
			cycle = defaults.DefaultCycle
		}
		period, err := svc.OpenPeriod(r.Context(), access, billing.OpenPeriodInput{
			SchoolID:  body.SchoolID,
			Cycle:     enums.BillingCycle(cycle),
			StartDate: startDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, period)
	}
}

func AdminCloseBillingPeriod(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "periodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		period, err := svc.ClosePeriod(r.Context(), access, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, period)
	}
}

func AdminListBillingPeriods(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		schoolID, err := queryUUID(r, "school_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if schoolID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "school_id is required"))
			return
		}
		rows, err := svc.ListPeriods(r.Context(), access, *schoolID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// AdminBillingPeriodSummary refolds the period's payments and the school's
// live debt from the ledger.
func AdminBillingPeriodSummary(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "periodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summary, err := svc.Summary(r.Context(), access, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

type applyPaymentRequest struct {
	StudentID        *uuid.UUID      `json:"student_id,omitempty"`
	TeacherProfileID *uuid.UUID      `json:"teacher_profile_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    string          `json:"payment_method" validate:"required"`
}

// AdminApplyBillingPayment settles an account's pending charges oldest
// first. Any uncovered remainder is credited as balance.
func AdminApplyBillingPayment(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body applyPaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payment, err := svc.ApplyPayment(r.Context(), access, billing.ApplyPaymentInput{
			StudentID:        body.StudentID,
			TeacherProfileID: body.TeacherProfileID,
			Amount:           body.Amount,
			PaymentMethod:    enums.PaymentMethod(body.PaymentMethod),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

func AdminListBillingPayments(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "periodId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListPayments(r.Context(), access, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
