package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lonchera-pe/cantina-backend/api/responses"
	"github.com/lonchera-pe/cantina-backend/api/validators"
	"github.com/lonchera-pe/cantina-backend/internal/accounts"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
)

type createStudentRequest struct {
	SchoolID       uuid.UUID       `json:"school_id" validate:"required"`
	GuardianUserID uuid.UUID       `json:"guardian_user_id" validate:"required"`
	FullName       string          `json:"full_name" validate:"required"`
	Grade          *string         `json:"grade,omitempty"`
	Section        *string         `json:"section,omitempty"`
	FreeAccount    bool            `json:"free_account"`
	LimitType      string          `json:"limit_type,omitempty"`
	DailyLimit     decimal.Decimal `json:"daily_limit"`
	WeeklyLimit    decimal.Decimal `json:"weekly_limit"`
	MonthlyLimit   decimal.Decimal `json:"monthly_limit"`
}

func AdminCreateStudent(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createStudentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limitType := enums.LimitTypeNone
		if body.LimitType != "" {
			limitType = enums.LimitType(body.LimitType)
		}
		student, err := svc.CreateStudent(r.Context(), access, accounts.CreateStudentInput{
			SchoolID:       body.SchoolID,
			GuardianUserID: body.GuardianUserID,
			FullName:       body.FullName,
			Grade:          body.Grade,
			Section:        body.Section,
			FreeAccount:    body.FreeAccount,
			LimitType:      limitType,
			DailyLimit:     body.DailyLimit,
			WeeklyLimit:    body.WeeklyLimit,
			MonthlyLimit:   body.MonthlyLimit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, student)
	}
}

type updateAccountRequest struct {
	FullName     *string          `json:"full_name,omitempty"`
	Grade        *string          `json:"grade,omitempty"`
	Section      *string          `json:"section,omitempty"`
	FreeAccount  *bool            `json:"free_account,omitempty"`
	LimitType    *string          `json:"limit_type,omitempty"`
	DailyLimit   *decimal.Decimal `json:"daily_limit,omitempty"`
	WeeklyLimit  *decimal.Decimal `json:"weekly_limit,omitempty"`
	MonthlyLimit *decimal.Decimal `json:"monthly_limit,omitempty"`
}

func (u updateAccountRequest) toInput() accounts.UpdateAccountInput {
	input := accounts.UpdateAccountInput{
		FullName:     u.FullName,
		Grade:        u.Grade,
		Section:      u.Section,
		FreeAccount:  u.FreeAccount,
		DailyLimit:   u.DailyLimit,
		WeeklyLimit:  u.WeeklyLimit,
		MonthlyLimit: u.MonthlyLimit,
	}
	if u.LimitType != nil {
		limitType := enums.LimitType(*u.LimitType)
		input.LimitType = &limitType
	}
	return input
}

func AdminUpdateStudent(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "studentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateAccountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		student, err := svc.UpdateStudent(r.Context(), access, id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, student)
	}
}

func AdminDeactivateStudent(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "studentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeactivateStudent(r.Context(), access, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

func AdminListStudents(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		guardian, err := queryUUID(r, "guardian_user_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListStudents(r.Context(), access, guardian)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type createTeacherProfileRequest struct {
	SchoolID    uuid.UUID `json:"school_id" validate:"required"`
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	FullName    string    `json:"full_name" validate:"required"`
	FreeAccount bool      `json:"free_account"`
	LimitType   string    `json:"limit_type,omitempty"`
}

func AdminCreateTeacherProfile(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createTeacherProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limitType := enums.LimitTypeNone
		if body.LimitType != "" {
			limitType = enums.LimitType(body.LimitType)
		}
		profile, err := svc.CreateTeacherProfile(r.Context(), access, accounts.CreateTeacherProfileInput{
			SchoolID:    body.SchoolID,
			UserID:      body.UserID,
			FullName:    body.FullName,
			FreeAccount: body.FreeAccount,
			LimitType:   limitType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, profile)
	}
}

func AdminListTeacherProfiles(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListTeacherProfiles(r.Context(), access)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
