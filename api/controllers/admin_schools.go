package controllers

import (
	"net/http"

	"github.com/lonchera-pe/cantina-backend/api/responses"
	"github.com/lonchera-pe/cantina-backend/api/validators"
	"github.com/lonchera-pe/cantina-backend/internal/schools"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
)

type createSchoolRequest struct {
	Name     string `json:"name" validate:"required"`
	Code     string `json:"code" validate:"required"`
	Timezone string `json:"timezone,omitempty"`
}

func AdminCreateSchool(svc schools.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createSchoolRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		school, err := svc.Create(r.Context(), access, schools.CreateSchoolInput{
			Name:     body.Name,
			Code:     body.Code,
			Timezone: body.Timezone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, school)
	}
}

type updateSchoolRequest struct {
	Name     *string `json:"name,omitempty"`
	Timezone *string `json:"timezone,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func AdminUpdateSchool(svc schools.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "schoolId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateSchoolRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		school, err := svc.Update(r.Context(), access, id, schools.UpdateSchoolInput{
			Name:     body.Name,
			Timezone: body.Timezone,
			IsActive: body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, school)
	}
}

func AdminGetSchool(svc schools.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "schoolId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		school, err := svc.Get(r.Context(), access, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, school)
	}
}

func AdminListSchools(svc schools.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.List(r.Context(), access)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// AdminGetLunchConfiguration returns the school's deadline settings.
func AdminGetLunchConfiguration(svc schools.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "schoolId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.GetLunchConfiguration(r.Context(), access, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}

type updateLunchConfigurationRequest struct {
	OrderDeadline      *string `json:"order_deadline,omitempty"`
	CancelDeadline     *string `json:"cancel_deadline,omitempty"`
	ModificationCutoff *string `json:"modification_cutoff,omitempty"`
}

// AdminUpdateLunchConfiguration changes the school's "HH:MM" cutoffs.
func AdminUpdateLunchConfiguration(svc schools.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "schoolId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateLunchConfigurationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.UpdateLunchConfiguration(r.Context(), access, id, schools.UpdateLunchConfigurationInput{
			OrderDeadline:      body.OrderDeadline,
			CancelDeadline:     body.CancelDeadline,
			ModificationCutoff: body.ModificationCutoff,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}
