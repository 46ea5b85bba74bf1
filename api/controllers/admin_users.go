package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/lonchera-pe/cantina-backend/api/responses"
	"github.com/lonchera-pe/cantina-backend/api/validators"
	"github.com/lonchera-pe/cantina-backend/internal/users"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	"github.com/lonchera-pe/cantina-backend/pkg/logger"
)

type provisionUserRequest struct {
	Email    string     `json:"email" validate:"required,email"`
	FullName string     `json:"full_name" validate:"required"`
	Phone    *string    `json:"phone,omitempty"`
	Role     string     `json:"role" validate:"required"`
	SchoolID *uuid.UUID `json:"school_id,omitempty"`
	Password string     `json:"password,omitempty"`
}

// AdminProvisionUser creates a user account. When no password is supplied
// the generated temporary one is echoed back exactly once.
func AdminProvisionUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body provisionUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, tempPassword, err := svc.Provision(r.Context(), access, users.ProvisionInput{
			Email:    body.Email,
			FullName: body.FullName,
			Phone:    body.Phone,
			Role:     enums.UserRole(body.Role),
			SchoolID: body.SchoolID,
			Password: body.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload := map[string]any{"user": user}
		if tempPassword != "" {
			payload["temporary_password"] = tempPassword
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payload)
	}
}

type updateUserRequest struct {
	FullName *string `json:"full_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

func AdminUpdateUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Update(r.Context(), access, id, users.UpdateInput{
			FullName: body.FullName,
			Phone:    body.Phone,
			IsActive: body.IsActive,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func AdminDeactivateUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), access, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

// AdminResetPassword issues a fresh temporary password for the user.
func AdminResetPassword(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tempPassword, err := svc.ResetPassword(r.Context(), access, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"temporary_password": tempPassword})
	}
}

func AdminGetUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.GetByID(r.Context(), access, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func AdminListUsers(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := requireAccess(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var role *enums.UserRole
		if raw := r.URL.Query().Get("role"); raw != "" {
			candidate := enums.UserRole(raw)
			role = &candidate
		}
		rows, err := svc.List(r.Context(), access, role)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
