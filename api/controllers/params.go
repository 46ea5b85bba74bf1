package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lonchera-pe/cantina-backend/api/middleware"
	"github.com/lonchera-pe/cantina-backend/internal/ledger"
	"github.com/lonchera-pe/cantina-backend/internal/scope"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
)

const dateLayout = "2006-01-02"

func requireAccess(r *http.Request) (scope.Access, error) {
	access, ok := middleware.AccessFromContext(r.Context())
	if !ok {
		return scope.Access{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return access, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid id in path").WithDetails(map[string]any{"param": name})
	}
	return id, nil
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid uuid query parameter").WithDetails(map[string]any{"param": name})
	}
	return &id, nil
}

func queryDate(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "date must be YYYY-MM-DD").WithDetails(map[string]any{"param": name})
	}
	return date, nil
}

// queryAccountRef builds the single-account reference from student_id or
// teacher_profile_id query parameters.
func queryAccountRef(r *http.Request) (ledger.AccountRef, error) {
	studentID, err := queryUUID(r, "student_id")
	if err != nil {
		return ledger.AccountRef{}, err
	}
	teacherID, err := queryUUID(r, "teacher_profile_id")
	if err != nil {
		return ledger.AccountRef{}, err
	}
	ref := ledger.AccountRef{StudentID: studentID, TeacherProfileID: teacherID}
	if err := ref.Validate(); err != nil {
		return ledger.AccountRef{}, err
	}
	return ref, nil
}
