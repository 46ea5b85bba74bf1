package ledger

import (
	"github.com/google/uuid"

	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
)

// AccountRef points at exactly one cafeteria account, student or teacher.
type AccountRef struct {
	StudentID        *uuid.UUID
	TeacherProfileID *uuid.UUID
}

// StudentAccount builds a reference to a student account.
func StudentAccount(id uuid.UUID) AccountRef {
	return AccountRef{StudentID: &id}
}

// TeacherAccount builds a reference to a teacher account.
func TeacherAccount(id uuid.UUID) AccountRef {
	return AccountRef{TeacherProfileID: &id}
}

// Validate checks the exactly-one invariant.
func (r AccountRef) Validate() error {
	if r.StudentID == nil && r.TeacherProfileID == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account reference required")
	}
	if r.StudentID != nil && r.TeacherProfileID != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "account reference must name a single account")
	}
	if r.StudentID != nil && *r.StudentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "student id required")
	}
	if r.TeacherProfileID != nil && *r.TeacherProfileID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "teacher profile id required")
	}
	return nil
}

// IsStudent reports whether the reference targets a student account.
func (r AccountRef) IsStudent() bool {
	return r.StudentID != nil
}
