package scope

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	pkgerrors "github.com/lonchera-pe/cantina-backend/pkg/errors"
)

// Access describes the tenancy of the calling principal. It is derived from
// verified token claims, never from request input.
type Access struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	SchoolID *uuid.UUID
}

// Admin reports whether the principal is a platform admin. Admins are the
// only principals without a school binding.
func (a Access) Admin() bool {
	return a.Role == enums.UserRoleAdmin
}

// Allows reports whether the principal may touch rows of the given school.
func (a Access) Allows(schoolID uuid.UUID) bool {
	if a.Admin() {
		return true
	}
	return a.SchoolID != nil && *a.SchoolID == schoolID
}

// Require returns a FORBIDDEN error when the principal may not touch the
// given school. Write paths call this before mutating.
func (a Access) Require(schoolID uuid.UUID) error {
	if a.Allows(schoolID) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "school outside caller scope")
}

// SchoolFilter returns a query scope restricting rows to the caller's
// school. Every repo list call goes through this; admins pass unfiltered.
func (a Access) SchoolFilter() func(*gorm.DB) *gorm.DB {
	return a.SchoolFilterOn("school_id")
}

// SchoolFilterOn is SchoolFilter with an explicit column, for joined queries
// where school_id is ambiguous.
func (a Access) SchoolFilterOn(column string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if a.Admin() {
			return q
		}
		if a.SchoolID == nil {
			// A non-admin without a school sees nothing.
			return q.Where("1 = 0")
		}
		return q.Where(column+" = ?", *a.SchoolID)
	}
}
