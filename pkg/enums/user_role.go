package enums

import "fmt"

// UserRole identifies what a user is allowed to do across the system.
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleStaff   UserRole = "staff"
	UserRoleKitchen UserRole = "kitchen"
	UserRoleParent  UserRole = "parent"
	UserRoleTeacher UserRole = "teacher"
)

var validUserRoles = []UserRole{
	UserRoleAdmin,
	UserRoleStaff,
	UserRoleKitchen,
	UserRoleParent,
	UserRoleTeacher,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// IsStaffLike reports whether the role can operate the cafeteria counter.
func (u UserRole) IsStaffLike() bool {
	return u == UserRoleStaff || u == UserRoleKitchen || u == UserRoleAdmin
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
