package enums

import "fmt"

// MenuAudience restricts who can order from a lunch category.
type MenuAudience string

const (
	MenuAudienceStudents MenuAudience = "students"
	MenuAudienceTeachers MenuAudience = "teachers"
	MenuAudienceAll      MenuAudience = "all"
)

var validMenuAudiences = []MenuAudience{
	MenuAudienceStudents,
	MenuAudienceTeachers,
	MenuAudienceAll,
}

// String implements fmt.Stringer.
func (m MenuAudience) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MenuAudience.
func (m MenuAudience) IsValid() bool {
	for _, candidate := range validMenuAudiences {
		if candidate == m {
			return true
		}
	}
	return false
}

// AllowsStudents reports whether students may order from the category.
func (m MenuAudience) AllowsStudents() bool {
	return m == MenuAudienceStudents || m == MenuAudienceAll
}

// AllowsTeachers reports whether teachers may order from the category.
func (m MenuAudience) AllowsTeachers() bool {
	return m == MenuAudienceTeachers || m == MenuAudienceAll
}

// ParseMenuAudience converts raw input into a MenuAudience.
func ParseMenuAudience(value string) (MenuAudience, error) {
	for _, candidate := range validMenuAudiences {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid menu audience %q", value)
}
