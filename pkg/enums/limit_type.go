package enums

import "fmt"

// LimitType selects the window over which a spending cap applies.
type LimitType string

const (
	LimitTypeNone    LimitType = "none"
	LimitTypeDaily   LimitType = "daily"
	LimitTypeWeekly  LimitType = "weekly"
	LimitTypeMonthly LimitType = "monthly"
)

var validLimitTypes = []LimitType{
	LimitTypeNone,
	LimitTypeDaily,
	LimitTypeWeekly,
	LimitTypeMonthly,
}

// String implements fmt.Stringer.
func (l LimitType) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LimitType.
func (l LimitType) IsValid() bool {
	for _, candidate := range validLimitTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseLimitType converts raw input into a LimitType.
func ParseLimitType(value string) (LimitType, error) {
	for _, candidate := range validLimitTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid limit type %q", value)
}
