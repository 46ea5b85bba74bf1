package enums

import "fmt"

// SupplyRequestStatus tracks a school supply request against the central warehouse.
type SupplyRequestStatus string

const (
	SupplyRequestStatusRequested SupplyRequestStatus = "requested"
	SupplyRequestStatusApproved  SupplyRequestStatus = "approved"
	SupplyRequestStatusFulfilled SupplyRequestStatus = "fulfilled"
	SupplyRequestStatusRejected  SupplyRequestStatus = "rejected"
)

var validSupplyRequestStatuses = []SupplyRequestStatus{
	SupplyRequestStatusRequested,
	SupplyRequestStatusApproved,
	SupplyRequestStatusFulfilled,
	SupplyRequestStatusRejected,
}

// String implements fmt.Stringer.
func (s SupplyRequestStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SupplyRequestStatus.
func (s SupplyRequestStatus) IsValid() bool {
	for _, candidate := range validSupplyRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the request admits no further transitions.
func (s SupplyRequestStatus) IsTerminal() bool {
	return s == SupplyRequestStatusFulfilled || s == SupplyRequestStatusRejected
}

// ParseSupplyRequestStatus converts raw input into a SupplyRequestStatus.
func ParseSupplyRequestStatus(value string) (SupplyRequestStatus, error) {
	for _, candidate := range validSupplyRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid supply request status %q", value)
}
