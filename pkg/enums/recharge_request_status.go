package enums

import "fmt"

// RechargeRequestStatus tracks the voucher review lifecycle.
type RechargeRequestStatus string

const (
	RechargeRequestStatusPending  RechargeRequestStatus = "pending"
	RechargeRequestStatusApproved RechargeRequestStatus = "approved"
	RechargeRequestStatusRejected RechargeRequestStatus = "rejected"
)

var validRechargeRequestStatuses = []RechargeRequestStatus{
	RechargeRequestStatusPending,
	RechargeRequestStatusApproved,
	RechargeRequestStatusRejected,
}

// String implements fmt.Stringer.
func (r RechargeRequestStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RechargeRequestStatus.
func (r RechargeRequestStatus) IsValid() bool {
	for _, candidate := range validRechargeRequestStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (r RechargeRequestStatus) IsTerminal() bool {
	return r == RechargeRequestStatusApproved || r == RechargeRequestStatusRejected
}

// ParseRechargeRequestStatus converts raw input into a RechargeRequestStatus.
func ParseRechargeRequestStatus(value string) (RechargeRequestStatus, error) {
	for _, candidate := range validRechargeRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid recharge request status %q", value)
}
