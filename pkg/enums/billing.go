package enums

import "fmt"

// BillingCycle selects how often billing periods roll over.
type BillingCycle string

const (
	BillingCycleWeekly  BillingCycle = "weekly"
	BillingCycleMonthly BillingCycle = "monthly"
)

var validBillingCycles = []BillingCycle{
	BillingCycleWeekly,
	BillingCycleMonthly,
}

// String implements fmt.Stringer.
func (b BillingCycle) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingCycle.
func (b BillingCycle) IsValid() bool {
	for _, candidate := range validBillingCycles {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBillingCycle converts raw input into a BillingCycle.
func ParseBillingCycle(value string) (BillingCycle, error) {
	for _, candidate := range validBillingCycles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing cycle %q", value)
}

// BillingPeriodStatus tracks whether a period still accepts payments.
type BillingPeriodStatus string

const (
	BillingPeriodStatusOpen   BillingPeriodStatus = "open"
	BillingPeriodStatusClosed BillingPeriodStatus = "closed"
)

var validBillingPeriodStatuses = []BillingPeriodStatus{
	BillingPeriodStatusOpen,
	BillingPeriodStatusClosed,
}

// String implements fmt.Stringer.
func (b BillingPeriodStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingPeriodStatus.
func (b BillingPeriodStatus) IsValid() bool {
	for _, candidate := range validBillingPeriodStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBillingPeriodStatus converts raw input into a BillingPeriodStatus.
func ParseBillingPeriodStatus(value string) (BillingPeriodStatus, error) {
	for _, candidate := range validBillingPeriodStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing period status %q", value)
}
