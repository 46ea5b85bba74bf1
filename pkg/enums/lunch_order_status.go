package enums

import "fmt"

// LunchOrderStatus tracks the per-day order lifecycle.
type LunchOrderStatus string

const (
	LunchOrderStatusPendingPayment LunchOrderStatus = "pending_payment"
	LunchOrderStatusConfirmed      LunchOrderStatus = "confirmed"
	LunchOrderStatusDelivered      LunchOrderStatus = "delivered"
	LunchOrderStatusCancelled      LunchOrderStatus = "cancelled"
	LunchOrderStatusPostponed      LunchOrderStatus = "postponed"
)

var validLunchOrderStatuses = []LunchOrderStatus{
	LunchOrderStatusPendingPayment,
	LunchOrderStatusConfirmed,
	LunchOrderStatusDelivered,
	LunchOrderStatusCancelled,
	LunchOrderStatusPostponed,
}

// String implements fmt.Stringer.
func (l LunchOrderStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LunchOrderStatus.
func (l LunchOrderStatus) IsValid() bool {
	for _, candidate := range validLunchOrderStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// IsTerminal reports whether an order can still move to another status.
// Delivered and cancelled orders never transition again.
func (l LunchOrderStatus) IsTerminal() bool {
	return l == LunchOrderStatusDelivered || l == LunchOrderStatusCancelled
}

// CanDeliver reports whether an order in this status may be marked delivered.
func (l LunchOrderStatus) CanDeliver() bool {
	switch l {
	case LunchOrderStatusConfirmed, LunchOrderStatusPostponed, LunchOrderStatusPendingPayment:
		return true
	}
	return false
}

// CanCancel reports whether an order in this status may be cancelled.
func (l LunchOrderStatus) CanCancel() bool {
	switch l {
	case LunchOrderStatusConfirmed, LunchOrderStatusPostponed, LunchOrderStatusPendingPayment:
		return true
	}
	return false
}

// CanPostpone reports whether an order in this status may be postponed.
func (l LunchOrderStatus) CanPostpone() bool {
	switch l {
	case LunchOrderStatusConfirmed, LunchOrderStatusPendingPayment:
		return true
	}
	return false
}

// ParseLunchOrderStatus converts raw input into a LunchOrderStatus.
func ParseLunchOrderStatus(value string) (LunchOrderStatus, error) {
	for _, candidate := range validLunchOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lunch order status %q", value)
}
