package enums

import "fmt"

// OutboxEventType names the domain events written to the transactional outbox.
type OutboxEventType string

const (
	OutboxEventTypeRechargeApproved    OutboxEventType = "recharge.approved"
	OutboxEventTypeRechargeRejected    OutboxEventType = "recharge.rejected"
	OutboxEventTypeOrderCancelled      OutboxEventType = "order.cancelled"
	OutboxEventTypeOrderDelivered      OutboxEventType = "order.delivered"
	OutboxEventTypeBillingPeriodClosed OutboxEventType = "billing.period_closed"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventTypeRechargeApproved,
	OutboxEventTypeRechargeRejected,
	OutboxEventTypeOrderCancelled,
	OutboxEventTypeOrderDelivered,
	OutboxEventTypeBillingPeriodClosed,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateTypeRechargeRequest OutboxAggregateType = "recharge_request"
	OutboxAggregateTypeLunchOrder      OutboxAggregateType = "lunch_order"
	OutboxAggregateTypeBillingPeriod   OutboxAggregateType = "billing_period"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	OutboxAggregateTypeRechargeRequest,
	OutboxAggregateTypeLunchOrder,
	OutboxAggregateTypeBillingPeriod,
}

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxAggregateType.
func (o OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == o {
			return true
		}
	}
	return false
}
