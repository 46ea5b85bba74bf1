package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

// RechargeApprovedEvent is emitted when staff approves a voucher and the
// recharge transaction lands on the ledger.
type RechargeApprovedEvent struct {
	RechargeRequestID uuid.UUID           `json:"recharge_request_id"`
	SchoolID          uuid.UUID           `json:"school_id"`
	StudentID         *uuid.UUID          `json:"student_id,omitempty"`
	TeacherProfileID  *uuid.UUID          `json:"teacher_profile_id,omitempty"`
	TransactionID     uuid.UUID           `json:"transaction_id"`
	Amount            decimal.Decimal     `json:"amount"`
	PaymentMethod     enums.PaymentMethod `json:"payment_method"`
	ReviewedBy        uuid.UUID           `json:"reviewed_by"`
	ReviewedAt        time.Time           `json:"reviewed_at"`
}

// RechargeRejectedEvent is emitted when staff rejects a voucher so guardians
// can be notified with the reason.
type RechargeRejectedEvent struct {
	RechargeRequestID uuid.UUID  `json:"recharge_request_id"`
	SchoolID          uuid.UUID  `json:"school_id"`
	StudentID         *uuid.UUID `json:"student_id,omitempty"`
	TeacherProfileID  *uuid.UUID `json:"teacher_profile_id,omitempty"`
	Reason            string     `json:"reason"`
	ReviewedBy        uuid.UUID  `json:"reviewed_by"`
	ReviewedAt        time.Time  `json:"reviewed_at"`
}

// OrderCancelledEvent is emitted whenever a lunch order is cancelled, whether
// by a guardian before the cutoff or by staff.
type OrderCancelledEvent struct {
	OrderID             uuid.UUID       `json:"order_id"`
	SchoolID            uuid.UUID       `json:"school_id"`
	StudentID           *uuid.UUID      `json:"student_id,omitempty"`
	TeacherProfileID    *uuid.UUID      `json:"teacher_profile_id,omitempty"`
	OrderDate           string          `json:"order_date"`
	RefundTransactionID *uuid.UUID      `json:"refund_transaction_id,omitempty"`
	RefundAmount        decimal.Decimal `json:"refund_amount"`
	CancelledBy         uuid.UUID       `json:"cancelled_by"`
	CancelledAt         time.Time       `json:"cancelled_at"`
}

// OrderDeliveredEvent is emitted at the serving line when kitchen staff marks
// an order delivered.
type OrderDeliveredEvent struct {
	OrderID          uuid.UUID  `json:"order_id"`
	SchoolID         uuid.UUID  `json:"school_id"`
	StudentID        *uuid.UUID `json:"student_id,omitempty"`
	TeacherProfileID *uuid.UUID `json:"teacher_profile_id,omitempty"`
	OrderDate        string     `json:"order_date"`
	NoOrderDelivery  bool       `json:"no_order_delivery"`
	DeliveredBy      uuid.UUID  `json:"delivered_by"`
	DeliveredAt      time.Time  `json:"delivered_at"`
}

// BillingPeriodClosedEvent is emitted when a billing period rolls over so
// statements can be generated downstream.
type BillingPeriodClosedEvent struct {
	BillingPeriodID uuid.UUID          `json:"billing_period_id"`
	SchoolID        uuid.UUID          `json:"school_id"`
	Cycle           enums.BillingCycle `json:"cycle"`
	PeriodStart     string             `json:"period_start"`
	PeriodEnd       string             `json:"period_end"`
	ClosedAt        time.Time          `json:"closed_at"`
}
