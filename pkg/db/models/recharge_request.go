package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

// RechargeRequest is a parent-submitted voucher awaiting staff review.
// Approved and rejected requests are immutable.
type RechargeRequest struct {
	ID               uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID         uuid.UUID                   `gorm:"column:school_id;type:uuid;not null;index"`
	StudentID        *uuid.UUID                  `gorm:"column:student_id;type:uuid;index"`
	TeacherProfileID *uuid.UUID                  `gorm:"column:teacher_profile_id;type:uuid;index"`
	SubmittedBy      uuid.UUID                   `gorm:"column:submitted_by;type:uuid;not null"`
	Amount           decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentMethod    enums.PaymentMethod         `gorm:"column:payment_method;type:text;not null"`
	ReferenceCode    *string                     `gorm:"column:reference_code"`
	VoucherKey       *string                     `gorm:"column:voucher_key"`
	Notes            *string                     `gorm:"column:notes"`
	Status           enums.RechargeRequestStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	RejectionReason  *string                     `gorm:"column:rejection_reason"`
	ExpiresAt        time.Time                   `gorm:"column:expires_at;not null"`
	ReviewedBy       *uuid.UUID                  `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt       *time.Time                  `gorm:"column:reviewed_at"`
	TransactionID    *uuid.UUID                  `gorm:"column:transaction_id;type:uuid"`
	CreatedAt        time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
