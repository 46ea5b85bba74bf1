package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	"github.com/lonchera-pe/cantina-backend/pkg/types"
)

// Transaction is an append-only ledger entry. Exactly one of StudentID or
// TeacherProfileID is set. Amount is signed: recharges and refunds are
// positive, purchases negative. Rows are never updated after insert except
// for PaymentStatus transitions out of pending.
type Transaction struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID         uuid.UUID             `gorm:"column:school_id;type:uuid;not null;index"`
	StudentID        *uuid.UUID            `gorm:"column:student_id;type:uuid;index"`
	TeacherProfileID *uuid.UUID            `gorm:"column:teacher_profile_id;type:uuid;index"`
	Type             enums.TransactionType `gorm:"column:type;type:text;not null"`
	Amount           decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentStatus    enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod    enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null"`
	Description      string                `gorm:"column:description;not null"`
	Metadata         types.JSONMap         `gorm:"column:metadata;type:jsonb;serializer:json"`
	// Direct references replace the old search-by-description correlation.
	LunchOrderID          *uuid.UUID `gorm:"column:lunch_order_id;type:uuid;index"`
	RefundOfTransactionID *uuid.UUID `gorm:"column:refund_of_transaction_id;type:uuid;uniqueIndex"`
	RechargeRequestID     *uuid.UUID `gorm:"column:recharge_request_id;type:uuid;uniqueIndex"`
	ActorUserID           uuid.UUID  `gorm:"column:actor_user_id;type:uuid;not null"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// AccountStudent reports whether the entry belongs to a student account.
func (t Transaction) AccountStudent() bool {
	return t.StudentID != nil
}
