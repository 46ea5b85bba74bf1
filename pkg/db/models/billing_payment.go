package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/lonchera-pe/cantina-backend/pkg/db/types"
	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

// BillingPayment records a settlement of free-account debt within a period.
// The covered transaction ids are the pending purchase entries the payment
// marked paid; debt itself is always derived from the ledger, never stored
// here.
type BillingPayment struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID              uuid.UUID           `gorm:"column:school_id;type:uuid;not null;index"`
	PeriodID              uuid.UUID           `gorm:"column:period_id;type:uuid;not null;index"`
	StudentID             *uuid.UUID          `gorm:"column:student_id;type:uuid;index"`
	TeacherProfileID      *uuid.UUID          `gorm:"column:teacher_profile_id;type:uuid;index"`
	Amount                decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentMethod         enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	CoveredTransactionIDs dbtypes.UUIDArray   `gorm:"column:covered_transaction_ids;type:uuid[]"`
	ReceivedBy            uuid.UUID           `gorm:"column:received_by;type:uuid;not null"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
}
