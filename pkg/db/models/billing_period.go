package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

// BillingPeriod groups free-account debt into a weekly or monthly cycle.
type BillingPeriod struct {
	ID        uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID  uuid.UUID                 `gorm:"column:school_id;type:uuid;not null;index;uniqueIndex:ux_billing_periods_school_start,priority:1"`
	Cycle     enums.BillingCycle        `gorm:"column:cycle;type:text;not null"`
	StartDate time.Time                 `gorm:"column:start_date;type:date;not null;uniqueIndex:ux_billing_periods_school_start,priority:2"`
	EndDate   time.Time                 `gorm:"column:end_date;type:date;not null"`
	Status    enums.BillingPeriodStatus `gorm:"column:status;type:text;not null;default:'open'"`
	ClosedAt  *time.Time                `gorm:"column:closed_at"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}
