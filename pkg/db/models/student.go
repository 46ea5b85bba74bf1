package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

// Student is a cafeteria account holder. Prepaid accounts consume Balance;
// "Cuenta Libre" accounts (FreeAccount=true) accrue debt instead and Balance
// stays zero.
type Student struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID       uuid.UUID       `gorm:"column:school_id;type:uuid;not null;index"`
	GuardianUserID uuid.UUID       `gorm:"column:guardian_user_id;type:uuid;not null;index"`
	FullName       string          `gorm:"column:full_name;not null"`
	Grade          *string         `gorm:"column:grade"`
	Section        *string         `gorm:"column:section"`
	FreeAccount    bool            `gorm:"column:free_account;not null;default:false"`
	Balance        decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	LimitType      enums.LimitType `gorm:"column:limit_type;type:text;not null;default:'none'"`
	DailyLimit     decimal.Decimal `gorm:"column:daily_limit;type:numeric(12,2);not null;default:0"`
	WeeklyLimit    decimal.Decimal `gorm:"column:weekly_limit;type:numeric(12,2);not null;default:0"`
	MonthlyLimit   decimal.Decimal `gorm:"column:monthly_limit;type:numeric(12,2);not null;default:0"`
	PhotoKey       *string         `gorm:"column:photo_key"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// LimitCap returns the cap matching the configured limit type, zero when no
// limit applies.
func (s Student) LimitCap() decimal.Decimal {
	switch s.LimitType {
	case enums.LimitTypeDaily:
		return s.DailyLimit
	case enums.LimitTypeWeekly:
		return s.WeeklyLimit
	case enums.LimitTypeMonthly:
		return s.MonthlyLimit
	}
	return decimal.Zero
}
