package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

// TeacherProfile is the cafeteria account a teacher orders against. Shares
// the student ledger semantics: prepaid balance or free-account debt.
type TeacherProfile struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID     uuid.UUID       `gorm:"column:school_id;type:uuid;not null;index"`
	UserID       uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	FullName     string          `gorm:"column:full_name;not null"`
	FreeAccount  bool            `gorm:"column:free_account;not null;default:true"`
	Balance      decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	LimitType    enums.LimitType `gorm:"column:limit_type;type:text;not null;default:'none'"`
	DailyLimit   decimal.Decimal `gorm:"column:daily_limit;type:numeric(12,2);not null;default:0"`
	WeeklyLimit  decimal.Decimal `gorm:"column:weekly_limit;type:numeric(12,2);not null;default:0"`
	MonthlyLimit decimal.Decimal `gorm:"column:monthly_limit;type:numeric(12,2);not null;default:0"`
	IsActive     bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// LimitCap returns the cap matching the configured limit type.
func (t TeacherProfile) LimitCap() decimal.Decimal {
	switch t.LimitType {
	case enums.LimitTypeDaily:
		return t.DailyLimit
	case enums.LimitTypeWeekly:
		return t.WeeklyLimit
	case enums.LimitTypeMonthly:
		return t.MonthlyLimit
	}
	return decimal.Zero
}
