package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

// LunchCategory is a priced (or free) menu tier, e.g. "Menú escolar" or
// "Menú docente". A nil price means orders from it never touch the ledger.
type LunchCategory struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID  uuid.UUID          `gorm:"column:school_id;type:uuid;not null;index"`
	Name      string             `gorm:"column:name;not null"`
	Audience  enums.MenuAudience `gorm:"column:audience;type:text;not null;default:'all'"`
	Price     *decimal.Decimal   `gorm:"column:price;type:numeric(12,2)"`
	IsActive  bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
