package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lonchera-pe/cantina-backend/pkg/types"
)

// LunchMenu is the published dish set for one date and category.
type LunchMenu struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID   uuid.UUID        `gorm:"column:school_id;type:uuid;not null;index"`
	CategoryID uuid.UUID        `gorm:"column:category_id;type:uuid;not null;index;uniqueIndex:ux_lunch_menus_category_date,priority:1"`
	MenuDate   time.Time        `gorm:"column:menu_date;type:date;not null;uniqueIndex:ux_lunch_menus_category_date,priority:2"`
	Dishes     types.MenuDishes `gorm:"column:dishes;type:jsonb;serializer:json"`
	Published  bool             `gorm:"column:published;not null;default:false"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
