package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lonchera-pe/cantina-backend/pkg/enums"
	"github.com/lonchera-pe/cantina-backend/pkg/types"
)

// LunchOrder is the per-day order for one account. The partial unique
// indexes on (student_id, order_date) and (teacher_profile_id, order_date)
// make the one-order-per-day rule a storage guarantee rather than a
// read-then-insert check.
type LunchOrder struct {
	ID                uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID          uuid.UUID              `gorm:"column:school_id;type:uuid;not null;index"`
	StudentID         *uuid.UUID             `gorm:"column:student_id;type:uuid;index"`
	TeacherProfileID  *uuid.UUID             `gorm:"column:teacher_profile_id;type:uuid;index"`
	OrderDate         time.Time              `gorm:"column:order_date;type:date;not null;index"`
	CategoryID        uuid.UUID              `gorm:"column:category_id;type:uuid;not null"`
	MenuID            *uuid.UUID             `gorm:"column:menu_id;type:uuid"`
	Status            enums.LunchOrderStatus `gorm:"column:status;type:text;not null;default:'confirmed'"`
	Addons            types.OrderAddons      `gorm:"column:addons;type:jsonb;serializer:json"`
	IsNoOrderDelivery bool                   `gorm:"column:is_no_order_delivery;not null;default:false"`
	Justification     *string                `gorm:"column:justification"`
	TransactionID     *uuid.UUID             `gorm:"column:transaction_id;type:uuid"`
	PlacedBy          uuid.UUID              `gorm:"column:placed_by;type:uuid;not null"`
	DeliveredAt       *time.Time             `gorm:"column:delivered_at"`
	DeliveredBy       *uuid.UUID             `gorm:"column:delivered_by;type:uuid"`
	CancelledAt       *time.Time             `gorm:"column:cancelled_at"`
	CancelledBy       *uuid.UUID             `gorm:"column:cancelled_by;type:uuid"`
	CreatedAt         time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
