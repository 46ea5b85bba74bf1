package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

// SupplyRequest is a school's ask against the central warehouse.
type SupplyRequest struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID    uuid.UUID                 `gorm:"column:school_id;type:uuid;not null;index"`
	RequestedBy uuid.UUID                 `gorm:"column:requested_by;type:uuid;not null"`
	Status      enums.SupplyRequestStatus `gorm:"column:status;type:text;not null;default:'requested'"`
	Notes       *string                   `gorm:"column:notes"`
	ReviewedBy  *uuid.UUID                `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt  *time.Time                `gorm:"column:reviewed_at"`
	FulfilledAt *time.Time                `gorm:"column:fulfilled_at"`
	Items       []SupplyRequestItem       `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// SupplyRequestItem is one line of a supply request.
type SupplyRequestItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RequestID uuid.UUID `gorm:"column:request_id;type:uuid;not null;index"`
	ItemID    uuid.UUID `gorm:"column:item_id;type:uuid;not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
}
