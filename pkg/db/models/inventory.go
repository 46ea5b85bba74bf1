package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem is a stockable good in the central warehouse.
type InventoryItem struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID *uuid.UUID `gorm:"column:product_id;type:uuid;index"`
	Name      string     `gorm:"column:name;not null"`
	Unit      string     `gorm:"column:unit;not null;default:'unidad'"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// InventoryStock is the current warehouse quantity for an item. Quantity
// never goes negative; fulfilment fails instead.
type InventoryStock struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID    uuid.UUID `gorm:"column:item_id;type:uuid;not null;uniqueIndex"`
	Quantity  int       `gorm:"column:quantity;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
