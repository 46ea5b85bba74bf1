package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a warehouse-level catalog item the logistics module tracks.
type Product struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code      string          `gorm:"column:code;not null;uniqueIndex"`
	Name      string          `gorm:"column:name;not null"`
	Unit      string          `gorm:"column:unit;not null;default:'unidad'"`
	BasePrice decimal.Decimal `gorm:"column:base_price;type:numeric(12,2);not null;default:0"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductSchoolPrice overrides the base price for one school.
type ProductSchoolPrice struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_product_school_prices,priority:1"`
	SchoolID  uuid.UUID       `gorm:"column:school_id;type:uuid;not null;uniqueIndex:ux_product_school_prices,priority:2"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
