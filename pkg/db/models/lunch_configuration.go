package models

import (
	"time"

	"github.com/google/uuid"
)

// LunchConfiguration holds the per-school deadlines that gate order
// placement, cancellation and staff modifications. Times are "HH:MM" strings
// interpreted in the school's time zone.
type LunchConfiguration struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID           uuid.UUID `gorm:"column:school_id;type:uuid;not null;uniqueIndex"`
	OrderDeadline      string    `gorm:"column:order_deadline;not null;default:'08:30'"`
	CancelDeadline     string    `gorm:"column:cancel_deadline;not null;default:'08:30'"`
	ModificationCutoff string    `gorm:"column:modification_cutoff;not null;default:'09:00'"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
