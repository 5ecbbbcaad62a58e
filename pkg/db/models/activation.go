package models

import (
	"time"

	"github.com/google/uuid"
)

// Activation binds a license to a piece of hardware. Deactivation flips
// IsActive instead of deleting, so reactivation keeps history.
type Activation struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LicenseID      uuid.UUID  `gorm:"column:license_id;type:uuid;not null;index;uniqueIndex:idx_activations_license_hardware"`
	HardwareID     string     `gorm:"column:hardware_id;size:255;not null;uniqueIndex:idx_activations_license_hardware"`
	MachineName    *string    `gorm:"column:machine_name"`
	ActivatedAt    time.Time  `gorm:"column:activated_at;not null"`
	LastValidation *time.Time `gorm:"column:last_validation"`
	IsActive       bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
