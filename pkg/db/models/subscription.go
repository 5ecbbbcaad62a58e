package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagepos/licensing-backend/pkg/enums"
)

// Subscription tracks one billing period of a license. Exactly one row is
// current per license; renewals append history.
type Subscription struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LicenseID      uuid.UUID                `gorm:"column:license_id;type:uuid;not null;index"`
	StartDate      time.Time                `gorm:"column:start_date;not null"`
	EndDate        time.Time                `gorm:"column:end_date;not null"`
	AnnualFee      decimal.Decimal          `gorm:"column:annual_fee;type:numeric(12,2);not null"`
	Status         enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	GracePeriodEnd *time.Time               `gorm:"column:grace_period_end"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
