package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagepos/licensing-backend/pkg/enums"
)

// Payment is an immutable revenue record. User-type payments carry the seat
// count they purchased and authorize a user-limit increase.
type Payment struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LicenseID            uuid.UUID         `gorm:"column:license_id;type:uuid;not null;index"`
	Amount               decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null"`
	PaymentDate          time.Time         `gorm:"column:payment_date;not null"`
	IsAnnualSubscription bool              `gorm:"column:is_annual_subscription;not null;default:false"`
	PaymentType          enums.PaymentType `gorm:"column:payment_type;type:payment_type;not null"`
	AdditionalUsers      *int              `gorm:"column:additional_users"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
}
