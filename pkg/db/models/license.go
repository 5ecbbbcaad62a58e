package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagepos/licensing-backend/pkg/enums"
)

// License is the purchasable unit granting POS usage rights. It is the
// aggregate root for subscriptions, activations, and payments.
type License struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Key             string              `gorm:"column:key;not null;unique"`
	CustomerName    *string             `gorm:"column:customer_name"`
	CustomerPhone   *string             `gorm:"column:customer_phone"`
	LocationName    *string             `gorm:"column:location_name"`
	LocationAddress *string             `gorm:"column:location_address"`
	Status          enums.LicenseStatus `gorm:"column:status;type:license_status;not null;default:'active'"`
	PurchaseDate    time.Time           `gorm:"column:purchase_date;not null"`
	InitialPrice    decimal.Decimal     `gorm:"column:initial_price;type:numeric(12,2);not null"`
	AnnualPrice     decimal.Decimal     `gorm:"column:annual_price;type:numeric(12,2);not null"`
	PricePerUser    decimal.Decimal     `gorm:"column:price_per_user;type:numeric(12,2);not null"`
	IsFreeTrial     bool                `gorm:"column:is_free_trial;not null;default:false"`
	StartDate       time.Time           `gorm:"column:start_date;not null"`
	EndDate         time.Time           `gorm:"column:end_date;not null"`
	UserCount       int                 `gorm:"column:user_count;not null;default:0"`
	UserLimit       int                 `gorm:"column:user_limit;not null;default:1"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
