package licenses

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
	pkgpagination "github.com/vantagepos/licensing-backend/pkg/pagination"
)

// licenseSortColumns is the sortBy allow-list for the licenses listing.
var licenseSortColumns = []string{"created_at", "purchase_date", "end_date", "customer_name", "status", "user_count"}

const defaultLicenseSort = "created_at"

type ListParams struct {
	Status *enums.LicenseStatus
	Search string
	pkgpagination.Params
}

type ListResult struct {
	Items []ListItem         `json:"items"`
	Meta  pkgpagination.Meta `json:"meta"`
}

type ListItem struct {
	ID              uuid.UUID           `json:"id"`
	Key             string              `json:"key"`
	CustomerName    *string             `json:"customerName,omitempty"`
	CustomerPhone   *string             `json:"customerPhone,omitempty"`
	LocationName    *string             `json:"locationName,omitempty"`
	LocationAddress *string             `json:"locationAddress,omitempty"`
	Status          enums.LicenseStatus `json:"status"`
	PurchaseDate    time.Time           `json:"purchaseDate"`
	InitialPrice    decimal.Decimal     `json:"initialPrice"`
	AnnualPrice     decimal.Decimal     `json:"annualPrice"`
	PricePerUser    decimal.Decimal     `json:"pricePerUser"`
	IsFreeTrial     bool                `json:"isFreeTrial"`
	StartDate       time.Time           `json:"startDate"`
	EndDate         time.Time           `json:"endDate"`
	UserCount       int                 `json:"userCount"`
	UserLimit       int                 `json:"userLimit"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

type listQuery struct {
	status *enums.LicenseStatus
	search string
	page   pkgpagination.Params
}

func pageMeta(p pkgpagination.Params, total int64) pkgpagination.Meta {
	return pkgpagination.NewMeta(p.Page, p.PageSize, total)
}

func toListItem(m models.License) ListItem {
	return ListItem{
		ID:              m.ID,
		Key:             m.Key,
		CustomerName:    m.CustomerName,
		CustomerPhone:   m.CustomerPhone,
		LocationName:    m.LocationName,
		LocationAddress: m.LocationAddress,
		Status:          m.Status,
		PurchaseDate:    m.PurchaseDate,
		InitialPrice:    m.InitialPrice,
		AnnualPrice:     m.AnnualPrice,
		PricePerUser:    m.PricePerUser,
		IsFreeTrial:     m.IsFreeTrial,
		StartDate:       m.StartDate,
		EndDate:         m.EndDate,
		UserCount:       m.UserCount,
		UserLimit:       m.UserLimit,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
