package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
	pkgpagination "github.com/vantagepos/licensing-backend/pkg/pagination"
)

// Repository exposes payment persistence operations. Payment rows are
// append-only.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a payment repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a payment row.
func (r *Repository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

// CreateWithTx inserts a payment row inside the supplied transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, payment *models.Payment) error {
	return tx.Create(payment).Error
}

// FindByID loads a payment by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var row models.Payment
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns a page of payments plus the unpaged total.
func (r *Repository) List(ctx context.Context, opts ListQuery) ([]models.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if opts.LicenseID != nil {
		query = query.Where("license_id = ?", *opts.LicenseID)
	}
	if opts.Type != nil {
		query = query.Where("payment_type = ?", *opts.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Payment
	if err := query.
		Order(opts.Page.OrderClause()).
		Offset(opts.Page.Offset()).
		Limit(opts.Page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SumByType aggregates revenue per payment type.
func (r *Repository) SumByType(ctx context.Context) (map[enums.PaymentType]decimal.Decimal, error) {
	type bucket struct {
		PaymentType enums.PaymentType
		Total       decimal.Decimal
	}
	var buckets []bucket
	if err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("payment_type, COALESCE(SUM(amount), 0) AS total").
		Group("payment_type").
		Scan(&buckets).Error; err != nil {
		return nil, err
	}
	out := make(map[enums.PaymentType]decimal.Decimal, len(buckets))
	for _, b := range buckets {
		out[b.PaymentType] = b.Total
	}
	return out, nil
}

// ListQuery filters the payment listing.
type ListQuery struct {
	LicenseID *uuid.UUID
	Type      *enums.PaymentType
	Page      pkgpagination.Params
}
