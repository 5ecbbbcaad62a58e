package subscriptions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
	pkgpagination "github.com/vantagepos/licensing-backend/pkg/pagination"
)

// Repository exposes subscription persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a subscription repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithTx inserts a subscription row inside the supplied transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, sub *models.Subscription) error {
	return tx.Create(sub).Error
}

// FindByID loads a subscription by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var row models.Subscription
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindCurrentByLicenseID returns the license's most recent subscription
// period. Renewals append rows, so the latest end date is the current one.
func (r *Repository) FindCurrentByLicenseID(ctx context.Context, licenseID uuid.UUID) (*models.Subscription, error) {
	var row models.Subscription
	if err := r.db.WithContext(ctx).
		Where("license_id = ?", licenseID).
		Order("end_date DESC").
		First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns a page of subscriptions plus the unpaged total.
func (r *Repository) List(ctx context.Context, opts ListQuery) ([]models.Subscription, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Subscription{})
	if opts.LicenseID != nil {
		query = query.Where("license_id = ?", *opts.LicenseID)
	}
	if opts.Status != nil {
		query = query.Where("status = ?", *opts.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Subscription
	if err := query.
		Order(opts.Page.OrderClause()).
		Offset(opts.Page.Offset()).
		Limit(opts.Page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Update persists the mutable subscription fields.
func (r *Repository) Update(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

// UpdateWithTx persists the subscription inside a transaction.
func (r *Repository) UpdateWithTx(tx *gorm.DB, sub *models.Subscription) error {
	return tx.Save(sub).Error
}

// UpdateStatusWithTx transitions the stored status inside a transaction.
func (r *Repository) UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.SubscriptionStatus) error {
	return tx.Model(&models.Subscription{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// FindExpiryCandidates returns subscriptions not yet stored as expired whose
// end date has passed. The sweep decides the target state per row.
func (r *Repository) FindExpiryCandidates(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var rows []models.Subscription
	if err := r.db.WithContext(ctx).
		Where("status <> ? AND end_date <= ?", enums.SubscriptionStatusExpired, now).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListQuery filters the subscription listing.
type ListQuery struct {
	LicenseID *uuid.UUID
	Status    *enums.SubscriptionStatus
	Page      pkgpagination.Params
}
