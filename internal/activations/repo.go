package activations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/pkg/db/models"
	pkgpagination "github.com/vantagepos/licensing-backend/pkg/pagination"
)

// Repository exposes activation persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an activation repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an activation row.
func (r *Repository) Create(ctx context.Context, activation *models.Activation) (*models.Activation, error) {
	if err := r.db.WithContext(ctx).Create(activation).Error; err != nil {
		return nil, err
	}
	return activation, nil
}

// FindByID loads an activation by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Activation, error) {
	var row models.Activation
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByLicenseAndHardware loads the unique binding for a license and device.
func (r *Repository) FindByLicenseAndHardware(ctx context.Context, licenseID uuid.UUID, hardwareID string) (*models.Activation, error) {
	var row models.Activation
	if err := r.db.WithContext(ctx).
		First(&row, "license_id = ? AND hardware_id = ?", licenseID, hardwareID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns a page of activations plus the unpaged total.
func (r *Repository) List(ctx context.Context, opts ListQuery) ([]models.Activation, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Activation{})
	if opts.LicenseID != nil {
		query = query.Where("license_id = ?", *opts.LicenseID)
	}
	if opts.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Activation
	if err := query.
		Order(opts.Page.OrderClause()).
		Offset(opts.Page.Offset()).
		Limit(opts.Page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Update persists the mutable activation fields.
func (r *Repository) Update(ctx context.Context, activation *models.Activation) error {
	return r.db.WithContext(ctx).Save(activation).Error
}

// TouchValidation records a validation heartbeat for an active binding.
// Missing or inactive bindings are left alone; the heartbeat is telemetry,
// not an authorization check.
func (r *Repository) TouchValidation(ctx context.Context, licenseID uuid.UUID, hardwareID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Activation{}).
		Where("license_id = ? AND hardware_id = ? AND is_active = ?", licenseID, hardwareID, true).
		Update("last_validation", at).Error
}

// DeactivateAllForLicense flips every binding for the license to inactive.
// Used when an admin reactivates a license and wants devices to re-activate.
func (r *Repository) DeactivateAllForLicense(ctx context.Context, licenseID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Activation{}).
		Where("license_id = ? AND is_active = ?", licenseID, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

// ListQuery filters the activation listing.
type ListQuery struct {
	LicenseID  *uuid.UUID
	ActiveOnly bool
	Page       pkgpagination.Params
}
