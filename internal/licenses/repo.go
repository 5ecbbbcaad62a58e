package licenses

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
)

// Repository exposes license persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a license repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithTx inserts a new license row inside the supplied transaction.
func (r *Repository) CreateWithTx(tx *gorm.DB, license *models.License) (*models.License, error) {
	if err := tx.Create(license).Error; err != nil {
		return nil, err
	}
	return license, nil
}

// FindByID loads a license by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	var row models.License
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// FindByKey loads a license by its canonical key.
func (r *Repository) FindByKey(ctx context.Context, key string) (*models.License, error) {
	var row models.License
	if err := r.db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns a page of licenses plus the unpaged total.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.License, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.License{})
	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	if opts.search != "" {
		pattern := "%" + opts.search + "%"
		query = query.Where(
			"key ILIKE ? OR customer_name ILIKE ? OR location_name ILIKE ?",
			pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.License
	if err := query.
		Order(opts.page.OrderClause()).
		Offset(opts.page.Offset()).
		Limit(opts.page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Update persists the mutable license fields.
func (r *Repository) Update(ctx context.Context, license *models.License) error {
	return r.db.WithContext(ctx).Save(license).Error
}

// UpdateWithTx persists the license inside a transaction.
func (r *Repository) UpdateWithTx(tx *gorm.DB, license *models.License) error {
	return tx.Save(license).Error
}

// UpdateStatus transitions the stored license status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LicenseStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.License{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdateStatusWithTx transitions the stored status inside a transaction.
func (r *Repository) UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.LicenseStatus) error {
	return tx.Model(&models.License{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// FindExpiryCandidates returns licenses still stored as active whose end date
// has passed. The sweep re-evaluates each against its current subscription
// before transitioning.
func (r *Repository) FindExpiryCandidates(ctx context.Context, now time.Time) ([]models.License, error) {
	var rows []models.License
	if err := r.db.WithContext(ctx).
		Where("status = ? AND end_date <= ?", enums.LicenseStatusActive, now).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
