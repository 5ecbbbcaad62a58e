package seats

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/pkg/db/models"
)

// Repository mutates the per-license seat counters. Every write is a single
// guarded UPDATE so concurrent callers serialize on the row and can never
// push user_count outside [0, user_limit] or lose an update.
type Repository struct {
	db *gorm.DB
}

// NewRepository returns a seat repository bound to the provided database.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Increment adds one seat if capacity remains. It reports whether the row
// was updated; false means the license is at its limit (or missing).
func (r *Repository) Increment(ctx context.Context, licenseID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.License{}).
		Where("id = ? AND user_count < user_limit", licenseID).
		Update("user_count", gorm.Expr("user_count + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Decrement releases one seat, clamping at zero. Decrementing an empty
// counter is a no-op, not an error.
func (r *Repository) Decrement(ctx context.Context, licenseID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.License{}).
		Where("id = ? AND user_count > 0", licenseID).
		Update("user_count", gorm.Expr("user_count - 1")).Error
}

// Sync overwrites the counter with the client's actual count, clamped into
// [0, user_limit]. Used to correct drift after lost increments/decrements.
func (r *Repository) Sync(ctx context.Context, licenseID uuid.UUID, actual int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.License{}).
		Where("id = ?", licenseID).
		Update("user_count", gorm.Expr(
			"CASE WHEN ? > user_limit THEN user_limit WHEN ? < 0 THEN 0 ELSE ? END",
			actual, actual, actual,
		))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// IncreaseLimit raises the seat limit by the purchased amount.
func (r *Repository) IncreaseLimit(ctx context.Context, licenseID uuid.UUID, additional int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.License{}).
		Where("id = ?", licenseID).
		Update("user_limit", gorm.Expr("user_limit + ?", additional))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
