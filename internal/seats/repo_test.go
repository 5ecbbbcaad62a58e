package seats

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
	"github.com/vantagepos/licensing-backend/pkg/licensekey"
)

func setupSeatsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	licenses := `
CREATE TABLE IF NOT EXISTS licenses (
  id TEXT PRIMARY KEY,
  key TEXT NOT NULL UNIQUE,
  customer_name TEXT,
  customer_phone TEXT,
  location_name TEXT,
  location_address TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  purchase_date DATETIME NOT NULL,
  initial_price NUMERIC NOT NULL DEFAULT 0,
  annual_price NUMERIC NOT NULL DEFAULT 0,
  price_per_user NUMERIC NOT NULL DEFAULT 0,
  is_free_trial INTEGER NOT NULL DEFAULT 0,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  user_count INTEGER NOT NULL DEFAULT 0,
  user_limit INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(licenses).Error)
	return db
}

func newLicense(t *testing.T, db *gorm.DB, count, limit int) *models.License {
	t.Helper()

	key, err := licensekey.Generate()
	require.NoError(t, err)

	now := time.Now().UTC()
	license := &models.License{
		ID:           uuid.New(),
		Key:          key,
		Status:       enums.LicenseStatusActive,
		PurchaseDate: now,
		StartDate:    now,
		EndDate:      now.AddDate(1, 0, 0),
		UserCount:    count,
		UserLimit:    limit,
	}
	require.NoError(t, db.Create(license).Error)
	return license
}

func seatCounters(t *testing.T, db *gorm.DB, id uuid.UUID) (int, int) {
	t.Helper()

	var license models.License
	require.NoError(t, db.First(&license, "id = ?", id).Error)
	return license.UserCount, license.UserLimit
}

func TestRepositoryIncrement(t *testing.T) {
	db := setupSeatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	license := newLicense(t, db, 3, 5)

	ok, err := repo.Increment(ctx, license.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	count, _ := seatCounters(t, db, license.ID)
	assert.Equal(t, 4, count)
}

func TestRepositoryIncrementStopsAtLimit(t *testing.T) {
	db := setupSeatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	license := newLicense(t, db, 5, 5)

	ok, err := repo.Increment(ctx, license.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	count, _ := seatCounters(t, db, license.ID)
	assert.Equal(t, 5, count)
}

func TestRepositoryIncrementMissingLicense(t *testing.T) {
	db := setupSeatsTestDB(t)
	repo := NewRepository(db)

	ok, err := repo.Increment(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryDecrementClampsAtZero(t *testing.T) {
	db := setupSeatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	license := newLicense(t, db, 1, 5)

	require.NoError(t, repo.Decrement(ctx, license.ID))
	require.NoError(t, repo.Decrement(ctx, license.ID))
	require.NoError(t, repo.Decrement(ctx, license.ID))

	count, _ := seatCounters(t, db, license.ID)
	assert.Equal(t, 0, count)
}

func TestRepositorySyncClamps(t *testing.T) {
	db := setupSeatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	tests := []struct {
		name   string
		actual int
		want   int
	}{
		{"in range", 3, 3},
		{"above limit", 40, 5},
		{"negative", -7, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			license := newLicense(t, db, 1, 5)

			ok, err := repo.Sync(ctx, license.ID, tc.actual)
			require.NoError(t, err)
			assert.True(t, ok)

			count, _ := seatCounters(t, db, license.ID)
			assert.Equal(t, tc.want, count)
		})
	}
}

func TestRepositoryConcurrentIncrementDecrement(t *testing.T) {
	db := setupSeatsTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewRepository(db)
	ctx := context.Background()

	license := newLicense(t, db, 10, 100)

	const workers = 8
	const opsPerWorker = 5

	var wg sync.WaitGroup
	errs := make(chan error, workers*opsPerWorker*2)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerWorker; j++ {
				ok, err := repo.Increment(ctx, license.ID)
				if err != nil {
					errs <- err
					return
				}
				if !ok {
					errs <- fmt.Errorf("increment refused below the limit")
					return
				}
				if err := repo.Decrement(ctx, license.ID); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Balanced increments and decrements must leave the counter untouched.
	count, limit := seatCounters(t, db, license.ID)
	assert.Equal(t, 10, count)
	assert.Equal(t, 100, limit)
}

func TestRepositoryIncreaseLimit(t *testing.T) {
	db := setupSeatsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	license := newLicense(t, db, 5, 5)

	ok, err := repo.IncreaseLimit(ctx, license.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	count, limit := seatCounters(t, db, license.ID)
	assert.Equal(t, 5, count)
	assert.Equal(t, 8, limit)

	// The freed capacity is immediately claimable, and only the freed
	// capacity: three claims succeed, the fourth is refused.
	for i := 0; i < 3; i++ {
		ok, err = repo.Increment(ctx, license.ID)
		require.NoError(t, err)
		assert.True(t, ok, "claim %d should fit under the raised limit", i+1)
	}
	ok, err = repo.Increment(ctx, license.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	count, limit = seatCounters(t, db, license.ID)
	assert.Equal(t, 8, count)
	assert.Equal(t, 8, limit)
}
