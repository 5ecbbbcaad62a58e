package seats

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
)

const testKey = "AAAA-BBBB-CCCC-DDDD-EEEE"

type fakeSeatRepo struct {
	license *models.License
}

func (f *fakeSeatRepo) Increment(ctx context.Context, licenseID uuid.UUID) (bool, error) {
	if f.license == nil || f.license.ID != licenseID {
		return false, nil
	}
	if f.license.UserCount >= f.license.UserLimit {
		return false, nil
	}
	f.license.UserCount++
	return true, nil
}

func (f *fakeSeatRepo) Decrement(ctx context.Context, licenseID uuid.UUID) error {
	if f.license != nil && f.license.ID == licenseID && f.license.UserCount > 0 {
		f.license.UserCount--
	}
	return nil
}

func (f *fakeSeatRepo) Sync(ctx context.Context, licenseID uuid.UUID, actual int) (bool, error) {
	if f.license == nil || f.license.ID != licenseID {
		return false, nil
	}
	switch {
	case actual > f.license.UserLimit:
		f.license.UserCount = f.license.UserLimit
	case actual < 0:
		f.license.UserCount = 0
	default:
		f.license.UserCount = actual
	}
	return true, nil
}

func (f *fakeSeatRepo) IncreaseLimit(ctx context.Context, licenseID uuid.UUID, additional int) (bool, error) {
	if f.license == nil || f.license.ID != licenseID {
		return false, nil
	}
	f.license.UserLimit += additional
	return true, nil
}

type fakeLicenseLookup struct {
	license *models.License
}

func (f *fakeLicenseLookup) FindByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	if f.license == nil || f.license.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.license, nil
}

func (f *fakeLicenseLookup) FindByKey(ctx context.Context, key string) (*models.License, error) {
	if f.license == nil || f.license.Key != key {
		return nil, gorm.ErrRecordNotFound
	}
	return f.license, nil
}

type fakeSubLookup struct {
	sub *models.Subscription
}

func (f *fakeSubLookup) FindCurrentByLicenseID(ctx context.Context, licenseID uuid.UUID) (*models.Subscription, error) {
	if f.sub == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.sub, nil
}

func newSeatService(t *testing.T, license *models.License, sub *models.Subscription, now time.Time) (Service, *fakeSeatRepo) {
	t.Helper()
	repo := &fakeSeatRepo{license: license}
	svc, err := NewService(ServiceParams{
		Repo:             repo,
		LicenseRepo:      &fakeLicenseLookup{license: license},
		SubscriptionRepo: &fakeSubLookup{sub: sub},
		Now:              func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo
}

func activeLicense(now time.Time, count, limit int) *models.License {
	return &models.License{
		ID:        uuid.New(),
		Key:       testKey,
		Status:    enums.LicenseStatusActive,
		EndDate:   now.Add(100 * 24 * time.Hour),
		UserCount: count,
		UserLimit: limit,
	}
}

func TestCheckUserCreation(t *testing.T) {
	now := time.Now().UTC()

	t.Run("allowed under limit", func(t *testing.T) {
		svc, _ := newSeatService(t, activeLicense(now, 3, 5), nil, now)
		check, err := svc.CheckUserCreation(context.Background(), testKey)
		if err != nil {
			t.Fatalf("CheckUserCreation: %v", err)
		}
		if !check.Allowed || check.UserCount != 3 || check.UserLimit != 5 {
			t.Fatalf("check = %+v", check)
		}
	})

	t.Run("denied at limit", func(t *testing.T) {
		svc, _ := newSeatService(t, activeLicense(now, 5, 5), nil, now)
		check, err := svc.CheckUserCreation(context.Background(), testKey)
		if err != nil {
			t.Fatalf("CheckUserCreation: %v", err)
		}
		if check.Allowed {
			t.Fatalf("check = %+v, want denied", check)
		}
	})

	t.Run("expired license is denied, not an error", func(t *testing.T) {
		lic := activeLicense(now, 0, 5)
		lic.EndDate = now.Add(-24 * time.Hour)
		svc, _ := newSeatService(t, lic, nil, now)
		check, err := svc.CheckUserCreation(context.Background(), testKey)
		if err != nil {
			t.Fatalf("CheckUserCreation: %v", err)
		}
		if check.Allowed {
			t.Fatalf("check = %+v, want denied for an expired license", check)
		}
		if check.UserCount != 0 || check.UserLimit != 5 {
			t.Fatalf("check = %+v", check)
		}
	})

	t.Run("grace period license is usable", func(t *testing.T) {
		lic := activeLicense(now, 0, 5)
		lic.EndDate = now.Add(-24 * time.Hour)
		graceEnd := now.Add(6 * 24 * time.Hour)
		sub := &models.Subscription{
			LicenseID:      lic.ID,
			EndDate:        lic.EndDate,
			GracePeriodEnd: &graceEnd,
		}
		svc, _ := newSeatService(t, lic, sub, now)
		check, err := svc.CheckUserCreation(context.Background(), testKey)
		if err != nil {
			t.Fatalf("CheckUserCreation: %v", err)
		}
		if !check.Allowed {
			t.Fatalf("check = %+v", check)
		}
	})

	t.Run("unknown key", func(t *testing.T) {
		svc, _ := newSeatService(t, nil, nil, now)
		_, err := svc.CheckUserCreation(context.Background(), testKey)
		if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})
}

func TestIncrementUserCount(t *testing.T) {
	now := time.Now().UTC()

	t.Run("claims a seat", func(t *testing.T) {
		svc, repo := newSeatService(t, activeLicense(now, 4, 5), nil, now)
		count, err := svc.IncrementUserCount(context.Background(), testKey)
		if err != nil {
			t.Fatalf("IncrementUserCount: %v", err)
		}
		if count.UserCount != 5 {
			t.Fatalf("count = %+v", count)
		}
		if repo.license.UserCount != 5 {
			t.Fatalf("stored count = %d", repo.license.UserCount)
		}
	})

	t.Run("fails at limit without mutating", func(t *testing.T) {
		svc, repo := newSeatService(t, activeLicense(now, 5, 5), nil, now)
		_, err := svc.IncrementUserCount(context.Background(), testKey)
		if !pkgerrors.Is(err, pkgerrors.CodeLimitExceeded) {
			t.Fatalf("expected limit exceeded, got %v", err)
		}
		if repo.license.UserCount != 5 {
			t.Fatalf("counter moved on failed increment: %d", repo.license.UserCount)
		}
	})
}

func TestDecrementUserCountClampsAtZero(t *testing.T) {
	now := time.Now().UTC()
	svc, repo := newSeatService(t, activeLicense(now, 0, 5), nil, now)

	count, err := svc.DecrementUserCount(context.Background(), testKey)
	if err != nil {
		t.Fatalf("DecrementUserCount: %v", err)
	}
	if count.UserCount != 0 || repo.license.UserCount != 0 {
		t.Fatalf("count = %+v", count)
	}
}

func TestSyncUserCount(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name   string
		actual int
		want   int
	}{
		{"in range", 3, 3},
		{"above limit clamps", 12, 5},
		{"negative clamps to zero", -2, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newSeatService(t, activeLicense(now, 1, 5), nil, now)
			count, err := svc.SyncUserCount(context.Background(), testKey, tc.actual)
			if err != nil {
				t.Fatalf("SyncUserCount: %v", err)
			}
			if count.UserCount != tc.want {
				t.Fatalf("count = %d, want %d", count.UserCount, tc.want)
			}
		})
	}

	t.Run("idempotent", func(t *testing.T) {
		svc, _ := newSeatService(t, activeLicense(now, 1, 5), nil, now)
		if _, err := svc.SyncUserCount(context.Background(), testKey, 3); err != nil {
			t.Fatalf("first sync: %v", err)
		}
		count, err := svc.SyncUserCount(context.Background(), testKey, 3)
		if err != nil {
			t.Fatalf("second sync: %v", err)
		}
		if count.UserCount != 3 {
			t.Fatalf("count = %d", count.UserCount)
		}
	})
}

func TestIncreaseUserLimit(t *testing.T) {
	now := time.Now().UTC()
	lic := activeLicense(now, 5, 5)
	svc, repo := newSeatService(t, lic, nil, now)

	count, err := svc.IncreaseUserLimit(context.Background(), lic.ID, 3)
	if err != nil {
		t.Fatalf("IncreaseUserLimit: %v", err)
	}
	if count.UserLimit != 8 || repo.license.UserLimit != 8 {
		t.Fatalf("limit = %+v", count)
	}

	if _, err := svc.IncreaseUserLimit(context.Background(), lic.ID, 0); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero, got %v", err)
	}
	if _, err := svc.IncreaseUserLimit(context.Background(), uuid.New(), 2); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
