package seats

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/internal/licenses"
	"github.com/vantagepos/licensing-backend/pkg/db/models"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/licensekey"
)

type seatsRepository interface {
	Increment(ctx context.Context, licenseID uuid.UUID) (bool, error)
	Decrement(ctx context.Context, licenseID uuid.UUID) error
	Sync(ctx context.Context, licenseID uuid.UUID, actual int) (bool, error)
	IncreaseLimit(ctx context.Context, licenseID uuid.UUID, additional int) (bool, error)
}

type licensesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.License, error)
	FindByKey(ctx context.Context, key string) (*models.License, error)
}

type subscriptionsRepository interface {
	FindCurrentByLicenseID(ctx context.Context, licenseID uuid.UUID) (*models.Subscription, error)
}

// Service is the seat-count ledger. POS clients report user creation and
// deletion against their license key; admins raise limits after user-pack
// purchases. All counter math happens in the database so concurrent clients
// cannot oversell seats.
type Service interface {
	CheckUserCreation(ctx context.Context, key string) (*SeatCheck, error)
	IncrementUserCount(ctx context.Context, key string) (*SeatCount, error)
	DecrementUserCount(ctx context.Context, key string) (*SeatCount, error)
	SyncUserCount(ctx context.Context, key string, actual int) (*SeatCount, error)
	IncreaseUserLimit(ctx context.Context, licenseID uuid.UUID, additional int) (*SeatCount, error)
}

// SeatCheck reports whether one more user fits under the license.
type SeatCheck struct {
	Allowed   bool `json:"allowed"`
	UserCount int  `json:"userCount"`
	UserLimit int  `json:"userLimit"`
}

// SeatCount is the counter state after a ledger operation.
type SeatCount struct {
	UserCount int `json:"userCount"`
	UserLimit int `json:"userLimit"`
}

// ServiceParams configure the seat service.
type ServiceParams struct {
	Repo             seatsRepository
	LicenseRepo      licensesRepository
	SubscriptionRepo subscriptionsRepository
	Now              func() time.Time
}

type service struct {
	repo        seatsRepository
	licenseRepo licensesRepository
	subRepo     subscriptionsRepository
	now         func() time.Time
}

// NewService builds the seat ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("seat repository required")
	}
	if params.LicenseRepo == nil {
		return nil, errors.New("license repository required")
	}
	if params.SubscriptionRepo == nil {
		return nil, errors.New("subscription repository required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:        params.Repo,
		licenseRepo: params.LicenseRepo,
		subRepo:     params.SubscriptionRepo,
		now:         params.Now,
	}, nil
}

// CheckUserCreation answers whether the POS may create another user right
// now: the license must be usable (active or in its grace window) and have
// a free seat. A lapsed license is a denied answer, not an error. The check
// never mutates the counter; clients call IncrementUserCount after the user
// is actually created.
func (s *service) CheckUserCreation(ctx context.Context, key string) (*SeatCheck, error) {
	license, err := s.findByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	sub, err := s.subRepo.FindCurrentByLicenseID(ctx, license.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}

	eval := licenses.Evaluate(license, sub, s.now().UTC())
	return &SeatCheck{
		Allowed:   eval.Valid && license.UserCount < license.UserLimit,
		UserCount: license.UserCount,
		UserLimit: license.UserLimit,
	}, nil
}

// IncrementUserCount claims one seat. When the license is already at its
// limit the claim fails and the counter is untouched.
func (s *service) IncrementUserCount(ctx context.Context, key string) (*SeatCount, error) {
	license, err := s.findByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	applied, err := s.repo.Increment(ctx, license.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment user count")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeLimitExceeded, "user limit reached")
	}
	return s.counts(ctx, license.ID)
}

// DecrementUserCount releases one seat. The counter clamps at zero, so a
// decrement on an empty ledger succeeds without changing anything.
func (s *service) DecrementUserCount(ctx context.Context, key string) (*SeatCount, error) {
	license, err := s.findByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Decrement(ctx, license.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement user count")
	}
	return s.counts(ctx, license.ID)
}

// SyncUserCount reconciles the ledger with the client's actual user count,
// clamped into [0, userLimit]. Syncing the same value twice is a no-op.
func (s *service) SyncUserCount(ctx context.Context, key string, actual int) (*SeatCount, error) {
	license, err := s.findByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Sync(ctx, license.ID, actual); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync user count")
	}
	return s.counts(ctx, license.ID)
}

// IncreaseUserLimit raises the seat limit after an additional-user purchase.
func (s *service) IncreaseUserLimit(ctx context.Context, licenseID uuid.UUID, additional int) (*SeatCount, error) {
	if licenseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license id is required")
	}
	if additional <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "additional users must be positive")
	}

	applied, err := s.repo.IncreaseLimit(ctx, licenseID, additional)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increase user limit")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license not found")
	}
	return s.counts(ctx, licenseID)
}

func (s *service) findByKey(ctx context.Context, key string) (*models.License, error) {
	normalized := licensekey.Normalize(key)
	if !licensekey.IsValid(normalized) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed license key")
	}
	license, err := s.licenseRepo.FindByKey(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup license")
	}
	return license, nil
}

func (s *service) counts(ctx context.Context, licenseID uuid.UUID) (*SeatCount, error) {
	license, err := s.licenseRepo.FindByID(ctx, licenseID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload license")
	}
	return &SeatCount{UserCount: license.UserCount, UserLimit: license.UserLimit}, nil
}
