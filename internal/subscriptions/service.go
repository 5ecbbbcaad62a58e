package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	pkgpagination "github.com/vantagepos/licensing-backend/pkg/pagination"
)

const day = 24 * time.Hour

// subscriptionSortColumns is the sortBy allow-list for the subscriptions listing.
var subscriptionSortColumns = []string{"created_at", "start_date", "end_date", "status", "annual_fee"}

const defaultSubscriptionSort = "end_date"

type subscriptionsRepository interface {
	CreateWithTx(tx *gorm.DB, sub *models.Subscription) error
	FindCurrentByLicenseID(ctx context.Context, licenseID uuid.UUID) (*models.Subscription, error)
	List(ctx context.Context, opts ListQuery) ([]models.Subscription, int64, error)
	UpdateWithTx(tx *gorm.DB, sub *models.Subscription) error
}

type licensesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.License, error)
	UpdateWithTx(tx *gorm.DB, license *models.License) error
}

type paymentsRepository interface {
	CreateWithTx(tx *gorm.DB, payment *models.Payment) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes renewal and listing semantics for subscriptions.
type Service interface {
	RenewSubscription(ctx context.Context, licenseID uuid.UUID, input RenewInput) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context, params ListParams) (*ListResult, error)
}

// RenewInput controls how the next period is anchored. FromNow starts the
// year at the renewal instant instead of extending the stored end date.
type RenewInput struct {
	FromNow       bool
	RecordPayment bool
}

// ListParams filters and pages the subscription listing.
type ListParams struct {
	LicenseID *uuid.UUID
	Status    *enums.SubscriptionStatus
	pkgpagination.Params
}

// ListResult is a page of subscriptions.
type ListResult struct {
	Items []models.Subscription `json:"items"`
	Meta  pkgpagination.Meta    `json:"meta"`
}

// ServiceParams configure the subscription service.
type ServiceParams struct {
	Repo            subscriptionsRepository
	LicenseRepo     licensesRepository
	PaymentRepo     paymentsRepository
	DB              txRunner
	GracePeriodDays int
	Now             func() time.Time
}

type service struct {
	repo            subscriptionsRepository
	licenseRepo     licensesRepository
	paymentRepo     paymentsRepository
	db              txRunner
	gracePeriodDays int
	now             func() time.Time
}

// NewService builds a subscription service backed by the provided repositories.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("subscription repository required")
	}
	if params.LicenseRepo == nil {
		return nil, errors.New("license repository required")
	}
	if params.PaymentRepo == nil {
		return nil, errors.New("payment repository required")
	}
	if params.DB == nil {
		return nil, errors.New("tx runner required")
	}
	if params.GracePeriodDays <= 0 {
		params.GracePeriodDays = 7
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:            params.Repo,
		licenseRepo:     params.LicenseRepo,
		paymentRepo:     params.PaymentRepo,
		db:              params.DB,
		gracePeriodDays: params.GracePeriodDays,
		now:             params.Now,
	}, nil
}

// RenewSubscription extends the license by exactly one year, anchored at the
// stored end date or at the renewal instant per the caller's choice. The
// renewal appends a new subscription period, reactivates an expired license,
// and optionally records the annual payment in the same transaction.
func (s *service) RenewSubscription(ctx context.Context, licenseID uuid.UUID, input RenewInput) (*models.Subscription, error) {
	if licenseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license id is required")
	}

	license, err := s.licenseRepo.FindByID(ctx, licenseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup license")
	}
	if license.Status == enums.LicenseStatusRevoked {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "revoked licenses cannot be renewed")
	}

	current, err := s.repo.FindCurrentByLicenseID(ctx, licenseID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}

	now := s.now().UTC()
	anchor := now
	if !input.FromNow && current != nil && current.EndDate.After(now) {
		anchor = current.EndDate
	}
	newEnd := anchor.AddDate(1, 0, 0)
	graceEnd := newEnd.Add(time.Duration(s.gracePeriodDays) * day)

	next := &models.Subscription{
		LicenseID:      licenseID,
		StartDate:      anchor,
		EndDate:        newEnd,
		AnnualFee:      license.AnnualPrice,
		Status:         enums.SubscriptionStatusActive,
		GracePeriodEnd: &graceEnd,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if current != nil && current.Status != enums.SubscriptionStatusExpired {
			current.Status = enums.SubscriptionStatusExpired
			if err := s.repo.UpdateWithTx(tx, current); err != nil {
				return err
			}
		}
		if err := s.repo.CreateWithTx(tx, next); err != nil {
			return err
		}

		license.EndDate = newEnd
		license.Status = enums.LicenseStatusActive
		if err := s.licenseRepo.UpdateWithTx(tx, license); err != nil {
			return err
		}

		if input.RecordPayment && license.AnnualPrice.IsPositive() {
			payment := &models.Payment{
				LicenseID:            licenseID,
				Amount:               license.AnnualPrice,
				PaymentDate:          now,
				IsAnnualSubscription: true,
				PaymentType:          enums.PaymentTypeAnnual,
			}
			if err := s.paymentRepo.CreateWithTx(tx, payment); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "renew subscription")
	}
	return next, nil
}

func (s *service) ListSubscriptions(ctx context.Context, params ListParams) (*ListResult, error) {
	page, err := params.Params.Normalize(defaultSubscriptionSort, subscriptionSortColumns)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing parameters")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}

	rows, total, err := s.repo.List(ctx, ListQuery{
		LicenseID: params.LicenseID,
		Status:    params.Status,
		Page:      page,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return &ListResult{
		Items: rows,
		Meta:  pkgpagination.NewMeta(page.Page, page.PageSize, total),
	}, nil
}
