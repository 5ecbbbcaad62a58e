package licenses

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgdb "github.com/vantagepos/licensing-backend/pkg/db"
	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/licensekey"
)

const keyGenerationAttempts = 5

type licensesRepository interface {
	CreateWithTx(tx *gorm.DB, license *models.License) (*models.License, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.License, error)
	FindByKey(ctx context.Context, key string) (*models.License, error)
	List(ctx context.Context, opts listQuery) ([]models.License, int64, error)
	Update(ctx context.Context, license *models.License) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.LicenseStatus) error
}

type subscriptionsRepository interface {
	CreateWithTx(tx *gorm.DB, sub *models.Subscription) error
	FindCurrentByLicenseID(ctx context.Context, licenseID uuid.UUID) (*models.Subscription, error)
}

type paymentsRepository interface {
	CreateWithTx(tx *gorm.DB, payment *models.Payment) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes license generation, lookup, listing, and admin lifecycle
// transitions.
type Service interface {
	GenerateLicense(ctx context.Context, input GenerateLicenseInput) (*models.License, error)
	GetLicense(ctx context.Context, id uuid.UUID) (*models.License, error)
	StatusForKey(ctx context.Context, rawKey string, now time.Time) (Evaluation, *models.License, error)
	ListLicenses(ctx context.Context, params ListParams) (*ListResult, error)
	UpdateLicense(ctx context.Context, id uuid.UUID, input UpdateLicenseInput) (*models.License, error)
	RevokeLicense(ctx context.Context, id uuid.UUID) error
	SuspendLicense(ctx context.Context, id uuid.UUID) error
	ResumeLicense(ctx context.Context, id uuid.UUID) error
}

// ServiceParams configure the license service.
type ServiceParams struct {
	Repo             licensesRepository
	SubscriptionRepo subscriptionsRepository
	PaymentRepo      paymentsRepository
	DB               txRunner
	GracePeriodDays  int
	FreeTrialDays    int
	DefaultUserLimit int
	Now              func() time.Time
	GenerateKey      func() (string, error)
}

type service struct {
	repo             licensesRepository
	subscriptionRepo subscriptionsRepository
	paymentRepo      paymentsRepository
	db               txRunner
	gracePeriodDays  int
	freeTrialDays    int
	defaultUserLimit int
	now              func() time.Time
	generateKey      func() (string, error)
}

// GenerateLicenseInput holds the metadata required to create a license.
type GenerateLicenseInput struct {
	CustomerName    *string
	CustomerPhone   *string
	LocationName    *string
	LocationAddress *string
	InitialPrice    decimal.Decimal
	AnnualPrice     decimal.Decimal
	PricePerUser    decimal.Decimal
	IsFreeTrial     bool
	UserLimit       int
}

// UpdateLicenseInput carries the admin-editable license fields. Nil pointers
// leave the stored value untouched.
type UpdateLicenseInput struct {
	CustomerName    *string
	CustomerPhone   *string
	LocationName    *string
	LocationAddress *string
	AnnualPrice     *decimal.Decimal
	PricePerUser    *decimal.Decimal
	EndDate         *time.Time
}

// NewService builds a license service backed by the provided repositories.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("license repository required")
	}
	if params.SubscriptionRepo == nil {
		return nil, errors.New("subscription repository required")
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
	if params.FreeTrialDays <= 0 {
		params.FreeTrialDays = 30
	}
	if params.DefaultUserLimit <= 0 {
		params.DefaultUserLimit = 5
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.GenerateKey == nil {
		params.GenerateKey = licensekey.Generate
	}
	return &service{
		repo:             params.Repo,
		subscriptionRepo: params.SubscriptionRepo,
		paymentRepo:      params.PaymentRepo,
		db:               params.DB,
		gracePeriodDays:  params.GracePeriodDays,
		freeTrialDays:    params.FreeTrialDays,
		defaultUserLimit: params.DefaultUserLimit,
		now:              params.Now,
		generateKey:      params.GenerateKey,
	}, nil
}

func (s *service) GenerateLicense(ctx context.Context, input GenerateLicenseInput) (*models.License, error) {
	if input.InitialPrice.IsNegative() || input.AnnualPrice.IsNegative() || input.PricePerUser.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices cannot be negative")
	}
	userLimit := input.UserLimit
	if userLimit == 0 {
		userLimit = s.defaultUserLimit
	}
	if userLimit < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user limit must be at least 1")
	}

	now := s.now().UTC()
	endDate := now.AddDate(1, 0, 0)
	if input.IsFreeTrial {
		endDate = now.Add(time.Duration(s.freeTrialDays) * day)
	}
	graceEnd := endDate.Add(time.Duration(s.gracePeriodDays) * day)

	var created *models.License
	for attempt := 0; attempt < keyGenerationAttempts; attempt++ {
		key, err := s.generateKey()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate license key")
		}

		license := &models.License{
			Key:             key,
			CustomerName:    trimmed(input.CustomerName),
			CustomerPhone:   trimmed(input.CustomerPhone),
			LocationName:    trimmed(input.LocationName),
			LocationAddress: trimmed(input.LocationAddress),
			Status:          enums.LicenseStatusActive,
			PurchaseDate:    now,
			InitialPrice:    input.InitialPrice,
			AnnualPrice:     input.AnnualPrice,
			PricePerUser:    input.PricePerUser,
			IsFreeTrial:     input.IsFreeTrial,
			StartDate:       now,
			EndDate:         endDate,
			UserCount:       0,
			UserLimit:       userLimit,
		}

		err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
			row, err := s.repo.CreateWithTx(tx, license)
			if err != nil {
				return err
			}
			sub := &models.Subscription{
				LicenseID:      row.ID,
				StartDate:      now,
				EndDate:        endDate,
				AnnualFee:      input.AnnualPrice,
				Status:         enums.SubscriptionStatusActive,
				GracePeriodEnd: &graceEnd,
			}
			if err := s.subscriptionRepo.CreateWithTx(tx, sub); err != nil {
				return err
			}
			if !input.IsFreeTrial && input.InitialPrice.IsPositive() {
				payment := &models.Payment{
					LicenseID:   row.ID,
					Amount:      input.InitialPrice,
					PaymentDate: now,
					PaymentType: enums.PaymentTypeInitial,
				}
				if err := s.paymentRepo.CreateWithTx(tx, payment); err != nil {
					return err
				}
			}
			created = row
			return nil
		})
		if err == nil {
			return created, nil
		}
		// A key collision is astronomically unlikely; retry with a fresh key.
		if pkgdb.IsUniqueViolation(err, "licenses_key_key") {
			continue
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create license")
	}
	return nil, pkgerrors.New(pkgerrors.CodeDependency, "could not allocate a unique license key")
}

func (s *service) GetLicense(ctx context.Context, id uuid.UUID) (*models.License, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "license id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup license")
	}
	return row, nil
}

// StatusForKey normalizes the raw key, loads the license and its current
// subscription, and evaluates the effective status. An unknown key yields a
// not_found evaluation, not an error, so callers can report it without
// leaking internals.
func (s *service) StatusForKey(ctx context.Context, rawKey string, now time.Time) (Evaluation, *models.License, error) {
	key := licensekey.Normalize(rawKey)
	if !licensekey.IsValid(key) {
		return Evaluation{}, nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed license key")
	}

	lic, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Evaluate(nil, nil, now), nil, nil
		}
		return Evaluation{}, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup license")
	}

	sub, err := s.subscriptionRepo.FindCurrentByLicenseID(ctx, lic.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Evaluation{}, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}

	return Evaluate(lic, sub, now), lic, nil
}

func (s *service) ListLicenses(ctx context.Context, params ListParams) (*ListResult, error) {
	page, err := params.Params.Normalize(defaultLicenseSort, licenseSortColumns)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing parameters")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}

	rows, total, err := s.repo.List(ctx, listQuery{
		status: params.Status,
		search: strings.TrimSpace(params.Search),
		page:   page,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list licenses")
	}

	items := make([]ListItem, len(rows))
	for i, row := range rows {
		items[i] = toListItem(row)
	}
	return &ListResult{
		Items: items,
		Meta:  pageMeta(page, total),
	}, nil
}

func (s *service) UpdateLicense(ctx context.Context, id uuid.UUID, input UpdateLicenseInput) (*models.License, error) {
	row, err := s.GetLicense(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.CustomerName != nil {
		row.CustomerName = trimmed(input.CustomerName)
	}
	if input.CustomerPhone != nil {
		row.CustomerPhone = trimmed(input.CustomerPhone)
	}
	if input.LocationName != nil {
		row.LocationName = trimmed(input.LocationName)
	}
	if input.LocationAddress != nil {
		row.LocationAddress = trimmed(input.LocationAddress)
	}
	if input.AnnualPrice != nil {
		if input.AnnualPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "annual price cannot be negative")
		}
		row.AnnualPrice = *input.AnnualPrice
	}
	if input.PricePerUser != nil {
		if input.PricePerUser.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price per user cannot be negative")
		}
		row.PricePerUser = *input.PricePerUser
	}
	if input.EndDate != nil {
		if !input.EndDate.After(row.StartDate) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
		}
		row.EndDate = input.EndDate.UTC()
	}

	if err := s.repo.Update(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update license")
	}
	return row, nil
}

func (s *service) RevokeLicense(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, enums.LicenseStatusRevoked)
}

func (s *service) SuspendLicense(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, enums.LicenseStatusSuspended)
}

// ResumeLicense returns a suspended license to active. Revoked licenses stay
// revoked; a new license must be issued instead.
func (s *service) ResumeLicense(ctx context.Context, id uuid.UUID) error {
	row, err := s.GetLicense(ctx, id)
	if err != nil {
		return err
	}
	if row.Status == enums.LicenseStatusRevoked {
		return pkgerrors.New(pkgerrors.CodeConflict, "revoked licenses cannot be resumed")
	}
	if row.Status == enums.LicenseStatusActive {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, id, enums.LicenseStatusActive); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update license status")
	}
	return nil
}

func (s *service) transition(ctx context.Context, id uuid.UUID, target enums.LicenseStatus) error {
	row, err := s.GetLicense(ctx, id)
	if err != nil {
		return err
	}
	if row.Status == target {
		return nil
	}
	if row.Status == enums.LicenseStatusRevoked {
		return pkgerrors.New(pkgerrors.CodeConflict, "license is revoked")
	}
	if err := s.repo.UpdateStatus(ctx, id, target); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update license status")
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	out := strings.TrimSpace(*value)
	if out == "" {
		return nil
	}
	return &out
}
