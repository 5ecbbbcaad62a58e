package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
)

type stubSubRepo struct {
	current *models.Subscription
	created []*models.Subscription
	updated []*models.Subscription
}

func (s *stubSubRepo) CreateWithTx(tx *gorm.DB, sub *models.Subscription) error {
	sub.ID = uuid.New()
	s.created = append(s.created, sub)
	return nil
}

func (s *stubSubRepo) FindCurrentByLicenseID(ctx context.Context, licenseID uuid.UUID) (*models.Subscription, error) {
	if s.current == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.current, nil
}

func (s *stubSubRepo) List(ctx context.Context, opts ListQuery) ([]models.Subscription, int64, error) {
	return nil, 0, nil
}

func (s *stubSubRepo) UpdateWithTx(tx *gorm.DB, sub *models.Subscription) error {
	s.updated = append(s.updated, sub)
	return nil
}

type stubLicenseRepo struct {
	license *models.License
}

func (s *stubLicenseRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	if s.license == nil || s.license.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.license, nil
}

func (s *stubLicenseRepo) UpdateWithTx(tx *gorm.DB, license *models.License) error {
	s.license = license
	return nil
}

type stubPaymentRepo struct {
	created []*models.Payment
}

func (s *stubPaymentRepo) CreateWithTx(tx *gorm.DB, payment *models.Payment) error {
	s.created = append(s.created, payment)
	return nil
}

type passTxRunner struct{}

func (passTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newRenewService(t *testing.T, license *models.License, current *models.Subscription, now time.Time) (Service, *stubSubRepo, *stubLicenseRepo, *stubPaymentRepo) {
	t.Helper()
	subRepo := &stubSubRepo{current: current}
	licRepo := &stubLicenseRepo{license: license}
	payRepo := &stubPaymentRepo{}
	svc, err := NewService(ServiceParams{
		Repo:            subRepo,
		LicenseRepo:     licRepo,
		PaymentRepo:     payRepo,
		DB:              passTxRunner{},
		GracePeriodDays: 7,
		Now:             func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, subRepo, licRepo, payRepo
}

func TestRenewExtendsFromStoredEndDate(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	futureEnd := now.AddDate(0, 2, 0)
	license := &models.License{
		ID:          uuid.New(),
		Status:      enums.LicenseStatusActive,
		EndDate:     futureEnd,
		AnnualPrice: decimal.NewFromInt(499),
	}
	current := &models.Subscription{
		ID:        uuid.New(),
		LicenseID: license.ID,
		Status:    enums.SubscriptionStatusActive,
		EndDate:   futureEnd,
	}

	svc, subRepo, licRepo, _ := newRenewService(t, license, current, now)
	next, err := svc.RenewSubscription(context.Background(), license.ID, RenewInput{})
	if err != nil {
		t.Fatalf("RenewSubscription: %v", err)
	}

	wantEnd := futureEnd.AddDate(1, 0, 0)
	if !next.EndDate.Equal(wantEnd) {
		t.Fatalf("end date = %s, want %s", next.EndDate, wantEnd)
	}
	if !next.StartDate.Equal(futureEnd) {
		t.Fatalf("start date = %s, want %s", next.StartDate, futureEnd)
	}
	if next.GracePeriodEnd == nil || !next.GracePeriodEnd.Equal(wantEnd.Add(7*24*time.Hour)) {
		t.Fatalf("grace end = %v", next.GracePeriodEnd)
	}
	if !licRepo.license.EndDate.Equal(wantEnd) {
		t.Fatalf("license end = %s", licRepo.license.EndDate)
	}
	if len(subRepo.updated) != 1 || subRepo.updated[0].Status != enums.SubscriptionStatusExpired {
		t.Fatal("previous period was not retired")
	}
}

func TestRenewFromNowAnchorsAtRenewalInstant(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	futureEnd := now.AddDate(0, 2, 0)
	license := &models.License{
		ID:          uuid.New(),
		Status:      enums.LicenseStatusActive,
		EndDate:     futureEnd,
		AnnualPrice: decimal.NewFromInt(499),
	}
	current := &models.Subscription{
		ID:        uuid.New(),
		LicenseID: license.ID,
		Status:    enums.SubscriptionStatusActive,
		EndDate:   futureEnd,
	}

	svc, _, _, _ := newRenewService(t, license, current, now)
	next, err := svc.RenewSubscription(context.Background(), license.ID, RenewInput{FromNow: true})
	if err != nil {
		t.Fatalf("RenewSubscription: %v", err)
	}
	if !next.StartDate.Equal(now) || !next.EndDate.Equal(now.AddDate(1, 0, 0)) {
		t.Fatalf("period = %s .. %s", next.StartDate, next.EndDate)
	}
}

func TestRenewReactivatesExpiredLicense(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	license := &models.License{
		ID:          uuid.New(),
		Status:      enums.LicenseStatusExpired,
		EndDate:     now.AddDate(0, -1, 0),
		AnnualPrice: decimal.NewFromInt(499),
	}

	svc, _, licRepo, _ := newRenewService(t, license, nil, now)
	next, err := svc.RenewSubscription(context.Background(), license.ID, RenewInput{})
	if err != nil {
		t.Fatalf("RenewSubscription: %v", err)
	}
	// Lapsed licenses restart from the renewal instant, not the old end date.
	if !next.StartDate.Equal(now) {
		t.Fatalf("start date = %s, want %s", next.StartDate, now)
	}
	if licRepo.license.Status != enums.LicenseStatusActive {
		t.Fatalf("license status = %s", licRepo.license.Status)
	}
}

func TestRenewRejectsRevokedLicense(t *testing.T) {
	now := time.Now().UTC()
	license := &models.License{
		ID:      uuid.New(),
		Status:  enums.LicenseStatusRevoked,
		EndDate: now.AddDate(1, 0, 0),
	}

	svc, _, _, _ := newRenewService(t, license, nil, now)
	_, err := svc.RenewSubscription(context.Background(), license.ID, RenewInput{})
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRenewRecordsPayment(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	license := &models.License{
		ID:          uuid.New(),
		Status:      enums.LicenseStatusActive,
		EndDate:     now.AddDate(0, 2, 0),
		AnnualPrice: decimal.NewFromInt(499),
	}

	svc, _, _, payRepo := newRenewService(t, license, nil, now)
	if _, err := svc.RenewSubscription(context.Background(), license.ID, RenewInput{RecordPayment: true}); err != nil {
		t.Fatalf("RenewSubscription: %v", err)
	}
	if len(payRepo.created) != 1 {
		t.Fatalf("payments recorded = %d", len(payRepo.created))
	}
	payment := payRepo.created[0]
	if !payment.Amount.Equal(decimal.NewFromInt(499)) || payment.PaymentType != enums.PaymentTypeAnnual || !payment.IsAnnualSubscription {
		t.Fatalf("payment = %+v", payment)
	}
}

func TestRenewSkipsPaymentForFreeLicense(t *testing.T) {
	now := time.Now().UTC()
	license := &models.License{
		ID:          uuid.New(),
		Status:      enums.LicenseStatusActive,
		EndDate:     now.AddDate(0, 1, 0),
		AnnualPrice: decimal.Zero,
	}

	svc, _, _, payRepo := newRenewService(t, license, nil, now)
	if _, err := svc.RenewSubscription(context.Background(), license.ID, RenewInput{RecordPayment: true}); err != nil {
		t.Fatalf("RenewSubscription: %v", err)
	}
	if len(payRepo.created) != 0 {
		t.Fatalf("recorded a payment for a free license: %+v", payRepo.created)
	}
}

func TestRenewUnknownLicense(t *testing.T) {
	svc, _, _, _ := newRenewService(t, nil, nil, time.Now().UTC())
	_, err := svc.RenewSubscription(context.Background(), uuid.New(), RenewInput{})
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListSubscriptionsRejectsUnknownSort(t *testing.T) {
	svc, _, _, _ := newRenewService(t, nil, nil, time.Now().UTC())
	params := ListParams{}
	params.SortBy = "annual_fee; DROP TABLE subscriptions"

	_, err := svc.ListSubscriptions(context.Background(), params)
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
