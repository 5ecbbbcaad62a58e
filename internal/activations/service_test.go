package activations

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/pkg/auth"
	"github.com/vantagepos/licensing-backend/pkg/config"
	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
)

const testKey = "AAAA-BBBB-CCCC-DDDD-EEEE"

type stubActivationRepo struct {
	rows map[uuid.UUID]*models.Activation
}

func newStubActivationRepo() *stubActivationRepo {
	return &stubActivationRepo{rows: map[uuid.UUID]*models.Activation{}}
}

func (s *stubActivationRepo) Create(ctx context.Context, activation *models.Activation) (*models.Activation, error) {
	activation.ID = uuid.New()
	s.rows[activation.ID] = activation
	return activation, nil
}

func (s *stubActivationRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Activation, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return row, nil
}

func (s *stubActivationRepo) FindByLicenseAndHardware(ctx context.Context, licenseID uuid.UUID, hardwareID string) (*models.Activation, error) {
	for _, row := range s.rows {
		if row.LicenseID == licenseID && row.HardwareID == hardwareID {
			return row, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubActivationRepo) List(ctx context.Context, opts ListQuery) ([]models.Activation, int64, error) {
	var out []models.Activation
	for _, row := range s.rows {
		if opts.ActiveOnly && !row.IsActive {
			continue
		}
		out = append(out, *row)
	}
	return out, int64(len(out)), nil
}

func (s *stubActivationRepo) Update(ctx context.Context, activation *models.Activation) error {
	s.rows[activation.ID] = activation
	return nil
}

func (s *stubActivationRepo) TouchValidation(ctx context.Context, licenseID uuid.UUID, hardwareID string, at time.Time) error {
	for _, row := range s.rows {
		if row.LicenseID == licenseID && row.HardwareID == hardwareID && row.IsActive {
			stamp := at
			row.LastValidation = &stamp
		}
	}
	return nil
}

func (s *stubActivationRepo) DeactivateAllForLicense(ctx context.Context, licenseID uuid.UUID) (int64, error) {
	var n int64
	for _, row := range s.rows {
		if row.LicenseID == licenseID && row.IsActive {
			row.IsActive = false
			n++
		}
	}
	return n, nil
}

type stubLicenseLookup struct {
	license *models.License
}

func (s *stubLicenseLookup) FindByKey(ctx context.Context, key string) (*models.License, error) {
	if s.license == nil || s.license.Key != key {
		return nil, gorm.ErrRecordNotFound
	}
	return s.license, nil
}

func (s *stubLicenseLookup) FindByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	if s.license == nil || s.license.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.license, nil
}

type stubSubLookup struct {
	sub *models.Subscription
}

func (s *stubSubLookup) FindCurrentByLicenseID(ctx context.Context, licenseID uuid.UUID) (*models.Subscription, error) {
	if s.sub == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.sub, nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                 "test-secret-test-secret-test-secret",
		Issuer:                 "vantagepos-test",
		AdminExpirationMinutes: 480,
	}
}

func newActivationService(t *testing.T, license *models.License, sub *models.Subscription, now time.Time) (Service, *stubActivationRepo) {
	t.Helper()
	repo := newStubActivationRepo()
	svc, err := NewService(ServiceParams{
		Repo:             repo,
		LicenseRepo:      &stubLicenseLookup{license: license},
		SubscriptionRepo: &stubSubLookup{sub: sub},
		JWT:              testJWTConfig(),
		Now:              func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, repo
}

func validLicense(now time.Time) *models.License {
	return &models.License{
		ID:      uuid.New(),
		Key:     testKey,
		Status:  enums.LicenseStatusActive,
		EndDate: now.AddDate(0, 6, 0),
	}
}

func TestActivateBindsDevice(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	license := validLicense(now)
	svc, repo := newActivationService(t, license, nil, now)

	name := "Front Register"
	result, err := svc.Activate(context.Background(), ActivateInput{
		Key:         "aaaa-bbbb-cccc-dddd-eeee",
		HardwareID:  "HW-001",
		MachineName: &name,
	})
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if !result.Valid || result.Status != enums.EffectiveStatusActive {
		t.Fatalf("result = %+v", result.Evaluation)
	}
	if result.ActivationToken == "" {
		t.Fatal("missing activation token")
	}
	if len(repo.rows) != 1 {
		t.Fatalf("bindings = %d", len(repo.rows))
	}

	claims, err := auth.ParseActivationToken(testJWTConfig(), result.ActivationToken)
	if err != nil {
		t.Fatalf("ParseActivationToken: %v", err)
	}
	if claims.LicenseID != license.ID || claims.HardwareID != "HW-001" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestActivateRefreshesExistingBinding(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	license := validLicense(now)
	svc, repo := newActivationService(t, license, nil, now)
	ctx := context.Background()

	if _, err := svc.Activate(ctx, ActivateInput{Key: testKey, HardwareID: "HW-001"}); err != nil {
		t.Fatalf("first activate: %v", err)
	}
	if err := svc.Deactivate(ctx, testKey, "HW-001"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	// A reinstall activates again with the same hardware id.
	if _, err := svc.Activate(ctx, ActivateInput{Key: testKey, HardwareID: "HW-001"}); err != nil {
		t.Fatalf("second activate: %v", err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected a single binding, got %d", len(repo.rows))
	}
	for _, row := range repo.rows {
		if !row.IsActive {
			t.Fatal("binding not refreshed")
		}
	}
}

func TestActivateRejectsInvalidLicense(t *testing.T) {
	now := time.Now().UTC()
	license := validLicense(now)
	license.Status = enums.LicenseStatusSuspended
	svc, _ := newActivationService(t, license, nil, now)

	_, err := svc.Activate(context.Background(), ActivateInput{Key: testKey, HardwareID: "HW-001"})
	if !pkgerrors.Is(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestActivateRejectsOverlongHardwareID(t *testing.T) {
	now := time.Now().UTC()
	license := validLicense(now)
	svc, repo := newActivationService(t, license, nil, now)

	_, err := svc.Activate(context.Background(), ActivateInput{
		Key:        testKey,
		HardwareID: strings.Repeat("x", 256),
	})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.rows) != 0 {
		t.Fatalf("binding created for rejected hardware id")
	}

	// 255 characters is the inclusive bound.
	if _, err := svc.Activate(context.Background(), ActivateInput{
		Key:        testKey,
		HardwareID: strings.Repeat("x", 255),
	}); err != nil {
		t.Fatalf("Activate at bound: %v", err)
	}
}

func TestActivateUnknownKey(t *testing.T) {
	svc, _ := newActivationService(t, nil, nil, time.Now().UTC())

	_, err := svc.Activate(context.Background(), ActivateInput{Key: testKey, HardwareID: "HW-001"})
	if !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestValidateReportsInvalidAsAnswer(t *testing.T) {
	now := time.Now().UTC()
	license := validLicense(now)
	license.EndDate = now.Add(-24 * time.Hour)
	svc, _ := newActivationService(t, license, nil, now)

	result, err := svc.Validate(context.Background(), ValidateInput{Key: testKey})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid || result.Status != enums.EffectiveStatusExpired {
		t.Fatalf("result = %+v", result.Evaluation)
	}
}

func TestValidateUnknownKeyIsNotFoundAnswer(t *testing.T) {
	svc, _ := newActivationService(t, nil, nil, time.Now().UTC())

	result, err := svc.Validate(context.Background(), ValidateInput{Key: testKey})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid || result.Status != enums.EffectiveStatusNotFound {
		t.Fatalf("result = %+v", result.Evaluation)
	}
}

func TestValidateMalformedKey(t *testing.T) {
	svc, _ := newActivationService(t, nil, nil, time.Now().UTC())

	_, err := svc.Validate(context.Background(), ValidateInput{Key: "not-a-key"})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestActivateReturnsLocationMetadata(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	license := validLicense(now)
	customer := "Crossroads Cafe"
	location := "Downtown"
	address := "42 Main St"
	license.CustomerName = &customer
	license.LocationName = &location
	license.LocationAddress = &address
	svc, _ := newActivationService(t, license, nil, now)

	result, err := svc.Activate(context.Background(), ActivateInput{Key: testKey, HardwareID: "HW-001"})
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if result.LicenseID != license.ID {
		t.Fatalf("licenseId = %s, want %s", result.LicenseID, license.ID)
	}
	if result.CustomerName == nil || *result.CustomerName != customer {
		t.Fatalf("customerName = %v", result.CustomerName)
	}
	if result.LocationName == nil || *result.LocationName != location {
		t.Fatalf("locationName = %v", result.LocationName)
	}
	if result.LocationAddress == nil || *result.LocationAddress != address {
		t.Fatalf("locationAddress = %v", result.LocationAddress)
	}
}

func TestActivateTokenExpiryTracksSubscription(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	license := validLicense(now)
	// The license row's own end date is stale; the subscription carries the
	// billing truth.
	license.EndDate = now.AddDate(1, 0, 0)
	subEnd := now.AddDate(0, 1, 0)
	sub := &models.Subscription{
		LicenseID: license.ID,
		EndDate:   subEnd,
	}
	svc, _ := newActivationService(t, license, sub, now)

	result, err := svc.Activate(context.Background(), ActivateInput{Key: testKey, HardwareID: "HW-001"})
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if result.ExpiresAt == nil || !result.ExpiresAt.Equal(subEnd) {
		t.Fatalf("expiresAt = %v, want %s", result.ExpiresAt, subEnd)
	}

	claims, err := auth.ParseActivationToken(testJWTConfig(), result.ActivationToken)
	if err != nil {
		t.Fatalf("ParseActivationToken: %v", err)
	}
	// The credential must not outlive the expiry reported in the same
	// response.
	if !claims.ExpiresAt.Time.Equal(subEnd) {
		t.Fatalf("token expiry = %s, want %s", claims.ExpiresAt.Time, subEnd)
	}
}

func TestValidateHonorsClientClock(t *testing.T) {
	serverNow := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	license := validLicense(serverNow)
	svc, repo := newActivationService(t, license, nil, serverNow)
	ctx := context.Background()

	if _, err := svc.Activate(ctx, ActivateInput{Key: testKey, HardwareID: "HW-001"}); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	// A client clock past the end date gets an expired answer even though
	// the server clock still sees the license as active.
	clientFuture := license.EndDate.Add(24 * time.Hour)
	result, err := svc.Validate(ctx, ValidateInput{
		Key:         testKey,
		HardwareID:  "HW-001",
		CurrentTime: &clientFuture,
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if result.Valid || result.Status != enums.EffectiveStatusExpired {
		t.Fatalf("result = %+v", result.Evaluation)
	}

	// The override is advisory for the answer only; the heartbeat stamp
	// comes from the server clock.
	for _, row := range repo.rows {
		if row.LastValidation == nil || !row.LastValidation.Equal(serverNow) {
			t.Fatalf("lastValidation = %v, want %s", row.LastValidation, serverNow)
		}
	}

	// The opposite skew: a lapsed license still answers active for a client
	// clock inside the paid period.
	license.EndDate = serverNow.Add(-24 * time.Hour)
	clientPast := serverNow.Add(-48 * time.Hour)
	result, err = svc.Validate(ctx, ValidateInput{Key: testKey, CurrentTime: &clientPast})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Valid || result.Status != enums.EffectiveStatusActive {
		t.Fatalf("result = %+v", result.Evaluation)
	}
}

func TestValidateStampsHeartbeat(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	license := validLicense(now)
	svc, repo := newActivationService(t, license, nil, now)
	ctx := context.Background()

	if _, err := svc.Activate(ctx, ActivateInput{Key: testKey, HardwareID: "HW-001"}); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if _, err := svc.Validate(ctx, ValidateInput{Key: testKey, HardwareID: "HW-001"}); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	for _, row := range repo.rows {
		if row.LastValidation == nil || !row.LastValidation.Equal(now) {
			t.Fatalf("lastValidation = %v", row.LastValidation)
		}
	}
}

func TestDeactivateIsIdempotent(t *testing.T) {
	now := time.Now().UTC()
	license := validLicense(now)
	svc, _ := newActivationService(t, license, nil, now)
	ctx := context.Background()

	// No binding exists yet; releasing is still fine.
	if err := svc.Deactivate(ctx, testKey, "HW-001"); err != nil {
		t.Fatalf("Deactivate without binding: %v", err)
	}

	if _, err := svc.Activate(ctx, ActivateInput{Key: testKey, HardwareID: "HW-001"}); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := svc.Deactivate(ctx, testKey, "HW-001"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if err := svc.Deactivate(ctx, testKey, "HW-001"); err != nil {
		t.Fatalf("repeat Deactivate: %v", err)
	}
}

func TestDeactivateUnknownLicenseSucceeds(t *testing.T) {
	svc, _ := newActivationService(t, nil, nil, time.Now().UTC())
	if err := svc.Deactivate(context.Background(), testKey, "HW-001"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
}

func TestReactivateLicenseClearsAllBindings(t *testing.T) {
	now := time.Now().UTC()
	license := validLicense(now)
	svc, repo := newActivationService(t, license, nil, now)
	ctx := context.Background()

	for _, hw := range []string{"HW-001", "HW-002", "HW-003"} {
		if _, err := svc.Activate(ctx, ActivateInput{Key: testKey, HardwareID: hw}); err != nil {
			t.Fatalf("Activate %s: %v", hw, err)
		}
	}

	cleared, err := svc.ReactivateLicense(ctx, license.ID)
	if err != nil {
		t.Fatalf("ReactivateLicense: %v", err)
	}
	if cleared != 3 {
		t.Fatalf("cleared = %d, want 3", cleared)
	}
	for _, row := range repo.rows {
		if row.IsActive {
			t.Fatal("binding still active after reactivate")
		}
	}
}

func TestListActivationsFiltersActive(t *testing.T) {
	now := time.Now().UTC()
	license := validLicense(now)
	svc, _ := newActivationService(t, license, nil, now)
	ctx := context.Background()

	for _, hw := range []string{"HW-001", "HW-002"} {
		if _, err := svc.Activate(ctx, ActivateInput{Key: testKey, HardwareID: hw}); err != nil {
			t.Fatalf("Activate: %v", err)
		}
	}
	if err := svc.Deactivate(ctx, testKey, "HW-002"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	result, err := svc.ListActivations(ctx, ListParams{ActiveOnly: true})
	if err != nil {
		t.Fatalf("ListActivations: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].HardwareID != "HW-001" {
		t.Fatalf("items = %+v", result.Items)
	}
}
