package activations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/internal/licenses"
	"github.com/vantagepos/licensing-backend/pkg/auth"
	"github.com/vantagepos/licensing-backend/pkg/config"
	"github.com/vantagepos/licensing-backend/pkg/db/models"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/licensekey"
	pkgpagination "github.com/vantagepos/licensing-backend/pkg/pagination"
)

// activationSortColumns is the sortBy allow-list for the activations listing.
var activationSortColumns = []string{"created_at", "activated_at", "last_validation", "hardware_id"}

// maxHardwareIDLen bounds device identifiers; anything longer is rejected
// before it reaches storage or token claims.
const maxHardwareIDLen = 255

const defaultActivationSort = "activated_at"

type activationsRepository interface {
	Create(ctx context.Context, activation *models.Activation) (*models.Activation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Activation, error)
	FindByLicenseAndHardware(ctx context.Context, licenseID uuid.UUID, hardwareID string) (*models.Activation, error)
	List(ctx context.Context, opts ListQuery) ([]models.Activation, int64, error)
	Update(ctx context.Context, activation *models.Activation) error
	TouchValidation(ctx context.Context, licenseID uuid.UUID, hardwareID string, at time.Time) error
	DeactivateAllForLicense(ctx context.Context, licenseID uuid.UUID) (int64, error)
}

type licensesRepository interface {
	FindByKey(ctx context.Context, key string) (*models.License, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.License, error)
}

type subscriptionsRepository interface {
	FindCurrentByLicenseID(ctx context.Context, licenseID uuid.UUID) (*models.Subscription, error)
}

// Service binds POS devices to licenses and answers validation polls.
type Service interface {
	Activate(ctx context.Context, input ActivateInput) (*ActivationResult, error)
	Validate(ctx context.Context, input ValidateInput) (*ValidationResult, error)
	Deactivate(ctx context.Context, key, hardwareID string) error
	DeactivateByID(ctx context.Context, id uuid.UUID) error
	ReactivateLicense(ctx context.Context, licenseID uuid.UUID) (int64, error)
	ListActivations(ctx context.Context, params ListParams) (*ListResult, error)
}

// ActivateInput identifies the license and the device claiming it.
type ActivateInput struct {
	Key         string
	HardwareID  string
	MachineName *string
}

// ValidateInput is a validation poll. HardwareID is optional telemetry used
// to stamp the binding's last_validation; it never gates the answer.
// CurrentTime is an advisory client clock used as the evaluation instant for
// this read-only answer; mutations always use the server clock.
type ValidateInput struct {
	Key         string
	HardwareID  string
	CurrentTime *time.Time
}

// ActivationResult is what a freshly activated device receives.
type ActivationResult struct {
	licenses.Evaluation
	ActivationToken string    `json:"activationToken"`
	LicenseID       uuid.UUID `json:"licenseId"`
	CustomerName    *string   `json:"customerName,omitempty"`
	LocationName    *string   `json:"locationName,omitempty"`
	LocationAddress *string   `json:"locationAddress,omitempty"`
}

// ValidationResult reports the license's effective status. An invalid
// license is a normal answer here, not an error.
type ValidationResult struct {
	licenses.Evaluation
	CustomerName *string `json:"customerName,omitempty"`
	LocationName *string `json:"locationName,omitempty"`
}

// ListParams filters and pages the activation listing.
type ListParams struct {
	LicenseID  *uuid.UUID
	ActiveOnly bool
	pkgpagination.Params
}

// ListResult is a page of activations.
type ListResult struct {
	Items []models.Activation `json:"items"`
	Meta  pkgpagination.Meta  `json:"meta"`
}

// ServiceParams configure the activation service.
type ServiceParams struct {
	Repo             activationsRepository
	LicenseRepo      licensesRepository
	SubscriptionRepo subscriptionsRepository
	JWT              config.JWTConfig
	Now              func() time.Time
}

type service struct {
	repo        activationsRepository
	licenseRepo licensesRepository
	subRepo     subscriptionsRepository
	jwt         config.JWTConfig
	now         func() time.Time
}

// NewService builds an activation service backed by the provided repositories.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, errors.New("activation repository required")
	}
	if params.LicenseRepo == nil {
		return nil, errors.New("license repository required")
	}
	if params.SubscriptionRepo == nil {
		return nil, errors.New("subscription repository required")
	}
	if params.JWT.Secret == "" {
		return nil, errors.New("jwt config required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:        params.Repo,
		licenseRepo: params.LicenseRepo,
		subRepo:     params.SubscriptionRepo,
		jwt:         params.JWT,
		now:         params.Now,
	}, nil
}

// Activate claims the license for a device. An existing binding for the same
// hardware is refreshed rather than duplicated, so repeating the call after
// a reinstall works without admin involvement.
func (s *service) Activate(ctx context.Context, input ActivateInput) (*ActivationResult, error) {
	hardwareID, err := normalizeHardwareID(input.HardwareID)
	if err != nil {
		return nil, err
	}

	license, eval, err := s.evaluate(ctx, input.Key, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license not found")
	}
	if !eval.Valid {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "license is not usable for activation")
	}

	now := s.now().UTC()
	existing, err := s.repo.FindByLicenseAndHardware(ctx, license.ID, hardwareID)
	switch {
	case err == nil:
		existing.IsActive = true
		existing.ActivatedAt = now
		if input.MachineName != nil {
			existing.MachineName = input.MachineName
		}
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh activation")
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		activation := &models.Activation{
			LicenseID:   license.ID,
			HardwareID:  hardwareID,
			MachineName: input.MachineName,
			ActivatedAt: now,
			IsActive:    true,
		}
		if _, err := s.repo.Create(ctx, activation); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create activation")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup activation")
	}

	// The token lifetime tracks the expiry reported in this response, which
	// is the subscription's end date when one exists.
	tokenExpiry := license.EndDate
	if eval.ExpiresAt != nil {
		tokenExpiry = *eval.ExpiresAt
	}
	if eval.GracePeriodEnd != nil && eval.GracePeriodEnd.After(tokenExpiry) {
		tokenExpiry = *eval.GracePeriodEnd
	}
	token, err := auth.MintActivationToken(s.jwt, now, tokenExpiry, license.ID, hardwareID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mint activation token")
	}

	return &ActivationResult{
		Evaluation:      eval,
		ActivationToken: token,
		LicenseID:       license.ID,
		CustomerName:    license.CustomerName,
		LocationName:    license.LocationName,
		LocationAddress: license.LocationAddress,
	}, nil
}

// Validate answers the periodic "am I still licensed" poll. Unknown keys get
// a not_found evaluation rather than an error so offline-tolerant clients
// can treat every answer uniformly. A client-supplied CurrentTime shifts the
// evaluation instant so offline POS clocks get a consistent answer; it never
// affects stored state.
func (s *service) Validate(ctx context.Context, input ValidateInput) (*ValidationResult, error) {
	at := s.now().UTC()
	if input.CurrentTime != nil {
		at = input.CurrentTime.UTC()
	}

	license, eval, err := s.evaluate(ctx, input.Key, at)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return &ValidationResult{Evaluation: eval}, nil
	}

	if hardwareID := strings.TrimSpace(input.HardwareID); hardwareID != "" {
		if err := s.repo.TouchValidation(ctx, license.ID, hardwareID, s.now().UTC()); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record validation heartbeat")
		}
	}

	return &ValidationResult{
		Evaluation:   eval,
		CustomerName: license.CustomerName,
		LocationName: license.LocationName,
	}, nil
}

// Deactivate releases the device binding. Deactivating a binding that is
// already inactive, or that never existed, succeeds.
func (s *service) Deactivate(ctx context.Context, key, hardwareID string) error {
	hardwareID, err := normalizeHardwareID(hardwareID)
	if err != nil {
		return err
	}

	normalized := licensekey.Normalize(key)
	if !licensekey.IsValid(normalized) {
		return pkgerrors.New(pkgerrors.CodeValidation, "malformed license key")
	}
	license, err := s.licenseRepo.FindByKey(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup license")
	}

	activation, err := s.repo.FindByLicenseAndHardware(ctx, license.ID, hardwareID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup activation")
	}
	if !activation.IsActive {
		return nil
	}

	activation.IsActive = false
	if err := s.repo.Update(ctx, activation); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate")
	}
	return nil
}

// DeactivateByID is the admin-side deactivation of a specific binding.
func (s *service) DeactivateByID(ctx context.Context, id uuid.UUID) error {
	activation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "activation not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup activation")
	}
	if !activation.IsActive {
		return nil
	}
	activation.IsActive = false
	if err := s.repo.Update(ctx, activation); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate")
	}
	return nil
}

// ReactivateLicense invalidates every device binding for the license so each
// POS must activate again. Returns how many bindings were cleared.
func (s *service) ReactivateLicense(ctx context.Context, licenseID uuid.UUID) (int64, error) {
	if _, err := s.licenseRepo.FindByID(ctx, licenseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "license not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup license")
	}

	cleared, err := s.repo.DeactivateAllForLicense(ctx, licenseID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear activations")
	}
	return cleared, nil
}

func (s *service) ListActivations(ctx context.Context, params ListParams) (*ListResult, error) {
	page, err := params.Params.Normalize(defaultActivationSort, activationSortColumns)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing parameters")
	}

	rows, total, err := s.repo.List(ctx, ListQuery{
		LicenseID:  params.LicenseID,
		ActiveOnly: params.ActiveOnly,
		Page:       page,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activations")
	}
	return &ListResult{
		Items: rows,
		Meta:  pkgpagination.NewMeta(page.Page, page.PageSize, total),
	}, nil
}

func normalizeHardwareID(raw string) (string, error) {
	hardwareID := strings.TrimSpace(raw)
	if hardwareID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "hardware id is required")
	}
	if len(hardwareID) > maxHardwareIDLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "hardware id exceeds 255 characters")
	}
	return hardwareID, nil
}

// evaluate resolves the key and derives the effective status at the given
// instant. A missing license yields (nil, not_found evaluation, nil) so
// callers decide whether that is an error.
func (s *service) evaluate(ctx context.Context, key string, at time.Time) (*models.License, licenses.Evaluation, error) {
	normalized := licensekey.Normalize(key)
	if !licensekey.IsValid(normalized) {
		return nil, licenses.Evaluation{}, pkgerrors.New(pkgerrors.CodeValidation, "malformed license key")
	}

	license, err := s.licenseRepo.FindByKey(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, licenses.Evaluate(nil, nil, at), nil
		}
		return nil, licenses.Evaluation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup license")
	}

	sub, err := s.subRepo.FindCurrentByLicenseID(ctx, license.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, licenses.Evaluation{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}

	return license, licenses.Evaluate(license, sub, at), nil
}
