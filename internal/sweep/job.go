package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/vantagepos/licensing-backend/internal/licenses"
	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/logger"
	"github.com/vantagepos/licensing-backend/pkg/metrics"
)

const jobName = "expiry_sweep"

type licensesRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.License, error)
	FindExpiryCandidates(ctx context.Context, now time.Time) ([]models.License, error)
	UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.LicenseStatus) error
}

type subscriptionsRepository interface {
	FindExpiryCandidates(ctx context.Context, now time.Time) ([]models.Subscription, error)
	FindCurrentByLicenseID(ctx context.Context, licenseID uuid.UUID) (*models.Subscription, error)
	UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.SubscriptionStatus) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Result summarizes one sweep run.
type Result struct {
	Updated int    `json:"updated"`
	Message string `json:"message"`
}

// JobParams configure the expiry sweep.
type JobParams struct {
	LicenseRepo      licensesRepository
	SubscriptionRepo subscriptionsRepository
	DB               txRunner
	Lock             lease
	Metrics          *metrics.SweepMetrics
	Logger           *logger.Logger
	Now              func() time.Time
}

// Job transitions licenses whose paid period and grace window have both
// elapsed. A Redis lease keeps runs mutually exclusive across instances;
// the job is idempotent, so an operator-triggered run overlapping the
// scheduled one is rejected rather than doubled.
type Job struct {
	licenseRepo licensesRepository
	subRepo     subscriptionsRepository
	db          txRunner
	lock        lease
	metrics     *metrics.SweepMetrics
	logg        *logger.Logger
	now         func() time.Time
}

// NewJob builds the expiry sweep job.
func NewJob(params JobParams) (*Job, error) {
	if params.LicenseRepo == nil {
		return nil, errors.New("license repository required")
	}
	if params.SubscriptionRepo == nil {
		return nil, errors.New("subscription repository required")
	}
	if params.DB == nil {
		return nil, errors.New("tx runner required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Job{
		licenseRepo: params.LicenseRepo,
		subRepo:     params.SubscriptionRepo,
		db:          params.DB,
		lock:        params.Lock,
		metrics:     params.Metrics,
		logg:        params.Logger,
		now:         params.Now,
	}, nil
}

// Run executes one sweep under the lease. A second caller while the lease
// is held gets a conflict error and no work happens.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	acquired, err := j.lock.Acquire(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire sweep lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "expiry sweep already running")
	}
	defer func() {
		if err := j.lock.Release(context.WithoutCancel(ctx)); err != nil {
			j.logg.Error(ctx, "release sweep lock", err)
		}
	}()

	started := j.now()
	result, err := j.sweep(ctx)
	if j.metrics != nil {
		j.metrics.ObserveDuration(jobName, j.now().Sub(started))
		if err != nil {
			j.metrics.IncFailure(jobName)
		} else {
			j.metrics.IncSuccess(jobName)
			j.metrics.AddUpdated(result.Updated)
		}
	}
	return result, err
}

// sweep walks both candidate sets. Each row is re-evaluated against the
// clock before any write, so rows renewed between the scan and the update
// are left alone.
func (j *Job) sweep(ctx context.Context) (*Result, error) {
	now := j.now().UTC()
	updated := 0
	var errs error

	subs, err := j.subRepo.FindExpiryCandidates(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan subscriptions")
	}
	for i := range subs {
		changed, err := j.sweepSubscription(ctx, &subs[i], now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("subscription %s: %w", subs[i].ID, err))
			continue
		}
		if changed {
			updated++
		}
	}

	lics, err := j.licenseRepo.FindExpiryCandidates(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan licenses")
	}
	for i := range lics {
		changed, err := j.sweepLicense(ctx, &lics[i], now)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("license %s: %w", lics[i].ID, err))
			continue
		}
		if changed {
			updated++
		}
	}

	if errs != nil {
		return &Result{Updated: updated, Message: "sweep finished with errors"},
			pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "expiry sweep")
	}

	ctx = j.logg.WithField(ctx, "updated", updated)
	j.logg.Info(ctx, "expiry sweep finished")
	return &Result{Updated: updated, Message: fmt.Sprintf("transitioned %d records", updated)}, nil
}

// sweepSubscription moves a lapsed subscription to grace_period while the
// grace window is open and to expired once it closes. Expiring the
// subscription also expires the license in the same transaction.
func (j *Job) sweepSubscription(ctx context.Context, sub *models.Subscription, now time.Time) (bool, error) {
	license, err := j.licenseRepo.FindByID(ctx, sub.LicenseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	eval := licenses.Evaluate(license, sub, now)
	switch eval.Status {
	case enums.EffectiveStatusGracePeriod:
		if sub.Status == enums.SubscriptionStatusGracePeriod {
			return false, nil
		}
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			return j.subRepo.UpdateStatusWithTx(tx, sub.ID, enums.SubscriptionStatusGracePeriod)
		})
		return err == nil, err
	case enums.EffectiveStatusExpired:
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			if err := j.subRepo.UpdateStatusWithTx(tx, sub.ID, enums.SubscriptionStatusExpired); err != nil {
				return err
			}
			if license.Status == enums.LicenseStatusActive {
				return j.licenseRepo.UpdateStatusWithTx(tx, license.ID, enums.LicenseStatusExpired)
			}
			return nil
		})
		return err == nil, err
	default:
		return false, nil
	}
}

// sweepLicense expires a license with no live subscription once its own end
// date has passed.
func (j *Job) sweepLicense(ctx context.Context, license *models.License, now time.Time) (bool, error) {
	sub, err := j.subRepo.FindCurrentByLicenseID(ctx, license.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	eval := licenses.Evaluate(license, sub, now)
	if eval.Status != enums.EffectiveStatusExpired {
		return false, nil
	}
	if license.Status != enums.LicenseStatusActive {
		return false, nil
	}

	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.licenseRepo.UpdateStatusWithTx(tx, license.ID, enums.LicenseStatusExpired)
	})
	return err == nil, err
}
