package licenses

import (
	"time"

	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
)

const day = 24 * time.Hour

// Evaluation is the outcome of deriving a license's effective status at a
// point in time. It carries everything validation and activation report back
// to clients.
type Evaluation struct {
	Valid          bool                  `json:"valid"`
	Status         enums.EffectiveStatus `json:"status"`
	ExpiresAt      *time.Time            `json:"expiresAt,omitempty"`
	GracePeriodEnd *time.Time            `json:"gracePeriodEnd,omitempty"`
	DaysRemaining  int                   `json:"daysRemaining"`
}

// Evaluate derives the effective status of a license from stored dates and
// the supplied instant. It is a pure function: no I/O, no mutation, and the
// same inputs always yield the same result. Validation, activation
// preconditions, and the expiry sweep all share this logic.
//
// Rules, in order:
//  1. nil license reports not_found.
//  2. revoked and suspended stored statuses are reported verbatim.
//  3. before the expiry instant the license is active.
//  4. between expiry and the grace period end the license is still usable
//     but reports grace_period so clients can warn the customer.
//  5. past the grace window (or with none configured) the license is expired.
//
// When a subscription row exists its dates win over the license's own, since
// renewals extend the subscription.
func Evaluate(lic *models.License, sub *models.Subscription, now time.Time) Evaluation {
	if lic == nil {
		return Evaluation{Status: enums.EffectiveStatusNotFound}
	}

	switch lic.Status {
	case enums.LicenseStatusRevoked:
		return Evaluation{Status: enums.EffectiveStatusRevoked}
	case enums.LicenseStatusSuspended:
		return Evaluation{Status: enums.EffectiveStatusSuspended}
	}

	expiresAt := lic.EndDate
	var graceEnd *time.Time
	if sub != nil {
		expiresAt = sub.EndDate
		graceEnd = sub.GracePeriodEnd
	}

	if now.Before(expiresAt) {
		return Evaluation{
			Valid:          true,
			Status:         enums.EffectiveStatusActive,
			ExpiresAt:      &expiresAt,
			GracePeriodEnd: graceEnd,
			DaysRemaining:  daysUntil(now, expiresAt),
		}
	}

	if graceEnd != nil && now.Before(*graceEnd) {
		return Evaluation{
			Valid:          true,
			Status:         enums.EffectiveStatusGracePeriod,
			ExpiresAt:      &expiresAt,
			GracePeriodEnd: graceEnd,
			DaysRemaining:  daysUntil(now, *graceEnd),
		}
	}

	return Evaluation{
		Status:         enums.EffectiveStatusExpired,
		ExpiresAt:      &expiresAt,
		GracePeriodEnd: graceEnd,
	}
}

// daysUntil counts whole days from now to deadline, rounding up so a license
// expiring in one hour still reports one remaining day.
func daysUntil(now, deadline time.Time) int {
	remaining := deadline.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + day - 1) / day)
}
