package controllers

import (
	"net/http"
	"time"

	"github.com/vantagepos/licensing-backend/api/responses"
	"github.com/vantagepos/licensing-backend/api/validators"
	"github.com/vantagepos/licensing-backend/internal/activations"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/logger"
)

type activateRequest struct {
	LicenseKey  string  `json:"licenseKey" validate:"required"`
	HardwareID  string  `json:"hardwareId" validate:"required,max=255"`
	MachineName *string `json:"machineName" validate:"omitempty,max=255"`
}

// Activate binds the calling POS device to its license and returns the
// activation token.
func Activate(svc activations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activation service unavailable"))
			return
		}

		var payload activateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Activate(r.Context(), activations.ActivateInput{
			Key:         payload.LicenseKey,
			HardwareID:  payload.HardwareID,
			MachineName: payload.MachineName,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithLicenseID(r.Context(), result.LicenseID.String())
		logg.Info(ctx, "device activated")

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type validateRequest struct {
	LicenseKey  string `json:"licenseKey" validate:"required"`
	HardwareID  string `json:"hardwareId" validate:"max=255"`
	CurrentTime *int64 `json:"currentTime"`
}

// Validate answers the periodic license check. Invalid licenses are normal
// 200 responses with valid=false; clients act on the status field.
func Validate(svc activations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activation service unavailable"))
			return
		}

		var payload validateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := activations.ValidateInput{
			Key:        payload.LicenseKey,
			HardwareID: payload.HardwareID,
		}
		if payload.CurrentTime != nil {
			at := time.UnixMilli(*payload.CurrentTime).UTC()
			input.CurrentTime = &at
		}

		result, err := svc.Validate(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type deactivateRequest struct {
	LicenseKey string `json:"licenseKey" validate:"required"`
	HardwareID string `json:"hardwareId" validate:"required,max=255"`
}

// Deactivate releases the device binding. The call is idempotent.
func Deactivate(svc activations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activation service unavailable"))
			return
		}

		var payload deactivateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Deactivate(r.Context(), payload.LicenseKey, payload.HardwareID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
