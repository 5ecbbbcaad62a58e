package controllers

import (
	"net/http"

	"github.com/vantagepos/licensing-backend/api/responses"
	"github.com/vantagepos/licensing-backend/api/validators"
	"github.com/vantagepos/licensing-backend/internal/seats"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/logger"
)

// HardwareID is reported by POS clients for telemetry. Seat accounting is
// keyed on the license alone, so the handlers accept it without acting on it.
type seatRequest struct {
	LicenseKey string `json:"licenseKey" validate:"required"`
	HardwareID string `json:"hardwareId" validate:"max=255"`
}

type seatSyncRequest struct {
	LicenseKey string `json:"licenseKey" validate:"required"`
	HardwareID string `json:"hardwareId" validate:"max=255"`
	UserCount  *int   `json:"userCount" validate:"required"`
}

// SeatCheck reports whether the POS may create another user.
func SeatCheck(svc seats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seat service unavailable"))
			return
		}

		var payload seatRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CheckUserCreation(r.Context(), payload.LicenseKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SeatIncrement claims one seat after the POS created a user.
func SeatIncrement(svc seats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seat service unavailable"))
			return
		}

		var payload seatRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.IncrementUserCount(r.Context(), payload.LicenseKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SeatDecrement releases one seat after the POS deleted a user.
func SeatDecrement(svc seats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seat service unavailable"))
			return
		}

		var payload seatRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.DecrementUserCount(r.Context(), payload.LicenseKey)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// SeatSync reconciles the server counter with the client's actual count.
func SeatSync(svc seats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seat service unavailable"))
			return
		}

		var payload seatSyncRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SyncUserCount(r.Context(), payload.LicenseKey, *payload.UserCount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
