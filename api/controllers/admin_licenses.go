package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vantagepos/licensing-backend/api/responses"
	"github.com/vantagepos/licensing-backend/api/validators"
	"github.com/vantagepos/licensing-backend/internal/activations"
	"github.com/vantagepos/licensing-backend/internal/licenses"
	"github.com/vantagepos/licensing-backend/internal/seats"
	"github.com/vantagepos/licensing-backend/pkg/db/models"
	"github.com/vantagepos/licensing-backend/pkg/enums"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/logger"
)

type licenseGenerateRequest struct {
	CustomerName    *string          `json:"customerName"`
	CustomerPhone   *string          `json:"customerPhone"`
	LocationName    *string          `json:"locationName"`
	LocationAddress *string          `json:"locationAddress"`
	InitialPrice    decimal.Decimal  `json:"initialPrice"`
	AnnualPrice     decimal.Decimal  `json:"annualPrice"`
	PricePerUser    decimal.Decimal  `json:"pricePerUser"`
	IsFreeTrial     bool             `json:"isFreeTrial"`
	UserLimit       int              `json:"userLimit"`
}

type licenseUpdateRequest struct {
	CustomerName    *string          `json:"customerName"`
	CustomerPhone   *string          `json:"customerPhone"`
	LocationName    *string          `json:"locationName"`
	LocationAddress *string          `json:"locationAddress"`
	AnnualPrice     *decimal.Decimal `json:"annualPrice"`
	PricePerUser    *decimal.Decimal `json:"pricePerUser"`
	EndDate         *time.Time       `json:"endDate"`
}

type increaseUserLimitRequest struct {
	AdditionalUsers int `json:"additionalUsers" validate:"required,gt=0"`
}

type licenseResponse struct {
	ID              string              `json:"id"`
	Key             string              `json:"key"`
	CustomerName    *string             `json:"customerName,omitempty"`
	CustomerPhone   *string             `json:"customerPhone,omitempty"`
	LocationName    *string             `json:"locationName,omitempty"`
	LocationAddress *string             `json:"locationAddress,omitempty"`
	Status          enums.LicenseStatus `json:"status"`
	PurchaseDate    time.Time           `json:"purchaseDate"`
	InitialPrice    decimal.Decimal     `json:"initialPrice"`
	AnnualPrice     decimal.Decimal     `json:"annualPrice"`
	PricePerUser    decimal.Decimal     `json:"pricePerUser"`
	IsFreeTrial     bool                `json:"isFreeTrial"`
	StartDate       time.Time           `json:"startDate"`
	EndDate         time.Time           `json:"endDate"`
	UserCount       int                 `json:"userCount"`
	UserLimit       int                 `json:"userLimit"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

func licenseResponseFromModel(m *models.License) licenseResponse {
	return licenseResponse{
		ID:              m.ID.String(),
		Key:             m.Key,
		CustomerName:    m.CustomerName,
		CustomerPhone:   m.CustomerPhone,
		LocationName:    m.LocationName,
		LocationAddress: m.LocationAddress,
		Status:          m.Status,
		PurchaseDate:    m.PurchaseDate,
		InitialPrice:    m.InitialPrice,
		AnnualPrice:     m.AnnualPrice,
		PricePerUser:    m.PricePerUser,
		IsFreeTrial:     m.IsFreeTrial,
		StartDate:       m.StartDate,
		EndDate:         m.EndDate,
		UserCount:       m.UserCount,
		UserLimit:       m.UserLimit,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// LicenseGenerate creates a license with a fresh key, its first subscription
// period, and the initial payment.
func LicenseGenerate(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		var payload licenseGenerateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.GenerateLicense(r.Context(), licenses.GenerateLicenseInput{
			CustomerName:    payload.CustomerName,
			CustomerPhone:   payload.CustomerPhone,
			LocationName:    payload.LocationName,
			LocationAddress: payload.LocationAddress,
			InitialPrice:    payload.InitialPrice,
			AnnualPrice:     payload.AnnualPrice,
			PricePerUser:    payload.PricePerUser,
			IsFreeTrial:     payload.IsFreeTrial,
			UserLimit:       payload.UserLimit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, licenseResponseFromModel(created))
	}
}

// LicenseList pages through licenses with optional status and search filters.
func LicenseList(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := licenses.ListParams{
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
			Params: page,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseLicenseStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			params.Status = &status
		}

		result, err := svc.ListLicenses(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// LicenseGet returns a single license by id.
func LicenseGet(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(chi.URLParam(r, "licenseID"), "licenseID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		license, err := svc.GetLicense(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, licenseResponseFromModel(license))
	}
}

// LicenseUpdate edits the admin-mutable license fields.
func LicenseUpdate(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(chi.URLParam(r, "licenseID"), "licenseID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload licenseUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateLicense(r.Context(), id, licenses.UpdateLicenseInput{
			CustomerName:    payload.CustomerName,
			CustomerPhone:   payload.CustomerPhone,
			LocationName:    payload.LocationName,
			LocationAddress: payload.LocationAddress,
			AnnualPrice:     payload.AnnualPrice,
			PricePerUser:    payload.PricePerUser,
			EndDate:         payload.EndDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, licenseResponseFromModel(updated))
	}
}

// LicenseRevoke permanently disables a license.
func LicenseRevoke(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return licenseTransition(svc, logg, svc.RevokeLicense, "revoked")
}

// LicenseSuspend temporarily disables a license.
func LicenseSuspend(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return licenseTransition(svc, logg, svc.SuspendLicense, "suspended")
}

// LicenseResume lifts a suspension.
func LicenseResume(svc licenses.Service, logg *logger.Logger) http.HandlerFunc {
	return licenseTransition(svc, logg, svc.ResumeLicense, "active")
}

func licenseTransition(svc licenses.Service, logg *logger.Logger, fn func(ctx context.Context, id uuid.UUID) error, status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "license service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(chi.URLParam(r, "licenseID"), "licenseID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := fn(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": status})
	}
}

// LicenseReactivate clears every device binding so each POS has to activate
// again with the same key.
func LicenseReactivate(svc activations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activation service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(chi.URLParam(r, "licenseID"), "licenseID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cleared, err := svc.ReactivateLicense(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"clearedActivations": cleared})
	}
}

// LicenseIncreaseUserLimit raises the seat limit after a user-pack purchase.
func LicenseIncreaseUserLimit(svc seats.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seat service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(chi.URLParam(r, "licenseID"), "licenseID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload increaseUserLimitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.IncreaseUserLimit(r.Context(), id, payload.AdditionalUsers)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
