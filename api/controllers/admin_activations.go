package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vantagepos/licensing-backend/api/responses"
	"github.com/vantagepos/licensing-backend/api/validators"
	"github.com/vantagepos/licensing-backend/internal/activations"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/logger"
)

// ActivationList pages through device bindings.
func ActivationList(svc activations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activation service unavailable"))
			return
		}

		page, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := activations.ListParams{
			ActiveOnly: r.URL.Query().Get("activeOnly") == "true",
			Params:     page,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("licenseId")); raw != "" {
			id, err := validators.ParseUUIDParam(raw, "licenseId")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			params.LicenseID = &id
		}

		result, err := svc.ListActivations(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ActivationDeactivate releases one binding by id.
func ActivationDeactivate(svc activations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "activation service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(chi.URLParam(r, "activationID"), "activationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeactivateByID(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
