package controllers

import (
	"net/http"

	"github.com/vantagepos/licensing-backend/api/middleware"
	"github.com/vantagepos/licensing-backend/api/responses"
	"github.com/vantagepos/licensing-backend/api/validators"
	"github.com/vantagepos/licensing-backend/internal/adminauth"
	"github.com/vantagepos/licensing-backend/internal/ratelimit"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/logger"
)

type adminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AdminLogin authenticates an administrator. Only failed attempts count
// against the login rate limit, so a busy admin is never locked out by
// their own successful sessions.
func AdminLogin(svc adminauth.Service, limiter *ratelimit.Limiter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload adminLoginRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), payload.Email, payload.Password)
		if err != nil {
			if limiter != nil && pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
				limiter.RecordFailure(r.Context(), ratelimit.TierAdminLogin, middleware.ClientIP(r))
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
