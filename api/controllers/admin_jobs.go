package controllers

import (
	"net/http"

	"github.com/vantagepos/licensing-backend/api/responses"
	"github.com/vantagepos/licensing-backend/internal/sweep"
	pkgerrors "github.com/vantagepos/licensing-backend/pkg/errors"
	"github.com/vantagepos/licensing-backend/pkg/logger"
)

// SweepTrigger runs the expiry sweep on demand. A run already in progress
// anywhere in the fleet surfaces as a conflict.
func SweepTrigger(job *sweep.Job, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if job == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sweep unavailable"))
			return
		}

		result, err := job.Run(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
