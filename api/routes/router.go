package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vantagepos/licensing-backend/api/controllers"
	"github.com/vantagepos/licensing-backend/api/middleware"
	"github.com/vantagepos/licensing-backend/internal/activations"
	"github.com/vantagepos/licensing-backend/internal/adminauth"
	"github.com/vantagepos/licensing-backend/internal/licenses"
	"github.com/vantagepos/licensing-backend/internal/payments"
	"github.com/vantagepos/licensing-backend/internal/ratelimit"
	"github.com/vantagepos/licensing-backend/internal/seats"
	"github.com/vantagepos/licensing-backend/internal/subscriptions"
	"github.com/vantagepos/licensing-backend/internal/sweep"
	"github.com/vantagepos/licensing-backend/pkg/config"
	"github.com/vantagepos/licensing-backend/pkg/db"
	"github.com/vantagepos/licensing-backend/pkg/logger"
	"github.com/vantagepos/licensing-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Limiter  *ratelimit.Limiter
	SweepJob *sweep.Job

	AdminAuthService    adminauth.Service
	LicenseService      licenses.Service
	SubscriptionService subscriptions.Service
	PaymentService      payments.Service
	ActivationService   activations.Service
	SeatService         seats.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	limiter := deps.Limiter

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.RateLimit(limiter, ratelimit.TierGeneral, logg,
			"/", "/health/live", "/health/ready", "/metrics"),
	)

	r.Get("/", controllers.HealthLive(cfg))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Route("/api/v1/license", func(r chi.Router) {
		r.With(middleware.RateLimit(limiter, ratelimit.TierActivation, logg)).
			Post("/activate", controllers.Activate(deps.ActivationService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(limiter, ratelimit.TierValidation, logg))
			r.Post("/validate", controllers.Validate(deps.ActivationService, logg))
			r.Post("/deactivate", controllers.Deactivate(deps.ActivationService, logg))
			r.Post("/users/check", controllers.SeatCheck(deps.SeatService, logg))
			r.Post("/users/increment", controllers.SeatIncrement(deps.SeatService, logg))
			r.Post("/users/decrement", controllers.SeatDecrement(deps.SeatService, logg))
			r.Post("/users/sync", controllers.SeatSync(deps.SeatService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.With(middleware.LoginRateLimit(limiter, logg)).
			Post("/auth/login", controllers.AdminLogin(deps.AdminAuthService, limiter, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.AdminAuth(cfg.JWT, logg),
				middleware.AdminRateLimit(limiter, ratelimit.TierAdmin, logg),
			)

			r.Route("/licenses", func(r chi.Router) {
				r.With(middleware.AdminRateLimit(limiter, ratelimit.TierGeneration, logg)).
					Post("/", controllers.LicenseGenerate(deps.LicenseService, logg))
				r.Get("/", controllers.LicenseList(deps.LicenseService, logg))
				r.Route("/{licenseID}", func(r chi.Router) {
					r.Get("/", controllers.LicenseGet(deps.LicenseService, logg))
					r.Patch("/", controllers.LicenseUpdate(deps.LicenseService, logg))
					r.Post("/revoke", controllers.LicenseRevoke(deps.LicenseService, logg))
					r.Post("/suspend", controllers.LicenseSuspend(deps.LicenseService, logg))
					r.Post("/resume", controllers.LicenseResume(deps.LicenseService, logg))
					r.Post("/reactivate", controllers.LicenseReactivate(deps.ActivationService, logg))
					r.Post("/renew", controllers.SubscriptionRenew(deps.SubscriptionService, logg))
					r.Post("/users/increase-limit", controllers.LicenseIncreaseUserLimit(deps.SeatService, logg))
				})
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Get("/", controllers.SubscriptionList(deps.SubscriptionService, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", controllers.PaymentList(deps.PaymentService, logg))
				r.Post("/", controllers.PaymentRecord(deps.PaymentService, logg))
				r.Get("/revenue", controllers.PaymentRevenue(deps.PaymentService, logg))
			})

			r.Route("/activations", func(r chi.Router) {
				r.Get("/", controllers.ActivationList(deps.ActivationService, logg))
				r.Post("/{activationID}/deactivate", controllers.ActivationDeactivate(deps.ActivationService, logg))
			})

			r.Route("/jobs", func(r chi.Router) {
				r.Post("/expiry-sweep", controllers.SweepTrigger(deps.SweepJob, logg))
			})
		})
	})

	return r
}
