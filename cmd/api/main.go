package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vantagepos/licensing-backend/api/routes"
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
	"github.com/vantagepos/licensing-backend/pkg/metrics"
	"github.com/vantagepos/licensing-backend/pkg/migrate"
	"github.com/vantagepos/licensing-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	licenseRepo := licenses.NewRepository(gormDB)
	subscriptionRepo := subscriptions.NewRepository(gormDB)
	paymentRepo := payments.NewRepository(gormDB)
	activationRepo := activations.NewRepository(gormDB)
	seatRepo := seats.NewRepository(gormDB)
	adminRepo := adminauth.NewRepository(gormDB)

	licenseService, err := licenses.NewService(licenses.ServiceParams{
		Repo:             licenseRepo,
		SubscriptionRepo: subscriptionRepo,
		PaymentRepo:      paymentRepo,
		DB:               dbClient,
		GracePeriodDays:  cfg.License.GracePeriodDays,
		FreeTrialDays:    cfg.License.FreeTrialDays,
		DefaultUserLimit: cfg.License.DefaultUserLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create license service", err)
		os.Exit(1)
	}

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		Repo:            subscriptionRepo,
		LicenseRepo:     licenseRepo,
		PaymentRepo:     paymentRepo,
		DB:              dbClient,
		GracePeriodDays: cfg.License.GracePeriodDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(paymentRepo, licenseRepo, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	activationService, err := activations.NewService(activations.ServiceParams{
		Repo:             activationRepo,
		LicenseRepo:      licenseRepo,
		SubscriptionRepo: subscriptionRepo,
		JWT:              cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create activation service", err)
		os.Exit(1)
	}

	seatService, err := seats.NewService(seats.ServiceParams{
		Repo:             seatRepo,
		LicenseRepo:      licenseRepo,
		SubscriptionRepo: subscriptionRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create seat service", err)
		os.Exit(1)
	}

	adminAuthService, err := adminauth.NewService(adminauth.ServiceParams{
		Repo:     adminRepo,
		JWT:      cfg.JWT,
		Password: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin auth service", err)
		os.Exit(1)
	}

	admissionMetrics := metrics.NewAdmissionMetrics(prometheus.DefaultRegisterer)
	limiter, err := ratelimit.NewLimiter(redisClient, cfg.RateLimit, admissionMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create rate limiter", err)
		os.Exit(1)
	}

	sweepMetrics := metrics.NewSweepMetrics(prometheus.DefaultRegisterer)
	sweepLock := sweep.NewRedisLock(redisClient, "expiry-sweep", cfg.Sweep.LockTTL)
	sweepJob, err := sweep.NewJob(sweep.JobParams{
		LicenseRepo:      licenseRepo,
		SubscriptionRepo: subscriptionRepo,
		DB:               dbClient,
		Lock:             sweepLock,
		Metrics:          sweepMetrics,
		Logger:           logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep job", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler: routes.NewRouter(routes.Deps{
			Config:              cfg,
			Logger:              logg,
			DB:                  dbClient,
			Redis:               redisClient,
			Limiter:             limiter,
			SweepJob:            sweepJob,
			AdminAuthService:    adminAuthService,
			LicenseService:      licenseService,
			SubscriptionService: subscriptionService,
			PaymentService:      paymentService,
			ActivationService:   activationService,
			SeatService:         seatService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
