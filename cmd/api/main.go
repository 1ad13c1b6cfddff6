package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/fitlane/trainer-api/internal/config"
	"github.com/fitlane/trainer-api/internal/handler"
	appointmentHandler "github.com/fitlane/trainer-api/internal/handler/appointment"
	healthHandler "github.com/fitlane/trainer-api/internal/handler/health"
	"github.com/fitlane/trainer-api/internal/middleware"
	"github.com/fitlane/trainer-api/internal/repository/postgres"
	"github.com/fitlane/trainer-api/internal/router"
	appointmentService "github.com/fitlane/trainer-api/internal/service/appointment"
	billingService "github.com/fitlane/trainer-api/internal/service/billing"
	notificationService "github.com/fitlane/trainer-api/internal/service/notification"
	policyService "github.com/fitlane/trainer-api/internal/service/policy"
	visitService "github.com/fitlane/trainer-api/internal/service/visit"
	"github.com/fitlane/trainer-api/pkg/logger"
	"github.com/fitlane/trainer-api/pkg/messaging/redis"
	"github.com/fitlane/trainer-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	zl := appLogger.Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}

	m := metrics.NewMetrics("trainer_api", "appointments")

	appointmentRepo := postgres.NewAppointmentRepository(db)
	visitRepo := postgres.NewVisitRepository(db)
	policyRepo := postgres.NewPolicyRepository(db)
	serviceTypeRepo := postgres.NewServiceTypeRepository(db)
	feeChargeRepo := postgres.NewFeeChargeRepository(db)

	resolver := policyService.NewResolver(policyRepo, serviceTypeRepo, policyService.ResolverConfig{
		DefaultWindowMinutes: cfg.Policy.DefaultCancelWindowMinutes,
		CacheTTL:             cfg.Policy.CacheTTL,
	}, zl)
	calculator := policyService.NewCalculator(resolver)
	recorder := visitService.NewRecorder(visitRepo, serviceTypeRepo, zl)
	coordinator := billingService.NewCoordinator(feeChargeRepo, broker, m, zl)
	dispatcher := notificationService.NewBrokerDispatcher(broker, zl)

	appointmentSvc := appointmentService.NewService(
		appointmentRepo,
		recorder,
		calculator,
		resolver,
		coordinator,
		dispatcher,
		appointmentRepo,
		m,
		zl,
	)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	h := handler.NewHandler()
	apptHandler := appointmentHandler.NewHandler(appointmentSvc)
	healthH := healthHandler.NewHandler(db)

	r := router.NewRouter(authMiddleware, apptHandler, healthH, h, router.RouterConfig{
		RateLimit:     rate.Limit(cfg.Server.RateLimitRPS),
		RateBurst:     cfg.Server.RateLimitBurst,
		Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		MetricsPrefix: "trainer_api",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
