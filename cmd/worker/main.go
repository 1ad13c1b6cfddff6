package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/fitlane/trainer-api/internal/config"
	"github.com/fitlane/trainer-api/internal/repository/postgres"
	billingService "github.com/fitlane/trainer-api/internal/service/billing"
	"github.com/fitlane/trainer-api/pkg/logger"
	"github.com/fitlane/trainer-api/pkg/messaging/redis"
	"github.com/fitlane/trainer-api/pkg/metrics"
	"github.com/fitlane/trainer-api/pkg/worker"
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

	m := metrics.NewMetrics("trainer_api", "billing_worker")

	feeChargeRepo := postgres.NewFeeChargeRepository(db)
	payments := billingService.NewPaymentsClient(billingService.PaymentsClientConfig{
		BaseURL: cfg.Payments.BaseURL,
		APIKey:  cfg.Payments.APIKey,
		Timeout: cfg.Payments.Timeout,
	}, zl)

	processor := worker.NewFeeChargeProcessor(
		feeChargeRepo,
		payments,
		broker,
		worker.FeeChargeProcessorConfig{
			BatchSize:    cfg.Billing.BatchSize,
			PollInterval: cfg.Billing.PollInterval,
			MaxRetries:   cfg.Billing.MaxRetries,
			RetryDelay:   cfg.Billing.RetryDelay,
		},
		appLogger,
		m,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go processor.Start(ctx)

	// Metrics endpoint for the worker process.
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start metrics server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker...")

	cancel()
	if err := metricsSrv.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close metrics server")
	}

	log.Info().Msg("worker exited properly")
}
