package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fitlane/trainer-api/internal/model"
	"github.com/fitlane/trainer-api/internal/repository"
	"github.com/fitlane/trainer-api/internal/service/billing"
	"github.com/fitlane/trainer-api/pkg/logger"
	"github.com/fitlane/trainer-api/pkg/messaging"
	"github.com/fitlane/trainer-api/pkg/metrics"
)

type FeeChargeProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// FeeChargeProcessor drains the pending fee-charge queue against the
// payment collaborator. The appointment transition finished long before
// this runs; nothing here ever touches appointment status. Charges that
// exhaust their retries move to failed and are published on the billing
// warning channel.
type FeeChargeProcessor struct {
	charges repository.FeeChargeRepository
	collab  billing.PaymentCollaborator
	broker  messaging.Broker
	config  FeeChargeProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewFeeChargeProcessor(
	charges repository.FeeChargeRepository,
	collab billing.PaymentCollaborator,
	broker messaging.Broker,
	config FeeChargeProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *FeeChargeProcessor {
	// Config validation instead of defaults
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		panic("MaxRetries must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &FeeChargeProcessor{
		charges: charges,
		collab:  collab,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (p *FeeChargeProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Starting fee charge processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Shutting down fee charge processor")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error(err, "Failed to process fee charges")
			}
		}
	}
}

func (p *FeeChargeProcessor) processBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.FeeChargeLatency)
	defer timer.ObserveDuration()

	charges, err := p.charges.ClaimPending(ctx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("claim_pending_charges", "error").Inc()
		return fmt.Errorf("failed to claim pending fee charges: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("claim_pending_charges", "success").Inc()

	for _, charge := range charges {
		if err := p.processCharge(ctx, charge); err != nil {
			p.logger.Error(err, "Failed to process fee charge",
				"charge_id", charge.ID.String(),
				"fee_type", string(charge.FeeType))
			continue
		}
	}

	return nil
}

func (p *FeeChargeProcessor) processCharge(ctx context.Context, charge *model.FeeCharge) error {
	result, err := p.collab.ChargeFee(ctx, charge.AppointmentID, charge.FeeType, charge.Amount)
	if err != nil {
		return p.handleChargeError(ctx, charge, err)
	}

	// A declined card is a settled outcome: the collaborator records a
	// debit ledger entry and the balance becomes receivable. Only
	// collaborator errors are retried.
	if result.Success {
		p.metrics.FeeChargesProcessed.Inc()
	} else {
		p.metrics.FeeChargesDeclined.Inc()
		p.logger.Warn("Fee charge declined, ledger debit recorded",
			"charge_id", charge.ID.String(),
			"appointment_id", charge.AppointmentID.String())
	}

	if err := p.charges.MarkProcessed(ctx, charge.ID); err != nil {
		return err
	}

	p.publish(ctx, messaging.ChannelFeeChargeSettled, "fee_charge_settled", charge, result)
	return nil
}

func (p *FeeChargeProcessor) handleChargeError(ctx context.Context, charge *model.FeeCharge, chargeErr error) error {
	if charge.RetryCount+1 < p.config.MaxRetries {
		p.metrics.FeeChargeRetries.WithLabelValues(string(charge.FeeType)).Inc()
		retryAt := time.Now().Add(p.config.RetryDelay)
		return p.charges.ScheduleRetry(ctx, charge.ID, chargeErr.Error(), retryAt)
	}

	p.metrics.FeeChargesFailed.Inc()
	if err := p.charges.MarkFailed(ctx, charge.ID, chargeErr.Error()); err != nil {
		return err
	}

	// Out-of-band failure report: a silently dropped penalty is a
	// financial correctness risk, so the failure goes on the warning
	// channel for alerting, not just the log.
	p.publish(ctx, messaging.ChannelFeeChargeFailed, "fee_charge_failed", charge, &billing.ChargeResult{
		Success: false,
		Error:   chargeErr.Error(),
	})
	return nil
}

func (p *FeeChargeProcessor) publish(ctx context.Context, channel, eventType string, charge *model.FeeCharge, result *billing.ChargeResult) {
	msg := messaging.Message{
		Type: eventType,
		Payload: map[string]interface{}{
			"charge_id":      charge.ID,
			"appointment_id": charge.AppointmentID,
			"fee_type":       charge.FeeType,
			"amount":         charge.Amount,
			"result":         result,
		},
	}
	if err := p.broker.Publish(ctx, channel, msg); err != nil {
		p.logger.Error(err, "Failed to publish fee charge event",
			"charge_id", charge.ID.String(),
			"channel", channel)
	}
}
