package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fitlane/trainer-api/internal/model"
	"github.com/fitlane/trainer-api/internal/repository"
	"github.com/fitlane/trainer-api/pkg/messaging"
	"github.com/fitlane/trainer-api/pkg/metrics"
)

// PaymentCollaborator is the external payment boundary. The gateway
// protocol behind it is out of scope; a declined card is expected to leave
// a debit ledger entry on the client's account rather than an error.
type PaymentCollaborator interface {
	ChargeFee(ctx context.Context, appointmentID uuid.UUID, feeType model.FeeType, amount float64) (*ChargeResult, error)
}

type ChargeResult struct {
	Success     bool               `json:"success"`
	LedgerEntry *model.LedgerEntry `json:"ledger_entry,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Coordinator decouples penalty collection from the appointment transition:
// ChargeFee persists a pending charge and returns; the billing worker
// settles it against the payment collaborator later. A charge that cannot
// even be enqueued is reported on the billing warning channel, never back
// into the transition result.
type Coordinator struct {
	charges repository.FeeChargeRepository
	broker  messaging.Broker
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewCoordinator(charges repository.FeeChargeRepository, broker messaging.Broker, m *metrics.Metrics, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		charges: charges,
		broker:  broker,
		metrics: m,
		logger:  logger,
	}
}

// ChargeFee enqueues the penalty for collection.
func (c *Coordinator) ChargeFee(ctx context.Context, appointmentID uuid.UUID, feeType model.FeeType, amount float64) error {
	charge := &model.FeeCharge{
		AppointmentID: appointmentID,
		FeeType:       feeType,
		Amount:        amount,
	}
	if err := c.charges.Create(ctx, charge); err != nil {
		return err
	}

	c.metrics.FeeChargesEnqueued.Inc()
	c.logger.Info().
		Str("appointment_id", appointmentID.String()).
		Str("fee_type", string(feeType)).
		Float64("amount", amount).
		Msg("fee charge enqueued")
	return nil
}

// ChargeFeeAsync is the fire-and-forget entry point used by the state
// machine: it never blocks the caller and swallows its own failures into
// the warning channel. The detached context outlives the request that
// triggered the transition.
func (c *Coordinator) ChargeFeeAsync(appointmentID uuid.UUID, feeType model.FeeType, amount float64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := c.ChargeFee(ctx, appointmentID, feeType, amount); err != nil {
			c.logger.Error().Err(err).
				Str("appointment_id", appointmentID.String()).
				Str("fee_type", string(feeType)).
				Msg("failed to enqueue fee charge")
			c.reportFailure(ctx, appointmentID, feeType, amount, err.Error())
		}
	}()
}

func (c *Coordinator) reportFailure(ctx context.Context, appointmentID uuid.UUID, feeType model.FeeType, amount float64, reason string) {
	msg := messaging.Message{
		Type: "fee_charge_failed",
		Payload: map[string]interface{}{
			"appointment_id": appointmentID,
			"fee_type":       feeType,
			"amount":         amount,
			"reason":         reason,
		},
	}
	if err := c.broker.Publish(ctx, messaging.ChannelFeeChargeFailed, msg); err != nil {
		// Last resort: the log line is all that is left when the warning
		// channel itself is down.
		c.logger.Error().Err(err).
			Str("appointment_id", appointmentID.String()).
			Msg("failed to publish fee charge failure")
	}
}
