package notification

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fitlane/trainer-api/internal/model"
	"github.com/fitlane/trainer-api/pkg/messaging"
)

// Dispatcher is notified of appointment status changes. Implementations
// must tolerate failure: the state machine logs dispatch errors and moves
// on, so delivery is best-effort by contract.
type Dispatcher interface {
	Notify(ctx context.Context, appt *model.Appointment, newStatus model.AppointmentStatus) error
}

// BrokerDispatcher publishes status changes on the message broker; the
// delivery mechanics (push, email, realtime UI) live behind the channel.
type BrokerDispatcher struct {
	broker messaging.Broker
	logger zerolog.Logger
}

func NewBrokerDispatcher(broker messaging.Broker, logger zerolog.Logger) *BrokerDispatcher {
	return &BrokerDispatcher{broker: broker, logger: logger}
}

type statusChangedEvent struct {
	AppointmentID string                  `json:"appointment_id"`
	TrainerID     string                  `json:"trainer_id"`
	ClientID      string                  `json:"client_id"`
	NewStatus     model.AppointmentStatus `json:"new_status"`
	StartAt       string                  `json:"start_at"`
}

func (d *BrokerDispatcher) Notify(ctx context.Context, appt *model.Appointment, newStatus model.AppointmentStatus) error {
	event := statusChangedEvent{
		AppointmentID: appt.ID.String(),
		TrainerID:     appt.TrainerID.String(),
		ClientID:      appt.ClientID.String(),
		NewStatus:     newStatus,
		StartAt:       appt.StartAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	return d.broker.Publish(ctx, messaging.ChannelStatusChanged, messaging.Message{
		Type:    "appointment_status_changed",
		Payload: event,
	})
}
