package visit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fitlane/trainer-api/internal/model"
	"github.com/fitlane/trainer-api/internal/repository"
)

// Recorder creates the immutable visit record when an appointment reaches a
// terminal status. The appointment's status is authoritative; the visit is
// derived bookkeeping, so callers treat Record failures as best-effort.
type Recorder struct {
	visits       repository.VisitRepository
	serviceTypes repository.ServiceTypeRepository
	logger       zerolog.Logger
}

func NewRecorder(visits repository.VisitRepository, serviceTypes repository.ServiceTypeRepository, logger zerolog.Logger) *Recorder {
	return &Recorder{
		visits:       visits,
		serviceTypes: serviceTypes,
		logger:       logger,
	}
}

// Record computes sessions_deducted and snapshots the service price at
// visit time. Completed, no-show and late-cancel outcomes consume the
// service type's configured sessions; an early cancel returns the session
// to the client's balance.
func (r *Recorder) Record(ctx context.Context, appt *model.Appointment, terminalStatus model.AppointmentStatus) (*model.Visit, error) {
	serviceType, err := r.serviceTypes.Get(ctx, appt.ServiceTypeID)
	if err != nil {
		return nil, err
	}

	sessions := 0
	if terminalStatus != model.AppointmentStatusEarlyCancel {
		sessions = serviceType.SessionsDeducted()
	}

	visit := &model.Visit{
		AppointmentID:    appt.ID,
		ClientID:         appt.ClientID,
		TrainerID:        appt.TrainerID,
		VisitStatus:      terminalStatus,
		SessionsDeducted: sessions,
		ServicePrice:     serviceType.BasePrice,
	}

	if err := r.visits.Create(ctx, visit); err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("appointment_id", appt.ID.String()).
		Str("visit_status", string(terminalStatus)).
		Int("sessions_deducted", sessions).
		Msg("visit recorded")

	return visit, nil
}
