package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/fitlane/trainer-api/internal/model"
	"github.com/fitlane/trainer-api/internal/repository"
	apperrors "github.com/fitlane/trainer-api/pkg/errors"
	"github.com/fitlane/trainer-api/pkg/metrics"
)

// Collaborator boundaries. The service owns transition correctness; the
// side effects behind these interfaces are best-effort or fire-and-forget
// relative to the authoritative status write.
type (
	VisitRecorder interface {
		Record(ctx context.Context, appt *model.Appointment, terminalStatus model.AppointmentStatus) (*model.Visit, error)
	}

	PenaltyCalculator interface {
		Calculate(ctx context.Context, appt *model.Appointment, terminalStatus model.AppointmentStatus) (*model.Penalty, error)
	}

	CancelClassifier interface {
		ResolveCancelStatus(ctx context.Context, appt *model.Appointment, meta model.TransitionMetadata) (model.AppointmentStatus, error)
	}

	FeeCharger interface {
		ChargeFeeAsync(appointmentID uuid.UUID, feeType model.FeeType, amount float64)
	}

	Dispatcher interface {
		Notify(ctx context.Context, appt *model.Appointment, newStatus model.AppointmentStatus) error
	}

	// ConflictChecker is consulted before a booking request is created.
	// Appointments handed to the transition path are assumed conflict-free.
	ConflictChecker interface {
		HasConflict(ctx context.Context, trainerID uuid.UUID, start, end time.Time) (bool, error)
	}
)

// TransitionResult carries the outcome of a successful transition.
type TransitionResult struct {
	Appointment *model.Appointment `json:"appointment"`
	Visit       *model.Visit       `json:"visit,omitempty"`
}

type Service struct {
	repo       repository.AppointmentRepository
	visits     VisitRecorder
	penalties  PenaltyCalculator
	classifier CancelClassifier
	billing    FeeCharger
	notifier   Dispatcher
	conflicts  ConflictChecker
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(
	repo repository.AppointmentRepository,
	visits VisitRecorder,
	penalties PenaltyCalculator,
	classifier CancelClassifier,
	billing FeeCharger,
	notifier Dispatcher,
	conflicts ConflictChecker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:       repo,
		visits:     visits,
		penalties:  penalties,
		classifier: classifier,
		billing:    billing,
		notifier:   notifier,
		conflicts:  conflicts,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// Transition validates and applies a status change. The persist is a
// conditional write keyed on the appointment id and the status the caller
// observed: when several actors race, exactly one wins and the rest get a
// stale-state error. Terminal side effects (visit record, penalty charge,
// notification) run after the write and never revert it.
func (s *Service) Transition(ctx context.Context, appt *model.Appointment, toStatus model.AppointmentStatus, meta model.TransitionMetadata) (*TransitionResult, error) {
	timer := prometheus.NewTimer(s.metrics.TransitionLatency)
	defer timer.ObserveDuration()

	from := appt.Status
	if from.IsTerminal() {
		s.metrics.TransitionsTotal.WithLabelValues(string(toStatus), "terminal_state").Inc()
		return nil, apperrors.TerminalState(string(from))
	}
	if !toStatus.IsValid() || !from.CanTransitionTo(toStatus) {
		s.metrics.TransitionsTotal.WithLabelValues(string(toStatus), "invalid_transition").Inc()
		return nil, apperrors.InvalidTransition(string(from), string(toStatus))
	}

	patch := s.buildPatch(toStatus, meta)
	if err := s.repo.UpdateStatus(ctx, appt.ID, from, patch); err != nil {
		if apperrors.IsStaleState(err) {
			s.metrics.StaleStateConflicts.Inc()
			s.metrics.TransitionsTotal.WithLabelValues(string(toStatus), "stale_state").Inc()
		} else {
			s.metrics.TransitionsTotal.WithLabelValues(string(toStatus), "error").Inc()
		}
		return nil, err
	}

	updated := s.applyPatch(appt, patch)
	s.metrics.TransitionsTotal.WithLabelValues(string(toStatus), "success").Inc()
	s.logger.Info().
		Str("appointment_id", updated.ID.String()).
		Str("from", string(from)).
		Str("to", string(toStatus)).
		Msg("appointment transitioned")

	result := &TransitionResult{Appointment: updated}

	if toStatus.IsTerminal() {
		result.Visit = s.recordVisit(ctx, updated, toStatus)
		s.assessPenalty(ctx, updated, toStatus)
	}

	s.notify(ctx, updated, toStatus)

	return result, nil
}

// Approve moves a booking request into booked.
func (s *Service) Approve(ctx context.Context, appt *model.Appointment) (*TransitionResult, error) {
	return s.Transition(ctx, appt, model.AppointmentStatusBooked, model.TransitionMetadata{})
}

// Deny removes a booking request. The delete is conditional on the status
// still being requested, so a request a concurrent approval already
// advanced survives and the denier sees a stale-state error.
func (s *Service) Deny(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteRequested(ctx, id); err != nil {
		if apperrors.IsStaleState(err) {
			s.metrics.StaleStateConflicts.Inc()
		}
		return err
	}

	s.logger.Info().Str("appointment_id", id.String()).Msg("booking request denied")
	return nil
}

// Cancel classifies the cancellation as early or late and applies it.
func (s *Service) Cancel(ctx context.Context, appt *model.Appointment, meta model.TransitionMetadata) (*TransitionResult, error) {
	toStatus, err := s.classifier.ResolveCancelStatus(ctx, appt, meta)
	if err != nil {
		return nil, err
	}
	return s.Transition(ctx, appt, toStatus, meta)
}

// CreateRequest books a new appointment in requested status after the
// conflict pre-check.
func (s *Service) CreateRequest(ctx context.Context, appt *model.Appointment) error {
	if appt.EndAt.Before(appt.StartAt) || appt.EndAt.Equal(appt.StartAt) {
		return apperrors.BadRequest("end time must be after start time", nil)
	}

	hasConflict, err := s.conflicts.HasConflict(ctx, appt.TrainerID, appt.StartAt, appt.EndAt)
	if err != nil {
		return err
	}
	if hasConflict {
		return apperrors.BadRequest("requested time conflicts with an existing appointment", nil)
	}

	appt.Status = model.AppointmentStatusRequested
	if err := s.repo.Create(ctx, appt); err != nil {
		return err
	}

	s.notify(ctx, appt, appt.Status)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) buildPatch(toStatus model.AppointmentStatus, meta model.TransitionMetadata) *model.StatusPatch {
	now := s.now()
	patch := &model.StatusPatch{
		Status:    toStatus,
		UpdatedAt: now,
	}

	switch toStatus {
	case model.AppointmentStatusArrived:
		arrivedAt := now
		if meta.ArrivedAt != nil {
			arrivedAt = *meta.ArrivedAt
		}
		patch.ArrivedAt = &arrivedAt
	case model.AppointmentStatusCompleted:
		completedAt := now
		patch.CompletedAt = &completedAt
	case model.AppointmentStatusEarlyCancel, model.AppointmentStatusLateCancel:
		cancelledAt := now
		patch.CancelledAt = &cancelledAt
		patch.CancelReason = meta.CancelReason
	}

	return patch
}

func (s *Service) applyPatch(appt *model.Appointment, patch *model.StatusPatch) *model.Appointment {
	updated := *appt
	updated.Status = patch.Status
	updated.UpdatedAt = patch.UpdatedAt
	if patch.ArrivedAt != nil {
		updated.ArrivedAt = patch.ArrivedAt
	}
	if patch.CompletedAt != nil {
		updated.CompletedAt = patch.CompletedAt
	}
	if patch.CancelledAt != nil {
		updated.CancelledAt = patch.CancelledAt
	}
	if patch.CancelReason != nil {
		updated.CancelReason = patch.CancelReason
	}
	return &updated
}

// recordVisit is best-effort: a failed insert is logged and counted but the
// status change stands.
func (s *Service) recordVisit(ctx context.Context, appt *model.Appointment, toStatus model.AppointmentStatus) *model.Visit {
	visit, err := s.visits.Record(ctx, appt, toStatus)
	if err != nil {
		s.metrics.VisitRecordFailures.Inc()
		s.logger.Error().Err(err).
			Str("appointment_id", appt.ID.String()).
			Str("visit_status", string(toStatus)).
			Msg("failed to record visit")
		return nil
	}
	return visit
}

// assessPenalty computes the penalty for late cancellations and no-shows
// and hands any positive fee to the billing coordinator without waiting.
func (s *Service) assessPenalty(ctx context.Context, appt *model.Appointment, toStatus model.AppointmentStatus) {
	var feeType model.FeeType
	switch toStatus {
	case model.AppointmentStatusLateCancel:
		feeType = model.FeeTypeLateCancel
	case model.AppointmentStatusNoShow:
		feeType = model.FeeTypeNoShow
	default:
		return
	}

	penalty, err := s.penalties.Calculate(ctx, appt, toStatus)
	if err != nil {
		s.logger.Error().Err(err).
			Str("appointment_id", appt.ID.String()).
			Msg("failed to compute penalty")
		return
	}

	if penalty.FeeAmount > 0 {
		s.billing.ChargeFeeAsync(appt.ID, feeType, penalty.FeeAmount)
	}
}

func (s *Service) notify(ctx context.Context, appt *model.Appointment, toStatus model.AppointmentStatus) {
	if err := s.notifier.Notify(ctx, appt, toStatus); err != nil {
		s.metrics.NotificationFailures.Inc()
		s.logger.Warn().Err(err).
			Str("appointment_id", appt.ID.String()).
			Str("status", string(toStatus)).
			Msg("failed to dispatch status notification")
	}
}
