package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fitlane/trainer-api/internal/model"
)

// All repository interfaces in one file
type (
	// AppointmentRepository handles appointment persistence. Status moves
	// only through UpdateStatus, which is a conditional write keyed on the
	// id and the previously observed status: it fails with a stale-state
	// error when another caller already advanced the appointment.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, expectedFrom model.AppointmentStatus, patch *model.StatusPatch) error
		// DeleteRequested removes an appointment only while it is still in
		// the requested status (deny). No rows matched maps to stale-state
		// when the appointment exists, not-found when it does not.
		DeleteRequested(ctx context.Context, id uuid.UUID) error
		// HasConflict reports whether the trainer already has a live
		// appointment overlapping [start, end).
		HasConflict(ctx context.Context, trainerID uuid.UUID, start, end time.Time) (bool, error)
	}

	VisitRepository interface {
		// Create inserts the visit if none exists for the appointment yet;
		// a retried terminal transition must not produce a second row.
		Create(ctx context.Context, visit *model.Visit) error
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Visit, error)
	}

	PolicyRepository interface {
		ListForTrainer(ctx context.Context, trainerID uuid.UUID) ([]*model.CancellationPolicy, error)
	}

	ServiceTypeRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.ServiceType, error)
	}

	// FeeChargeRepository is the billing queue: the state machine enqueues
	// pending charges, the worker drains them.
	FeeChargeRepository interface {
		Create(ctx context.Context, charge *model.FeeCharge) error
		// ClaimPending atomically moves up to limit due pending charges to
		// processing and returns them. A claimed charge is invisible to other
		// workers until MarkProcessed, MarkFailed or ScheduleRetry resolves it.
		ClaimPending(ctx context.Context, limit int) ([]*model.FeeCharge, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
		ScheduleRetry(ctx context.Context, id uuid.UUID, errorMessage string, retryAt time.Time) error
	}
)
