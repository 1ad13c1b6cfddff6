package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusRequested   AppointmentStatus = "requested"
	AppointmentStatusBooked      AppointmentStatus = "booked"
	AppointmentStatusConfirmed   AppointmentStatus = "confirmed"
	AppointmentStatusArrived     AppointmentStatus = "arrived"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusNoShow      AppointmentStatus = "no_show"
	AppointmentStatusEarlyCancel AppointmentStatus = "early_cancel"
	AppointmentStatusLateCancel  AppointmentStatus = "late_cancel"
)

// transitions is the full lifecycle table. Terminal statuses have no entry.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusRequested: {AppointmentStatusBooked},
	AppointmentStatusBooked: {
		AppointmentStatusConfirmed,
		AppointmentStatusArrived,
		AppointmentStatusEarlyCancel,
		AppointmentStatusLateCancel,
	},
	AppointmentStatusConfirmed: {
		AppointmentStatusArrived,
		AppointmentStatusEarlyCancel,
		AppointmentStatusLateCancel,
	},
	AppointmentStatusArrived: {
		AppointmentStatusCompleted,
		AppointmentStatusNoShow,
	},
}

// IsTerminal reports whether the status has no outbound transitions.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusCompleted, AppointmentStatusNoShow,
		AppointmentStatusEarlyCancel, AppointmentStatusLateCancel:
		return true
	}
	return false
}

// CanTransitionTo reports whether the table allows moving from s to target.
func (s AppointmentStatus) CanTransitionTo(target AppointmentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsValid reports whether s is one of the known lifecycle statuses.
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentStatusRequested, AppointmentStatusBooked,
		AppointmentStatusConfirmed, AppointmentStatusArrived,
		AppointmentStatusCompleted, AppointmentStatusNoShow,
		AppointmentStatusEarlyCancel, AppointmentStatusLateCancel:
		return true
	}
	return false
}

type Appointment struct {
	Base
	TrainerID       uuid.UUID         `db:"trainer_id" json:"trainer_id"`
	ClientID        uuid.UUID         `db:"client_id" json:"client_id"`
	ServiceTypeID   uuid.UUID         `db:"service_type_id" json:"service_type_id"`
	ClientServiceID *uuid.UUID        `db:"client_service_id" json:"client_service_id,omitempty"`
	StartAt         time.Time         `db:"start_at" json:"start_at"`
	EndAt           time.Time         `db:"end_at" json:"end_at"`
	Status          AppointmentStatus `db:"status" json:"status"`
	ArrivedAt       *time.Time        `db:"arrived_at" json:"arrived_at,omitempty"`
	CompletedAt     *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt     *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelReason    *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Notes           string            `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// StatusPatch is the update payload a transition persists. Only the fields
// relevant to the target status are set; the repository leaves nil fields
// untouched.
type StatusPatch struct {
	Status       AppointmentStatus
	UpdatedAt    time.Time
	ArrivedAt    *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason *string
}

// TransitionMetadata carries caller-supplied details for a transition.
type TransitionMetadata struct {
	ArrivedAt       *time.Time
	CancelReason    *string
	ForceLateCancel bool
}

type CreateAppointmentRequest struct {
	TrainerID       string    `json:"trainer_id" validate:"required,uuid"`
	ClientID        string    `json:"client_id" validate:"required,uuid"`
	ServiceTypeID   string    `json:"service_type_id" validate:"required,uuid"`
	ClientServiceID *string   `json:"client_service_id" validate:"omitempty,uuid"`
	StartAt         time.Time `json:"start_at" validate:"required"`
	EndAt           time.Time `json:"end_at" validate:"required,gtfield=StartAt"`
	Notes           string    `json:"notes" validate:"max=1000"`
}

type TransitionRequest struct {
	ToStatus  AppointmentStatus `json:"to_status" validate:"required"`
	ArrivedAt *time.Time        `json:"arrived_at"`
}

type CancelRequest struct {
	Reason          *string `json:"reason"`
	ForceLateCancel bool    `json:"force_late_cancel"`
}

type AppointmentFilters struct {
	TrainerID uuid.UUID
	ClientID  uuid.UUID
	Status    AppointmentStatus
	StartDate time.Time
	EndDate   time.Time
}
