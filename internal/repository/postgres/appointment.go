package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fitlane/trainer-api/internal/model"
	apperrors "github.com/fitlane/trainer-api/pkg/errors"
)

const appointmentColumns = `
	id, trainer_id, client_id, service_type_id, client_service_id,
	start_at, end_at, status, arrived_at, completed_at,
	cancelled_at, cancel_reason, notes, created_at, updated_at
`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, trainer_id, client_id, service_type_id, client_service_id,
			start_at, end_at, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	appointment.ID = uuid.New()
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.TrainerID,
		appointment.ClientID,
		appointment.ServiceTypeID,
		appointment.ClientServiceID,
		appointment.StartAt,
		appointment.EndAt,
		appointment.Status,
		appointment.Notes,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return apperrors.Downstream("create appointment", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, apperrors.Downstream("get appointment", err)
	}
	return &appointment, nil
}

// UpdateStatus is the optimistic-concurrency write: the row is touched only
// when its current status still equals expectedFrom. Exactly one of several
// racing transitions can match; the rest observe a stale-state error.
func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expectedFrom model.AppointmentStatus, patch *model.StatusPatch) error {
	query := `
		UPDATE appointments
		SET status = $1,
			updated_at = $2,
			arrived_at = COALESCE($3, arrived_at),
			completed_at = COALESCE($4, completed_at),
			cancelled_at = COALESCE($5, cancelled_at),
			cancel_reason = COALESCE($6, cancel_reason)
		WHERE id = $7 AND status = $8
	`
	result, err := r.db.ExecContext(ctx, query,
		patch.Status,
		patch.UpdatedAt,
		patch.ArrivedAt,
		patch.CompletedAt,
		patch.CancelledAt,
		patch.CancelReason,
		id,
		expectedFrom,
	)
	if err != nil {
		return apperrors.Downstream("update appointment status", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Downstream("update appointment status", err)
	}
	if rows == 0 {
		return r.classifyNoMatch(ctx, id, expectedFrom)
	}
	return nil
}

// DeleteRequested is the conditional delete backing deny: the row goes away
// only while it still sits in requested, so a concurrent approval that
// already advanced it can never be deleted out from under the approver.
func (r *appointmentRepository) DeleteRequested(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM appointments WHERE id = $1 AND status = $2`

	result, err := r.db.ExecContext(ctx, query, id, model.AppointmentStatusRequested)
	if err != nil {
		return apperrors.Downstream("delete appointment", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Downstream("delete appointment", err)
	}
	if rows == 0 {
		return r.classifyNoMatch(ctx, id, model.AppointmentStatusRequested)
	}
	return nil
}

// classifyNoMatch distinguishes a lost race from a missing row so callers
// can decide whether to refetch and retry.
func (r *appointmentRepository) classifyNoMatch(ctx context.Context, id uuid.UUID, expected model.AppointmentStatus) error {
	var current model.AppointmentStatus
	err := r.db.GetContext(ctx, &current, `SELECT status FROM appointments WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return apperrors.Downstream("get appointment status", err)
	}
	return apperrors.StaleState(id, string(expected))
}

// HasConflict checks for a live appointment overlapping [start, end) for the
// trainer. Terminal appointments do not block the slot.
func (r *appointmentRepository) HasConflict(ctx context.Context, trainerID uuid.UUID, start, end time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE trainer_id = $1
			AND status IN ($2, $3, $4, $5)
			AND start_at < $6
			AND end_at > $7
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query,
		trainerID,
		model.AppointmentStatusRequested,
		model.AppointmentStatusBooked,
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusArrived,
		end,
		start,
	)
	if err != nil {
		return false, apperrors.Downstream("check appointment conflict", err)
	}
	return exists, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.TrainerID != uuid.Nil {
		query += fmt.Sprintf(" AND trainer_id = $%d", argCount)
		args = append(args, filters.TrainerID)
		argCount++
	}

	if filters.ClientID != uuid.Nil {
		query += fmt.Sprintf(" AND client_id = $%d", argCount)
		args = append(args, filters.ClientID)
		argCount++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	if !filters.StartDate.IsZero() {
		query += fmt.Sprintf(" AND start_at >= $%d", argCount)
		args = append(args, filters.StartDate)
		argCount++
	}

	if !filters.EndDate.IsZero() {
		query += fmt.Sprintf(" AND start_at < $%d", argCount)
		args = append(args, filters.EndDate)
		argCount++
	}

	query += " ORDER BY start_at ASC"

	var appointments []*model.Appointment
	err := r.db.SelectContext(ctx, &appointments, query, args...)
	if err != nil {
		return nil, apperrors.Downstream("list appointments", err)
	}
	return appointments, nil
}
