package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fitlane/trainer-api/internal/model"
	apperrors "github.com/fitlane/trainer-api/pkg/errors"
)

// Create inserts the visit row. The unique index on appointment_id plus
// ON CONFLICT DO NOTHING keeps the at-most-one-visit invariant even when a
// caller retries a terminal transition it already won.
func (r *visitRepository) Create(ctx context.Context, visit *model.Visit) error {
	query := `
		INSERT INTO visits (
			id, appointment_id, client_id, trainer_id,
			visit_status, sessions_deducted, service_price, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (appointment_id) DO NOTHING
	`
	visit.ID = uuid.New()
	visit.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		visit.ID,
		visit.AppointmentID,
		visit.ClientID,
		visit.TrainerID,
		visit.VisitStatus,
		visit.SessionsDeducted,
		visit.ServicePrice,
		visit.CreatedAt,
	)
	if err != nil {
		return apperrors.Downstream("create visit", err)
	}
	return nil
}

func (r *visitRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Visit, error) {
	query := `
		SELECT id, appointment_id, client_id, trainer_id,
			   visit_status, sessions_deducted, service_price, created_at
		FROM visits
		WHERE appointment_id = $1
	`
	var visit model.Visit
	err := r.db.GetContext(ctx, &visit, query, appointmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("visit", err)
	}
	if err != nil {
		return nil, apperrors.Downstream("get visit", err)
	}
	return &visit, nil
}
