package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/fitlane/trainer-api/internal/model"
	apperrors "github.com/fitlane/trainer-api/pkg/errors"
)

func (r *policyRepository) ListForTrainer(ctx context.Context, trainerID uuid.UUID) ([]*model.CancellationPolicy, error) {
	query := `
		SELECT id, trainer_id, service_type_id, late_cancel_window_minutes,
			   late_cancel_fee_amount, no_show_fee_amount, forfeit_session,
			   applies_to_memberships, created_at, updated_at
		FROM cancellation_policies
		WHERE trainer_id = $1
		ORDER BY updated_at DESC
	`
	var policies []*model.CancellationPolicy
	err := r.db.SelectContext(ctx, &policies, query, trainerID)
	if err != nil {
		return nil, apperrors.Downstream("list cancellation policies", err)
	}
	return policies, nil
}

func (r *serviceTypeRepository) Get(ctx context.Context, id uuid.UUID) (*model.ServiceType, error) {
	query := `
		SELECT id, trainer_id, name, duration_minutes, base_price,
			   cancel_window_minutes, num_sessions_deducted, buffer_minutes,
			   created_at, updated_at
		FROM service_types
		WHERE id = $1
	`
	var serviceType model.ServiceType
	err := r.db.GetContext(ctx, &serviceType, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("service type", err)
	}
	if err != nil {
		return nil, apperrors.Downstream("get service type", err)
	}
	return &serviceType, nil
}
