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

func (r *feeChargeRepository) Create(ctx context.Context, charge *model.FeeCharge) error {
	query := `
		INSERT INTO fee_charges (
			id, appointment_id, fee_type, amount, status,
			retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	charge.ID = uuid.New()
	charge.Status = model.FeeChargeStatusPending
	charge.CreatedAt = time.Now()
	charge.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		charge.ID,
		charge.AppointmentID,
		charge.FeeType,
		charge.Amount,
		charge.Status,
		charge.RetryCount,
		charge.CreatedAt,
		charge.UpdatedAt,
	)
	if err != nil {
		return apperrors.Downstream("create fee charge", err)
	}
	return nil
}

// ClaimPending claims a batch of due pending charges by flipping them to
// processing in a single statement. The inner SKIP LOCKED select and the
// status update commit together, so a charge claimed here stays invisible to
// other worker instances until the caller resolves it; a plain locked select
// would release its row locks at statement end and let two pollers read the
// same pending rows.
func (r *feeChargeRepository) ClaimPending(ctx context.Context, limit int) ([]*model.FeeCharge, error) {
	query := `
		UPDATE fee_charges
		SET status = $1, updated_at = $2
		WHERE id IN (
			SELECT id
			FROM fee_charges
			WHERE status = $3
			AND (retry_at IS NULL OR retry_at <= $2)
			ORDER BY created_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, appointment_id, fee_type, amount, status, error_message,
			  retry_count, retry_at, created_at, updated_at, processed_at
	`
	var charges []*model.FeeCharge
	err := r.db.SelectContext(ctx, &charges, query,
		model.FeeChargeStatusProcessing, time.Now(), model.FeeChargeStatusPending, limit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Downstream("claim pending fee charges", err)
	}
	return charges, nil
}

func (r *feeChargeRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE fee_charges
		SET status = $1, processed_at = $2, updated_at = $2, error_message = NULL
		WHERE id = $3
	`
	if _, err := r.db.ExecContext(ctx, query, model.FeeChargeStatusProcessed, time.Now(), id); err != nil {
		return apperrors.Downstream("mark fee charge processed", err)
	}
	return nil
}

func (r *feeChargeRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE fee_charges
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	if _, err := r.db.ExecContext(ctx, query, model.FeeChargeStatusFailed, errorMessage, time.Now(), id); err != nil {
		return apperrors.Downstream("mark fee charge failed", err)
	}
	return nil
}

// ScheduleRetry releases a claimed charge back to pending with a retry_at in
// the future, so a later poll can claim it again.
func (r *feeChargeRepository) ScheduleRetry(ctx context.Context, id uuid.UUID, errorMessage string, retryAt time.Time) error {
	query := `
		UPDATE fee_charges
		SET status = $1, retry_count = retry_count + 1, error_message = $2, retry_at = $3, updated_at = $4
		WHERE id = $5
	`
	if _, err := r.db.ExecContext(ctx, query, model.FeeChargeStatusPending, errorMessage, retryAt, time.Now(), id); err != nil {
		return apperrors.Downstream("schedule fee charge retry", err)
	}
	return nil
}
