package model

import (
	"time"

	"github.com/google/uuid"
)

// ServiceType is a read-only input to the lifecycle core: pricing, duration
// and the default cancellation window used when no policy applies.
type ServiceType struct {
	Base
	TrainerID           uuid.UUID `db:"trainer_id" json:"trainer_id"`
	Name                string    `db:"name" json:"name"`
	DurationMinutes     int       `db:"duration_minutes" json:"duration_minutes"`
	BasePrice           float64   `db:"base_price" json:"base_price"`
	CancelWindowMinutes int       `db:"cancel_window_minutes" json:"cancel_window_minutes"`
	NumSessionsDeducted int       `db:"num_sessions_deducted" json:"num_sessions_deducted"`
	BufferMinutes       int       `db:"buffer_minutes" json:"buffer_minutes"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// SessionsDeducted returns the configured deduction, defaulting to one
// session when the row predates the column.
func (s *ServiceType) SessionsDeducted() int {
	if s.NumSessionsDeducted <= 0 {
		return 1
	}
	return s.NumSessionsDeducted
}
