package model

import (
	"time"

	"github.com/google/uuid"
)

// Visit is the immutable audit record of a terminal appointment outcome.
// At most one exists per appointment; it is never updated.
type Visit struct {
	Base
	AppointmentID    uuid.UUID         `db:"appointment_id" json:"appointment_id"`
	ClientID         uuid.UUID         `db:"client_id" json:"client_id"`
	TrainerID        uuid.UUID         `db:"trainer_id" json:"trainer_id"`
	VisitStatus      AppointmentStatus `db:"visit_status" json:"visit_status"`
	SessionsDeducted int               `db:"sessions_deducted" json:"sessions_deducted"`
	ServicePrice     float64           `db:"service_price" json:"service_price"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
}
