package model

import (
	"time"

	"github.com/google/uuid"
)

// CancellationPolicy is scoped to a trainer and optionally to one service
// type. A nil ServiceTypeID marks the trainer's global fallback policy.
type CancellationPolicy struct {
	Base
	TrainerID            uuid.UUID  `db:"trainer_id" json:"trainer_id"`
	ServiceTypeID        *uuid.UUID `db:"service_type_id" json:"service_type_id,omitempty"`
	LateCancelWindowMins int        `db:"late_cancel_window_minutes" json:"late_cancel_window_minutes"`
	LateCancelFeeAmount  float64    `db:"late_cancel_fee_amount" json:"late_cancel_fee_amount"`
	NoShowFeeAmount      float64    `db:"no_show_fee_amount" json:"no_show_fee_amount"`
	ForfeitSession       bool       `db:"forfeit_session" json:"forfeit_session"`
	AppliesToMemberships bool       `db:"applies_to_memberships" json:"applies_to_memberships"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// IsGlobal reports whether the policy is the trainer-wide fallback.
func (p *CancellationPolicy) IsGlobal() bool {
	return p.ServiceTypeID == nil
}

// Penalty is the computed consequence of a cancellation or no-show. It is a
// value object; nothing persists it directly.
type Penalty struct {
	FeeAmount      float64             `json:"fee_amount"`
	ForfeitSession bool                `json:"forfeit_session"`
	Policy         *CancellationPolicy `json:"policy,omitempty"`
}
