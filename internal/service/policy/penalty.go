package policy

import (
	"context"

	"github.com/fitlane/trainer-api/internal/model"
)

// Calculator computes the financial penalty for a terminal cancellation or
// no-show outcome.
type Calculator struct {
	resolver *Resolver
}

func NewCalculator(resolver *Resolver) *Calculator {
	return &Calculator{resolver: resolver}
}

// Calculate resolves the applicable policy and maps the terminal status to
// a fee and session-forfeiture flag. Early cancellation is never penalized,
// regardless of policy contents. With no policy the penalty is zero.
func (c *Calculator) Calculate(ctx context.Context, appt *model.Appointment, terminalStatus model.AppointmentStatus) (*model.Penalty, error) {
	if terminalStatus == model.AppointmentStatusEarlyCancel {
		return &model.Penalty{}, nil
	}

	policy, err := c.resolver.Resolve(ctx, appt)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return &model.Penalty{}, nil
	}

	switch terminalStatus {
	case model.AppointmentStatusNoShow:
		return &model.Penalty{
			FeeAmount:      policy.NoShowFeeAmount,
			ForfeitSession: policy.ForfeitSession,
			Policy:         policy,
		}, nil
	case model.AppointmentStatusLateCancel:
		return &model.Penalty{
			FeeAmount:      policy.LateCancelFeeAmount,
			ForfeitSession: policy.ForfeitSession,
			Policy:         policy,
		}, nil
	}

	return &model.Penalty{}, nil
}
