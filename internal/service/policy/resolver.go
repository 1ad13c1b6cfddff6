package policy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/fitlane/trainer-api/internal/model"
	"github.com/fitlane/trainer-api/internal/repository"
	apperrors "github.com/fitlane/trainer-api/pkg/errors"
)

// DefaultCancelWindowMinutes applies when neither a policy nor a service
// type provides a window: 24 hours.
const DefaultCancelWindowMinutes = 1440

// Resolver finds the cancellation policy applicable to an appointment and
// classifies cancellations as early or late.
type Resolver struct {
	policies      repository.PolicyRepository
	serviceTypes  repository.ServiceTypeRepository
	cache         *cache.Cache
	defaultWindow int
	logger        zerolog.Logger
	now           func() time.Time
}

type ResolverConfig struct {
	DefaultWindowMinutes int
	CacheTTL             time.Duration
}

func NewResolver(policies repository.PolicyRepository, serviceTypes repository.ServiceTypeRepository, cfg ResolverConfig, logger zerolog.Logger) *Resolver {
	if cfg.DefaultWindowMinutes <= 0 {
		cfg.DefaultWindowMinutes = DefaultCancelWindowMinutes
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Resolver{
		policies:      policies,
		serviceTypes:  serviceTypes,
		cache:         cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		defaultWindow: cfg.DefaultWindowMinutes,
		logger:        logger,
		now:           time.Now,
	}
}

// Resolve returns the applicable policy, or nil when the trainer has none.
// Precedence: a policy scoped to the appointment's service type wins over
// the trainer's global policy. Fields are never merged across policies.
func (r *Resolver) Resolve(ctx context.Context, appt *model.Appointment) (*model.CancellationPolicy, error) {
	policies, err := r.trainerPolicies(ctx, appt.TrainerID)
	if err != nil {
		return nil, err
	}

	for _, p := range policies {
		if p.ServiceTypeID != nil && *p.ServiceTypeID == appt.ServiceTypeID {
			return p, nil
		}
	}

	// Policies arrive ordered by updated_at descending, so when several
	// global rows exist the most recently updated one wins.
	for _, p := range policies {
		if p.IsGlobal() {
			return p, nil
		}
	}

	return nil, nil
}

// IsLateCancel reports whether cancelling at now falls inside the
// cancellation window. The deadline is start_at minus the window; exactly
// on the deadline counts as late.
func (r *Resolver) IsLateCancel(ctx context.Context, appt *model.Appointment, now time.Time) (bool, error) {
	windowMinutes, err := r.cancelWindowMinutes(ctx, appt)
	if err != nil {
		return false, err
	}

	deadline := appt.StartAt.Add(-time.Duration(windowMinutes) * time.Minute)
	return !now.Before(deadline), nil
}

// ResolveCancelStatus classifies a cancellation request. ForceLateCancel is
// a manual override (trainer discretion) that skips the timing check.
func (r *Resolver) ResolveCancelStatus(ctx context.Context, appt *model.Appointment, meta model.TransitionMetadata) (model.AppointmentStatus, error) {
	if meta.ForceLateCancel {
		return model.AppointmentStatusLateCancel, nil
	}

	late, err := r.IsLateCancel(ctx, appt, r.now())
	if err != nil {
		return "", err
	}
	if late {
		return model.AppointmentStatusLateCancel, nil
	}
	return model.AppointmentStatusEarlyCancel, nil
}

// cancelWindowMinutes applies the window precedence: resolved policy, then
// the service type's own default, then the hard default.
func (r *Resolver) cancelWindowMinutes(ctx context.Context, appt *model.Appointment) (int, error) {
	policy, err := r.Resolve(ctx, appt)
	if err != nil {
		return 0, err
	}
	if policy != nil {
		return policy.LateCancelWindowMins, nil
	}

	serviceType, err := r.serviceType(ctx, appt.ServiceTypeID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return r.defaultWindow, nil
		}
		return 0, err
	}
	if serviceType.CancelWindowMinutes > 0 {
		return serviceType.CancelWindowMinutes, nil
	}
	return r.defaultWindow, nil
}

func (r *Resolver) trainerPolicies(ctx context.Context, trainerID uuid.UUID) ([]*model.CancellationPolicy, error) {
	key := "policies:" + trainerID.String()
	if cached, ok := r.cache.Get(key); ok {
		return cached.([]*model.CancellationPolicy), nil
	}

	policies, err := r.policies.ListForTrainer(ctx, trainerID)
	if err != nil {
		return nil, err
	}

	r.cache.SetDefault(key, policies)
	return policies, nil
}

func (r *Resolver) serviceType(ctx context.Context, id uuid.UUID) (*model.ServiceType, error) {
	key := "service_type:" + id.String()
	if cached, ok := r.cache.Get(key); ok {
		return cached.(*model.ServiceType), nil
	}

	serviceType, err := r.serviceTypes.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cache.SetDefault(key, serviceType)
	return serviceType, nil
}

// InvalidateTrainer drops the cached policies for a trainer, for callers
// that mutate policy rows.
func (r *Resolver) InvalidateTrainer(trainerID uuid.UUID) {
	r.cache.Delete("policies:" + trainerID.String())
}
