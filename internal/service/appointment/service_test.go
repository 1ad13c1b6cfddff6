package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitlane/trainer-api/internal/model"
	apperrors "github.com/fitlane/trainer-api/pkg/errors"
	"github.com/fitlane/trainer-api/pkg/metrics"
)

// fakeAppointmentRepo mimics the conditional-write semantics of the postgres
// repository: UpdateStatus succeeds only when the stored status still equals
// expectedFrom, under a lock, so racing transitions see exactly one winner.
type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
	conflict     bool
}

func newFakeRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) put(appt *model.Appointment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *appt
	r.appointments[appt.ID] = &stored
}

func (r *fakeAppointmentRepo) status(id uuid.UUID) model.AppointmentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appointments[id].Status
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, appt *model.Appointment) error {
	appt.ID = uuid.New()
	r.put(appt)
	return nil
}

func (r *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	snapshot := *stored
	return &snapshot, nil
}

func (r *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, appt := range r.appointments {
		snapshot := *appt
		out = append(out, &snapshot)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, expectedFrom model.AppointmentStatus, patch *model.StatusPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.appointments[id]
	if !ok {
		return apperrors.NotFound("appointment", nil)
	}
	if stored.Status != expectedFrom {
		return apperrors.StaleState(id, string(expectedFrom))
	}
	stored.Status = patch.Status
	stored.UpdatedAt = patch.UpdatedAt
	if patch.ArrivedAt != nil {
		stored.ArrivedAt = patch.ArrivedAt
	}
	if patch.CompletedAt != nil {
		stored.CompletedAt = patch.CompletedAt
	}
	if patch.CancelledAt != nil {
		stored.CancelledAt = patch.CancelledAt
	}
	if patch.CancelReason != nil {
		stored.CancelReason = patch.CancelReason
	}
	return nil
}

func (r *fakeAppointmentRepo) DeleteRequested(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.appointments[id]
	if !ok {
		return apperrors.NotFound("appointment", nil)
	}
	if stored.Status != model.AppointmentStatusRequested {
		return apperrors.StaleState(id, string(model.AppointmentStatusRequested))
	}
	delete(r.appointments, id)
	return nil
}

func (r *fakeAppointmentRepo) HasConflict(ctx context.Context, trainerID uuid.UUID, start, end time.Time) (bool, error) {
	return r.conflict, nil
}

type recorderStub struct {
	mu     sync.Mutex
	visits []*model.Visit
	err    error
}

func (s *recorderStub) Record(ctx context.Context, appt *model.Appointment, terminalStatus model.AppointmentStatus) (*model.Visit, error) {
	if s.err != nil {
		return nil, s.err
	}
	visit := &model.Visit{
		AppointmentID:    appt.ID,
		ClientID:         appt.ClientID,
		TrainerID:        appt.TrainerID,
		VisitStatus:      terminalStatus,
		SessionsDeducted: 1,
	}
	s.mu.Lock()
	s.visits = append(s.visits, visit)
	s.mu.Unlock()
	return visit, nil
}

type calculatorStub struct {
	penalty *model.Penalty
	err     error
}

func (s *calculatorStub) Calculate(ctx context.Context, appt *model.Appointment, terminalStatus model.AppointmentStatus) (*model.Penalty, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.penalty == nil {
		return &model.Penalty{}, nil
	}
	return s.penalty, nil
}

type classifierStub struct {
	status model.AppointmentStatus
	err    error
}

func (s *classifierStub) ResolveCancelStatus(ctx context.Context, appt *model.Appointment, meta model.TransitionMetadata) (model.AppointmentStatus, error) {
	if meta.ForceLateCancel {
		return model.AppointmentStatusLateCancel, nil
	}
	return s.status, s.err
}

type chargeCall struct {
	appointmentID uuid.UUID
	feeType       model.FeeType
	amount        float64
}

type chargerStub struct {
	mu    sync.Mutex
	calls []chargeCall
}

func (s *chargerStub) ChargeFeeAsync(appointmentID uuid.UUID, feeType model.FeeType, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, chargeCall{appointmentID, feeType, amount})
}

type dispatcherStub struct {
	mu       sync.Mutex
	notified []model.AppointmentStatus
	err      error
}

func (s *dispatcherStub) Notify(ctx context.Context, appt *model.Appointment, newStatus model.AppointmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified = append(s.notified, newStatus)
	return s.err
}

type fixture struct {
	service    *Service
	repo       *fakeAppointmentRepo
	recorder   *recorderStub
	calculator *calculatorStub
	classifier *classifierStub
	charger    *chargerStub
	dispatcher *dispatcherStub
}

func newFixture() *fixture {
	f := &fixture{
		repo:       newFakeRepo(),
		recorder:   &recorderStub{},
		calculator: &calculatorStub{},
		classifier: &classifierStub{status: model.AppointmentStatusEarlyCancel},
		charger:    &chargerStub{},
		dispatcher: &dispatcherStub{},
	}
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test", "appointments")
	f.service = NewService(
		f.repo,
		f.recorder,
		f.calculator,
		f.classifier,
		f.charger,
		f.dispatcher,
		f.repo,
		m,
		zerolog.Nop(),
	)
	return f
}

func seedAppointment(f *fixture, status model.AppointmentStatus) *model.Appointment {
	appt := &model.Appointment{
		TrainerID:     uuid.New(),
		ClientID:      uuid.New(),
		ServiceTypeID: uuid.New(),
		StartAt:       time.Now().Add(48 * time.Hour),
		EndAt:         time.Now().Add(49 * time.Hour),
		Status:        status,
	}
	appt.ID = uuid.New()
	f.repo.put(appt)
	return appt
}

func TestTransitionAdvancesStatus(t *testing.T) {
	f := newFixture()
	appt := seedAppointment(f, model.AppointmentStatusBooked)

	result, err := f.service.Transition(context.Background(), appt, model.AppointmentStatusConfirmed, model.TransitionMetadata{})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, result.Appointment.Status)
	assert.Equal(t, model.AppointmentStatusConfirmed, f.repo.status(appt.ID))
	assert.Nil(t, result.Visit, "non-terminal transition must not record a visit")
	assert.Equal(t, []model.AppointmentStatus{model.AppointmentStatusConfirmed}, f.dispatcher.notified)
}

func TestTransitionRejectsInvalidPair(t *testing.T) {
	f := newFixture()
	appt := seedAppointment(f, model.AppointmentStatusRequested)

	_, err := f.service.Transition(context.Background(), appt, model.AppointmentStatusCompleted, model.TransitionMetadata{})
	assert.True(t, apperrors.IsInvalidTransition(err))
	assert.Equal(t, model.AppointmentStatusRequested, f.repo.status(appt.ID), "failed transition must leave the record unchanged")
	assert.Empty(t, f.dispatcher.notified)
}

func TestTransitionRejectsTerminalOrigin(t *testing.T) {
	f := newFixture()

	for _, status := range []model.AppointmentStatus{
		model.AppointmentStatusCompleted,
		model.AppointmentStatusNoShow,
		model.AppointmentStatusEarlyCancel,
		model.AppointmentStatusLateCancel,
	} {
		appt := seedAppointment(f, status)
		_, err := f.service.Transition(context.Background(), appt, model.AppointmentStatusBooked, model.TransitionMetadata{})
		assert.True(t, apperrors.IsTerminalState(err), "transition out of %s must fail", status)
	}
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	f := newFixture()
	appt := seedAppointment(f, model.AppointmentStatusBooked)

	_, err := f.service.Transition(context.Background(), appt, model.AppointmentStatus("cancelled"), model.TransitionMetadata{})
	assert.True(t, apperrors.IsInvalidTransition(err))
}

func TestTransitionStaleSnapshot(t *testing.T) {
	f := newFixture()
	appt := seedAppointment(f, model.AppointmentStatusBooked)

	// Another caller advances the appointment after our snapshot was read.
	stale := *appt
	_, err := f.service.Transition(context.Background(), appt, model.AppointmentStatusConfirmed, model.TransitionMetadata{})
	require.NoError(t, err)

	_, err = f.service.Transition(context.Background(), &stale, model.AppointmentStatusEarlyCancel, model.TransitionMetadata{})
	assert.True(t, apperrors.IsStaleState(err))
	assert.Equal(t, model.AppointmentStatusConfirmed, f.repo.status(appt.ID))
}

func TestConcurrentTransitionsHaveOneWinner(t *testing.T) {
	f := newFixture()
	appt := seedAppointment(f, model.AppointmentStatusBooked)

	targets := []model.AppointmentStatus{
		model.AppointmentStatusConfirmed,
		model.AppointmentStatusArrived,
		model.AppointmentStatusEarlyCancel,
		model.AppointmentStatusLateCancel,
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, stale := 0, 0
	for _, target := range targets {
		wg.Add(1)
		go func(to model.AppointmentStatus) {
			defer wg.Done()
			snapshot := *appt
			_, err := f.service.Transition(context.Background(), &snapshot, to, model.TransitionMetadata{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperrors.IsStaleState(err):
				stale++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(target)
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one racing transition must win")
	assert.Equal(t, len(targets)-1, stale)
}

func TestTerminalTransitionRecordsVisitAndChargesFee(t *testing.T) {
	f := newFixture()
	f.calculator.penalty = &model.Penalty{FeeAmount: 50, ForfeitSession: true}
	appt := seedAppointment(f, model.AppointmentStatusArrived)

	result, err := f.service.Transition(context.Background(), appt, model.AppointmentStatusNoShow, model.TransitionMetadata{})
	require.NoError(t, err)
	require.NotNil(t, result.Visit)
	assert.Equal(t, model.AppointmentStatusNoShow, result.Visit.VisitStatus)

	require.Len(t, f.charger.calls, 1)
	assert.Equal(t, appt.ID, f.charger.calls[0].appointmentID)
	assert.Equal(t, model.FeeTypeNoShow, f.charger.calls[0].feeType)
	assert.Equal(t, 50.0, f.charger.calls[0].amount)
}

func TestCompletedTransitionChargesNothing(t *testing.T) {
	f := newFixture()
	f.calculator.penalty = &model.Penalty{FeeAmount: 50}
	appt := seedAppointment(f, model.AppointmentStatusArrived)

	result, err := f.service.Transition(context.Background(), appt, model.AppointmentStatusCompleted, model.TransitionMetadata{})
	require.NoError(t, err)
	assert.NotNil(t, result.Visit)
	assert.NotNil(t, result.Appointment.CompletedAt)
	assert.Empty(t, f.charger.calls, "completion is never a billable outcome")
}

func TestZeroFeeIsNotEnqueued(t *testing.T) {
	f := newFixture()
	f.calculator.penalty = &model.Penalty{FeeAmount: 0}
	appt := seedAppointment(f, model.AppointmentStatusArrived)

	_, err := f.service.Transition(context.Background(), appt, model.AppointmentStatusNoShow, model.TransitionMetadata{})
	require.NoError(t, err)
	assert.Empty(t, f.charger.calls)
}

func TestVisitFailureDoesNotRevertTransition(t *testing.T) {
	f := newFixture()
	f.recorder.err = apperrors.Downstream("create visit", assert.AnError)
	appt := seedAppointment(f, model.AppointmentStatusArrived)

	result, err := f.service.Transition(context.Background(), appt, model.AppointmentStatusCompleted, model.TransitionMetadata{})
	require.NoError(t, err)
	assert.Nil(t, result.Visit)
	assert.Equal(t, model.AppointmentStatusCompleted, f.repo.status(appt.ID))
}

func TestNotificationFailureDoesNotRevertTransition(t *testing.T) {
	f := newFixture()
	f.dispatcher.err = apperrors.Downstream("publish", assert.AnError)
	appt := seedAppointment(f, model.AppointmentStatusBooked)

	result, err := f.service.Transition(context.Background(), appt, model.AppointmentStatusConfirmed, model.TransitionMetadata{})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, result.Appointment.Status)
}

func TestCancelLateChargesConfiguredFee(t *testing.T) {
	f := newFixture()
	f.classifier.status = model.AppointmentStatusLateCancel
	f.calculator.penalty = &model.Penalty{FeeAmount: 25, ForfeitSession: true}
	appt := seedAppointment(f, model.AppointmentStatusConfirmed)

	reason := "client called in sick"
	result, err := f.service.Cancel(context.Background(), appt, model.TransitionMetadata{CancelReason: &reason})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusLateCancel, result.Appointment.Status)
	assert.NotNil(t, result.Appointment.CancelledAt)
	require.NotNil(t, result.Appointment.CancelReason)
	assert.Equal(t, reason, *result.Appointment.CancelReason)

	require.Len(t, f.charger.calls, 1)
	assert.Equal(t, model.FeeTypeLateCancel, f.charger.calls[0].feeType)
	assert.Equal(t, 25.0, f.charger.calls[0].amount)
}

func TestCancelEarlyIsFree(t *testing.T) {
	f := newFixture()
	f.classifier.status = model.AppointmentStatusEarlyCancel
	f.calculator.penalty = &model.Penalty{FeeAmount: 25}
	appt := seedAppointment(f, model.AppointmentStatusBooked)

	result, err := f.service.Cancel(context.Background(), appt, model.TransitionMetadata{})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusEarlyCancel, result.Appointment.Status)
	assert.Empty(t, f.charger.calls, "early cancellation never reaches billing")
}

func TestApprove(t *testing.T) {
	f := newFixture()
	appt := seedAppointment(f, model.AppointmentStatusRequested)

	result, err := f.service.Approve(context.Background(), appt)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusBooked, result.Appointment.Status)
}

func TestDenyRemovesRequested(t *testing.T) {
	f := newFixture()
	appt := seedAppointment(f, model.AppointmentStatusRequested)

	require.NoError(t, f.service.Deny(context.Background(), appt.ID))

	_, err := f.service.Get(context.Background(), appt.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDenyAfterApproveFails(t *testing.T) {
	f := newFixture()
	appt := seedAppointment(f, model.AppointmentStatusRequested)

	_, err := f.service.Approve(context.Background(), appt)
	require.NoError(t, err)

	err = f.service.Deny(context.Background(), appt.ID)
	assert.True(t, apperrors.IsStaleState(err))
	assert.Equal(t, model.AppointmentStatusBooked, f.repo.status(appt.ID), "approved booking must survive the late deny")
}

func TestCreateRequest(t *testing.T) {
	t.Run("creates in requested status", func(t *testing.T) {
		f := newFixture()
		appt := &model.Appointment{
			TrainerID:     uuid.New(),
			ClientID:      uuid.New(),
			ServiceTypeID: uuid.New(),
			StartAt:       time.Now().Add(24 * time.Hour),
			EndAt:         time.Now().Add(25 * time.Hour),
		}

		require.NoError(t, f.service.CreateRequest(context.Background(), appt))
		assert.Equal(t, model.AppointmentStatusRequested, appt.Status)
		assert.Equal(t, model.AppointmentStatusRequested, f.repo.status(appt.ID))
		assert.Equal(t, []model.AppointmentStatus{model.AppointmentStatusRequested}, f.dispatcher.notified)
	})

	t.Run("rejects end before start", func(t *testing.T) {
		f := newFixture()
		appt := &model.Appointment{
			TrainerID: uuid.New(),
			StartAt:   time.Now().Add(24 * time.Hour),
			EndAt:     time.Now().Add(23 * time.Hour),
		}

		err := f.service.CreateRequest(context.Background(), appt)
		assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
	})

	t.Run("rejects conflicting slot", func(t *testing.T) {
		f := newFixture()
		f.repo.conflict = true
		appt := &model.Appointment{
			TrainerID: uuid.New(),
			StartAt:   time.Now().Add(24 * time.Hour),
			EndAt:     time.Now().Add(25 * time.Hour),
		}

		err := f.service.CreateRequest(context.Background(), appt)
		assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
	})
}
