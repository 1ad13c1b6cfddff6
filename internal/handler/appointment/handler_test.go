package appointment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitlane/trainer-api/internal/model"
	appointmentService "github.com/fitlane/trainer-api/internal/service/appointment"
	apperrors "github.com/fitlane/trainer-api/pkg/errors"
	"github.com/fitlane/trainer-api/pkg/httputil"
	"github.com/fitlane/trainer-api/pkg/metrics"
)

type stubRepo struct {
	appt *model.Appointment
}

func (r *stubRepo) Create(ctx context.Context, appt *model.Appointment) error {
	appt.ID = uuid.New()
	r.appt = appt
	return nil
}

func (r *stubRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	if r.appt == nil || r.appt.ID != id {
		return nil, apperrors.NotFound("appointment", nil)
	}
	snapshot := *r.appt
	return &snapshot, nil
}

func (r *stubRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *stubRepo) UpdateStatus(ctx context.Context, id uuid.UUID, expectedFrom model.AppointmentStatus, patch *model.StatusPatch) error {
	if r.appt == nil || r.appt.ID != id {
		return apperrors.NotFound("appointment", nil)
	}
	if r.appt.Status != expectedFrom {
		return apperrors.StaleState(id, string(expectedFrom))
	}
	r.appt.Status = patch.Status
	if patch.CancelReason != nil {
		r.appt.CancelReason = patch.CancelReason
	}
	return nil
}

func (r *stubRepo) DeleteRequested(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (r *stubRepo) HasConflict(ctx context.Context, trainerID uuid.UUID, start, end time.Time) (bool, error) {
	return false, nil
}

type recorderStub struct{}

func (recorderStub) Record(ctx context.Context, appt *model.Appointment, terminalStatus model.AppointmentStatus) (*model.Visit, error) {
	return &model.Visit{AppointmentID: appt.ID, VisitStatus: terminalStatus}, nil
}

type calculatorStub struct{}

func (calculatorStub) Calculate(ctx context.Context, appt *model.Appointment, terminalStatus model.AppointmentStatus) (*model.Penalty, error) {
	return &model.Penalty{}, nil
}

type classifierStub struct{}

func (classifierStub) ResolveCancelStatus(ctx context.Context, appt *model.Appointment, meta model.TransitionMetadata) (model.AppointmentStatus, error) {
	if meta.ForceLateCancel {
		return model.AppointmentStatusLateCancel, nil
	}
	return model.AppointmentStatusEarlyCancel, nil
}

type chargerStub struct{}

func (chargerStub) ChargeFeeAsync(appointmentID uuid.UUID, feeType model.FeeType, amount float64) {}

type dispatcherStub struct{}

func (dispatcherStub) Notify(ctx context.Context, appt *model.Appointment, newStatus model.AppointmentStatus) error {
	return nil
}

func newTestEngine(t *testing.T, repo *stubRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := appointmentService.NewService(
		repo,
		recorderStub{},
		calculatorStub{},
		classifierStub{},
		chargerStub{},
		dispatcherStub{},
		repo,
		metrics.NewMetricsWith(prometheus.NewRegistry(), "test", "handler"),
		zerolog.Nop(),
	)

	engine := gin.New()
	NewHandler(svc).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func bookedAppointment() (*stubRepo, *model.Appointment) {
	appt := &model.Appointment{
		TrainerID:     uuid.New(),
		ClientID:      uuid.New(),
		ServiceTypeID: uuid.New(),
		StartAt:       time.Now().Add(48 * time.Hour),
		EndAt:         time.Now().Add(49 * time.Hour),
		Status:        model.AppointmentStatusBooked,
	}
	appt.ID = uuid.New()
	return &stubRepo{appt: appt}, appt
}

func TestCancelWithoutBody(t *testing.T) {
	repo, appt := bookedAppointment()
	engine := newTestEngine(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/"+appt.ID.String()+"/cancel", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.AppointmentStatusEarlyCancel, repo.appt.Status)
}

func TestCancelWithReason(t *testing.T) {
	repo, appt := bookedAppointment()
	engine := newTestEngine(t, repo)

	body := `{"reason": "client called in sick", "force_late_cancel": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/"+appt.ID.String()+"/cancel", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.AppointmentStatusLateCancel, repo.appt.Status)
	require.NotNil(t, repo.appt.CancelReason)
	assert.Equal(t, "client called in sick", *repo.appt.CancelReason)
}

func TestCancelRejectsMalformedBody(t *testing.T) {
	repo, appt := bookedAppointment()
	engine := newTestEngine(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/"+appt.ID.String()+"/cancel", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, model.AppointmentStatusBooked, repo.appt.Status, "a rejected request must not touch the appointment")
}

func TestCancelUnknownAppointment(t *testing.T) {
	repo, _ := bookedAppointment()
	engine := newTestEngine(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/"+uuid.NewString()+"/cancel", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}
