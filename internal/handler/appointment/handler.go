package appointment

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fitlane/trainer-api/internal/model"
	"github.com/fitlane/trainer-api/internal/service/appointment"
	apperrors "github.com/fitlane/trainer-api/pkg/errors"
	"github.com/fitlane/trainer-api/pkg/httputil"
	"github.com/fitlane/trainer-api/pkg/validator"
)

type Handler struct {
	service   *appointment.Service
	validator *validator.Validator
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("/:id/approve", h.ApproveAppointment)
		appointments.DELETE("/:id", h.DenyAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.POST("/:id/transition", h.TransitionAppointment)
	}
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	if err := h.validator.Validate(req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	appt, err := h.buildAppointment(&req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	if err := h.service.CreateRequest(c.Request.Context(), appt); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, appt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	appt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, appt)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	filters := &model.AppointmentFilters{}

	if id := c.Query("trainer_id"); id != "" {
		trainerID, err := uuid.Parse(id)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid trainer ID", err))
			return
		}
		filters.TrainerID = trainerID
	}

	if id := c.Query("client_id"); id != "" {
		clientID, err := uuid.Parse(id)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid client ID", err))
			return
		}
		filters.ClientID = clientID
	}

	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}

	if date := c.Query("start_date"); date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid start date", err))
			return
		}
		filters.StartDate = parsed
	}

	if date := c.Query("end_date"); date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			httputil.RespondWithError(c, apperrors.BadRequest("invalid end date", err))
			return
		}
		filters.EndDate = parsed
	}

	appointments, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func (h *Handler) ApproveAppointment(c *gin.Context) {
	appt, ok := h.fetchAppointment(c)
	if !ok {
		return
	}

	result, err := h.service.Approve(c.Request.Context(), appt)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, result)
}

func (h *Handler) DenyAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return
	}

	if err := h.service.Deny(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, nil)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	appt, ok := h.fetchAppointment(c)
	if !ok {
		return
	}

	// The body is optional: a bare cancel is classified by timing alone.
	var req model.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	meta := model.TransitionMetadata{
		CancelReason:    req.Reason,
		ForceLateCancel: req.ForceLateCancel,
	}
	result, err := h.service.Cancel(c.Request.Context(), appt, meta)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, result)
}

func (h *Handler) TransitionAppointment(c *gin.Context) {
	appt, ok := h.fetchAppointment(c)
	if !ok {
		return
	}

	var req model.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	if !req.ToStatus.IsValid() {
		httputil.RespondWithError(c, apperrors.BadRequest("unknown target status", nil))
		return
	}

	meta := model.TransitionMetadata{ArrivedAt: req.ArrivedAt}
	result, err := h.service.Transition(c.Request.Context(), appt, req.ToStatus, meta)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, result)
}

func (h *Handler) fetchAppointment(c *gin.Context) (*model.Appointment, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment ID", err))
		return nil, false
	}

	appt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return nil, false
	}
	return appt, true
}

func (h *Handler) buildAppointment(req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	trainerID, err := uuid.Parse(req.TrainerID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid trainer ID", err)
	}
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid client ID", err)
	}
	serviceTypeID, err := uuid.Parse(req.ServiceTypeID)
	if err != nil {
		return nil, apperrors.BadRequest("invalid service type ID", err)
	}

	appt := &model.Appointment{
		TrainerID:     trainerID,
		ClientID:      clientID,
		ServiceTypeID: serviceTypeID,
		StartAt:       req.StartAt,
		EndAt:         req.EndAt,
		Notes:         req.Notes,
	}

	if req.ClientServiceID != nil {
		clientServiceID, err := uuid.Parse(*req.ClientServiceID)
		if err != nil {
			return nil, apperrors.BadRequest("invalid client service ID", err)
		}
		appt.ClientServiceID = &clientServiceID
	}

	return appt, nil
}
