package appointment

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/handler"
	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/service/encounter"
	"github.com/jwalitptl/encounter-api/internal/workflow"
	"github.com/jwalitptl/encounter-api/pkg/errors"
	"github.com/jwalitptl/encounter-api/pkg/httputil"
)

type Handler struct {
	service *encounter.Service
}

func NewHandler(service *encounter.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id", h.EditAppointment)
		appointments.POST("/:id/transitions/:action", h.TransitionAppointment)
		appointments.GET("/:id/progress", h.GetProgress)
	}
	r.GET("/patients/:id/progress", h.GetPatientProgress)
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	var req model.CreateAppointmentRequest
	if !handler.BindJSON(c, &req, false) {
		return
	}

	appointment, err := h.service.CreateAppointment(c.Request.Context(), req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, appointment)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	appointment, err := h.service.GetAppointment(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	var filters model.AppointmentFilters

	if id := c.Query("patient_id"); id != "" {
		patientID, err := uuid.Parse(id)
		if err != nil {
			httputil.RespondWithError(c, errors.Validationf("invalid patient_id"))
			return
		}
		filters.PatientID = patientID
	}

	if id := c.Query("doctor_id"); id != "" {
		doctorID, err := uuid.Parse(id)
		if err != nil {
			httputil.RespondWithError(c, errors.Validationf("invalid doctor_id"))
			return
		}
		filters.DoctorID = doctorID
	}

	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
		if !filters.Status.Valid() {
			httputil.RespondWithError(c, errors.Validationf("unknown status %q", status))
			return
		}
	}

	for param, dst := range map[string]*time.Time{"start_date": &filters.StartDate, "end_date": &filters.EndDate} {
		if v := c.Query(param); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				httputil.RespondWithError(c, errors.Validationf("%s must be RFC 3339", param))
				return
			}
			*dst = t
		}
	}

	appointments, err := h.service.ListAppointments(c.Request.Context(), &filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointments)
}

// EditAppointment changes date, motif or doctor. The reason is mandatory.
func (h *Handler) EditAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.EditAppointmentRequest
	if !handler.BindJSON(c, &req, false) {
		return
	}

	appointment, err := h.service.EditAppointmentWithAudit(c.Request.Context(), id, req.AppointmentEdit, req.Reason, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) TransitionAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var payload model.AppointmentPayload
	if !handler.BindJSON(c, &payload, true) {
		return
	}

	action := workflow.AppointmentAction(c.Param("action"))
	appointment, err := h.service.TransitionAppointment(c.Request.Context(), id, action, payload, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appointment)
}

func (h *Handler) GetProgress(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	progress, err := h.service.GetWorkflowProgress(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, progress)
}

func (h *Handler) GetPatientProgress(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	progress, err := h.service.GetPatientProgress(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, progress)
}
