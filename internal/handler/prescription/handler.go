package prescription

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/encounter-api/internal/handler"
	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/service/encounter"
	"github.com/jwalitptl/encounter-api/internal/workflow"
	"github.com/jwalitptl/encounter-api/pkg/httputil"
)

type Handler struct {
	service *encounter.Service
}

func NewHandler(service *encounter.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/appointments/:id/prescriptions", h.CreatePrescription)
	r.GET("/appointments/:id/prescriptions", h.ListPrescriptions)

	prescriptions := r.Group("/prescriptions")
	{
		prescriptions.GET("/:id", h.GetPrescription)
		prescriptions.POST("/:id/transitions/:action", h.TransitionPrescription)
	}
}

func (h *Handler) CreatePrescription(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	appointmentID, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.CreatePrescriptionRequest
	if !handler.BindJSON(c, &req, false) {
		return
	}

	p, err := h.service.CreatePrescription(c.Request.Context(), appointmentID, req, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, p)
}

func (h *Handler) ListPrescriptions(c *gin.Context) {
	appointmentID, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	prescriptions, err := h.service.ListPrescriptions(c.Request.Context(), appointmentID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, prescriptions)
}

func (h *Handler) GetPrescription(c *gin.Context) {
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.GetPrescription(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) TransitionPrescription(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var payload model.PrescriptionPayload
	if !handler.BindJSON(c, &payload, true) {
		return
	}

	action := workflow.PrescriptionAction(c.Param("action"))
	p, err := h.service.TransitionPrescription(c.Request.Context(), id, action, payload, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}
