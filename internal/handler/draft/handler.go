package draft

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/encounter-api/internal/handler"
	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/service/encounter"
	"github.com/jwalitptl/encounter-api/pkg/httputil"
)

type Handler struct {
	service *encounter.Service
}

func NewHandler(service *encounter.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.PUT("/appointments/:id/drafts/:kind", h.SaveDraft)
	r.GET("/appointments/:id/drafts", h.ListDrafts)
	r.POST("/drafts/:id/finalize", h.FinalizeDraft)
}

// SaveDraft is the auto-save target. The kind path segment is matched case
// insensitively, so /drafts/vitals and /drafts/VITALS are the same key.
func (h *Handler) SaveDraft(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	appointmentID, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.SaveDraftRequest
	if !handler.BindJSON(c, &req, false) {
		return
	}

	kind := model.ArtifactKind(strings.ToUpper(c.Param("kind")))
	d, err := h.service.SaveDraft(c.Request.Context(), appointmentID, kind, req.Payload, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, d)
}

func (h *Handler) ListDrafts(c *gin.Context) {
	appointmentID, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	drafts, err := h.service.ListDrafts(c.Request.Context(), appointmentID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, drafts)
}

func (h *Handler) FinalizeDraft(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	d, err := h.service.FinalizeDraft(c.Request.Context(), id, actor)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, d)
}
