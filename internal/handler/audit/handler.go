package audit

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/encounter-api/internal/handler"
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
	r.GET("/audit/:type/:id", h.GetEntityLogs)
}

// GetEntityLogs returns the trail oldest first.
func (h *Handler) GetEntityLogs(c *gin.Context) {
	entityID, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}

	logs, err := h.service.GetAuditLog(c.Request.Context(), c.Param("type"), entityID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, logs)
}
