package workflow

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/workflow"
	"github.com/jwalitptl/encounter-api/pkg/httputil"
)

type ActionInfo struct {
	Action      string                    `json:"action"`
	AllowedFrom []model.AppointmentStatus `json:"allowed_from,omitempty"`
}

type StepMeta struct {
	Position int    `json:"position"`
	Label    string `json:"label"`
	InScope  bool   `json:"in_scope"`
}

type Metadata struct {
	Statuses            model.StatusCatalog `json:"statuses"`
	AppointmentActions  []ActionInfo        `json:"appointment_actions"`
	PrescriptionActions []string            `json:"prescription_actions"`
	Steps               []StepMeta          `json:"steps"`
}

// Handler serves read-only display metadata so clients do not hard-code
// labels or colors.
type Handler struct {
	meta Metadata
}

func NewHandler() *Handler {
	return &Handler{meta: buildMetadata()}
}

func buildMetadata() Metadata {
	m := Metadata{Statuses: model.Catalog()}
	for _, a := range workflow.AppointmentActions() {
		m.AppointmentActions = append(m.AppointmentActions, ActionInfo{Action: string(a), AllowedFrom: a.AllowedFrom()})
	}
	for _, a := range workflow.PrescriptionActions() {
		m.PrescriptionActions = append(m.PrescriptionActions, string(a))
	}
	for s := workflow.StepRequestReceived; s <= workflow.StepClosure; s++ {
		m.Steps = append(m.Steps, StepMeta{Position: int(s), Label: s.Label(), InScope: s.InScope()})
	}
	return m
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/workflow/statuses", h.GetMetadata)
}

func (h *Handler) GetMetadata(c *gin.Context) {
	httputil.RespondWithSuccess(c, h.meta)
}
