// Package encounter coordinates workflow transitions: it loads and locks the
// entity, runs the guard, commits the change with its outbox event and audit
// entry in one transaction, and serves projected progress.
package encounter

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/repository"
	"github.com/jwalitptl/encounter-api/internal/service/audit"
	"github.com/jwalitptl/encounter-api/pkg/errors"
	"github.com/jwalitptl/encounter-api/pkg/logger"
	"github.com/jwalitptl/encounter-api/pkg/metrics"
)

type Service struct {
	store   repository.Store
	auditor *audit.Service
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewService wires the coordinator. metrics may be nil.
func NewService(store repository.Store, auditor *audit.Service, m *metrics.Metrics, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:   store,
		auditor: auditor,
		metrics: m,
		log:     log.With("encounter"),
		now:     model.UTCNow,
	}
}

func (s *Service) emit(ctx context.Context, tx repository.Repositories, evt model.WorkflowEvent) error {
	row, err := model.NewOutboxEvent(evt)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", evt.EventType(), err)
	}
	if err := tx.Outbox().Create(ctx, row); err != nil {
		return fmt.Errorf("failed to queue %s event: %w", evt.EventType(), err)
	}
	return nil
}

func (s *Service) audited(entry *model.AuditLogEntry) {
	if entry != nil {
		s.metrics.AuditWritten(entry.EntityType, string(entry.Action))
	}
}

// observe records the outcome of a mutating call and logs rejections.
func (s *Service) observe(entity, action string, started time.Time, err error, fields ...interface{}) {
	outcome := "ok"
	if err != nil {
		outcome = errors.CodeOf(err).String()
	}
	s.metrics.ObserveTransition(entity, action, outcome, time.Since(started).Seconds())

	fields = append(fields, "entity", entity, "action", action)
	switch {
	case err == nil:
		s.log.Debug("transition applied", fields...)
	case errors.CodeOf(err) == errors.ErrInternal:
		s.log.Error(err, "transition failed", fields...)
	default:
		s.log.Warn("transition rejected: "+err.Error(), fields...)
	}
}

// decorate fills the derived draft fields of apt.
func decorate(apt *model.Appointment, drafts []*model.DraftRecord) {
	apt.LastAutoSaveAt = nil
	apt.IsDraftConsultation = false
	for _, d := range drafts {
		if apt.LastAutoSaveAt == nil || d.EnteredAt.After(*apt.LastAutoSaveAt) {
			at := d.EnteredAt
			apt.LastAutoSaveAt = &at
		}
		if d.IsDraft && d.Kind == model.ArtifactConsultationNotes {
			apt.IsDraftConsultation = true
		}
	}
}

func (s *Service) decorateFrom(ctx context.Context, repos repository.Repositories, apt *model.Appointment) error {
	drafts, err := repos.Drafts().ListByAppointment(ctx, apt.ID)
	if err != nil {
		return fmt.Errorf("failed to list drafts: %w", err)
	}
	decorate(apt, drafts)
	return nil
}
