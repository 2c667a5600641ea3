package encounter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/repository"
	"github.com/jwalitptl/encounter-api/internal/service/audit"
	"github.com/jwalitptl/encounter-api/internal/workflow"
	"github.com/jwalitptl/encounter-api/pkg/errors"
	"github.com/jwalitptl/encounter-api/pkg/validator"
)

// CreateAppointment schedules a new encounter in SCHEDULED.
func (s *Service) CreateAppointment(ctx context.Context, req model.CreateAppointmentRequest, actor model.Actor) (apt *model.Appointment, err error) {
	started := time.Now()
	defer func() { s.observe(workflow.EntityAppointment, "create", started, err) }()

	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Motif) == "" {
		return nil, errors.Validationf("motif cannot be blank")
	}
	if err := workflow.CheckCreateAppointment(actor); err != nil {
		return nil, err
	}

	now := s.now()
	apt = &model.Appointment{
		Base:        model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		PatientID:   req.PatientID,
		DoctorID:    req.DoctorID,
		ScheduledAt: req.ScheduledAt.UTC(),
		Motif:       strings.TrimSpace(req.Motif),
		Status:      model.AppointmentStatusScheduled,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		if err := tx.Appointments().Create(ctx, apt); err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		entry, err := s.auditor.RecordCreate(ctx, tx.Audit(), model.AuditEntityAppointment, apt.ID, actor.ID, apt)
		if err != nil {
			return err
		}
		s.audited(entry)
		return s.emit(ctx, tx, model.WorkflowEvent{
			Entity:     workflow.EntityAppointment,
			EntityID:   apt.ID,
			Action:     "created",
			ToStatus:   string(apt.Status),
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return apt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.store.Appointments().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.decorateFrom(ctx, s.store, apt); err != nil {
		return nil, err
	}
	return apt, nil
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	appointments, err := s.store.Appointments().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// TransitionAppointment applies one lifecycle action. The guard runs against
// the row locked inside the transaction, so of two concurrent callers only
// the first can pass it.
func (s *Service) TransitionAppointment(ctx context.Context, id uuid.UUID, action workflow.AppointmentAction, payload model.AppointmentPayload, actor model.Actor) (result *model.Appointment, err error) {
	started := time.Now()
	defer func() {
		s.observe(workflow.EntityAppointment, string(action), started, err, "appointment_id", id.String(), "actor_role", string(actor.Role))
	}()

	if err := validator.Validate(payload); err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		apt, err := tx.Appointments().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if _, err := workflow.CheckAppointment(apt, action, actor); err != nil {
			return err
		}

		// Fold the open draft into the transition that commits it. An
		// explicit payload wins and is written back into the draft.
		var (
			draft     *model.DraftRecord
			overrides bool
		)
		switch action {
		case workflow.ActionEnterVitals:
			draft, err = openDraft(ctx, tx, id, model.ArtifactVitals)
			if err != nil {
				return err
			}
			if draft != nil {
				if payload.Vitals.IsEmpty() {
					payload.Vitals = draft.Payload.Vitals
				} else {
					overrides = true
				}
			}
		case workflow.ActionCompleteConsultation:
			draft, err = openDraft(ctx, tx, id, model.ArtifactConsultationNotes)
			if err != nil {
				return err
			}
			if draft != nil {
				if strings.TrimSpace(payload.ConsultationNotes) != "" {
					overrides = true
				} else if draft.Payload.Notes != nil {
					payload.ConsultationNotes = *draft.Payload.Notes
				}
			}
		}

		now := s.now()
		next, err := workflow.ApplyAppointment(apt, action, payload, actor, now)
		if err != nil {
			return err
		}
		if err := tx.Appointments().Update(ctx, next); err != nil {
			return fmt.Errorf("failed to update appointment: %w", err)
		}
		if draft != nil {
			if overrides {
				if draft, err = commitDraftPayload(ctx, tx, draft, next, actor, now); err != nil {
					return err
				}
			}
			if err := tx.Drafts().MarkFinalized(ctx, draft.ID, actor.ID, now); err != nil {
				return fmt.Errorf("failed to finalize draft: %w", err)
			}
			s.metrics.DraftFinalized(string(draft.Kind))
		}
		if err := s.emit(ctx, tx, model.WorkflowEvent{
			Entity:     workflow.EntityAppointment,
			EntityID:   next.ID,
			Action:     string(action),
			FromStatus: string(apt.Status),
			ToStatus:   string(next.Status),
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			OccurredAt: now,
		}); err != nil {
			return err
		}
		if err := s.decorateFrom(ctx, tx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EditAppointmentWithAudit changes date, motif or doctor and logs the diff.
// An edit that changes nothing writes nothing and returns the current record.
func (s *Service) EditAppointmentWithAudit(ctx context.Context, id uuid.UUID, fields model.AppointmentEdit, reason string, actor model.Actor) (result *model.Appointment, err error) {
	started := time.Now()
	defer func() {
		s.observe(workflow.EntityAppointment, string(workflow.ActionEdit), started, err, "appointment_id", id.String())
	}()

	if err := validator.Validate(fields); err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		apt, err := tx.Appointments().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		next, err := workflow.EditAppointment(apt, fields, reason, actor, now)
		if err != nil {
			return err
		}

		changes, err := audit.Diff(apt, next, audit.DefaultIgnored...)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			result = apt
			return s.decorateFrom(ctx, tx, result)
		}

		if err := tx.Appointments().Update(ctx, next); err != nil {
			return fmt.Errorf("failed to update appointment: %w", err)
		}
		entry, err := s.auditor.RecordEdit(ctx, tx.Audit(), model.AuditEntityAppointment, id, actor.ID, apt, next, reason)
		if err != nil {
			return err
		}
		s.audited(entry)
		if err := s.emit(ctx, tx, model.WorkflowEvent{
			Entity:     workflow.EntityAppointment,
			EntityID:   id,
			Action:     string(workflow.ActionEdit),
			FromStatus: string(apt.Status),
			ToStatus:   string(next.Status),
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			OccurredAt: now,
		}); err != nil {
			return err
		}
		result = next
		return s.decorateFrom(ctx, tx, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// openDraft returns the open draft of kind, or nil when there is none.
func openDraft(ctx context.Context, tx repository.Repositories, appointmentID uuid.UUID, kind model.ArtifactKind) (*model.DraftRecord, error) {
	d, err := tx.Drafts().GetOpen(ctx, appointmentID, kind)
	if errors.HasCode(err, errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load open draft: %w", err)
	}
	return d, nil
}

// commitDraftPayload overwrites the open draft with the artifact committed on
// apt, so the finalized record matches what the appointment holds. The upsert
// keeps the open row's id.
func commitDraftPayload(ctx context.Context, tx repository.Repositories, draft *model.DraftRecord, apt *model.Appointment, actor model.Actor, now time.Time) (*model.DraftRecord, error) {
	next := draft.Clone()
	next.ID = uuid.New()
	switch draft.Kind {
	case model.ArtifactVitals:
		next.Payload = model.DraftPayload{Vitals: apt.Vitals}
	case model.ArtifactConsultationNotes:
		next.Payload = model.DraftPayload{Notes: apt.ConsultationNotes}
	}
	next.EnteredBy = actor.ID
	next.EnteredAt = now
	saved, err := tx.Drafts().UpsertOpen(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return saved, nil
}
