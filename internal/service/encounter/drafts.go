package encounter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/repository"
	"github.com/jwalitptl/encounter-api/internal/workflow"
	"github.com/jwalitptl/encounter-api/pkg/errors"
	"github.com/jwalitptl/encounter-api/pkg/validator"
)

const vitalsCorrectionReason = "vitals correction"

// SaveDraft upserts the open draft for (appointment, kind). The appointment
// row is locked first so concurrent saves for one key serialize.
func (s *Service) SaveDraft(ctx context.Context, appointmentID uuid.UUID, kind model.ArtifactKind, payload model.DraftPayload, actor model.Actor) (*model.DraftRecord, error) {
	if !kind.Valid() {
		return nil, errors.Validationf("unknown draft kind %q", kind)
	}
	if !payload.Matches(kind) {
		return nil, errors.Validationf("payload does not match draft kind %s", kind)
	}
	if err := validator.Validate(payload); err != nil {
		return nil, err
	}

	var saved *model.DraftRecord
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		apt, err := tx.Appointments().GetForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		correction, err := workflow.CheckDraft(apt, kind, actor)
		if err != nil {
			return err
		}

		now := s.now()
		saved, err = tx.Drafts().UpsertOpen(ctx, &model.DraftRecord{
			ID:            uuid.New(),
			AppointmentID: apt.ID,
			PatientID:     apt.PatientID,
			Kind:          kind,
			Payload:       payload,
			EnteredBy:     actor.ID,
			EnteredAt:     now,
			IsDraft:       true,
			Correction:    correction,
			CreatedAt:     now,
		})
		if err != nil {
			return fmt.Errorf("failed to save draft: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("draft save rejected: "+err.Error(), "appointment_id", appointmentID.String(), "kind", string(kind))
		return nil, err
	}
	s.metrics.DraftSaved(string(kind))
	return saved, nil
}

// FinalizeDraft commits a vitals draft. A first vitals draft runs
// enter_vitals; a correction replaces the committed vitals and is audited.
// Consultation notes are only committed by complete_consultation.
func (s *Service) FinalizeDraft(ctx context.Context, draftID uuid.UUID, actor model.Actor) (result *model.DraftRecord, err error) {
	started := time.Now()
	defer func() { s.observe("draft", "finalize", started, err, "draft_id", draftID.String()) }()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		d, err := tx.Drafts().Get(ctx, draftID)
		if err != nil {
			return err
		}
		if !d.IsDraft {
			return errors.AlreadyFinalized("draft")
		}

		// Lock order is appointment then draft, as in SaveDraft.
		apt, err := tx.Appointments().GetForUpdate(ctx, d.AppointmentID)
		if err != nil {
			return err
		}
		if d, err = tx.Drafts().GetForUpdate(ctx, draftID); err != nil {
			return err
		}
		if !d.IsDraft {
			return errors.AlreadyFinalized("draft")
		}
		if d.Kind == model.ArtifactConsultationNotes {
			return errors.Validationf("consultation notes are committed by %s", workflow.ActionCompleteConsultation)
		}

		now := s.now()
		if d.Correction {
			if err := s.commitVitalsCorrection(ctx, tx, apt, d, actor, now); err != nil {
				return err
			}
		} else {
			next, err := workflow.ApplyAppointment(apt, workflow.ActionEnterVitals, model.AppointmentPayload{Vitals: d.Payload.Vitals}, actor, now)
			if err != nil {
				return err
			}
			if err := tx.Appointments().Update(ctx, next); err != nil {
				return fmt.Errorf("failed to update appointment: %w", err)
			}
			if err := s.emit(ctx, tx, model.WorkflowEvent{
				Entity:     workflow.EntityAppointment,
				EntityID:   next.ID,
				Action:     string(workflow.ActionEnterVitals),
				FromStatus: string(apt.Status),
				ToStatus:   string(next.Status),
				ActorID:    actor.ID,
				ActorRole:  actor.Role,
				OccurredAt: now,
			}); err != nil {
				return err
			}
		}

		if err := tx.Drafts().MarkFinalized(ctx, d.ID, actor.ID, now); err != nil {
			return fmt.Errorf("failed to finalize draft: %w", err)
		}
		result, err = tx.Drafts().Get(ctx, d.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DraftFinalized(string(result.Kind))
	return result, nil
}

func (s *Service) commitVitalsCorrection(ctx context.Context, tx repository.Repositories, apt *model.Appointment, d *model.DraftRecord, actor model.Actor, now time.Time) error {
	correction, err := workflow.CheckDraft(apt, model.ArtifactVitals, actor)
	if err != nil {
		return err
	}
	if !correction {
		return errors.InvalidTransition(workflow.EntityAppointment, string(apt.Status), "correct vitals")
	}
	if d.Payload.Vitals.IsEmpty() {
		return errors.Validationf("a vitals correction needs at least one measurement")
	}

	next := apt.Clone()
	v := *d.Payload.Vitals
	next.Vitals = &v
	next.UpdatedAt = now
	if err := tx.Appointments().Update(ctx, next); err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	entry, err := s.auditor.RecordUpdate(ctx, tx.Audit(), model.AuditEntityAppointment, apt.ID, actor.ID, apt, next, vitalsCorrectionReason)
	if err != nil {
		return err
	}
	s.audited(entry)
	return s.emit(ctx, tx, model.WorkflowEvent{
		Entity:     workflow.EntityAppointment,
		EntityID:   apt.ID,
		Action:     "correct_vitals",
		FromStatus: string(apt.Status),
		ToStatus:   string(next.Status),
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		OccurredAt: now,
	})
}

// ListDrafts returns every draft row of an appointment, open and finalized.
func (s *Service) ListDrafts(ctx context.Context, appointmentID uuid.UUID) ([]*model.DraftRecord, error) {
	if _, err := s.store.Appointments().Get(ctx, appointmentID); err != nil {
		return nil, err
	}
	drafts, err := s.store.Drafts().ListByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	return drafts, nil
}
