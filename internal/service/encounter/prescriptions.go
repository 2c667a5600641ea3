package encounter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/repository"
	"github.com/jwalitptl/encounter-api/internal/workflow"
	"github.com/jwalitptl/encounter-api/pkg/validator"
)

// CreatePrescription orders a test on an appointment that is in or past
// consultation. The acting doctor owns the prescription.
func (s *Service) CreatePrescription(ctx context.Context, appointmentID uuid.UUID, req model.CreatePrescriptionRequest, actor model.Actor) (p *model.Prescription, err error) {
	started := time.Now()
	defer func() {
		s.observe(workflow.EntityPrescription, "create", started, err, "appointment_id", appointmentID.String())
	}()

	if err := validator.Validate(req); err != nil {
		return nil, err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		apt, err := tx.Appointments().GetForUpdate(ctx, appointmentID)
		if err != nil {
			return err
		}
		if err := workflow.CheckCreatePrescription(apt, req.Category, actor); err != nil {
			return err
		}

		now := s.now()
		p = &model.Prescription{
			Base:          model.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			AppointmentID: apt.ID,
			PatientID:     apt.PatientID,
			DoctorID:      actor.ID,
			NurseID:       req.NurseID,
			Content:       strings.TrimSpace(req.Content),
			Category:      req.Category,
			Status:        model.PrescriptionStatusCreated,
		}
		if err := tx.Prescriptions().Create(ctx, p); err != nil {
			return fmt.Errorf("failed to create prescription: %w", err)
		}
		entry, err := s.auditor.RecordCreate(ctx, tx.Audit(), model.AuditEntityPrescription, p.ID, actor.ID, p)
		if err != nil {
			return err
		}
		s.audited(entry)
		return s.emit(ctx, tx, model.WorkflowEvent{
			Entity:     workflow.EntityPrescription,
			EntityID:   p.ID,
			Action:     "created",
			ToStatus:   string(p.Status),
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	return s.store.Prescriptions().Get(ctx, id)
}

func (s *Service) ListPrescriptions(ctx context.Context, appointmentID uuid.UUID) ([]*model.Prescription, error) {
	if _, err := s.store.Appointments().Get(ctx, appointmentID); err != nil {
		return nil, err
	}
	prescriptions, err := s.store.Prescriptions().ListByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}

// TransitionPrescription applies one lab/imaging action under a row lock.
func (s *Service) TransitionPrescription(ctx context.Context, id uuid.UUID, action workflow.PrescriptionAction, payload model.PrescriptionPayload, actor model.Actor) (result *model.Prescription, err error) {
	started := time.Now()
	defer func() {
		s.observe(workflow.EntityPrescription, string(action), started, err, "prescription_id", id.String(), "actor_role", string(actor.Role))
	}()

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		p, err := tx.Prescriptions().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		next, err := workflow.ApplyPrescription(p, action, payload, actor, now)
		if err != nil {
			return err
		}
		if err := tx.Prescriptions().Update(ctx, next); err != nil {
			return fmt.Errorf("failed to update prescription: %w", err)
		}
		if err := s.emit(ctx, tx, model.WorkflowEvent{
			Entity:     workflow.EntityPrescription,
			EntityID:   next.ID,
			Action:     string(action),
			FromStatus: string(p.Status),
			ToStatus:   string(next.Status),
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			OccurredAt: now,
		}); err != nil {
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
