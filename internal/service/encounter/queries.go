package encounter

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/repository"
	"github.com/jwalitptl/encounter-api/internal/workflow"
	"github.com/jwalitptl/encounter-api/pkg/errors"
)

// GetWorkflowProgress projects one appointment and its prescriptions, both
// read from one snapshot.
func (s *Service) GetWorkflowProgress(ctx context.Context, appointmentID uuid.UUID) (workflow.Progress, error) {
	var progress workflow.Progress
	err := s.store.ReadSnapshot(ctx, func(ctx context.Context, tx repository.Repositories) error {
		apt, err := tx.Appointments().Get(ctx, appointmentID)
		if err != nil {
			return err
		}
		prescriptions, err := tx.Prescriptions().ListByAppointment(ctx, appointmentID)
		if err != nil {
			return fmt.Errorf("failed to list prescriptions: %w", err)
		}
		progress = workflow.Project(apt, prescriptions)
		return nil
	})
	if err != nil {
		return workflow.Progress{}, err
	}
	return progress, nil
}

// GetPatientProgress projects every appointment of a patient together.
func (s *Service) GetPatientProgress(ctx context.Context, patientID uuid.UUID) (workflow.Progress, error) {
	var progress workflow.Progress
	err := s.store.ReadSnapshot(ctx, func(ctx context.Context, tx repository.Repositories) error {
		appointments, err := tx.Appointments().List(ctx, &model.AppointmentFilters{PatientID: patientID})
		if err != nil {
			return fmt.Errorf("failed to list appointments: %w", err)
		}
		var prescriptions []*model.Prescription
		for _, a := range appointments {
			rxs, err := tx.Prescriptions().ListByAppointment(ctx, a.ID)
			if err != nil {
				return fmt.Errorf("failed to list prescriptions: %w", err)
			}
			prescriptions = append(prescriptions, rxs...)
		}
		progress = workflow.ProjectAll(appointments, prescriptions)
		return nil
	})
	if err != nil {
		return workflow.Progress{}, err
	}
	return progress, nil
}

// GetAuditLog returns an entity's audit trail, oldest first.
func (s *Service) GetAuditLog(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLogEntry, error) {
	switch entityType {
	case model.AuditEntityAppointment, model.AuditEntityPrescription:
	default:
		return nil, errors.Validationf("unknown entity type %q", entityType)
	}
	return s.auditor.List(ctx, s.store.Audit(), entityType, entityID)
}
