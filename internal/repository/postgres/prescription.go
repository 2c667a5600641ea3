package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
)

type prescriptionRepository struct {
	BaseRepository
}

const prescriptionColumns = `
	id, appointment_id, patient_id, doctor_id, nurse_id, content, category, status, result_id,
	sent_to_lab_at, sent_to_lab_by, sample_collected_at, sample_collected_by,
	analysis_started_at, analysis_started_by, analysis_completed_at,
	reviewed_at, reviewed_by, created_at, updated_at`

func (r *prescriptionRepository) Create(ctx context.Context, p *model.Prescription) error {
	query := `
		INSERT INTO prescriptions (` + prescriptionColumns + `
		) VALUES (
			:id, :appointment_id, :patient_id, :doctor_id, :nurse_id, :content, :category, :status, :result_id,
			:sent_to_lab_at, :sent_to_lab_by, :sample_collected_at, :sample_collected_by,
			:analysis_started_at, :analysis_started_by, :analysis_completed_at,
			:reviewed_at, :reviewed_by, :created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	var p model.Prescription
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE id = $1`
	if err := r.get(ctx, "prescription", &p, query, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prescriptionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	var p model.Prescription
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE id = $1 FOR UPDATE`
	if err := r.get(ctx, "prescription", &p, query, id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prescriptionRepository) Update(ctx context.Context, p *model.Prescription) error {
	query := `
		UPDATE prescriptions SET
			nurse_id = :nurse_id, status = :status, result_id = :result_id,
			sent_to_lab_at = :sent_to_lab_at, sent_to_lab_by = :sent_to_lab_by,
			sample_collected_at = :sample_collected_at, sample_collected_by = :sample_collected_by,
			analysis_started_at = :analysis_started_at, analysis_started_by = :analysis_started_by,
			analysis_completed_at = :analysis_completed_at,
			reviewed_at = :reviewed_at, reviewed_by = :reviewed_by,
			updated_at = :updated_at
		WHERE id = :id
	`
	return r.execOne(ctx, "prescription", query, p)
}

func (r *prescriptionRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE appointment_id = $1 ORDER BY created_at ASC`
	var prescriptions []*model.Prescription
	if err := r.db.SelectContext(ctx, &prescriptions, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}
