package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
)

type appointmentRepository struct {
	BaseRepository
}

const appointmentColumns = `
	id, patient_id, doctor_id, scheduled_at, motif, status,
	vitals, consultation_notes, medical_history_notes,
	billing_amount, billing_status, cancel_reason,
	checked_in_at, checked_in_by, vitals_entered_at, vitals_entered_by,
	consulted_at, consulted_by, closed_at, closed_by,
	created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `
		) VALUES (
			:id, :patient_id, :doctor_id, :scheduled_at, :motif, :status,
			:vitals, :consultation_notes, :medical_history_notes,
			:billing_amount, :billing_status, :cancel_reason,
			:checked_in_at, :checked_in_by, :vitals_entered_at, :vitals_entered_by,
			:consulted_at, :consulted_by, :closed_at, :closed_by,
			:created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, appointment); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appointment model.Appointment
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	if err := r.get(ctx, "appointment", &appointment, query, id); err != nil {
		return nil, err
	}
	return &appointment, nil
}

// GetForUpdate holds the row lock until the transaction ends.
func (r *appointmentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var appointment model.Appointment
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
	if err := r.get(ctx, "appointment", &appointment, query, id); err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments SET
			doctor_id = :doctor_id, scheduled_at = :scheduled_at, motif = :motif, status = :status,
			vitals = :vitals, consultation_notes = :consultation_notes,
			medical_history_notes = :medical_history_notes,
			billing_amount = :billing_amount, billing_status = :billing_status,
			cancel_reason = :cancel_reason,
			checked_in_at = :checked_in_at, checked_in_by = :checked_in_by,
			vitals_entered_at = :vitals_entered_at, vitals_entered_by = :vitals_entered_by,
			consulted_at = :consulted_at, consulted_by = :consulted_by,
			closed_at = :closed_at, closed_by = :closed_by,
			updated_at = :updated_at
		WHERE id = :id
	`
	return r.execOne(ctx, "appointment", query, appointment)
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	var args []interface{}
	argCount := 1

	add := func(clause string, v interface{}) {
		query += fmt.Sprintf(clause, argCount)
		args = append(args, v)
		argCount++
	}
	if filters != nil {
		if filters.PatientID != uuid.Nil {
			add(" AND patient_id = $%d", filters.PatientID)
		}
		if filters.DoctorID != uuid.Nil {
			add(" AND doctor_id = $%d", filters.DoctorID)
		}
		if filters.Status != "" {
			add(" AND status = $%d", filters.Status)
		}
		if !filters.StartDate.IsZero() {
			add(" AND scheduled_at >= $%d", filters.StartDate)
		}
		if !filters.EndDate.IsZero() {
			add(" AND scheduled_at <= $%d", filters.EndDate)
		}
	}
	query += " ORDER BY scheduled_at ASC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}
