package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/pkg/errors"
	"github.com/jwalitptl/encounter-api/pkg/security"
)

// draftRepository stores payloads sealed with enc; the rest of the row stays
// queryable.
type draftRepository struct {
	BaseRepository
	enc security.Encryptor
}

const draftColumns = `
	id, appointment_id, patient_id, kind, payload, entered_by, entered_at,
	is_draft, finalized_at, finalized_by, correction, created_at`

type draftRow struct {
	ID            uuid.UUID          `db:"id"`
	AppointmentID uuid.UUID          `db:"appointment_id"`
	PatientID     uuid.UUID          `db:"patient_id"`
	Kind          model.ArtifactKind `db:"kind"`
	Payload       []byte             `db:"payload"`
	EnteredBy     uuid.UUID          `db:"entered_by"`
	EnteredAt     time.Time          `db:"entered_at"`
	IsDraft       bool               `db:"is_draft"`
	FinalizedAt   *time.Time         `db:"finalized_at"`
	FinalizedBy   *uuid.UUID         `db:"finalized_by"`
	Correction    bool               `db:"correction"`
	CreatedAt     time.Time          `db:"created_at"`
}

func (r *draftRepository) seal(d *model.DraftRecord) (*draftRow, error) {
	plain, err := json.Marshal(d.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft payload: %w", err)
	}
	sealed, err := r.enc.Encrypt(plain)
	if err != nil {
		return nil, fmt.Errorf("failed to seal draft payload: %w", err)
	}
	return &draftRow{
		ID:            d.ID,
		AppointmentID: d.AppointmentID,
		PatientID:     d.PatientID,
		Kind:          d.Kind,
		Payload:       sealed,
		EnteredBy:     d.EnteredBy,
		EnteredAt:     d.EnteredAt,
		IsDraft:       d.IsDraft,
		FinalizedAt:   d.FinalizedAt,
		FinalizedBy:   d.FinalizedBy,
		Correction:    d.Correction,
		CreatedAt:     d.CreatedAt,
	}, nil
}

func (r *draftRepository) open(row *draftRow) (*model.DraftRecord, error) {
	plain, err := r.enc.Decrypt(row.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to open draft %s: %w", row.ID, err)
	}
	d := &model.DraftRecord{
		ID:            row.ID,
		AppointmentID: row.AppointmentID,
		PatientID:     row.PatientID,
		Kind:          row.Kind,
		EnteredBy:     row.EnteredBy,
		EnteredAt:     row.EnteredAt,
		IsDraft:       row.IsDraft,
		FinalizedAt:   row.FinalizedAt,
		FinalizedBy:   row.FinalizedBy,
		Correction:    row.Correction,
		CreatedAt:     row.CreatedAt,
	}
	if err := json.Unmarshal(plain, &d.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode draft %s: %w", row.ID, err)
	}
	return d, nil
}

// UpsertOpen relies on the partial unique index drafts_open_key, so two
// concurrent saves for one key end with a single open row.
func (r *draftRepository) UpsertOpen(ctx context.Context, draft *model.DraftRecord) (*model.DraftRecord, error) {
	row, err := r.seal(draft)
	if err != nil {
		return nil, err
	}
	query, args, err := r.db.BindNamed(`
		INSERT INTO drafts (`+draftColumns+`
		) VALUES (
			:id, :appointment_id, :patient_id, :kind, :payload, :entered_by, :entered_at,
			TRUE, NULL, NULL, :correction, :created_at
		)
		ON CONFLICT (appointment_id, kind) WHERE is_draft
		DO UPDATE SET
			payload = EXCLUDED.payload,
			entered_by = EXCLUDED.entered_by,
			entered_at = EXCLUDED.entered_at,
			correction = EXCLUDED.correction
		RETURNING `+draftColumns, row)
	if err != nil {
		return nil, fmt.Errorf("failed to bind draft upsert: %w", err)
	}

	var stored draftRow
	if err := r.db.GetContext(ctx, &stored, query, args...); err != nil {
		return nil, fmt.Errorf("failed to upsert draft: %w", err)
	}
	return r.open(&stored)
}

func (r *draftRepository) getOne(ctx context.Context, query string, args ...interface{}) (*model.DraftRecord, error) {
	var row draftRow
	if err := r.get(ctx, "draft", &row, query, args...); err != nil {
		return nil, err
	}
	return r.open(&row)
}

func (r *draftRepository) Get(ctx context.Context, id uuid.UUID) (*model.DraftRecord, error) {
	return r.getOne(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = $1`, id)
}

func (r *draftRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.DraftRecord, error) {
	return r.getOne(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = $1 FOR UPDATE`, id)
}

func (r *draftRepository) GetOpen(ctx context.Context, appointmentID uuid.UUID, kind model.ArtifactKind) (*model.DraftRecord, error) {
	return r.getOne(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE appointment_id = $1 AND kind = $2 AND is_draft FOR UPDATE`,
		appointmentID, kind)
}

func (r *draftRepository) MarkFinalized(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE drafts SET is_draft = FALSE, finalized_at = $2, finalized_by = $3
		WHERE id = $1 AND is_draft
	`, id, at, by)
	if err != nil {
		return fmt.Errorf("failed to finalize draft: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM drafts WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("failed to check draft: %w", err)
	}
	if exists {
		return errors.AlreadyFinalized("draft")
	}
	return errors.NotFound("draft", nil)
}

func (r *draftRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.DraftRecord, error) {
	var rows []*draftRow
	query := `SELECT ` + draftColumns + ` FROM drafts WHERE appointment_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &rows, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	drafts := make([]*model.DraftRecord, 0, len(rows))
	for _, row := range rows {
		d, err := r.open(row)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}
