package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

type ArtifactKind string

const (
	ArtifactVitals            ArtifactKind = "VITALS"
	ArtifactConsultationNotes ArtifactKind = "CONSULTATION_NOTES"
)

func (k ArtifactKind) Valid() bool {
	return k == ArtifactVitals || k == ArtifactConsultationNotes
}

// DraftPayload holds exactly one of the artifact bodies, matching the draft kind.
type DraftPayload struct {
	Vitals *Vitals `json:"vitals,omitempty"`
	Notes  *string `json:"notes,omitempty" validate:"omitempty,max=20000"`
}

func (p DraftPayload) Value() (driver.Value, error) {
	return jsonValue(p)
}

func (p *DraftPayload) Scan(src interface{}) error {
	return scanJSON(src, p)
}

// Matches reports whether the payload carries the body for kind.
func (p DraftPayload) Matches(kind ArtifactKind) bool {
	switch kind {
	case ArtifactVitals:
		return p.Vitals != nil && p.Notes == nil
	case ArtifactConsultationNotes:
		return p.Notes != nil && p.Vitals == nil
	}
	return false
}

func (p DraftPayload) clone() DraftPayload {
	c := DraftPayload{Notes: cloneString(p.Notes)}
	if p.Vitals != nil {
		v := *p.Vitals
		c.Vitals = &v
	}
	return c
}

// DraftRecord is one saved snapshot of a clinical artifact. Only the open
// record (IsDraft) for an (appointment, kind) pair is overwritten by saves.
type DraftRecord struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	AppointmentID uuid.UUID    `db:"appointment_id" json:"appointment_id"`
	PatientID     uuid.UUID    `db:"patient_id" json:"patient_id"`
	Kind          ArtifactKind `db:"kind" json:"kind"`
	Payload       DraftPayload `db:"payload" json:"payload"`
	EnteredBy     uuid.UUID    `db:"entered_by" json:"entered_by"`
	EnteredAt     time.Time    `db:"entered_at" json:"entered_at"`
	IsDraft       bool         `db:"is_draft" json:"is_draft"`
	FinalizedAt   *time.Time   `db:"finalized_at" json:"finalized_at,omitempty"`
	FinalizedBy   *uuid.UUID   `db:"finalized_by" json:"finalized_by,omitempty"`
	// Correction marks a vitals record entered after the initial vitals were committed.
	Correction bool      `db:"correction" json:"correction"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

func (d *DraftRecord) Clone() *DraftRecord {
	if d == nil {
		return nil
	}
	c := *d
	c.Payload = d.Payload.clone()
	c.FinalizedAt, c.FinalizedBy = cloneStamp(d.FinalizedAt, d.FinalizedBy)
	return &c
}

type SaveDraftRequest struct {
	Payload DraftPayload `json:"payload"`
}
