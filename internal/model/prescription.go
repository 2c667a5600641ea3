package model

import (
	"time"

	"github.com/google/uuid"
)

type PrescriptionCategory string

const (
	CategoryBiologie PrescriptionCategory = "BIOLOGIE"
	CategoryImagerie PrescriptionCategory = "IMAGERIE"
)

func (c PrescriptionCategory) Valid() bool {
	return c == CategoryBiologie || c == CategoryImagerie
}

type PrescriptionStatus string

const (
	PrescriptionStatusCreated          PrescriptionStatus = "CREATED"
	PrescriptionStatusSentToLab        PrescriptionStatus = "SENT_TO_LAB"
	PrescriptionStatusSampleCollected  PrescriptionStatus = "SAMPLE_COLLECTED"
	PrescriptionStatusInProgress       PrescriptionStatus = "IN_PROGRESS"
	PrescriptionStatusResultsAvailable PrescriptionStatus = "RESULTS_AVAILABLE"
	PrescriptionStatusCompleted        PrescriptionStatus = "COMPLETED"
)

// PrescriptionStatuses lists the closed status set in workflow order.
var PrescriptionStatuses = []PrescriptionStatus{
	PrescriptionStatusCreated,
	PrescriptionStatusSentToLab,
	PrescriptionStatusSampleCollected,
	PrescriptionStatusInProgress,
	PrescriptionStatusResultsAvailable,
	PrescriptionStatusCompleted,
}

func (s PrescriptionStatus) Valid() bool {
	return s.Rank() >= 0
}

// Rank is the position of s in PrescriptionStatuses, or -1.
func (s PrescriptionStatus) Rank() int {
	for i, known := range PrescriptionStatuses {
		if s == known {
			return i
		}
	}
	return -1
}

func (s PrescriptionStatus) Reached(other PrescriptionStatus) bool {
	return s.Rank() >= other.Rank()
}

func (s PrescriptionStatus) IsTerminal() bool {
	return s == PrescriptionStatusCompleted
}

// Prescription is one diagnostic request ordered during an encounter.
type Prescription struct {
	Base
	AppointmentID   uuid.UUID            `db:"appointment_id" json:"appointment_id"`
	PatientID       uuid.UUID            `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID            `db:"doctor_id" json:"doctor_id"`
	NurseID         *uuid.UUID           `db:"nurse_id" json:"nurse_id,omitempty"`
	Content         string               `db:"content" json:"content"`
	Category        PrescriptionCategory `db:"category" json:"category"`
	Status          PrescriptionStatus   `db:"status" json:"status"`
	ResultID        *uuid.UUID           `db:"result_id" json:"result_id,omitempty"`

	SentToLabAt         *time.Time `db:"sent_to_lab_at" json:"sent_to_lab_at,omitempty"`
	SentToLabBy         *uuid.UUID `db:"sent_to_lab_by" json:"sent_to_lab_by,omitempty"`
	SampleCollectedAt   *time.Time `db:"sample_collected_at" json:"sample_collected_at,omitempty"`
	SampleCollectedBy   *uuid.UUID `db:"sample_collected_by" json:"sample_collected_by,omitempty"`
	AnalysisStartedAt   *time.Time `db:"analysis_started_at" json:"analysis_started_at,omitempty"`
	AnalysisStartedBy   *uuid.UUID `db:"analysis_started_by" json:"analysis_started_by,omitempty"`
	AnalysisCompletedAt *time.Time `db:"analysis_completed_at" json:"analysis_completed_at,omitempty"`
	ReviewedAt          *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy          *uuid.UUID `db:"reviewed_by" json:"reviewed_by,omitempty"`
}

// HasResult reports whether a result has been attached.
func (p *Prescription) HasResult() bool {
	return p.ResultID != nil
}

func (p *Prescription) Clone() *Prescription {
	if p == nil {
		return nil
	}
	c := *p
	_, c.NurseID = cloneStamp(nil, p.NurseID)
	_, c.ResultID = cloneStamp(nil, p.ResultID)
	c.SentToLabAt, c.SentToLabBy = cloneStamp(p.SentToLabAt, p.SentToLabBy)
	c.SampleCollectedAt, c.SampleCollectedBy = cloneStamp(p.SampleCollectedAt, p.SampleCollectedBy)
	c.AnalysisStartedAt, c.AnalysisStartedBy = cloneStamp(p.AnalysisStartedAt, p.AnalysisStartedBy)
	c.AnalysisCompletedAt, _ = cloneStamp(p.AnalysisCompletedAt, nil)
	c.ReviewedAt, c.ReviewedBy = cloneStamp(p.ReviewedAt, p.ReviewedBy)
	return &c
}

type CreatePrescriptionRequest struct {
	Content  string               `json:"content" validate:"required,max=5000"`
	Category PrescriptionCategory `json:"category" validate:"required,oneof=BIOLOGIE IMAGERIE"`
	NurseID  *uuid.UUID           `json:"nurse_id,omitempty"`
}

// PrescriptionPayload is the action-specific body of a prescription transition.
type PrescriptionPayload struct {
	ResultID *uuid.UUID `json:"result_id,omitempty"`
}
