package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled             AppointmentStatus = "SCHEDULED"
	AppointmentStatusCheckedIn             AppointmentStatus = "CHECKED_IN"
	AppointmentStatusInConsultation        AppointmentStatus = "IN_CONSULTATION"
	AppointmentStatusWaitingResults        AppointmentStatus = "WAITING_RESULTS"
	AppointmentStatusConsultationCompleted AppointmentStatus = "CONSULTATION_COMPLETED"
	AppointmentStatusCompleted             AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled             AppointmentStatus = "CANCELLED"
)

// AppointmentStatuses lists the closed status set in workflow order.
var AppointmentStatuses = []AppointmentStatus{
	AppointmentStatusScheduled,
	AppointmentStatusCheckedIn,
	AppointmentStatusInConsultation,
	AppointmentStatusWaitingResults,
	AppointmentStatusConsultationCompleted,
	AppointmentStatusCompleted,
	AppointmentStatusCancelled,
}

var appointmentRank = map[AppointmentStatus]int{
	AppointmentStatusScheduled:             0,
	AppointmentStatusCancelled:             0,
	AppointmentStatusCheckedIn:             1,
	AppointmentStatusInConsultation:        2,
	AppointmentStatusWaitingResults:        3,
	AppointmentStatusConsultationCompleted: 4,
	AppointmentStatusCompleted:             5,
}

func (s AppointmentStatus) Valid() bool {
	_, ok := appointmentRank[s]
	return ok
}

// Rank orders statuses along the happy path. CANCELLED ranks with SCHEDULED
// because it is only reachable from there.
func (s AppointmentStatus) Rank() int {
	return appointmentRank[s]
}

// Reached reports whether s is at or past other on the happy path.
func (s AppointmentStatus) Reached(other AppointmentStatus) bool {
	if s == AppointmentStatusCancelled {
		return other == AppointmentStatusScheduled || other == AppointmentStatusCancelled
	}
	return s.Rank() >= other.Rank()
}

func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCancelled
}

type BillingStatus string

const (
	BillingStatusPending BillingStatus = "PENDING"
	BillingStatusPaid    BillingStatus = "PAID"
	BillingStatusWaived  BillingStatus = "WAIVED"
)

func (s BillingStatus) Valid() bool {
	switch s {
	case BillingStatusPending, BillingStatusPaid, BillingStatusWaived:
		return true
	}
	return false
}

// Vitals is the nursing snapshot taken after check-in.
type Vitals struct {
	Temperature      *float64 `json:"temperature,omitempty" validate:"omitempty,gte=30,lte=45"`
	SystolicBP       *int     `json:"systolic_bp,omitempty" validate:"omitempty,gte=40,lte=300"`
	DiastolicBP      *int     `json:"diastolic_bp,omitempty" validate:"omitempty,gte=20,lte=200"`
	HeartRate        *int     `json:"heart_rate,omitempty" validate:"omitempty,gte=20,lte=250"`
	RespiratoryRate  *int     `json:"respiratory_rate,omitempty" validate:"omitempty,gte=4,lte=80"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty" validate:"omitempty,gte=50,lte=100"`
	WeightKg         *float64 `json:"weight_kg,omitempty" validate:"omitempty,gt=0,lte=500"`
	HeightCm         *float64 `json:"height_cm,omitempty" validate:"omitempty,gt=0,lte=300"`
	Notes            string   `json:"notes,omitempty" validate:"max=2000"`
}

// IsEmpty reports whether no measurement was recorded.
func (v *Vitals) IsEmpty() bool {
	return v == nil || (v.Temperature == nil && v.SystolicBP == nil && v.DiastolicBP == nil &&
		v.HeartRate == nil && v.RespiratoryRate == nil && v.OxygenSaturation == nil &&
		v.WeightKg == nil && v.HeightCm == nil)
}

func (v Vitals) Value() (driver.Value, error) {
	return jsonValue(v)
}

func (v *Vitals) Scan(src interface{}) error {
	return scanJSON(src, v)
}

// Appointment is one clinical encounter between one patient and one physician.
type Appointment struct {
	Base
	PatientID           uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID            uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	ScheduledAt         time.Time         `db:"scheduled_at" json:"scheduled_at"`
	Motif               string            `db:"motif" json:"motif"`
	Status              AppointmentStatus `db:"status" json:"status"`
	Vitals              *Vitals           `db:"vitals" json:"vitals,omitempty"`
	ConsultationNotes   *string           `db:"consultation_notes" json:"consultation_notes,omitempty"`
	MedicalHistoryNotes *string           `db:"medical_history_notes" json:"medical_history_notes,omitempty"`
	BillingAmount       *float64          `db:"billing_amount" json:"billing_amount,omitempty"`
	BillingStatus       *BillingStatus    `db:"billing_status" json:"billing_status,omitempty"`
	CancelReason        *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`

	CheckedInAt     *time.Time `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CheckedInBy     *uuid.UUID `db:"checked_in_by" json:"checked_in_by,omitempty"`
	VitalsEnteredAt *time.Time `db:"vitals_entered_at" json:"vitals_entered_at,omitempty"`
	VitalsEnteredBy *uuid.UUID `db:"vitals_entered_by" json:"vitals_entered_by,omitempty"`
	ConsultedAt     *time.Time `db:"consulted_at" json:"consulted_at,omitempty"`
	ConsultedBy     *uuid.UUID `db:"consulted_by" json:"consulted_by,omitempty"`
	ClosedAt        *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	ClosedBy        *uuid.UUID `db:"closed_by" json:"closed_by,omitempty"`

	// Derived from the draft store on read, never persisted.
	LastAutoSaveAt      *time.Time `db:"-" json:"last_auto_save_at,omitempty"`
	IsDraftConsultation bool       `db:"-" json:"is_draft_consultation"`
}

// Clone returns a copy that shares no pointers with a.
func (a *Appointment) Clone() *Appointment {
	if a == nil {
		return nil
	}
	c := *a
	if a.Vitals != nil {
		v := *a.Vitals
		c.Vitals = &v
	}
	c.ConsultationNotes = cloneString(a.ConsultationNotes)
	c.MedicalHistoryNotes = cloneString(a.MedicalHistoryNotes)
	c.CancelReason = cloneString(a.CancelReason)
	if a.BillingAmount != nil {
		amt := *a.BillingAmount
		c.BillingAmount = &amt
	}
	if a.BillingStatus != nil {
		bs := *a.BillingStatus
		c.BillingStatus = &bs
	}
	c.CheckedInAt, c.CheckedInBy = cloneStamp(a.CheckedInAt, a.CheckedInBy)
	c.VitalsEnteredAt, c.VitalsEnteredBy = cloneStamp(a.VitalsEnteredAt, a.VitalsEnteredBy)
	c.ConsultedAt, c.ConsultedBy = cloneStamp(a.ConsultedAt, a.ConsultedBy)
	c.ClosedAt, c.ClosedBy = cloneStamp(a.ClosedAt, a.ClosedBy)
	c.LastAutoSaveAt, _ = cloneStamp(a.LastAutoSaveAt, nil)
	return &c
}

type CreateAppointmentRequest struct {
	PatientID   uuid.UUID `json:"patient_id" validate:"required"`
	DoctorID    uuid.UUID `json:"doctor_id" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Motif       string    `json:"motif" validate:"required,max=500"`
}

// AppointmentEdit carries the fields a manual edit may change. Nil means unchanged.
type AppointmentEdit struct {
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Motif       *string    `json:"motif,omitempty" validate:"omitempty,min=1,max=500"`
	DoctorID    *uuid.UUID `json:"doctor_id,omitempty"`
}

type EditAppointmentRequest struct {
	AppointmentEdit
	Reason string `json:"reason" validate:"required,max=1000"`
}

// AppointmentPayload is the action-specific body of an appointment transition.
type AppointmentPayload struct {
	Vitals              *Vitals       `json:"vitals,omitempty"`
	ConsultationNotes   string        `json:"consultation_notes,omitempty" validate:"max=20000"`
	MedicalHistoryNotes *string       `json:"medical_history_notes,omitempty" validate:"omitempty,max=20000"`
	BillingAmount       *float64      `json:"billing_amount,omitempty" validate:"omitempty,gte=0"`
	BillingStatus       BillingStatus `json:"billing_status,omitempty" validate:"omitempty,oneof=PENDING PAID WAIVED"`
	CancelReason        string        `json:"cancel_reason,omitempty" validate:"max=1000"`
}

type AppointmentFilters struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Status    AppointmentStatus
	StartDate time.Time
	EndDate   time.Time
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneStamp(at *time.Time, by *uuid.UUID) (*time.Time, *uuid.UUID) {
	var outAt *time.Time
	var outBy *uuid.UUID
	if at != nil {
		t := *at
		outAt = &t
	}
	if by != nil {
		id := *by
		outBy = &id
	}
	return outAt, outBy
}
