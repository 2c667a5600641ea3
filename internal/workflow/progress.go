package workflow

import (
	"github.com/jwalitptl/encounter-api/internal/model"
)

// Step is a 1-based position in the fixed encounter pipeline.
type Step int

const (
	StepRequestReceived Step = iota + 1
	StepPatientRecord
	StepScheduling
	StepCheckIn
	StepPreConsultation
	StepConsultation
	StepPrescription
	StepSampleCollection
	StepLabAnalysis
	StepResultInterpretation
	StepClosure
)

// StepCount is the pipeline length.
const StepCount = int(StepClosure)

var stepLabels = [...]string{
	StepRequestReceived:      "Request received",
	StepPatientRecord:        "Patient record",
	StepScheduling:           "Scheduling",
	StepCheckIn:              "Check-in",
	StepPreConsultation:      "Pre-consultation",
	StepConsultation:         "Consultation",
	StepPrescription:         "Prescription",
	StepSampleCollection:     "Sample collection",
	StepLabAnalysis:          "Lab analysis",
	StepResultInterpretation: "Result interpretation",
	StepClosure:              "Closure",
}

func (s Step) Label() string {
	if s < StepRequestReceived || s > StepClosure {
		return ""
	}
	return stepLabels[s]
}

// InScope is false for positions no data can satisfy.
func (s Step) InScope() bool {
	switch s {
	case StepPreConsultation, StepSampleCollection, StepClosure:
		return false
	}
	return s >= StepRequestReceived && s <= StepClosure
}

type StepState string

const (
	StepDone       StepState = "done"
	StepCurrent    StepState = "current"
	StepPending    StepState = "pending"
	StepOutOfScope StepState = "out_of_scope"
)

type StepInfo struct {
	Position int       `json:"position"`
	Label    string    `json:"label"`
	State    StepState `json:"state"`
}

// Progress is the projected position of an encounter. LogicalStep is the last
// in-scope position of the completed prefix; DisplayedStep is the furthest
// satisfied position and never trails LogicalStep. NextStep is 0 once every
// in-scope position is satisfied.
type Progress struct {
	LogicalStep   int        `json:"logical_step"`
	DisplayedStep int        `json:"displayed_step"`
	NextStep      int        `json:"next_step,omitempty"`
	Steps         []StepInfo `json:"steps"`
}

// Project computes progress for one appointment and its prescriptions. A nil
// appointment is treated as not yet scheduled.
func Project(apt *model.Appointment, prescriptions []*model.Prescription) Progress {
	var appointments []*model.Appointment
	if apt != nil {
		appointments = []*model.Appointment{apt}
	}
	return ProjectAll(appointments, prescriptions)
}

// ProjectAll computes progress across every appointment of a patient. It is
// total and holds no state.
func ProjectAll(appointments []*model.Appointment, prescriptions []*model.Prescription) Progress {
	var satisfied [StepCount + 1]bool
	satisfied[StepRequestReceived] = true
	satisfied[StepPatientRecord] = true

	consultationDone := false
	for _, a := range appointments {
		if a == nil {
			continue
		}
		satisfied[StepScheduling] = true
		if a.Status.Reached(model.AppointmentStatusCheckedIn) || a.CheckedInAt != nil {
			satisfied[StepCheckIn] = true
		}
		if a.Status.Reached(model.AppointmentStatusInConsultation) {
			satisfied[StepConsultation] = true
		}
		if a.Status.Reached(model.AppointmentStatusConsultationCompleted) {
			consultationDone = true
		}
	}
	for _, p := range prescriptions {
		if p == nil {
			continue
		}
		satisfied[StepPrescription] = true
		if p.Status.Reached(model.PrescriptionStatusInProgress) {
			satisfied[StepLabAnalysis] = true
		}
		if p.HasResult() {
			satisfied[StepResultInterpretation] = true
		}
	}

	logical, next, displayed := 0, 0, 0
	for s := StepRequestReceived; s <= StepClosure; s++ {
		if !s.InScope() {
			continue
		}
		if satisfied[s] {
			displayed = int(s)
			if next == 0 {
				logical = int(s)
			}
		} else if next == 0 {
			next = int(s)
		}
	}

	if consultationDone && logical < int(StepConsultation) {
		logical = int(StepConsultation)
		if next != 0 && next <= logical {
			next = firstOpenAfter(satisfied[:], StepConsultation)
		}
	}
	if displayed < logical {
		displayed = logical
	}

	steps := make([]StepInfo, 0, StepCount)
	for s := StepRequestReceived; s <= StepClosure; s++ {
		info := StepInfo{Position: int(s), Label: s.Label()}
		switch {
		case !s.InScope():
			info.State = StepOutOfScope
		case satisfied[s] || int(s) <= logical:
			info.State = StepDone
		case int(s) == next:
			info.State = StepCurrent
		default:
			info.State = StepPending
		}
		steps = append(steps, info)
	}

	return Progress{
		LogicalStep:   logical,
		DisplayedStep: displayed,
		NextStep:      next,
		Steps:         steps,
	}
}

func firstOpenAfter(satisfied []bool, after Step) int {
	for s := after + 1; s <= StepClosure; s++ {
		if s.InScope() && !satisfied[s] {
			return int(s)
		}
	}
	return 0
}
