package workflow

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/encounter-api/internal/model"
)

func apt(status model.AppointmentStatus) *model.Appointment {
	return &model.Appointment{Status: status}
}

func rx(status model.PrescriptionStatus) *model.Prescription {
	p := &model.Prescription{Category: model.CategoryBiologie, Status: status}
	if status.Reached(model.PrescriptionStatusResultsAvailable) {
		id := uuid.New()
		p.ResultID = &id
	}
	return p
}

func TestProjectCheckedInWithoutPrescriptions(t *testing.T) {
	got := Project(apt(model.AppointmentStatusCheckedIn), nil)

	assert.Equal(t, 4, got.LogicalStep)
	assert.Equal(t, 4, got.DisplayedStep)
	assert.Equal(t, int(StepConsultation), got.NextStep)
	assert.Equal(t, StepCurrent, got.Steps[StepConsultation-1].State)
}

func TestProjectConsultationCompletedWithoutPrescriptions(t *testing.T) {
	got := Project(apt(model.AppointmentStatusConsultationCompleted), nil)

	assert.GreaterOrEqual(t, got.LogicalStep, int(StepConsultation))
	assert.Equal(t, int(StepPrescription), got.NextStep)
}

func TestProjectLabActivityPullsDisplayedStepForward(t *testing.T) {
	got := Project(apt(model.AppointmentStatusCheckedIn), []*model.Prescription{rx(model.PrescriptionStatusSentToLab)})

	assert.Equal(t, 4, got.LogicalStep)
	assert.Greater(t, got.DisplayedStep, got.LogicalStep)
	assert.Equal(t, int(StepPrescription), got.DisplayedStep)
}

func TestProjectFullPipeline(t *testing.T) {
	got := Project(apt(model.AppointmentStatusCompleted), []*model.Prescription{rx(model.PrescriptionStatusCompleted)})

	assert.Equal(t, int(StepResultInterpretation), got.LogicalStep)
	assert.Equal(t, int(StepResultInterpretation), got.DisplayedStep)
	assert.Zero(t, got.NextStep)
	assert.Equal(t, StepOutOfScope, got.Steps[StepClosure-1].State)
}

func TestProjectWithoutAppointment(t *testing.T) {
	got := Project(nil, nil)

	assert.Equal(t, int(StepPatientRecord), got.LogicalStep)
	assert.Equal(t, int(StepScheduling), got.NextStep)
}

func TestOutOfScopeStepsAreNeverCurrent(t *testing.T) {
	for _, a := range model.AppointmentStatuses {
		statuses := append([]model.PrescriptionStatus{""}, model.PrescriptionStatuses...)
		for _, p := range statuses {
			var rxs []*model.Prescription
			if p != "" {
				rxs = append(rxs, rx(p))
			}
			got := Project(apt(a), rxs)

			require.Len(t, got.Steps, StepCount)
			for _, s := range []Step{StepPreConsultation, StepSampleCollection, StepClosure} {
				assert.NotEqual(t, int(s), got.LogicalStep)
				assert.NotEqual(t, int(s), got.NextStep)
				assert.Equal(t, StepOutOfScope, got.Steps[s-1].State)
			}
			assert.GreaterOrEqual(t, got.DisplayedStep, got.LogicalStep, "%s/%s", a, p)
		}
	}
}

func TestProjectIsDeterministic(t *testing.T) {
	a := apt(model.AppointmentStatusWaitingResults)
	rxs := []*model.Prescription{rx(model.PrescriptionStatusInProgress), rx(model.PrescriptionStatusCreated)}

	first := Project(a, rxs)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Project(a, rxs))
	}
	assert.Equal(t, model.AppointmentStatusWaitingResults, a.Status)
}

func TestProjectDoesNotRegressAfterConsultation(t *testing.T) {
	done := apt(model.AppointmentStatusConsultationCompleted)
	base := ProjectAll([]*model.Appointment{done}, nil)
	require.GreaterOrEqual(t, base.LogicalStep, int(StepConsultation))

	more := ProjectAll(
		[]*model.Appointment{done, apt(model.AppointmentStatusScheduled), apt(model.AppointmentStatusCancelled)},
		[]*model.Prescription{rx(model.PrescriptionStatusCreated)},
	)
	assert.GreaterOrEqual(t, more.LogicalStep, base.LogicalStep)

	withNil := ProjectAll([]*model.Appointment{nil, done}, []*model.Prescription{nil})
	assert.GreaterOrEqual(t, withNil.LogicalStep, int(StepConsultation))
}
