package encounter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/repository/memory"
	"github.com/jwalitptl/encounter-api/internal/service/audit"
	"github.com/jwalitptl/encounter-api/internal/workflow"
	"github.com/jwalitptl/encounter-api/pkg/errors"
	"github.com/jwalitptl/encounter-api/pkg/metrics"
)

type fixture struct {
	svc       *Service
	store     *memory.Store
	reception model.Actor
	nurse     model.Actor
	doctor    model.Actor
	lab       model.Actor
	billing   model.Actor
	admin     model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	svc := NewService(store, audit.NewService(), metrics.New("test", prometheus.NewRegistry()), nil)
	return &fixture{
		svc:       svc,
		store:     store,
		reception: model.Actor{ID: uuid.New(), Role: model.RoleReceptionist},
		nurse:     model.Actor{ID: uuid.New(), Role: model.RoleNurse},
		doctor:    model.Actor{ID: uuid.New(), Role: model.RoleDoctor},
		lab:       model.Actor{ID: uuid.New(), Role: model.RoleLabTechnician},
		billing:   model.Actor{ID: uuid.New(), Role: model.RoleBilling},
		admin:     model.Actor{ID: uuid.New(), Role: model.RoleAdmin},
	}
}

func (f *fixture) schedule(t *testing.T, motif string) *model.Appointment {
	t.Helper()
	apt, err := f.svc.CreateAppointment(context.Background(), model.CreateAppointmentRequest{
		PatientID:   uuid.New(),
		DoctorID:    f.doctor.ID,
		ScheduledAt: time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC),
		Motif:       motif,
	}, f.reception)
	require.NoError(t, err)
	return apt
}

func temp(v float64) *model.Vitals {
	return &model.Vitals{Temperature: &v}
}

func notes(s string) *string { return &s }

// inConsultation walks a new appointment through check-in and vitals.
func (f *fixture) inConsultation(t *testing.T) *model.Appointment {
	t.Helper()
	ctx := context.Background()
	apt := f.schedule(t, "fever")
	_, err := f.svc.TransitionAppointment(ctx, apt.ID, workflow.ActionCheckIn, model.AppointmentPayload{}, f.reception)
	require.NoError(t, err)
	apt, err = f.svc.TransitionAppointment(ctx, apt.ID, workflow.ActionEnterVitals, model.AppointmentPayload{Vitals: temp(38.4)}, f.nurse)
	require.NoError(t, err)
	require.Equal(t, model.AppointmentStatusInConsultation, apt.Status)
	return apt
}

func TestFullEncounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.inConsultation(t)

	rx, err := f.svc.CreatePrescription(ctx, apt.ID, model.CreatePrescriptionRequest{Content: "CBC", Category: model.CategoryBiologie}, f.doctor)
	require.NoError(t, err)
	assert.Equal(t, f.doctor.ID, rx.DoctorID)
	assert.Equal(t, apt.PatientID, rx.PatientID)

	_, err = f.svc.TransitionAppointment(ctx, apt.ID, workflow.ActionHoldForResults, model.AppointmentPayload{}, f.doctor)
	require.NoError(t, err)

	result := uuid.New()
	for _, step := range []struct {
		action  workflow.PrescriptionAction
		by      model.Actor
		payload model.PrescriptionPayload
	}{
		{workflow.ActionSendToLab, f.doctor, model.PrescriptionPayload{}},
		{workflow.ActionCollectSample, f.nurse, model.PrescriptionPayload{}},
		{workflow.ActionStartAnalysis, f.lab, model.PrescriptionPayload{}},
		{workflow.ActionPublishResults, f.lab, model.PrescriptionPayload{ResultID: &result}},
		{workflow.ActionReview, f.doctor, model.PrescriptionPayload{}},
	} {
		rx, err = f.svc.TransitionPrescription(ctx, rx.ID, step.action, step.payload, step.by)
		require.NoError(t, err, step.action)
	}
	assert.Equal(t, model.PrescriptionStatusCompleted, rx.Status)

	_, err = f.svc.TransitionAppointment(ctx, apt.ID, workflow.ActionCompleteConsultation, model.AppointmentPayload{ConsultationNotes: "anemia, iron"}, f.doctor)
	require.NoError(t, err)

	amount := 60.0
	closed, err := f.svc.TransitionAppointment(ctx, apt.ID, workflow.ActionClose, model.AppointmentPayload{BillingAmount: &amount, BillingStatus: model.BillingStatusPaid}, f.billing)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, closed.Status)
	assert.NotNil(t, closed.CheckedInAt)
	assert.NotNil(t, closed.VitalsEnteredAt)
	assert.NotNil(t, closed.ConsultedAt)
	assert.NotNil(t, closed.ClosedAt)

	progress, err := f.svc.GetWorkflowProgress(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, int(workflow.StepResultInterpretation), progress.LogicalStep)

	events, err := f.store.Outbox().GetPendingEvents(ctx, 0)
	require.NoError(t, err)
	var types []string
	for _, e := range events {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, "appointment.created")
	assert.Contains(t, types, "prescription.publish_results")
	assert.Contains(t, types, "appointment.close")
}

func TestRejectedTransitionLeavesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.schedule(t, "cough")

	_, err := f.svc.TransitionAppointment(ctx, apt.ID, workflow.ActionCompleteConsultation, model.AppointmentPayload{ConsultationNotes: "x"}, f.doctor)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidTransition))
	assert.Contains(t, err.Error(), "SCHEDULED")

	got, err := f.svc.GetAppointment(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, got.Status)
}

func TestTransitionUnknownAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.TransitionAppointment(context.Background(), uuid.New(), workflow.ActionCheckIn, model.AppointmentPayload{}, f.reception)

	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
}

func TestConcurrentCompleteConsultation(t *testing.T) {
	f := newFixture(t)
	apt := f.inConsultation(t)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.TransitionAppointment(context.Background(), apt.ID, workflow.ActionCompleteConsultation, model.AppointmentPayload{ConsultationNotes: "done"}, f.doctor)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.True(t, errors.HasCode(err, errors.ErrInvalidTransition), "%v", err)
	}
	assert.Equal(t, 1, wins)
}

func TestEditAppointmentWithAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.schedule(t, "A")

	edited, err := f.svc.EditAppointmentWithAudit(ctx, apt.ID, model.AppointmentEdit{Motif: notes("B")}, "patient request", f.reception)
	require.NoError(t, err)
	assert.Equal(t, "B", edited.Motif)

	entries, err := f.svc.GetAuditLog(ctx, model.AuditEntityAppointment, apt.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.AuditActionCreated, entries[0].Action)

	edit := entries[1]
	assert.Equal(t, model.AuditActionUpdated, edit.Action)
	assert.Equal(t, model.AuditChanges{"motif": {Old: "A", New: "B"}}, edit.Changes)
	require.NotNil(t, edit.Reason)
	assert.Equal(t, "patient request", *edit.Reason)
	assert.Equal(t, f.reception.ID, edit.PerformedBy)
}

func TestEditWithoutChangeWritesNoEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.schedule(t, "A")

	_, err := f.svc.EditAppointmentWithAudit(ctx, apt.ID, model.AppointmentEdit{Motif: notes("A")}, "double click", f.admin)
	require.NoError(t, err)

	entries, err := f.svc.GetAuditLog(ctx, model.AuditEntityAppointment, apt.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEditRequiresReasonAndIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.schedule(t, "A")

	_, err := f.svc.EditAppointmentWithAudit(ctx, apt.ID, model.AppointmentEdit{Motif: notes("B")}, "", f.admin)
	assert.True(t, errors.HasCode(err, errors.ErrValidation))

	got, err := f.svc.GetAppointment(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Motif)
}

func TestFinalizeVitalsDraftEntersVitals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.schedule(t, "dizzy")
	_, err := f.svc.TransitionAppointment(ctx, apt.ID, workflow.ActionCheckIn, model.AppointmentPayload{}, f.reception)
	require.NoError(t, err)

	first, err := f.svc.SaveDraft(ctx, apt.ID, model.ArtifactVitals, model.DraftPayload{Vitals: temp(37.0)}, f.nurse)
	require.NoError(t, err)
	second, err := f.svc.SaveDraft(ctx, apt.ID, model.ArtifactVitals, model.DraftPayload{Vitals: temp(37.5)}, f.nurse)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := f.svc.GetAppointment(ctx, apt.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastAutoSaveAt)
	assert.False(t, got.IsDraftConsultation)

	final, err := f.svc.FinalizeDraft(ctx, second.ID, f.nurse)
	require.NoError(t, err)
	assert.False(t, final.IsDraft)
	assert.NotNil(t, final.FinalizedAt)

	got, err = f.svc.GetAppointment(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusInConsultation, got.Status)
	assert.Equal(t, 37.5, *got.Vitals.Temperature)

	_, err = f.svc.FinalizeDraft(ctx, second.ID, f.nurse)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyFinalized))

	again, err := f.store.Drafts().Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, final.Payload, again.Payload)
	assert.Equal(t, final.FinalizedAt, again.FinalizedAt)
}

func TestFinalizeMissingDraft(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.FinalizeDraft(context.Background(), uuid.New(), f.nurse)

	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
}

func TestVitalsCorrectionIsAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.inConsultation(t)

	d, err := f.svc.SaveDraft(ctx, apt.ID, model.ArtifactVitals, model.DraftPayload{Vitals: temp(37.9)}, f.nurse)
	require.NoError(t, err)
	assert.True(t, d.Correction)

	_, err = f.svc.FinalizeDraft(ctx, d.ID, f.nurse)
	require.NoError(t, err)

	got, err := f.svc.GetAppointment(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusInConsultation, got.Status)
	assert.Equal(t, 37.9, *got.Vitals.Temperature)

	entries, err := f.svc.GetAuditLog(ctx, model.AuditEntityAppointment, apt.ID)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	require.NotNil(t, last.Reason)
	assert.Equal(t, vitalsCorrectionReason, *last.Reason)
	assert.Contains(t, last.Changes, "vitals")

	drafts, err := f.svc.ListDrafts(ctx, apt.ID)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestNotesDraftIsCommittedByCompleteConsultation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.inConsultation(t)

	d, err := f.svc.SaveDraft(ctx, apt.ID, model.ArtifactConsultationNotes, model.DraftPayload{Notes: notes("sore throat, no fever")}, f.doctor)
	require.NoError(t, err)

	got, err := f.svc.GetAppointment(ctx, apt.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDraftConsultation)

	_, err = f.svc.FinalizeDraft(ctx, d.ID, f.doctor)
	assert.True(t, errors.HasCode(err, errors.ErrValidation))

	done, err := f.svc.TransitionAppointment(ctx, apt.ID, workflow.ActionCompleteConsultation, model.AppointmentPayload{}, f.doctor)
	require.NoError(t, err)
	require.NotNil(t, done.ConsultationNotes)
	assert.Equal(t, "sore throat, no fever", *done.ConsultationNotes)
	assert.False(t, done.IsDraftConsultation)

	stored, err := f.store.Drafts().Get(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsDraft)
}

func TestEnterVitalsOverridesOpenDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.schedule(t, "chills")
	_, err := f.svc.TransitionAppointment(ctx, apt.ID, workflow.ActionCheckIn, model.AppointmentPayload{}, f.reception)
	require.NoError(t, err)

	d, err := f.svc.SaveDraft(ctx, apt.ID, model.ArtifactVitals, model.DraftPayload{Vitals: temp(36.0)}, f.nurse)
	require.NoError(t, err)

	got, err := f.svc.TransitionAppointment(ctx, apt.ID, workflow.ActionEnterVitals, model.AppointmentPayload{Vitals: temp(39.5)}, f.nurse)
	require.NoError(t, err)
	assert.Equal(t, 39.5, *got.Vitals.Temperature)

	stored, err := f.store.Drafts().Get(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsDraft)
	require.NotNil(t, stored.Payload.Vitals)
	assert.Equal(t, 39.5, *stored.Payload.Vitals.Temperature)
}

func TestDoctorCannotDraftInitialVitals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.schedule(t, "headache")
	_, err := f.svc.TransitionAppointment(ctx, apt.ID, workflow.ActionCheckIn, model.AppointmentPayload{}, f.reception)
	require.NoError(t, err)

	_, err = f.svc.SaveDraft(ctx, apt.ID, model.ArtifactVitals, model.DraftPayload{Vitals: temp(37.2)}, f.doctor)
	assert.True(t, errors.HasCode(err, errors.ErrUnauthorized), "got %v", err)

	drafts, err := f.svc.ListDrafts(ctx, apt.ID)
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestCompleteConsultationOverridesOpenNotesDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.inConsultation(t)

	d, err := f.svc.SaveDraft(ctx, apt.ID, model.ArtifactConsultationNotes, model.DraftPayload{Notes: notes("early impression")}, f.doctor)
	require.NoError(t, err)

	done, err := f.svc.TransitionAppointment(ctx, apt.ID, workflow.ActionCompleteConsultation, model.AppointmentPayload{ConsultationNotes: "viral pharyngitis, rest and fluids"}, f.doctor)
	require.NoError(t, err)
	require.NotNil(t, done.ConsultationNotes)
	assert.Equal(t, "viral pharyngitis, rest and fluids", *done.ConsultationNotes)

	stored, err := f.store.Drafts().Get(ctx, d.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsDraft)
	require.NotNil(t, stored.Payload.Notes)
	assert.Equal(t, *done.ConsultationNotes, *stored.Payload.Notes)
}

func TestConcurrentSaveDraftKeepsOneOpenDraft(t *testing.T) {
	f := newFixture(t)
	apt := f.inConsultation(t)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SaveDraft(context.Background(), apt.ID, model.ArtifactConsultationNotes, model.DraftPayload{Notes: notes("typing")}, f.doctor)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	drafts, err := f.svc.ListDrafts(context.Background(), apt.ID)
	require.NoError(t, err)
	open := 0
	for _, d := range drafts {
		if d.IsDraft {
			open++
		}
	}
	assert.Equal(t, 1, open)
}

func TestSaveDraftRejectsMismatchedPayload(t *testing.T) {
	f := newFixture(t)
	apt := f.inConsultation(t)

	_, err := f.svc.SaveDraft(context.Background(), apt.ID, model.ArtifactVitals, model.DraftPayload{Notes: notes("x")}, f.nurse)

	assert.True(t, errors.HasCode(err, errors.ErrValidation))
}

func TestCreatePrescriptionBeforeConsultation(t *testing.T) {
	f := newFixture(t)
	apt := f.schedule(t, "rash")

	_, err := f.svc.CreatePrescription(context.Background(), apt.ID, model.CreatePrescriptionRequest{Content: "X-ray", Category: model.CategoryImagerie}, f.doctor)

	assert.True(t, errors.HasCode(err, errors.ErrInvalidTransition))
}

func TestProgressLabActivityBeforeConsultationCompletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	apt := f.inConsultation(t)

	rx, err := f.svc.CreatePrescription(ctx, apt.ID, model.CreatePrescriptionRequest{Content: "chest X-ray", Category: model.CategoryImagerie}, f.doctor)
	require.NoError(t, err)
	_, err = f.svc.TransitionPrescription(ctx, rx.ID, workflow.ActionSendToLab, model.PrescriptionPayload{}, f.doctor)
	require.NoError(t, err)
	_, err = f.svc.TransitionPrescription(ctx, rx.ID, workflow.ActionStartAnalysis, model.PrescriptionPayload{}, model.Actor{ID: uuid.New(), Role: model.RoleRadiologist})
	require.NoError(t, err)

	progress, err := f.svc.GetWorkflowProgress(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, int(workflow.StepLabAnalysis), progress.LogicalStep)
	assert.Equal(t, int(workflow.StepResultInterpretation), progress.NextStep)

	patient, err := f.svc.GetPatientProgress(ctx, apt.PatientID)
	require.NoError(t, err)
	assert.Equal(t, progress.LogicalStep, patient.LogicalStep)
}

func TestProgressUnknownAppointment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetWorkflowProgress(context.Background(), uuid.New())

	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
}

func TestGetAuditLogUnknownEntity(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetAuditLog(context.Background(), "invoice", uuid.New())

	assert.True(t, errors.HasCode(err, errors.ErrValidation))
}
