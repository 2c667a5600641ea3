package audit

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/repository/memory"
	"github.com/jwalitptl/encounter-api/pkg/errors"
)

func appointment(motif string) *model.Appointment {
	return &model.Appointment{
		Base:   model.Base{ID: uuid.MustParse("8a4a6d56-54a5-4a76-b2a6-0a0f5a0ad001")},
		Motif:  motif,
		Status: model.AppointmentStatusScheduled,
	}
}

func TestDiffOnlyChangedFields(t *testing.T) {
	before := appointment("A")
	after := before.Clone()
	after.Motif = "B"
	after.UpdatedAt = model.UTCNow()

	changes, err := Diff(before, after, DefaultIgnored...)
	require.NoError(t, err)

	assert.Equal(t, model.AuditChanges{"motif": {Old: "A", New: "B"}}, changes)
}

func TestDiffComparesByValue(t *testing.T) {
	t1, t2 := 37.0, 37.0
	before := appointment("A")
	before.Vitals = &model.Vitals{Temperature: &t1}
	after := before.Clone()
	after.Vitals = &model.Vitals{Temperature: &t2}

	changes, err := Diff(before, after)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDiffAgainstNothing(t *testing.T) {
	changes, err := Diff(nil, appointment("A"))
	require.NoError(t, err)

	assert.Equal(t, "A", changes["motif"].New)
	assert.Nil(t, changes["motif"].Old)
}

func TestRecordEditWithoutChangeWritesNothing(t *testing.T) {
	store := memory.NewStore()
	svc := NewService()
	a := appointment("A")

	entry, err := svc.RecordEdit(context.Background(), store.Audit(), model.AuditEntityAppointment, a.ID, uuid.New(), a, a.Clone(), "no-op")
	require.NoError(t, err)
	assert.Nil(t, entry)

	entries, err := svc.List(context.Background(), store.Audit(), model.AuditEntityAppointment, a.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordEditMotifChange(t *testing.T) {
	store := memory.NewStore()
	svc := NewService()
	performer := uuid.New()
	before := appointment("A")
	after := before.Clone()
	after.Motif = "B"

	_, err := svc.RecordEdit(context.Background(), store.Audit(), model.AuditEntityAppointment, before.ID, performer, before, after, "patient request")
	require.NoError(t, err)

	entries, err := svc.List(context.Background(), store.Audit(), model.AuditEntityAppointment, before.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, model.AuditActionUpdated, e.Action)
	assert.Equal(t, performer, e.PerformedBy)
	assert.Equal(t, model.AuditChanges{"motif": {Old: "A", New: "B"}}, e.Changes)
	require.NotNil(t, e.Reason)
	assert.Equal(t, "patient request", *e.Reason)
}

func TestRecordEditRequiresReason(t *testing.T) {
	store := memory.NewStore()
	before := appointment("A")
	after := before.Clone()
	after.Motif = "B"

	_, err := NewService().RecordEdit(context.Background(), store.Audit(), model.AuditEntityAppointment, before.ID, uuid.New(), before, after, "   ")

	assert.True(t, errors.HasCode(err, errors.ErrValidation))
}

func TestRevertIsANewEntry(t *testing.T) {
	store := memory.NewStore()
	svc := NewService()
	ctx := context.Background()
	a := appointment("A")
	b := a.Clone()
	b.Motif = "B"

	_, err := svc.RecordEdit(ctx, store.Audit(), model.AuditEntityAppointment, a.ID, uuid.New(), a, b, "typo")
	require.NoError(t, err)
	_, err = svc.RecordEdit(ctx, store.Audit(), model.AuditEntityAppointment, a.ID, uuid.New(), b, a, "revert")
	require.NoError(t, err)

	entries, err := svc.List(ctx, store.Audit(), model.AuditEntityAppointment, a.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "B", entries[0].Changes["motif"].New)
	assert.Equal(t, "A", entries[1].Changes["motif"].New)
}
