package memory

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/repository"
	"github.com/jwalitptl/encounter-api/pkg/errors"
)

func seedAppointment(t *testing.T, s *Store) *model.Appointment {
	t.Helper()
	a := &model.Appointment{
		Base:        model.Base{ID: uuid.New(), CreatedAt: model.UTCNow()},
		PatientID:   uuid.New(),
		DoctorID:    uuid.New(),
		ScheduledAt: model.UTCNow(),
		Motif:       "headache",
		Status:      model.AppointmentStatusScheduled,
	}
	require.NoError(t, s.Appointments().Create(context.Background(), a))
	return a
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := NewStore()
	a := seedAppointment(t, s)
	ctx := context.Background()

	boom := stderrors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		updated := a.Clone()
		updated.Status = model.AppointmentStatusCheckedIn
		require.NoError(t, tx.Appointments().Update(ctx, updated))
		require.NoError(t, tx.Audit().Create(ctx, &model.AuditLogEntry{ID: uuid.New(), EntityType: "appointment", EntityID: a.ID}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Appointments().Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusScheduled, got.Status)

	entries, err := s.Audit().ListByEntity(ctx, "appointment", a.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadSnapshotIgnoresLaterWrites(t *testing.T) {
	s := NewStore()
	a := seedAppointment(t, s)
	ctx := context.Background()

	err := s.ReadSnapshot(ctx, func(ctx context.Context, tx repository.Repositories) error {
		updated := a.Clone()
		updated.Status = model.AppointmentStatusCheckedIn
		require.NoError(t, s.Appointments().Update(ctx, updated))

		got, err := tx.Appointments().Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusScheduled, got.Status)
		return nil
	})
	require.NoError(t, err)

	got, err := s.Appointments().Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCheckedIn, got.Status)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := NewStore()
	a := seedAppointment(t, s)

	got, err := s.Appointments().Get(context.Background(), a.ID)
	require.NoError(t, err)
	got.Motif = "changed"

	again, err := s.Appointments().Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "headache", again.Motif)
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := NewStore()

	_, err := s.Drafts().Get(context.Background(), uuid.New())

	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
}

func TestUpsertOpenKeepsOneOpenDraft(t *testing.T) {
	s := NewStore()
	a := seedAppointment(t, s)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			notes := "draft"
			_, err := s.Drafts().UpsertOpen(ctx, &model.DraftRecord{
				ID:            uuid.New(),
				AppointmentID: a.ID,
				Kind:          model.ArtifactConsultationNotes,
				Payload:       model.DraftPayload{Notes: &notes},
				EnteredAt:     model.UTCNow(),
				IsDraft:       true,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	drafts, err := s.Drafts().ListByAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestMarkFinalizedTwice(t *testing.T) {
	s := NewStore()
	a := seedAppointment(t, s)
	ctx := context.Background()
	notes := "n"

	d, err := s.Drafts().UpsertOpen(ctx, &model.DraftRecord{ID: uuid.New(), AppointmentID: a.ID, Kind: model.ArtifactConsultationNotes, Payload: model.DraftPayload{Notes: &notes}})
	require.NoError(t, err)

	require.NoError(t, s.Drafts().MarkFinalized(ctx, d.ID, uuid.New(), model.UTCNow()))
	err = s.Drafts().MarkFinalized(ctx, d.ID, uuid.New(), model.UTCNow())
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyFinalized))

	_, err = s.Drafts().GetOpen(ctx, a.ID, model.ArtifactConsultationNotes)
	assert.True(t, errors.HasCode(err, errors.ErrNotFound))
}

func TestOutboxRetryScheduling(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	evt, err := model.NewOutboxEvent(model.WorkflowEvent{Entity: "appointment", EntityID: uuid.New(), Action: "check_in"})
	require.NoError(t, err)
	require.NoError(t, s.Outbox().Create(ctx, evt))

	require.NoError(t, s.Outbox().MarkRetry(ctx, evt.ID, "redis down", model.UTCNow().Add(time.Hour)))
	pending, err := s.Outbox().GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, s.Outbox().MarkProcessed(ctx, evt.ID))
	n, err := s.Outbox().DeleteProcessedBefore(ctx, model.UTCNow().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
