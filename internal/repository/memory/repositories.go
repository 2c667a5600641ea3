package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/pkg/errors"
)

type appointmentRepository struct{ v *view }

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	return r.v.with(func(st *state) error {
		if _, ok := st.appointments[appointment.ID]; ok {
			return fmt.Errorf("appointment %s already exists", appointment.ID)
		}
		st.appointments[appointment.ID] = appointment.Clone()
		return nil
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	var out *model.Appointment
	err := r.v.with(func(st *state) error {
		a, ok := st.appointments[id]
		if !ok {
			return errors.NotFound("appointment", nil)
		}
		out = a.Clone()
		return nil
	})
	return out, err
}

func (r *appointmentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return r.Get(ctx, id)
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	return r.v.with(func(st *state) error {
		if _, ok := st.appointments[appointment.ID]; !ok {
			return errors.NotFound("appointment", nil)
		}
		st.appointments[appointment.ID] = appointment.Clone()
		return nil
	})
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	err := r.v.with(func(st *state) error {
		for _, a := range st.appointments {
			if filters != nil && !matchAppointment(a, filters) {
				continue
			}
			out = append(out, a.Clone())
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, err
}

func matchAppointment(a *model.Appointment, f *model.AppointmentFilters) bool {
	if f.PatientID != uuid.Nil && a.PatientID != f.PatientID {
		return false
	}
	if f.DoctorID != uuid.Nil && a.DoctorID != f.DoctorID {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if !f.StartDate.IsZero() && a.ScheduledAt.Before(f.StartDate) {
		return false
	}
	if !f.EndDate.IsZero() && a.ScheduledAt.After(f.EndDate) {
		return false
	}
	return true
}

type prescriptionRepository struct{ v *view }

func (r *prescriptionRepository) Create(ctx context.Context, prescription *model.Prescription) error {
	return r.v.with(func(st *state) error {
		if _, ok := st.appointments[prescription.AppointmentID]; !ok {
			return errors.NotFound("appointment", nil)
		}
		st.prescriptions[prescription.ID] = prescription.Clone()
		return nil
	})
}

func (r *prescriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	var out *model.Prescription
	err := r.v.with(func(st *state) error {
		p, ok := st.prescriptions[id]
		if !ok {
			return errors.NotFound("prescription", nil)
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (r *prescriptionRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	return r.Get(ctx, id)
}

func (r *prescriptionRepository) Update(ctx context.Context, prescription *model.Prescription) error {
	return r.v.with(func(st *state) error {
		if _, ok := st.prescriptions[prescription.ID]; !ok {
			return errors.NotFound("prescription", nil)
		}
		st.prescriptions[prescription.ID] = prescription.Clone()
		return nil
	})
}

func (r *prescriptionRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Prescription, error) {
	var out []*model.Prescription
	err := r.v.with(func(st *state) error {
		for _, p := range st.prescriptions {
			if p.AppointmentID == appointmentID {
				out = append(out, p.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

type draftRepository struct{ v *view }

func (r *draftRepository) UpsertOpen(ctx context.Context, draft *model.DraftRecord) (*model.DraftRecord, error) {
	var out *model.DraftRecord
	err := r.v.with(func(st *state) error {
		if open := findOpen(st, draft.AppointmentID, draft.Kind); open != nil {
			next := open.Clone()
			next.Payload = draft.Payload
			next.EnteredAt = draft.EnteredAt
			next.EnteredBy = draft.EnteredBy
			next.Correction = draft.Correction
			st.drafts[next.ID] = next.Clone()
			out = next
			return nil
		}
		stored := draft.Clone()
		stored.IsDraft = true
		st.drafts[stored.ID] = stored
		st.draftOrder = append(st.draftOrder, stored.ID)
		out = stored.Clone()
		return nil
	})
	return out, err
}

func findOpen(st *state, appointmentID uuid.UUID, kind model.ArtifactKind) *model.DraftRecord {
	for _, id := range st.draftOrder {
		d := st.drafts[id]
		if d.IsDraft && d.AppointmentID == appointmentID && d.Kind == kind {
			return d
		}
	}
	return nil
}

func (r *draftRepository) Get(ctx context.Context, id uuid.UUID) (*model.DraftRecord, error) {
	var out *model.DraftRecord
	err := r.v.with(func(st *state) error {
		d, ok := st.drafts[id]
		if !ok {
			return errors.NotFound("draft", nil)
		}
		out = d.Clone()
		return nil
	})
	return out, err
}

func (r *draftRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.DraftRecord, error) {
	return r.Get(ctx, id)
}

func (r *draftRepository) GetOpen(ctx context.Context, appointmentID uuid.UUID, kind model.ArtifactKind) (*model.DraftRecord, error) {
	var out *model.DraftRecord
	err := r.v.with(func(st *state) error {
		d := findOpen(st, appointmentID, kind)
		if d == nil {
			return errors.NotFound("draft", nil)
		}
		out = d.Clone()
		return nil
	})
	return out, err
}

func (r *draftRepository) MarkFinalized(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error {
	return r.v.with(func(st *state) error {
		d, ok := st.drafts[id]
		if !ok {
			return errors.NotFound("draft", nil)
		}
		if !d.IsDraft {
			return errors.AlreadyFinalized("draft")
		}
		next := d.Clone()
		next.IsDraft = false
		next.FinalizedAt = &at
		next.FinalizedBy = &by
		st.drafts[id] = next
		return nil
	})
}

func (r *draftRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.DraftRecord, error) {
	var out []*model.DraftRecord
	err := r.v.with(func(st *state) error {
		for _, id := range st.draftOrder {
			if d := st.drafts[id]; d.AppointmentID == appointmentID {
				out = append(out, d.Clone())
			}
		}
		return nil
	})
	return out, err
}

type auditRepository struct{ v *view }

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLogEntry) error {
	return r.v.with(func(st *state) error {
		e := *entry
		st.audit = append(st.audit, &e)
		return nil
	})
}

func (r *auditRepository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLogEntry, error) {
	var out []*model.AuditLogEntry
	err := r.v.with(func(st *state) error {
		for _, e := range st.audit {
			if e.EntityType == entityType && e.EntityID == entityID {
				c := *e
				out = append(out, &c)
			}
		}
		return nil
	})
	return out, err
}

type outboxRepository struct{ v *view }

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil || event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}
	return r.v.with(func(st *state) error {
		e := *event
		if e.Status == "" {
			e.Status = model.OutboxStatusPending
		}
		st.outbox[e.ID] = &e
		st.outboxOrder = append(st.outboxOrder, e.ID)
		return nil
	})
}

func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	now := r.v.now()
	var out []*model.OutboxEvent
	err := r.v.with(func(st *state) error {
		for _, id := range st.outboxOrder {
			if limit > 0 && len(out) >= limit {
				break
			}
			e := st.outbox[id]
			if e.Status != model.OutboxStatusPending {
				continue
			}
			if e.RetryAt != nil && e.RetryAt.After(now) {
				continue
			}
			c := *e
			out = append(out, &c)
		}
		return nil
	})
	return out, err
}

func (r *outboxRepository) update(id uuid.UUID, fn func(e *model.OutboxEvent)) error {
	return r.v.with(func(st *state) error {
		e, ok := st.outbox[id]
		if !ok {
			return errors.NotFound("outbox event", nil)
		}
		c := *e
		fn(&c)
		c.UpdatedAt = r.v.now()
		st.outbox[id] = &c
		return nil
	})
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	return r.update(id, func(e *model.OutboxEvent) {
		now := r.v.now()
		e.Status = model.OutboxStatusProcessed
		e.ProcessedAt = &now
		e.ErrorMessage = nil
	})
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error {
	return r.update(id, func(e *model.OutboxEvent) {
		e.RetryCount++
		e.ErrorMessage = &errMsg
		e.RetryAt = &retryAt
	})
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return r.update(id, func(e *model.OutboxEvent) {
		e.RetryCount++
		e.Status = model.OutboxStatusFailed
		e.ErrorMessage = &errMsg
	})
}

func (r *outboxRepository) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := r.v.with(func(st *state) error {
		kept := st.outboxOrder[:0:0]
		for _, id := range st.outboxOrder {
			e := st.outbox[id]
			if e.Status == model.OutboxStatusProcessed && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
				delete(st.outbox, id)
				n++
				continue
			}
			kept = append(kept, id)
		}
		st.outboxOrder = kept
		return nil
	})
	return n, err
}
