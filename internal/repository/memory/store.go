// Package memory is an in-process Store used by tests and the "memory"
// store driver. A single store-wide mutex serializes every unit of work, so
// a transaction sees no concurrent writer.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/repository"
)

type state struct {
	appointments  map[uuid.UUID]*model.Appointment
	prescriptions map[uuid.UUID]*model.Prescription
	drafts        map[uuid.UUID]*model.DraftRecord
	draftOrder    []uuid.UUID
	audit         []*model.AuditLogEntry
	outbox        map[uuid.UUID]*model.OutboxEvent
	outboxOrder   []uuid.UUID
}

func newState() *state {
	return &state{
		appointments:  make(map[uuid.UUID]*model.Appointment),
		prescriptions: make(map[uuid.UUID]*model.Prescription),
		drafts:        make(map[uuid.UUID]*model.DraftRecord),
		outbox:        make(map[uuid.UUID]*model.OutboxEvent),
	}
}

// clone copies the indexes. Stored records are never mutated in place, so
// sharing the pointers is safe.
func (s *state) clone() *state {
	c := &state{
		appointments:  make(map[uuid.UUID]*model.Appointment, len(s.appointments)),
		prescriptions: make(map[uuid.UUID]*model.Prescription, len(s.prescriptions)),
		drafts:        make(map[uuid.UUID]*model.DraftRecord, len(s.drafts)),
		draftOrder:    append([]uuid.UUID(nil), s.draftOrder...),
		audit:         append([]*model.AuditLogEntry(nil), s.audit...),
		outbox:        make(map[uuid.UUID]*model.OutboxEvent, len(s.outbox)),
		outboxOrder:   append([]uuid.UUID(nil), s.outboxOrder...),
	}
	for k, v := range s.appointments {
		c.appointments[k] = v
	}
	for k, v := range s.prescriptions {
		c.prescriptions[k] = v
	}
	for k, v := range s.drafts {
		c.drafts[k] = v
	}
	for k, v := range s.outbox {
		c.outbox[k] = v
	}
	return c
}

// view binds repositories to a way of reaching the state.
type view struct {
	with func(fn func(st *state) error) error
	now  func() time.Time
}

func (v *view) Appointments() repository.AppointmentRepository {
	return &appointmentRepository{v}
}

func (v *view) Prescriptions() repository.PrescriptionRepository {
	return &prescriptionRepository{v}
}

func (v *view) Drafts() repository.DraftRepository {
	return &draftRepository{v}
}

func (v *view) Audit() repository.AuditRepository {
	return &auditRepository{v}
}

func (v *view) Outbox() repository.OutboxRepository {
	return &outboxRepository{v}
}

type Store struct {
	*view
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	s := &Store{st: newState()}
	s.view = &view{with: s.locked, now: model.UTCNow}
	return s
}

func (s *Store) locked(fn func(st *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// WithinTx runs fn against a private copy of the state and publishes it only
// when fn succeeds. The store lock is held for the whole call, so fn must not
// use the Store's own repositories.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.st.clone()
	tx := &view{
		with: func(f func(st *state) error) error { return f(working) },
		now:  s.now,
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.st = working
	return nil
}

// ReadSnapshot runs fn against a copy of the state and discards any writes.
func (s *Store) ReadSnapshot(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	s.mu.Lock()
	working := s.st.clone()
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &view{
		with: func(f func(st *state) error) error { return f(working) },
		now:  s.now,
	}
	return fn(ctx, tx)
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close() error {
	return nil
}
