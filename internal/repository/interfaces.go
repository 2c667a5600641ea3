package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
)

// All repository interfaces in one file
type (
	// AppointmentRepository persists encounters. GetForUpdate locks the row
	// until the surrounding transaction ends.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	}

	PrescriptionRepository interface {
		Create(ctx context.Context, prescription *model.Prescription) error
		Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
		Update(ctx context.Context, prescription *model.Prescription) error
		ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.Prescription, error)
	}

	// DraftRepository stores draft history. At most one row per
	// (appointment, kind) has is_draft set.
	DraftRepository interface {
		// UpsertOpen overwrites the open draft's payload and entered_at, or
		// inserts draft when none is open. It returns the stored row.
		UpsertOpen(ctx context.Context, draft *model.DraftRecord) (*model.DraftRecord, error)
		Get(ctx context.Context, id uuid.UUID) (*model.DraftRecord, error)
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.DraftRecord, error)
		// GetOpen returns NotFound when no draft is open.
		GetOpen(ctx context.Context, appointmentID uuid.UUID, kind model.ArtifactKind) (*model.DraftRecord, error)
		MarkFinalized(ctx context.Context, id uuid.UUID, by uuid.UUID, at time.Time) error
		ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.DraftRecord, error)
	}

	// AuditRepository is insert-only.
	AuditRepository interface {
		Create(ctx context.Context, entry *model.AuditLogEntry) error
		ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLogEntry, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	// Repositories groups the repositories bound to one connection or transaction.
	Repositories interface {
		Appointments() AppointmentRepository
		Prescriptions() PrescriptionRepository
		Drafts() DraftRepository
		Audit() AuditRepository
		Outbox() OutboxRepository
	}

	// Store is the persistence boundary of the encounter coordinator. Reads
	// outside WithinTx see committed data only.
	Store interface {
		Repositories
		// WithinTx runs fn in one transaction. Any error rolls back every write
		// made through tx.
		WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
		// ReadSnapshot runs fn in a read-only transaction whose reads all see
		// the same committed state.
		ReadSnapshot(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
		Ping(ctx context.Context) error
		Close() error
	}
)
