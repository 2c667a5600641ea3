package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/encounter-api/internal/repository"
	"github.com/jwalitptl/encounter-api/pkg/metrics"
	"github.com/jwalitptl/encounter-api/pkg/security"
)

// repositories binds every repository to one querier.
type repositories struct {
	appointments  *appointmentRepository
	prescriptions *prescriptionRepository
	drafts        *draftRepository
	audit         *auditRepository
	outbox        *outboxRepository
}

func newRepositories(q querier, enc security.Encryptor) *repositories {
	base := NewBaseRepository(q)
	return &repositories{
		appointments:  &appointmentRepository{base},
		prescriptions: &prescriptionRepository{base},
		drafts:        &draftRepository{BaseRepository: base, enc: enc},
		audit:         &auditRepository{base},
		outbox:        &outboxRepository{base},
	}
}

func (r *repositories) Appointments() repository.AppointmentRepository   { return r.appointments }
func (r *repositories) Prescriptions() repository.PrescriptionRepository { return r.prescriptions }
func (r *repositories) Drafts() repository.DraftRepository               { return r.drafts }
func (r *repositories) Audit() repository.AuditRepository                { return r.audit }
func (r *repositories) Outbox() repository.OutboxRepository              { return r.outbox }

// Store is the PostgreSQL unit of work. Draft payloads are sealed with enc.
type Store struct {
	*repositories
	db      *sqlx.DB
	enc     security.Encryptor
	metrics *metrics.Metrics
}

func NewStore(db *sqlx.DB, enc security.Encryptor, m *metrics.Metrics) *Store {
	return &Store{
		repositories: newRepositories(db, enc),
		db:           db,
		enc:          enc,
		metrics:      m,
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	started := time.Now()
	err := WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(ctx, newRepositories(tx, s.enc))
	})
	s.observe("transaction", started, err)
	return err
}

func (s *Store) ReadSnapshot(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	started := time.Now()
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := WithTxOptions(ctx, s.db, opts, func(tx *sqlx.Tx) error {
		return fn(ctx, newRepositories(tx, s.enc))
	})
	s.observe("snapshot", started, err)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) observe(op string, started time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.DatabaseOperations.WithLabelValues(op, status).Inc()
	s.metrics.DatabaseLatency.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

var _ repository.Store = (*Store)(nil)
