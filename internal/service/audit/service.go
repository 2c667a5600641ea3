package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/repository"
	"github.com/jwalitptl/encounter-api/pkg/errors"
)

// Service writes audit entries through whichever repository it is handed, so
// an entry commits or rolls back with the change it describes.
type Service struct {
	now func() time.Time
}

func NewService() *Service {
	return &Service{now: model.UTCNow}
}

// RecordEdit logs a manual edit. It returns nil and writes nothing when the
// two versions are equal. A non-empty reason is required.
func (s *Service) RecordEdit(ctx context.Context, repo repository.AuditRepository, entityType string, entityID, performer uuid.UUID, before, after interface{}, reason string) (*model.AuditLogEntry, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, errors.Validationf("a reason is required for manual edits")
	}
	return s.record(ctx, repo, entityType, entityID, performer, model.AuditActionUpdated, before, after, &reason)
}

// RecordUpdate logs a system-driven change where the reason is optional.
func (s *Service) RecordUpdate(ctx context.Context, repo repository.AuditRepository, entityType string, entityID, performer uuid.UUID, before, after interface{}, reason string) (*model.AuditLogEntry, error) {
	var r *string
	if reason = strings.TrimSpace(reason); reason != "" {
		r = &reason
	}
	return s.record(ctx, repo, entityType, entityID, performer, model.AuditActionUpdated, before, after, r)
}

// RecordCreate logs every field of a new record as changed from nothing.
func (s *Service) RecordCreate(ctx context.Context, repo repository.AuditRepository, entityType string, entityID, performer uuid.UUID, created interface{}) (*model.AuditLogEntry, error) {
	return s.record(ctx, repo, entityType, entityID, performer, model.AuditActionCreated, nil, created, nil)
}

func (s *Service) record(ctx context.Context, repo repository.AuditRepository, entityType string, entityID, performer uuid.UUID, action model.AuditAction, before, after interface{}, reason *string) (*model.AuditLogEntry, error) {
	changes, err := Diff(before, after, DefaultIgnored...)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, nil
	}

	entry := &model.AuditLogEntry{
		ID:          uuid.New(),
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		PerformedBy: performer,
		Changes:     changes,
		Reason:      reason,
		CreatedAt:   s.now(),
	}
	if err := repo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}
	return entry, nil
}

// List returns the entries of one entity, oldest first.
func (s *Service) List(ctx context.Context, repo repository.AuditRepository, entityType string, entityID uuid.UUID) ([]*model.AuditLogEntry, error) {
	entries, err := repo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return entries, nil
}
