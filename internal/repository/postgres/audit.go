package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/encounter-api/internal/model"
)

// auditRepository is insert-only; the table rejects UPDATE and DELETE.
type auditRepository struct {
	BaseRepository
}

func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLogEntry) error {
	query := `
		INSERT INTO audit_logs (
			id, entity_type, entity_id, action, performed_by, changes, reason, created_at
		) VALUES (
			:id, :entity_type, :entity_id, :action, :performed_by, :changes, :reason, :created_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) ListByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLogEntry, error) {
	query := `
		SELECT id, entity_type, entity_id, action, performed_by, changes, reason, created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY seq ASC
	`
	var entries []*model.AuditLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, entityType, entityID); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return entries, nil
}
