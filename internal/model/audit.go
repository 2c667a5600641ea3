package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionCreated AuditAction = "CREATED"
	AuditActionUpdated AuditAction = "UPDATED"
	AuditActionDeleted AuditAction = "DELETED"
)

// Entity types
const (
	AuditEntityAppointment  = "appointment"
	AuditEntityPrescription = "prescription"
)

// FieldChange is the before/after pair of one field.
type FieldChange struct {
	Old interface{} `json:"old"`
	New interface{} `json:"new"`
}

// AuditChanges is keyed by the field's JSON name.
type AuditChanges map[string]FieldChange

func (c AuditChanges) Value() (driver.Value, error) {
	return jsonValue(c)
}

func (c *AuditChanges) Scan(src interface{}) error {
	return scanJSON(src, c)
}

// AuditLogEntry is append-only: rows are inserted and never updated.
type AuditLogEntry struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	EntityType  string       `json:"entity_type" db:"entity_type"`
	EntityID    uuid.UUID    `json:"entity_id" db:"entity_id"`
	Action      AuditAction  `json:"action" db:"action"`
	PerformedBy uuid.UUID    `json:"performed_by" db:"performed_by"`
	Changes     AuditChanges `json:"changes" db:"changes"`
	Reason      *string      `json:"reason,omitempty" db:"reason"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
}
