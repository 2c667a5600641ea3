package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// OutboxEvent is written in the same transaction as the change it announces.
type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	AggregateID  uuid.UUID       `db:"aggregate_id" json:"aggregate_id"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
}

// WorkflowEvent is the payload of every workflow outbox event.
type WorkflowEvent struct {
	Entity     string    `json:"entity"`
	EntityID   uuid.UUID `json:"entity_id"`
	Action     string    `json:"action"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorID    uuid.UUID `json:"actor_id"`
	ActorRole  Role      `json:"actor_role"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventType is the outbox routing key, e.g. "prescription.publish_results".
func (e WorkflowEvent) EventType() string {
	return e.Entity + "." + e.Action
}

// NewOutboxEvent builds a pending outbox row for e.
func NewOutboxEvent(e WorkflowEvent) (*OutboxEvent, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	now := e.OccurredAt
	if now.IsZero() {
		now = UTCNow()
	}
	return &OutboxEvent{
		ID:          uuid.New(),
		EventType:   e.EventType(),
		AggregateID: e.EntityID,
		Payload:     payload,
		Status:      OutboxStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
