package events

import (
	"time"

	"github.com/google/uuid"
)

const EventTypeAudit = "audit.recorded"

// AuditEvent carries one auditable action from a domain service to the audit
// subscriber. Secret values must never be placed in Metadata.
type AuditEvent struct {
	BaseEvent
	ActorID    *int64                 `json:"actor_id"`
	Action     string                 `json:"action"`
	ObjectType string                 `json:"object_type"`
	ObjectID   string                 `json:"object_id"`
	Metadata   map[string]interface{} `json:"metadata"`
}

func NewAuditEvent(actorID *int64, action, objectType, objectID string, metadata map[string]interface{}) *AuditEvent {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return &AuditEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeAudit,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"action":      action,
				"object_type": objectType,
				"object_id":   objectID,
			},
		},
		ActorID:    actorID,
		Action:     action,
		ObjectType: objectType,
		ObjectID:   objectID,
		Metadata:   metadata,
	}
}
