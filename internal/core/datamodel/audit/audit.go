package audit

import (
	"time"
)

const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionView     = "view"
	ActionDisclose = "disclose"
	ActionDisable  = "disable"
	ActionEnable   = "enable"
	ActionDelete   = "delete"
	ActionLogin    = "login"
)

type AuditLog struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	ActorID    *int64    `json:"actor_id" gorm:"column:actor_id"`
	Action     string    `json:"action" gorm:"not null"`
	ObjectType string    `json:"object_type" gorm:"column:object_type"`
	ObjectID   string    `json:"object_id" gorm:"column:object_id"`
	Metadata   string    `json:"metadata" gorm:"column:metadata;default:'{}'"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
