package audit

import (
	"time"

	"gorm.io/datatypes"
)

type Log struct {
	ID           int64             `gorm:"primaryKey"`
	EventID      string            `gorm:"column:event_id;not null;uniqueIndex"`
	Action       string            `gorm:"column:action;not null;index"`
	ResourceType string            `gorm:"column:resource_type;not null"`
	ResourceID   string            `gorm:"column:resource_id;not null;index"`
	ActorID      *string           `gorm:"column:actor_id"`
	ActorIP      *string           `gorm:"column:actor_ip"`
	Metadata     datatypes.JSONMap `gorm:"column:metadata"`
	OccurredAt   time.Time         `gorm:"column:occurred_at;not null"`
	CreatedAt    time.Time         `gorm:"column:created_at"`
}

func (Log) TableName() string {
	return "audit_logs"
}
