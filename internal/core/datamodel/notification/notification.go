package notification

import (
	"time"

	"gorm.io/datatypes"
)

const (
	KindInstallmentDue = "installment_due"

	PriorityHigh   = "high"
	PriorityNormal = "normal"
)

type Notification struct {
	ID                int64             `gorm:"primaryKey"`
	Kind              string            `gorm:"column:kind;not null;index"`
	RecipientEntityID int64             `gorm:"column:recipient_entity_id;not null;index"`
	Title             string            `gorm:"column:title;not null"`
	Body              string            `gorm:"column:body;not null"`
	Context           datatypes.JSONMap `gorm:"column:context"`
	ActionLink        string            `gorm:"column:action_link"`
	Priority          string            `gorm:"column:priority;not null;default:normal"`
	Read              bool              `gorm:"column:is_read;not null;default:false"`
	CreatedAt         time.Time         `gorm:"column:created_at"`
}
