package contract

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

type Contract struct {
	ID            int64           `gorm:"primaryKey"`
	EntityID      int64           `gorm:"column:entity_id;not null;index"`
	PlanID        *int64          `gorm:"column:plan_id"`
	EmployeeCount int             `gorm:"column:employee_count;not null;default:0"`
	TotalValue    decimal.Decimal `gorm:"column:total_value;type:numeric(12,2);not null"`
	Status        string          `gorm:"column:status;not null;default:pending"`
	Accepted      bool            `gorm:"column:accepted;not null;default:false"`
	AcceptedBy    *string         `gorm:"column:accepted_by"`
	AcceptedIP    *string         `gorm:"column:accepted_ip"`
	AcceptedAt    *time.Time      `gorm:"column:accepted_at"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}

const (
	NegotiationAwaitingAdminValue = "awaiting_admin_value"
	NegotiationAwaitingPayment    = "awaiting_payment"
)

// Negotiation is the pre-contract pricing record of a custom plan.
type Negotiation struct {
	ID                   int64            `gorm:"primaryKey"`
	EntityID             int64            `gorm:"column:entity_id;not null;index"`
	Status               string           `gorm:"column:status;not null;default:awaiting_admin_value"`
	ValuePerEmployee     *decimal.Decimal `gorm:"column:value_per_employee;type:numeric(12,2)"`
	EstimatedTotal       *decimal.Decimal `gorm:"column:estimated_total;type:numeric(12,2)"`
	EstimatedEmployees   *int             `gorm:"column:estimated_employees"`
	PaymentLinkToken     *string          `gorm:"column:payment_link_token"`
	PaymentLinkExpiresAt *time.Time       `gorm:"column:payment_link_expires_at"`
	CreatedAt            time.Time        `gorm:"column:created_at"`
	UpdatedAt            time.Time        `gorm:"column:updated_at"`
}

func (Negotiation) TableName() string {
	return "custom_negotiations"
}
