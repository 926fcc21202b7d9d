package payment

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/frahmantamala/subscription-billing/internal/installment"
)

const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

type Payment struct {
	ID                    int64                                        `gorm:"primaryKey"`
	EntityID              int64                                        `gorm:"column:entity_id;not null;index"`
	ContractID            *int64                                       `gorm:"column:contract_id;index"`
	Amount                decimal.Decimal                              `gorm:"column:amount;type:numeric(12,2);not null"`
	Status                string                                       `gorm:"column:status;not null;default:pending"`
	Method                *string                                      `gorm:"column:payment_method"`
	InstallmentCount      int                                          `gorm:"column:installment_count;not null;default:1"`
	PaidAt                *time.Time                                   `gorm:"column:paid_at"`
	Installments          datatypes.JSONSlice[installment.Installment] `gorm:"column:installments;not null;default:'[]'"`
	IdempotencyKey        *string                                      `gorm:"column:idempotency_key"`
	ExternalTransactionID *string                                      `gorm:"column:external_transaction_id"`
	PlatformID            *string                                      `gorm:"column:platform_id"`
	PlatformName          *string                                      `gorm:"column:platform_name"`
	CreatedAt             time.Time                                    `gorm:"column:created_at"`
	UpdatedAt             time.Time                                    `gorm:"column:updated_at"`
}
