package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the read model behind the payment status endpoint and CLI.
type Status struct {
	PaymentID        int64           `db:"payment_id" json:"payment_id"`
	Status           string          `db:"status" json:"status"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Method           *string         `db:"payment_method" json:"payment_method,omitempty"`
	InstallmentCount int             `db:"installment_count" json:"installment_count"`
	PaidAt           *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	EntityID         int64           `db:"entity_id" json:"entity_id"`
	EntityName       string          `db:"entity_name" json:"entity_name"`
	PaymentConfirmed bool            `db:"payment_confirmed" json:"payment_confirmed"`
	EntityActive     bool            `db:"entity_active" json:"entity_active"`
}
