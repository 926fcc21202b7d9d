package payment

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	paymentDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/payment"
	"github.com/frahmantamala/subscription-billing/internal/installment"
)

const (
	MethodUpfront = "upfront"
	MethodPix     = "pix"
	MethodBoleto  = "boleto"
	MethodCard    = "credit_card"
)

var (
	ErrNotFound  = errors.New("payment not found")
	ErrCancelled = errors.New("payment already cancelled")
)

// Snapshot is the persisted state of a payment after a confirmation attempt.
// Replayed is set when the payment was already paid before this attempt.
type Snapshot struct {
	ID                    int64                `json:"id"`
	EntityID              int64                `json:"entity_id"`
	ContractID            *int64               `json:"contract_id,omitempty"`
	Amount                decimal.Decimal      `json:"amount"`
	Status                string               `json:"status"`
	Method                string               `json:"payment_method"`
	InstallmentCount      int                  `json:"installment_count"`
	PaidAt                *time.Time           `json:"paid_at,omitempty"`
	Installments          installment.Schedule `json:"installments"`
	IdempotencyKey        *string              `json:"idempotency_key,omitempty"`
	ExternalTransactionID *string              `json:"external_transaction_id,omitempty"`
	PlatformID            *string              `json:"platform_id,omitempty"`
	PlatformName          *string              `json:"platform_name,omitempty"`
	Replayed              bool                 `json:"-"`
}

func (s *Snapshot) IsPaid() bool {
	return s.Status == paymentDatamodel.StatusPaid
}

func FromDataModel(p *paymentDatamodel.Payment) *Snapshot {
	s := &Snapshot{
		ID:                    p.ID,
		EntityID:              p.EntityID,
		ContractID:            p.ContractID,
		Amount:                p.Amount,
		Status:                p.Status,
		InstallmentCount:      p.InstallmentCount,
		PaidAt:                p.PaidAt,
		Installments:          installment.Schedule(p.Installments),
		IdempotencyKey:        p.IdempotencyKey,
		ExternalTransactionID: p.ExternalTransactionID,
		PlatformID:            p.PlatformID,
		PlatformName:          p.PlatformName,
	}
	if p.Method != nil {
		s.Method = *p.Method
	}
	return s
}

// ConfirmParams carries one confirmation request. Nil references keep the
// values already stored on the payment.
type ConfirmParams struct {
	PaymentID             int64
	Method                string
	InstallmentCount      int
	IdempotencyKey        *string
	ExternalTransactionID *string
	PlatformID            *string
	PlatformName          *string
}

func (p ConfirmParams) withDefaults() ConfirmParams {
	if p.Method == "" {
		p.Method = MethodUpfront
	}
	if p.InstallmentCount == 0 {
		p.InstallmentCount = 1
	}
	return p
}

// ConfirmUpdate is the column set written by the guarded pending to paid transition.
type ConfirmUpdate struct {
	PaymentID             int64
	Method                string
	InstallmentCount      int
	PaidAt                time.Time
	IdempotencyKey        *string
	ExternalTransactionID *string
	PlatformID            *string
	PlatformName          *string
}
