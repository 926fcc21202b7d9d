package confirmation

import (
	"errors"
	"fmt"

	"github.com/frahmantamala/subscription-billing/internal"
	"github.com/frahmantamala/subscription-billing/internal/contract"
	"github.com/frahmantamala/subscription-billing/internal/core/common/validation"
	"github.com/frahmantamala/subscription-billing/internal/installment"
	"github.com/frahmantamala/subscription-billing/internal/payment"
)

// State is the position of one confirmation attempt in the flow.
type State string

const (
	StateStarted            State = "started"
	StateLedgerConfirmed    State = "ledger_confirmed"
	StateSideEffectsApplied State = "side_effects_applied"
	StateCompleted          State = "completed"
	StateCompensating       State = "compensating"
	StateCompensated        State = "compensated"
	StateRejected           State = "rejected"
)

type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeRejected    Outcome = "rejected"
	OutcomeCompensated Outcome = "compensated"
	// OutcomeFailed is an unexpected failure that was not compensated,
	// either before the ledger moved or on a replay of an earlier confirmation.
	OutcomeFailed Outcome = "failed"
)

// Effect is a durable change made by this confirmation attempt.
type Effect string

const (
	EffectPaymentConfirmed      Effect = "payment_confirmed"
	EffectInstallmentsPersisted Effect = "installments_persisted"
	EffectContractAccepted      Effect = "contract_accepted"
	EffectEntityActivated       Effect = "entity_activated"
	EffectLoginCreated          Effect = "login_created"
)

const (
	StepNotification       = "notification"
	StepContractAcceptance = "contract_acceptance"
	StepLoginProvisioning  = "login_provisioning"
	StepEntityLookup       = "entity_lookup"
)

var paymentMethods = []string{
	payment.MethodUpfront,
	payment.MethodPix,
	payment.MethodBoleto,
	payment.MethodCard,
}

type Request struct {
	PaymentID             int64
	Method                string
	InstallmentCount      int
	IdempotencyKey        *string
	ExternalTransactionID *string
	PlatformID            *string
	PlatformName          *string
}

func (r Request) Validate() error {
	v := validation.NewValidator()
	v.Field("payment_id", r.PaymentID).
		MinInt(1, internal.ErrCodeInvalidPaymentID)
	v.Field("installment_count", r.InstallmentCount).
		MinInt(1, internal.ErrCodeInvalidInstallments)
	v.Field("payment_method", r.Method).
		OneOf(paymentMethods, internal.ErrCodeInvalidPaymentMethod)
	v.Field("idempotency_key", r.IdempotencyKey).MaxLength(255)
	v.Field("external_transaction_id", r.ExternalTransactionID).MaxLength(255)

	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (r Request) params() payment.ConfirmParams {
	return payment.ConfirmParams{
		PaymentID:             r.PaymentID,
		Method:                r.Method,
		InstallmentCount:      r.InstallmentCount,
		IdempotencyKey:        r.IdempotencyKey,
		ExternalTransactionID: r.ExternalTransactionID,
		PlatformID:            r.PlatformID,
		PlatformName:          r.PlatformName,
	}
}

type SoftFailure struct {
	Step  string `json:"step"`
	Error string `json:"error"`
}

// Result describes what a confirmation achieved. Effects lists what this
// attempt changed; AccessLiberated and LoginLiberated describe the state of
// the entity after the attempt, whichever attempt caused it.
type Result struct {
	Outcome          Outcome              `json:"outcome"`
	State            State                `json:"state"`
	PaymentID        int64                `json:"payment_id"`
	EntityID         int64                `json:"entity_id"`
	EntityName       string               `json:"entity_name"`
	EntityType       string               `json:"entity_type"`
	Replayed         bool                 `json:"replayed"`
	Effects          []Effect             `json:"effects"`
	AccessLiberated  bool                 `json:"access_liberated"`
	LoginLiberated   bool                 `json:"login_liberated"`
	ContractOutcome  contract.Outcome     `json:"contract_outcome,omitempty"`
	RemindersEmitted int                  `json:"reminders_emitted"`
	Installments     installment.Schedule `json:"installments,omitempty"`
	NextSteps        []string             `json:"next_steps"`
	SoftFailures     []SoftFailure        `json:"soft_failures,omitempty"`
}

func (r *Result) Achieved(e Effect) bool {
	for _, got := range r.Effects {
		if got == e {
			return true
		}
	}
	return false
}

func (r *Result) achieve(e Effect) {
	r.Effects = append(r.Effects, e)
}

func (r *Result) softFail(step string, err error) {
	r.SoftFailures = append(r.SoftFailures, SoftFailure{Step: step, Error: err.Error()})
}

// CompensationError reports the reverts that did not go through.
type CompensationError struct {
	PaymentID int64
	EntityID  int64
	Err       error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensation of payment %d incomplete: %v", e.PaymentID, e.Err)
}

func (e *CompensationError) Unwrap() error {
	return e.Err
}

func isRejection(err error) bool {
	return errors.Is(err, payment.ErrNotFound) || errors.Is(err, payment.ErrCancelled)
}

// toAppError maps ledger rejections to their API errors.
func toAppError(err error) error {
	switch {
	case errors.Is(err, payment.ErrNotFound):
		return internal.ErrPaymentNotFound
	case errors.Is(err, payment.ErrCancelled):
		return internal.ErrPaymentCancelled
	default:
		return internal.NewConfirmationFailedError(err)
	}
}
