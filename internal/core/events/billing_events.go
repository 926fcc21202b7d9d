package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentConfirmed   = "payment.confirmed"
	EventTypeEntityActivated    = "entity.activated"
	EventTypePaymentCompensated = "payment.compensated"
)

type PaymentConfirmedEvent struct {
	BaseEvent
	PaymentID        int64  `json:"payment_id"`
	EntityID         int64  `json:"entity_id"`
	Method           string `json:"method"`
	InstallmentCount int    `json:"installment_count"`
	Replayed         bool   `json:"replayed"`
}

func NewPaymentConfirmedEvent(paymentID, entityID int64, method string, installmentCount int, replayed bool, at time.Time) *PaymentConfirmedEvent {
	return &PaymentConfirmedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentConfirmed,
			Timestamp: at,
			Data: map[string]interface{}{
				"payment_id":        paymentID,
				"entity_id":         entityID,
				"method":            method,
				"installment_count": installmentCount,
				"replayed":          replayed,
			},
		},
		PaymentID:        paymentID,
		EntityID:         entityID,
		Method:           method,
		InstallmentCount: installmentCount,
		Replayed:         replayed,
	}
}

type EntityActivatedEvent struct {
	BaseEvent
	EntityID     int64 `json:"entity_id"`
	PaymentID    int64 `json:"payment_id"`
	LoginCreated bool  `json:"login_created"`
}

func NewEntityActivatedEvent(entityID, paymentID int64, loginCreated bool, at time.Time) *EntityActivatedEvent {
	return &EntityActivatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeEntityActivated,
			Timestamp: at,
			Data: map[string]interface{}{
				"entity_id":     entityID,
				"payment_id":    paymentID,
				"login_created": loginCreated,
			},
		},
		EntityID:     entityID,
		PaymentID:    paymentID,
		LoginCreated: loginCreated,
	}
}

// PaymentCompensatedEvent records a reverted confirmation. Failure is set
// when the revert itself did not complete and the rows need manual repair.
type PaymentCompensatedEvent struct {
	BaseEvent
	PaymentID int64  `json:"payment_id"`
	EntityID  int64  `json:"entity_id"`
	Cause     string `json:"cause"`
	Failure   string `json:"failure,omitempty"`
}

func NewPaymentCompensatedEvent(paymentID, entityID int64, cause, failure string, at time.Time) *PaymentCompensatedEvent {
	return &PaymentCompensatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCompensated,
			Timestamp: at,
			Data: map[string]interface{}{
				"payment_id": paymentID,
				"entity_id":  entityID,
				"cause":      cause,
				"failure":    failure,
			},
		},
		PaymentID: paymentID,
		EntityID:  entityID,
		Cause:     cause,
		Failure:   failure,
	}
}
