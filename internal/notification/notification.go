package notification

import (
	"errors"
	"time"

	"github.com/frahmantamala/subscription-billing/internal"
	"github.com/frahmantamala/subscription-billing/internal/installment"
)

var (
	ErrQueueFull        = errors.New("notification queue full")
	ErrDispatcherClosed = errors.New("notification dispatcher closed")
)

const installmentActionLink = "/rh/conta#pagamentos"

// Message is one notification addressed to a contracting entity.
type Message struct {
	Kind              string
	RecipientEntityID int64
	Title             string
	Body              string
	Context           map[string]interface{}
	ActionLink        string
	Priority          string
}

// Reminder describes the schedule whose future installments need a reminder.
type Reminder struct {
	PaymentID int64
	EntityID  int64
	Schedule  installment.Schedule
}

// EmissionPolicy decides whether reminders go out at confirmation time and how.
type EmissionPolicy struct {
	SkipImmediateEmission bool
	Environment           string
}

func (p EmissionPolicy) async() bool {
	return p.Environment == internal.EnvironmentProduction
}

type Notification struct {
	ID                int64                  `json:"id"`
	Kind              string                 `json:"kind"`
	RecipientEntityID int64                  `json:"recipient_entity_id"`
	Title             string                 `json:"title"`
	Body              string                 `json:"body"`
	Context           map[string]interface{} `json:"context,omitempty"`
	ActionLink        string                 `json:"action_link,omitempty"`
	Priority          string                 `json:"priority"`
	Read              bool                   `json:"read"`
	CreatedAt         time.Time              `json:"created_at"`
}
