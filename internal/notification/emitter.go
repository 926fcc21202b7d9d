package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	notificationDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/notification"
	"github.com/frahmantamala/subscription-billing/internal/installment"
)

const displayDateLayout = "02/01/2006"

type Queue interface {
	Enqueue(msg Message) error
}

// Emitter creates reminders for installments that are still to be paid.
type Emitter struct {
	sender Sender
	queue  Queue
	policy EmissionPolicy
	logger *slog.Logger
}

// NewEmitter builds an emitter. queue may be nil, in which case delivery is
// always synchronous.
func NewEmitter(sender Sender, queue Queue, policy EmissionPolicy, logger *slog.Logger) *Emitter {
	return &Emitter{
		sender: sender,
		queue:  queue,
		policy: policy,
		logger: logger,
	}
}

// EmitInstallmentReminders sends one reminder per installment after the
// first. It returns how many reminders were handed off and the joined
// delivery errors; one failing reminder does not stop the others.
func (e *Emitter) EmitInstallmentReminders(ctx context.Context, r Reminder) (int, error) {
	if e.policy.SkipImmediateEmission {
		e.logger.Info("installment reminders skipped by policy", "payment_id", r.PaymentID)
		return 0, nil
	}

	total := len(r.Schedule)
	emitted := 0
	var errs []error

	for _, inst := range r.Schedule {
		if inst.Number == 1 {
			continue
		}

		msg := installmentDueMessage(r, inst, total)

		var err error
		if e.policy.async() && e.queue != nil {
			err = e.queue.Enqueue(msg)
		} else {
			err = e.sender.Send(ctx, msg)
		}
		if err != nil {
			e.logger.Warn("installment reminder not emitted",
				"payment_id", r.PaymentID,
				"installment", inst.Number,
				"error", err)
			errs = append(errs, fmt.Errorf("installment %d: %w", inst.Number, err))
			continue
		}
		emitted++
	}

	if emitted > 0 {
		e.logger.Info("installment reminders emitted", "payment_id", r.PaymentID, "count", emitted)
	}
	return emitted, errors.Join(errs...)
}

func installmentDueMessage(r Reminder, inst installment.Installment, total int) Message {
	due := inst.DueDate.Format(displayDateLayout)
	return Message{
		Kind:              notificationDatamodel.KindInstallmentDue,
		RecipientEntityID: r.EntityID,
		Title:             fmt.Sprintf("Installment %d/%d due on %s", inst.Number, total, due),
		Body:              fmt.Sprintf("You have a pending installment of R$ %s due on %s.", inst.Amount.StringFixed(2), due),
		Context: map[string]interface{}{
			"payment_id":         r.PaymentID,
			"entity_id":          r.EntityID,
			"installment_number": inst.Number,
			"installment_total":  total,
			"due_date":           inst.DueDate.Format("2006-01-02"),
			"amount":             inst.Amount.StringFixed(2),
		},
		ActionLink: installmentActionLink,
		Priority:   notificationDatamodel.PriorityHigh,
	}
}
