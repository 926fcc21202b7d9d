package confirmation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/subscription-billing/internal/clock"
	"github.com/frahmantamala/subscription-billing/internal/core/events"
	"github.com/frahmantamala/subscription-billing/internal/observability/metrics"
)

// Compensator reverts the billing and access state written by a
// confirmation that failed after the payment was marked paid. Logins and
// reminders already sent are left in place.
type Compensator struct {
	ledger    Ledger
	contracts ContractAcceptor
	entities  EntityActivator
	publisher Publisher
	metrics   *metrics.ConfirmationMetrics
	clock     clock.Clock
	logger    *slog.Logger
}

func NewCompensator(ledger Ledger, contracts ContractAcceptor, entities EntityActivator, publisher Publisher, m *metrics.ConfirmationMetrics, clk clock.Clock, logger *slog.Logger) *Compensator {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Compensator{
		ledger:    ledger,
		contracts: contracts,
		entities:  entities,
		publisher: publisher,
		metrics:   m,
		clock:     clk,
		logger:    logger,
	}
}

// Undo records what a failed attempt changed besides the payment status.
type Undo struct {
	ContractAccepted bool
}

// Compensate reads the payment row to find what to revert and attempts every
// revert even when an earlier one fails. It runs on a context detached from
// the caller, since the caller may already have given up. A contract the
// payment names is un-accepted only when undo says this attempt accepted it.
// The entity, its negotiation and its unnamed contracts are left alone while
// another of its payments is still paid.
func (c *Compensator) Compensate(ctx context.Context, paymentID int64, undo Undo, cause error) error {
	ctx = context.WithoutCancel(ctx)

	c.logger.Warn("compensating payment confirmation", "payment_id", paymentID, "cause", cause)

	snap, err := c.ledger.Get(ctx, paymentID)
	if err != nil {
		return c.fail(ctx, paymentID, 0, cause, fmt.Errorf("reload payment: %w", err))
	}

	var errs []error
	if err := c.ledger.RevertToPending(ctx, snap.ID); err != nil {
		errs = append(errs, err)
	}

	otherPaid, err := c.ledger.OtherPaidFor(ctx, snap.EntityID, snap.ID)
	if err != nil {
		errs = append(errs, err)
	}
	keepAccess := err != nil || otherPaid
	if otherPaid {
		c.logger.Info("entity has another paid payment, keeping access",
			"payment_id", snap.ID,
			"entity_id", snap.EntityID)
	}

	switch {
	case undo.ContractAccepted:
		if err := c.contracts.RevertForPayment(ctx, snap.ContractID, snap.EntityID); err != nil {
			errs = append(errs, err)
		}
	case snap.ContractID == nil && !keepAccess:
		if err := c.contracts.RevertForPayment(ctx, nil, snap.EntityID); err != nil {
			errs = append(errs, err)
		}
	case snap.ContractID != nil:
		c.logger.Info("contract acceptance predates this confirmation, keeping it",
			"payment_id", snap.ID,
			"contract_id", *snap.ContractID)
	}

	if !keepAccess {
		if err := c.contracts.ResetNegotiation(ctx, snap.EntityID); err != nil {
			errs = append(errs, err)
		}
		if err := c.entities.Deactivate(ctx, snap.EntityID); err != nil {
			errs = append(errs, err)
		}
	}

	if joined := errors.Join(errs...); joined != nil {
		return c.fail(ctx, snap.ID, snap.EntityID, cause, joined)
	}

	c.metrics.IncCompensation(metrics.CompensationReverted)
	c.publish(ctx, events.NewPaymentCompensatedEvent(snap.ID, snap.EntityID, errorText(cause), "", c.clock.Now()))
	c.logger.Warn("payment confirmation compensated",
		"payment_id", snap.ID,
		"entity_id", snap.EntityID)
	return nil
}

func (c *Compensator) fail(ctx context.Context, paymentID, entityID int64, cause, err error) error {
	c.metrics.IncCompensation(metrics.CompensationFailed)
	c.publish(ctx, events.NewPaymentCompensatedEvent(paymentID, entityID, errorText(cause), err.Error(), c.clock.Now()))
	c.logger.Error("compensation incomplete, billing state needs manual reconciliation",
		"payment_id", paymentID,
		"entity_id", entityID,
		"cause", cause,
		"error", err,
		"manual_reconciliation", true)
	return &CompensationError{PaymentID: paymentID, EntityID: entityID, Err: err}
}

func (c *Compensator) publish(ctx context.Context, event events.Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Error("failed to publish compensation event", "event_id", event.EventID(), "error", err)
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
