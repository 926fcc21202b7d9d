package confirmation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/frahmantamala/subscription-billing/internal/clock"
	"github.com/frahmantamala/subscription-billing/internal/contract"
	"github.com/frahmantamala/subscription-billing/internal/core/events"
	"github.com/frahmantamala/subscription-billing/internal/entity"
	"github.com/frahmantamala/subscription-billing/internal/installment"
	"github.com/frahmantamala/subscription-billing/internal/notification"
	"github.com/frahmantamala/subscription-billing/internal/observability/metrics"
	"github.com/frahmantamala/subscription-billing/internal/payment"
	"github.com/frahmantamala/subscription-billing/pkg/logger"
)

type Ledger interface {
	Confirm(ctx context.Context, params payment.ConfirmParams) (*payment.Snapshot, error)
	Get(ctx context.Context, id int64) (*payment.Snapshot, error)
	SaveInstallments(ctx context.Context, id int64, schedule installment.Schedule) error
	RevertToPending(ctx context.Context, id int64) error
	OtherPaidFor(ctx context.Context, entityID, id int64) (bool, error)
}

type ContractAcceptor interface {
	AcceptIfNeeded(ctx context.Context, contractID int64, actor contract.Actor) (contract.Outcome, error)
	RevertForPayment(ctx context.Context, contractID *int64, entityID int64) error
	ResetNegotiation(ctx context.Context, entityID int64) error
}

type EntityActivator interface {
	Activate(ctx context.Context, entityID int64) (entity.ActivationResult, error)
	Get(ctx context.Context, id int64) (*entity.Entity, error)
	Deactivate(ctx context.Context, entityID int64) error
}

type ReminderEmitter interface {
	EmitInstallmentReminders(ctx context.Context, r notification.Reminder) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Dependencies struct {
	Ledger      Ledger
	Contracts   ContractAcceptor
	Entities    EntityActivator
	Reminders   ReminderEmitter
	Publisher   Publisher
	Compensator *Compensator
	Metrics     *metrics.ConfirmationMetrics
	Clock       clock.Clock
}

type Options struct {
	SystemActor    contract.Actor
	PasswordDigits int
}

// Orchestrator runs a payment confirmation: the ledger transition first,
// then installments, reminders, contract acceptance and entity activation.
type Orchestrator struct {
	deps   Dependencies
	opts   Options
	logger *slog.Logger
}

func NewOrchestrator(deps Dependencies, opts Options, lg *slog.Logger) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = clock.SystemClock{}
	}
	if deps.Compensator == nil {
		deps.Compensator = NewCompensator(deps.Ledger, deps.Contracts, deps.Entities, deps.Publisher, deps.Metrics, deps.Clock, lg)
	}
	return &Orchestrator{
		deps:   deps,
		opts:   opts,
		logger: lg,
	}
}

// ConfirmPayment confirms a payment and applies its downstream effects.
// Errors returned are *internal.AppError values. A failure after the payment
// was marked paid by this call is compensated before returning.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, req Request) (*Result, error) {
	started := o.deps.Clock.Now()
	lg := logger.FromOr(ctx, o.logger).With("payment_id", req.PaymentID)

	result := &Result{State: StateStarted, PaymentID: req.PaymentID}
	finish := func(outcome Outcome) {
		result.Outcome = outcome
		o.deps.Metrics.ObserveConfirmation(string(outcome), o.deps.Clock.Now().Sub(started))
	}

	if err := req.Validate(); err != nil {
		result.State = StateRejected
		finish(OutcomeRejected)
		lg.Warn("confirmation request rejected", "error", err)
		return nil, err
	}

	snap, err := o.deps.Ledger.Confirm(ctx, req.params())
	if err != nil {
		result.State = StateRejected
		if isRejection(err) {
			finish(OutcomeRejected)
		} else {
			lg.Error("payment ledger failed before any change", "error", err)
			finish(OutcomeFailed)
		}
		return nil, toAppError(err)
	}

	// the payment is paid from here on, so effects run to completion even
	// when the caller goes away
	ctx = context.WithoutCancel(ctx)

	result.State = StateLedgerConfirmed
	result.EntityID = snap.EntityID
	result.Replayed = snap.Replayed
	if !snap.Replayed {
		result.achieve(EffectPaymentConfirmed)
	}

	if err := o.applySideEffects(ctx, lg, snap, result); err != nil {
		lg.Error("unexpected failure after payment was confirmed", "error", err, "state", result.State)
		result.State = StateCompensating

		if snap.Replayed {
			// the paid state belongs to an earlier confirmation
			lg.Warn("replayed confirmation failed, leaving paid payment in place")
			finish(OutcomeFailed)
			return nil, toAppError(err)
		}

		undo := Undo{ContractAccepted: result.ContractOutcome == contract.OutcomeAccepted}
		if cerr := o.deps.Compensator.Compensate(ctx, snap.ID, undo, err); cerr != nil {
			lg.Error("compensation failed", "error", cerr)
		}
		result.State = StateCompensated
		finish(OutcomeCompensated)
		return nil, toAppError(err)
	}

	result.State = StateCompleted
	result.NextSteps = o.nextSteps(snap, result)
	finish(OutcomeCompleted)

	o.publish(ctx, lg, events.NewPaymentConfirmedEvent(snap.ID, snap.EntityID, snap.Method, snap.InstallmentCount, snap.Replayed, o.deps.Clock.Now()))
	if result.Achieved(EffectEntityActivated) {
		o.publish(ctx, lg, events.NewEntityActivatedEvent(snap.EntityID, snap.ID, result.Achieved(EffectLoginCreated), o.deps.Clock.Now()))
	}

	lg.Info("payment confirmation completed",
		"entity_id", snap.EntityID,
		"replayed", snap.Replayed,
		"effects", result.Effects,
		"access_liberated", result.AccessLiberated,
		"login_liberated", result.LoginLiberated,
		"soft_failures", len(result.SoftFailures))
	return result, nil
}

// applySideEffects returns an error only for failures that must be
// compensated. Soft step failures are recorded on the result.
func (o *Orchestrator) applySideEffects(ctx context.Context, lg *slog.Logger, snap *payment.Snapshot, result *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			lg.Error("panic while applying confirmation effects", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic while applying confirmation effects: %v", r)
		}
	}()

	schedule, persisted, err := o.persistInstallments(ctx, snap)
	if err != nil {
		return err
	}
	result.Installments = schedule
	if persisted {
		result.achieve(EffectInstallmentsPersisted)
	}

	// reminders go out once, with the transition that created the schedule
	if !snap.Replayed {
		o.soft(lg, result, StepNotification, func() error {
			n, err := o.deps.Reminders.EmitInstallmentReminders(ctx, notification.Reminder{
				PaymentID: snap.ID,
				EntityID:  snap.EntityID,
				Schedule:  schedule,
			})
			result.RemindersEmitted = n
			return err
		})
	}

	if snap.ContractID != nil {
		o.soft(lg, result, StepContractAcceptance, func() error {
			outcome, err := o.deps.Contracts.AcceptIfNeeded(ctx, *snap.ContractID, o.opts.SystemActor)
			if err != nil {
				return err
			}
			result.ContractOutcome = outcome
			if outcome == contract.OutcomeAccepted {
				result.achieve(EffectContractAccepted)
			}
			return nil
		})
	}

	activation, err := o.deps.Entities.Activate(ctx, snap.EntityID)
	if err != nil {
		return fmt.Errorf("activate entity %d: %w", snap.EntityID, err)
	}
	if activation.EntityActivated {
		result.achieve(EffectEntityActivated)
	}
	if activation.LoginCreated {
		result.achieve(EffectLoginCreated)
	}
	if activation.LoginErr != nil {
		o.deps.Metrics.IncSoftFailure(StepLoginProvisioning)
		result.softFail(StepLoginProvisioning, activation.LoginErr)
	}
	result.AccessLiberated = activation.EntityActivated
	result.LoginLiberated = activation.LoginAvailable

	o.soft(lg, result, StepEntityLookup, func() error {
		e, err := o.deps.Entities.Get(ctx, snap.EntityID)
		if err != nil {
			return err
		}
		result.EntityName = e.Name
		result.EntityType = e.Type
		return nil
	})

	result.State = StateSideEffectsApplied
	return nil
}

// persistInstallments writes the schedule derived from the stored payment.
// A schedule already on the row is kept, since later installments may have
// been settled since.
func (o *Orchestrator) persistInstallments(ctx context.Context, snap *payment.Snapshot) (installment.Schedule, bool, error) {
	if len(snap.Installments) > 0 {
		return snap.Installments, false, nil
	}

	start := o.deps.Clock.Now()
	if snap.PaidAt != nil {
		start = *snap.PaidAt
	}
	count := snap.InstallmentCount
	if count < 1 {
		count = 1
	}

	schedule, err := installment.Compute(snap.Amount, count, start)
	if err != nil {
		return nil, false, fmt.Errorf("compute installments for payment %d: %w", snap.ID, err)
	}
	if err := o.deps.Ledger.SaveInstallments(ctx, snap.ID, schedule); err != nil {
		return nil, false, err
	}
	return schedule, true, nil
}

// soft runs a best-effort step. Errors and panics are logged and recorded
// on the result, never returned.
func (o *Orchestrator) soft(lg *slog.Logger, result *Result, step string, fn func() error) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err == nil {
		return
	}
	lg.Warn("best-effort confirmation step failed", "step", step, "error", err)
	o.deps.Metrics.IncSoftFailure(step)
	result.softFail(step, err)
}

func (o *Orchestrator) publish(ctx context.Context, lg *slog.Logger, event events.Event) {
	if o.deps.Publisher == nil {
		return
	}
	if err := o.deps.Publisher.Publish(ctx, event); err != nil {
		lg.Error("failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

func (o *Orchestrator) nextSteps(snap *payment.Snapshot, result *Result) []string {
	var steps []string
	if result.LoginLiberated {
		steps = append(steps, fmt.Sprintf(
			"Sign in with the responsible person's ID. The initial password is the last %d digits of the registration number.",
			o.opts.PasswordDigits))
	} else {
		steps = append(steps, "Access is active but the login is not ready yet. Confirm the payment again to finish setting it up.")
	}
	if snap.ContractID != nil {
		steps = append(steps, "The contract is available under Account > Contracts.")
	}
	steps = append(steps, "Receipts are issued on request under Account > Payments.")
	return steps
}
