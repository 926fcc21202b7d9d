package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/subscription-billing/internal/clock"
	paymentDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/payment"
	"github.com/frahmantamala/subscription-billing/internal/installment"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*paymentDatamodel.Payment, error)
	// ConfirmPending marks the payment paid unless it is already paid or
	// cancelled. It reports whether this call performed the transition.
	ConfirmPending(ctx context.Context, update ConfirmUpdate) (bool, error)
	SaveInstallments(ctx context.Context, id int64, schedule installment.Schedule) error
	// RevertToPending moves a paid payment back to pending.
	RevertToPending(ctx context.Context, id int64) (bool, error)
	// CountPaidForEntity counts the entity's paid payments other than exceptID.
	CountPaidForEntity(ctx context.Context, entityID, exceptID int64) (int64, error)
}

// Ledger owns the payment status transition.
type Ledger struct {
	repo   RepositoryAPI
	clock  clock.Clock
	logger *slog.Logger
}

func NewLedger(repo RepositoryAPI, clk clock.Clock, logger *slog.Logger) *Ledger {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Ledger{
		repo:   repo,
		clock:  clk,
		logger: logger,
	}
}

// Confirm moves a payment from pending to paid. A payment that is already
// paid is returned with Replayed set so callers can resume downstream steps.
func (l *Ledger) Confirm(ctx context.Context, params ConfirmParams) (*Snapshot, error) {
	params = params.withDefaults()

	applied, err := l.repo.ConfirmPending(ctx, ConfirmUpdate{
		PaymentID:             params.PaymentID,
		Method:                params.Method,
		InstallmentCount:      params.InstallmentCount,
		PaidAt:                l.clock.Now(),
		IdempotencyKey:        params.IdempotencyKey,
		ExternalTransactionID: params.ExternalTransactionID,
		PlatformID:            params.PlatformID,
		PlatformName:          params.PlatformName,
	})
	if err != nil {
		l.logger.Error("payment confirmation update failed", "error", err, "payment_id", params.PaymentID)
		return nil, fmt.Errorf("confirm payment %d: %w", params.PaymentID, err)
	}

	row, err := l.repo.GetByID(ctx, params.PaymentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			l.logger.Warn("payment not found for confirmation", "payment_id", params.PaymentID)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read payment %d: %w", params.PaymentID, err)
	}

	snapshot := FromDataModel(row)

	if applied {
		l.logger.Info("payment marked as paid",
			"payment_id", row.ID,
			"entity_id", row.EntityID,
			"method", snapshot.Method,
			"installment_count", snapshot.InstallmentCount)
		return snapshot, nil
	}

	switch row.Status {
	case paymentDatamodel.StatusCancelled:
		l.logger.Warn("payment is cancelled, confirmation rejected", "payment_id", row.ID)
		return nil, ErrCancelled
	case paymentDatamodel.StatusPaid:
		l.logger.Info("payment already paid, replaying downstream steps", "payment_id", row.ID)
		snapshot.Replayed = true
		return snapshot, nil
	default:
		return nil, fmt.Errorf("payment %d was not confirmed and is in status %q", row.ID, row.Status)
	}
}

func (l *Ledger) Get(ctx context.Context, id int64) (*Snapshot, error) {
	row, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

// SaveInstallments writes the schedule onto the payment row.
func (l *Ledger) SaveInstallments(ctx context.Context, id int64, schedule installment.Schedule) error {
	if err := l.repo.SaveInstallments(ctx, id, schedule); err != nil {
		return fmt.Errorf("save installments for payment %d: %w", id, err)
	}
	l.logger.Debug("installment schedule persisted", "payment_id", id, "installments", len(schedule))
	return nil
}

// RevertToPending is used only when a confirmation has to be compensated.
func (l *Ledger) RevertToPending(ctx context.Context, id int64) error {
	reverted, err := l.repo.RevertToPending(ctx, id)
	if err != nil {
		return fmt.Errorf("revert payment %d to pending: %w", id, err)
	}
	if !reverted {
		l.logger.Warn("payment was not paid, nothing to revert", "payment_id", id)
		return nil
	}
	l.logger.Warn("payment reverted to pending", "payment_id", id)
	return nil
}

// OtherPaidFor reports whether the entity holds a paid payment besides id.
func (l *Ledger) OtherPaidFor(ctx context.Context, entityID, id int64) (bool, error) {
	n, err := l.repo.CountPaidForEntity(ctx, entityID, id)
	if err != nil {
		return false, fmt.Errorf("count paid payments of entity %d: %w", entityID, err)
	}
	return n > 0, nil
}
