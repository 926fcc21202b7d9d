package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/subscription-billing/internal/clock"
	contractDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/contract"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*contractDatamodel.Contract, error)
	// Accept sets the accepted flag only on a contract that is not accepted yet.
	Accept(ctx context.Context, acceptance Acceptance) (bool, error)
	RevertAcceptance(ctx context.Context, id int64) error
	RevertAcceptanceForEntity(ctx context.Context, entityID int64) error
	ResetNegotiation(ctx context.Context, entityID int64) error
}

// Acceptor accepts contracts on behalf of the system once a payment clears.
type Acceptor struct {
	repo   RepositoryAPI
	clock  clock.Clock
	logger *slog.Logger
}

func NewAcceptor(repo RepositoryAPI, clk clock.Clock, logger *slog.Logger) *Acceptor {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Acceptor{
		repo:   repo,
		clock:  clk,
		logger: logger,
	}
}

func (a *Acceptor) AcceptIfNeeded(ctx context.Context, contractID int64, actor Actor) (Outcome, error) {
	c, err := a.repo.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			a.logger.Warn("contract not found for auto acceptance", "contract_id", contractID)
			return OutcomeNotFound, nil
		}
		return "", fmt.Errorf("load contract %d: %w", contractID, err)
	}

	if c.Accepted {
		a.logger.Info("contract already accepted", "contract_id", contractID)
		return OutcomeAlreadyAccepted, nil
	}

	accepted, err := a.repo.Accept(ctx, Acceptance{
		ContractID: contractID,
		Actor:      actor,
		AcceptedAt: a.clock.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("accept contract %d: %w", contractID, err)
	}
	if !accepted {
		// accepted concurrently between the read and the update
		return OutcomeAlreadyAccepted, nil
	}

	a.logger.Info("contract accepted automatically after payment",
		"contract_id", contractID,
		"actor_id", actor.ID)
	return OutcomeAccepted, nil
}

// RevertForPayment undoes acceptance for the contract tied to a payment, or
// for every contract of the entity when the payment carries none.
func (a *Acceptor) RevertForPayment(ctx context.Context, contractID *int64, entityID int64) error {
	if contractID != nil {
		if err := a.repo.RevertAcceptance(ctx, *contractID); err != nil {
			return fmt.Errorf("revert contract %d: %w", *contractID, err)
		}
		return nil
	}
	if err := a.repo.RevertAcceptanceForEntity(ctx, entityID); err != nil {
		return fmt.Errorf("revert contracts of entity %d: %w", entityID, err)
	}
	return nil
}

// ResetNegotiation sends a custom negotiation back to the admin for pricing.
func (a *Acceptor) ResetNegotiation(ctx context.Context, entityID int64) error {
	if err := a.repo.ResetNegotiation(ctx, entityID); err != nil {
		return fmt.Errorf("reset negotiation of entity %d: %w", entityID, err)
	}
	return nil
}
