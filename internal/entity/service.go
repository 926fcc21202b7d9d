package entity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/subscription-billing/internal/clock"
	entityDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/entity"
	"github.com/frahmantamala/subscription-billing/internal/user"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id int64) (*entityDatamodel.ContractingEntity, error)
	// MarkActive sets the activation flags together. First approval and
	// login release timestamps are kept when already set.
	MarkActive(ctx context.Context, id int64, at time.Time, approvedBy string) error
	Deactivate(ctx context.Context, id int64) error
}

type LoginProvisioner interface {
	Provision(ctx context.Context, r user.Responsible) (bool, error)
}

type Activator struct {
	repo        RepositoryAPI
	provisioner LoginProvisioner
	clock       clock.Clock
	approvedBy  string
	logger      *slog.Logger
}

func NewActivator(repo RepositoryAPI, provisioner LoginProvisioner, clk clock.Clock, approvedBy string, logger *slog.Logger) *Activator {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Activator{
		repo:        repo,
		provisioner: provisioner,
		clock:       clk,
		approvedBy:  approvedBy,
		logger:      logger,
	}
}

func (a *Activator) Get(ctx context.Context, id int64) (*Entity, error) {
	row, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(row), nil
}

// Activate flags the entity active and then provisions the responsible
// party's login. A login failure is reported in the result, not returned,
// so the activation stands and the login can be retried later.
func (a *Activator) Activate(ctx context.Context, entityID int64) (ActivationResult, error) {
	var result ActivationResult

	row, err := a.repo.GetByID(ctx, entityID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return result, err
		}
		return result, fmt.Errorf("load entity %d: %w", entityID, err)
	}

	if err := a.repo.MarkActive(ctx, entityID, a.clock.Now(), a.approvedBy); err != nil {
		return result, fmt.Errorf("activate entity %d: %w", entityID, err)
	}
	result.EntityActivated = true

	a.logger.Info("entity activated", "entity_id", entityID, "entity_type", row.Type)

	created, err := a.provisioner.Provision(ctx, FromDataModel(row).Responsible())
	if err != nil {
		a.logger.Warn("login provisioning failed, entity stays active", "entity_id", entityID, "error", err)
		result.LoginErr = err
		return result, nil
	}

	result.LoginCreated = created
	result.LoginAvailable = true
	return result, nil
}

// Deactivate undoes Activate's flags. Used by compensation only.
func (a *Activator) Deactivate(ctx context.Context, entityID int64) error {
	if err := a.repo.Deactivate(ctx, entityID); err != nil {
		return fmt.Errorf("deactivate entity %d: %w", entityID, err)
	}
	a.logger.Warn("entity deactivated", "entity_id", entityID)
	return nil
}
