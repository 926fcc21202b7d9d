package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	userDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/user"
)

type RepositoryAPI interface {
	// Create inserts the user and returns ErrCredentialExists when the login is taken.
	Create(ctx context.Context, u *userDatamodel.User) error
	GetByLogin(ctx context.Context, login string) (*userDatamodel.User, error)
}

// Provisioner creates the first login of a contracting entity.
type Provisioner struct {
	repo           RepositoryAPI
	bcryptCost     int
	passwordDigits int
	logger         *slog.Logger
}

func NewProvisioner(repo RepositoryAPI, bcryptCost, passwordDigits int, logger *slog.Logger) *Provisioner {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if passwordDigits == 0 {
		passwordDigits = 6
	}
	return &Provisioner{
		repo:           repo,
		bcryptCost:     bcryptCost,
		passwordDigits: passwordDigits,
		logger:         logger,
	}
}

// Provision creates the login if it does not exist. created is false when a
// login for the same person was already there.
func (p *Provisioner) Provision(ctx context.Context, r Responsible) (created bool, err error) {
	login := r.LoginID()
	if login == "" {
		return false, fmt.Errorf("%w: no person id or registration number for entity %d", ErrInvalidResponsible, r.EntityID)
	}

	role, err := RoleFor(r.EntityType)
	if err != nil {
		return false, err
	}

	secret, err := r.InitialSecret(p.passwordDigits)
	if err != nil {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), p.bcryptCost)
	if err != nil {
		return false, fmt.Errorf("hash initial password: %w", err)
	}

	err = p.repo.Create(ctx, &userDatamodel.User{
		Login:        login,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: string(hash),
		Role:         role,
		EntityID:     r.EntityID,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, ErrCredentialExists) {
			p.logger.Info("login already exists, skipping creation", "entity_id", r.EntityID, "role", role)
			return false, nil
		}
		return false, fmt.Errorf("create login for entity %d: %w", r.EntityID, err)
	}

	p.logger.Info("login created for responsible party", "entity_id", r.EntityID, "role", role)
	return true, nil
}

func (p *Provisioner) GetByLogin(ctx context.Context, login string) (*User, error) {
	u, err := p.repo.GetByLogin(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by login: %w", err)
	}
	return FromDataModel(u), nil
}
