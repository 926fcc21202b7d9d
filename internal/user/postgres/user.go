package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/frahmantamala/subscription-billing/internal/core/datamodel/user"
	userpkg "github.com/frahmantamala/subscription-billing/internal/user"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) userpkg.RepositoryAPI {
	return &UserRepository{db: db}
}

// Create relies on the unique index on login; the gorm session must have
// TranslateError enabled so the violation surfaces as gorm.ErrDuplicatedKey.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return userpkg.ErrCredentialExists
	}
	return err
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*user.User, error) {
	var u user.User
	err := r.db.WithContext(ctx).Where("login = ?", login).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, userpkg.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
