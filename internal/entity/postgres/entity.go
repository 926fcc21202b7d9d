package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/frahmantamala/subscription-billing/internal/core/datamodel/entity"
	entitypkg "github.com/frahmantamala/subscription-billing/internal/entity"
)

type EntityRepository struct {
	db *gorm.DB
}

func NewEntityRepository(db *gorm.DB) entitypkg.RepositoryAPI {
	return &EntityRepository{db: db}
}

func (r *EntityRepository) GetByID(ctx context.Context, id int64) (*entity.ContractingEntity, error) {
	var e entity.ContractingEntity
	err := r.db.WithContext(ctx).First(&e, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entitypkg.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *EntityRepository) MarkActive(ctx context.Context, id int64, at time.Time, approvedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&entity.ContractingEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"active":            true,
			"payment_confirmed": true,
			"status":            entity.StatusApproved,
			"approved_by":       approvedBy,
			"approved_at":       gorm.Expr("COALESCE(approved_at, ?)", at),
			"login_released_at": gorm.Expr("COALESCE(login_released_at, ?)", at),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return entitypkg.ErrNotFound
	}
	return nil
}

func (r *EntityRepository) Deactivate(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&entity.ContractingEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"active":            false,
			"payment_confirmed": false,
			"status":            entity.StatusPending,
		}).Error
}
