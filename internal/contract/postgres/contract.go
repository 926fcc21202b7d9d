package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	contractpkg "github.com/frahmantamala/subscription-billing/internal/contract"
	"github.com/frahmantamala/subscription-billing/internal/core/datamodel/contract"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) contractpkg.RepositoryAPI {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) GetByID(ctx context.Context, id int64) (*contract.Contract, error) {
	var c contract.Contract
	err := r.db.WithContext(ctx).First(&c, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contractpkg.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContractRepository) Accept(ctx context.Context, a contractpkg.Acceptance) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&contract.Contract{}).
		Where("id = ? AND accepted = ?", a.ContractID, false).
		Updates(map[string]interface{}{
			"accepted":    true,
			"accepted_by": a.Actor.ID,
			"accepted_ip": a.Actor.IP,
			"accepted_at": a.AcceptedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *ContractRepository) RevertAcceptance(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&contract.Contract{}).
		Where("id = ?", id).
		Updates(revertedAcceptance()).Error
}

func (r *ContractRepository) RevertAcceptanceForEntity(ctx context.Context, entityID int64) error {
	return r.db.WithContext(ctx).
		Model(&contract.Contract{}).
		Where("entity_id = ?", entityID).
		Updates(revertedAcceptance()).Error
}

func (r *ContractRepository) ResetNegotiation(ctx context.Context, entityID int64) error {
	return r.db.WithContext(ctx).
		Model(&contract.Negotiation{}).
		Where("entity_id = ?", entityID).
		Updates(map[string]interface{}{
			"status":                  contract.NegotiationAwaitingAdminValue,
			"value_per_employee":      nil,
			"estimated_total":         nil,
			"estimated_employees":     nil,
			"payment_link_token":      nil,
			"payment_link_expires_at": nil,
		}).Error
}

func revertedAcceptance() map[string]interface{} {
	return map[string]interface{}{
		"status":      contract.StatusPending,
		"accepted":    false,
		"accepted_by": nil,
		"accepted_ip": nil,
		"accepted_at": nil,
	}
}
