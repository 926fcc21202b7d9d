package postgres

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/frahmantamala/subscription-billing/internal/core/datamodel/payment"
	"github.com/frahmantamala/subscription-billing/internal/installment"
	paymentpkg "github.com/frahmantamala/subscription-billing/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, paymentpkg.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ConfirmPending(ctx context.Context, u paymentpkg.ConfirmUpdate) (bool, error) {
	updates := map[string]interface{}{
		"status":            payment.StatusPaid,
		"payment_method":    u.Method,
		"installment_count": u.InstallmentCount,
		"paid_at":           u.PaidAt,
	}

	// optional references only overwrite when supplied
	if u.IdempotencyKey != nil {
		updates["idempotency_key"] = *u.IdempotencyKey
	}
	if u.ExternalTransactionID != nil {
		updates["external_transaction_id"] = *u.ExternalTransactionID
	}
	if u.PlatformID != nil {
		updates["platform_id"] = *u.PlatformID
	}
	if u.PlatformName != nil {
		updates["platform_name"] = *u.PlatformName
	}

	result := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("id = ? AND status NOT IN ?", u.PaymentID, []string{payment.StatusPaid, payment.StatusCancelled}).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *PaymentRepository) SaveInstallments(ctx context.Context, id int64, schedule installment.Schedule) error {
	return r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("id = ?", id).
		Update("installments", datatypes.NewJSONSlice([]installment.Installment(schedule))).Error
}

func (r *PaymentRepository) RevertToPending(ctx context.Context, id int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("id = ? AND status = ?", id, payment.StatusPaid).
		Updates(map[string]interface{}{
			"status":  payment.StatusPending,
			"paid_at": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *PaymentRepository) CountPaidForEntity(ctx context.Context, entityID, exceptID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("entity_id = ? AND id <> ? AND status = ?", entityID, exceptID, payment.StatusPaid).
		Count(&n).Error
	return n, err
}
