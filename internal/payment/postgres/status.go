package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	paymentpkg "github.com/frahmantamala/subscription-billing/internal/payment"
)

const statusQuery = `
SELECT p.id AS payment_id,
       p.status,
       p.amount,
       p.payment_method,
       p.installment_count,
       p.paid_at,
       e.id AS entity_id,
       e.name AS entity_name,
       e.payment_confirmed,
       e.active AS entity_active
FROM payments p
JOIN contracting_entities e ON e.id = p.entity_id
WHERE p.id = ?`

// StatusReader reads payment status straight from the shared connection
// pool, joined with the paying entity.
type StatusReader struct {
	db *sqlx.DB
}

func NewStatusReader(db *sqlx.DB) *StatusReader {
	return &StatusReader{db: db}
}

func (r *StatusReader) Get(ctx context.Context, id int64) (*paymentpkg.Status, error) {
	var s paymentpkg.Status
	err := r.db.GetContext(ctx, &s, r.db.Rebind(statusQuery), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, paymentpkg.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
