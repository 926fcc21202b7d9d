// Package testdb opens throwaway sqlite databases with the billing schema for tests.
package testdb

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/subscription-billing/internal/core/datamodel/audit"
	"github.com/frahmantamala/subscription-billing/internal/core/datamodel/contract"
	"github.com/frahmantamala/subscription-billing/internal/core/datamodel/entity"
	"github.com/frahmantamala/subscription-billing/internal/core/datamodel/notification"
	"github.com/frahmantamala/subscription-billing/internal/core/datamodel/payment"
	"github.com/frahmantamala/subscription-billing/internal/core/datamodel/user"
)

// Open returns an in-memory database limited to one connection, since every
// sqlite :memory: connection is its own database.
func Open() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&payment.Payment{},
		&contract.Contract{},
		&contract.Negotiation{},
		&entity.ContractingEntity{},
		&user.User{},
		&notification.Notification{},
		&audit.Log{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
