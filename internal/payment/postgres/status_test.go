package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/frahmantamala/subscription-billing/internal/core/datamodel/entity"
	"github.com/frahmantamala/subscription-billing/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/subscription-billing/internal/payment"
	"github.com/frahmantamala/subscription-billing/internal/testdb"
)

var _ = ginkgo.Describe("StatusReader", func() {
	var (
		db     *gorm.DB
		reader *StatusReader
		ctx    context.Context
		owner  *entity.ContractingEntity
	)

	ginkgo.BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		gomega.Expect(err).ToNot(gomega.HaveOccurred())

		sqlDB, err := db.DB()
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		reader = NewStatusReader(sqlx.NewDb(sqlDB, "sqlite3"))

		owner = &entity.ContractingEntity{
			Name:               "Acme Ltda",
			RegistrationNumber: "11222333000181",
			Active:             true,
			PaymentConfirmed:   true,
			Status:             entity.StatusApproved,
		}
		gomega.Expect(db.Create(owner).Error).ToNot(gomega.HaveOccurred())
	})

	ginkgo.It("should join the payment with its entity", func() {
		// Given
		paidAt := time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
		row := &payment.Payment{
			EntityID:         owner.ID,
			Amount:           decimal.RequireFromString("166.67"),
			Status:           payment.StatusPaid,
			Method:           strPtr(paymentpkg.MethodPix),
			InstallmentCount: 3,
			PaidAt:           &paidAt,
		}
		gomega.Expect(db.Create(row).Error).ToNot(gomega.HaveOccurred())

		// When
		status, err := reader.Get(ctx, row.ID)

		// Then
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		gomega.Expect(status.PaymentID).To(gomega.Equal(row.ID))
		gomega.Expect(status.Status).To(gomega.Equal(payment.StatusPaid))
		gomega.Expect(status.Amount.StringFixed(2)).To(gomega.Equal("166.67"))
		gomega.Expect(*status.Method).To(gomega.Equal(paymentpkg.MethodPix))
		gomega.Expect(status.InstallmentCount).To(gomega.Equal(3))
		gomega.Expect(status.PaidAt).ToNot(gomega.BeNil())
		gomega.Expect(status.PaidAt.Equal(paidAt)).To(gomega.BeTrue())
		gomega.Expect(status.EntityName).To(gomega.Equal("Acme Ltda"))
		gomega.Expect(status.PaymentConfirmed).To(gomega.BeTrue())
		gomega.Expect(status.EntityActive).To(gomega.BeTrue())
	})

	ginkgo.It("should return ErrNotFound for a missing payment", func() {
		status, err := reader.Get(ctx, 404)

		gomega.Expect(errors.Is(err, paymentpkg.ErrNotFound)).To(gomega.BeTrue())
		gomega.Expect(status).To(gomega.BeNil())
	})
})
