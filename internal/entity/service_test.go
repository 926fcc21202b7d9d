package entity_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/frahmantamala/subscription-billing/internal/clock"
	entityDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/entity"
	userDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/user"
	"github.com/frahmantamala/subscription-billing/internal/entity"
	entityPostgres "github.com/frahmantamala/subscription-billing/internal/entity/postgres"
	"github.com/frahmantamala/subscription-billing/internal/testdb"
	"github.com/frahmantamala/subscription-billing/internal/user"
	userPostgres "github.com/frahmantamala/subscription-billing/internal/user/postgres"
)

func TestEntity(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Entity Suite")
}

type brokenProvisioner struct{}

func (brokenProvisioner) Provision(ctx context.Context, r user.Responsible) (bool, error) {
	return false, errors.New("user store unavailable")
}

func strPtr(s string) *string { return &s }

var _ = Describe("Activator", func() {
	var (
		db        *gorm.DB
		ctx       context.Context
		logger    *slog.Logger
		now       time.Time
		activator *entity.Activator
		clinic    *entityDatamodel.ContractingEntity
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		now = time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)

		provisioner := user.NewProvisioner(userPostgres.NewUserRepository(db), bcrypt.MinCost, 6, logger)
		activator = entity.NewActivator(entityPostgres.NewEntityRepository(db), provisioner, clock.NewFakeClock(now), "00000000000", logger)

		clinic = &entityDatamodel.ContractingEntity{
			Type:                entityDatamodel.TypeClinic,
			Name:                "Clinica Vida",
			RegistrationNumber:  "12.345.678/0001-90",
			Status:              entityDatamodel.StatusAwaitingPayment,
			ResponsiblePersonID: strPtr("123.456.789-01"),
			ResponsibleName:     "Ana Souza",
			ResponsibleEmail:    "ana@example.com",
		}
		Expect(db.Create(clinic).Error).NotTo(HaveOccurred())
	})

	Describe("Activate", func() {
		Context("when the entity exists and has no login", func() {
			It("activates the entity and creates the login", func() {
				// When
				result, err := activator.Activate(ctx, clinic.ID)

				// Then
				Expect(err).NotTo(HaveOccurred())
				Expect(result.EntityActivated).To(BeTrue())
				Expect(result.LoginCreated).To(BeTrue())
				Expect(result.LoginAvailable).To(BeTrue())
				Expect(result.LoginErr).To(BeNil())

				var stored entityDatamodel.ContractingEntity
				Expect(db.First(&stored, clinic.ID).Error).NotTo(HaveOccurred())
				Expect(stored.Active).To(BeTrue())
				Expect(stored.PaymentConfirmed).To(BeTrue())
				Expect(stored.Status).To(Equal(entityDatamodel.StatusApproved))
				Expect(stored.ApprovedAt).NotTo(BeNil())
				Expect(stored.ApprovedAt.Equal(now)).To(BeTrue())
				Expect(stored.LoginReleasedAt).NotTo(BeNil())

				var login userDatamodel.User
				Expect(db.Where("login = ?", "12345678901").First(&login).Error).NotTo(HaveOccurred())
				Expect(login.Role).To(Equal(userDatamodel.RoleHR))
				Expect(login.EntityID).To(Equal(clinic.ID))
				Expect(bcrypt.CompareHashAndPassword([]byte(login.PasswordHash), []byte("000190"))).To(Succeed())
			})
		})

		Context("when activation runs twice", func() {
			It("keeps the first approval time and reports the login as existing", func() {
				// Given
				_, err := activator.Activate(ctx, clinic.ID)
				Expect(err).NotTo(HaveOccurred())

				later := entity.NewActivator(
					entityPostgres.NewEntityRepository(db),
					user.NewProvisioner(userPostgres.NewUserRepository(db), bcrypt.MinCost, 6, logger),
					clock.NewFakeClock(now.Add(time.Hour)),
					"00000000000",
					logger,
				)

				// When
				result, err := later.Activate(ctx, clinic.ID)

				// Then
				Expect(err).NotTo(HaveOccurred())
				Expect(result.LoginCreated).To(BeFalse())
				Expect(result.LoginAvailable).To(BeTrue())

				var stored entityDatamodel.ContractingEntity
				Expect(db.First(&stored, clinic.ID).Error).NotTo(HaveOccurred())
				Expect(stored.ApprovedAt.Equal(now)).To(BeTrue())

				var count int64
				Expect(db.Model(&userDatamodel.User{}).Count(&count).Error).NotTo(HaveOccurred())
				Expect(count).To(Equal(int64(1)))
			})
		})

		Context("when login provisioning fails", func() {
			It("keeps the entity active and reports the login error", func() {
				// Given
				broken := entity.NewActivator(entityPostgres.NewEntityRepository(db), brokenProvisioner{}, clock.NewFakeClock(now), "00000000000", logger)

				// When
				result, err := broken.Activate(ctx, clinic.ID)

				// Then
				Expect(err).NotTo(HaveOccurred())
				Expect(result.EntityActivated).To(BeTrue())
				Expect(result.LoginAvailable).To(BeFalse())
				Expect(result.LoginErr).To(MatchError("user store unavailable"))

				var stored entityDatamodel.ContractingEntity
				Expect(db.First(&stored, clinic.ID).Error).NotTo(HaveOccurred())
				Expect(stored.Active).To(BeTrue())
			})
		})

		Context("when the entity does not exist", func() {
			It("returns ErrNotFound", func() {
				// When
				result, err := activator.Activate(ctx, 9999)

				// Then
				Expect(err).To(MatchError(entity.ErrNotFound))
				Expect(result.EntityActivated).To(BeFalse())
			})
		})
	})

	Describe("Deactivate", func() {
		It("clears the activation flags", func() {
			// Given
			_, err := activator.Activate(ctx, clinic.ID)
			Expect(err).NotTo(HaveOccurred())

			// When
			err = activator.Deactivate(ctx, clinic.ID)

			// Then
			Expect(err).NotTo(HaveOccurred())
			var stored entityDatamodel.ContractingEntity
			Expect(db.First(&stored, clinic.ID).Error).NotTo(HaveOccurred())
			Expect(stored.Active).To(BeFalse())
			Expect(stored.PaymentConfirmed).To(BeFalse())
			Expect(stored.Status).To(Equal(entityDatamodel.StatusPending))
		})
	})
})
