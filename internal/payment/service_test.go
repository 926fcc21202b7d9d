package payment_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/subscription-billing/internal/clock"
	paymentDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/payment"
	"github.com/frahmantamala/subscription-billing/internal/installment"
	paymentPkg "github.com/frahmantamala/subscription-billing/internal/payment"
)

func TestPayment(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Payment Suite")
}

// Mock repository for testing
type mockPaymentRepository struct {
	payments     map[int64]*paymentDatamodel.Payment
	confirmCalls []paymentPkg.ConfirmUpdate
	confirmError error
	getError     error
	saveError    error
	revertError  error
}

func newMockPaymentRepository() *mockPaymentRepository {
	return &mockPaymentRepository{
		payments: make(map[int64]*paymentDatamodel.Payment),
	}
}

func (m *mockPaymentRepository) GetByID(_ context.Context, id int64) (*paymentDatamodel.Payment, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	p, ok := m.payments[id]
	if !ok {
		return nil, paymentPkg.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockPaymentRepository) ConfirmPending(_ context.Context, u paymentPkg.ConfirmUpdate) (bool, error) {
	m.confirmCalls = append(m.confirmCalls, u)
	if m.confirmError != nil {
		return false, m.confirmError
	}
	p, ok := m.payments[u.PaymentID]
	if !ok || p.Status == paymentDatamodel.StatusPaid || p.Status == paymentDatamodel.StatusCancelled {
		return false, nil
	}
	p.Status = paymentDatamodel.StatusPaid
	p.Method = &u.Method
	p.InstallmentCount = u.InstallmentCount
	paidAt := u.PaidAt
	p.PaidAt = &paidAt
	if u.IdempotencyKey != nil {
		p.IdempotencyKey = u.IdempotencyKey
	}
	return true, nil
}

func (m *mockPaymentRepository) SaveInstallments(_ context.Context, id int64, schedule installment.Schedule) error {
	if m.saveError != nil {
		return m.saveError
	}
	m.payments[id].Installments = []installment.Installment(schedule)
	return nil
}

func (m *mockPaymentRepository) RevertToPending(_ context.Context, id int64) (bool, error) {
	if m.revertError != nil {
		return false, m.revertError
	}
	p, ok := m.payments[id]
	if !ok || p.Status != paymentDatamodel.StatusPaid {
		return false, nil
	}
	p.Status = paymentDatamodel.StatusPending
	p.PaidAt = nil
	return true, nil
}

func (m *mockPaymentRepository) CountPaidForEntity(_ context.Context, entityID, exceptID int64) (int64, error) {
	var n int64
	for id, p := range m.payments {
		if id != exceptID && p.EntityID == entityID && p.Status == paymentDatamodel.StatusPaid {
			n++
		}
	}
	return n, nil
}

var _ = Describe("Ledger", func() {
	var (
		ledger   *paymentPkg.Ledger
		mockRepo *mockPaymentRepository
		fakeNow  time.Time
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		mockRepo = newMockPaymentRepository()
		fakeNow = time.Date(2024, time.January, 10, 14, 30, 0, 0, time.UTC)
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		ledger = paymentPkg.NewLedger(mockRepo, clock.NewFakeClock(fakeNow), logger)

		mockRepo.payments[1] = &paymentDatamodel.Payment{
			ID:       1,
			EntityID: 10,
			Amount:   decimal.RequireFromString("500.00"),
			Status:   paymentDatamodel.StatusPending,
		}
	})

	Describe("Confirm", func() {
		Context("when the payment is pending", func() {
			It("should mark it paid with the clock time", func() {
				// When
				snapshot, err := ledger.Confirm(ctx, paymentPkg.ConfirmParams{
					PaymentID:        1,
					Method:           paymentPkg.MethodPix,
					InstallmentCount: 3,
				})

				// Then
				Expect(err).NotTo(HaveOccurred())
				Expect(snapshot.Replayed).To(BeFalse())
				Expect(snapshot.IsPaid()).To(BeTrue())
				Expect(snapshot.EntityID).To(Equal(int64(10)))
				Expect(snapshot.Method).To(Equal(paymentPkg.MethodPix))
				Expect(snapshot.InstallmentCount).To(Equal(3))
				Expect(*snapshot.PaidAt).To(Equal(fakeNow))
			})

			It("should default the method and installment count", func() {
				_, err := ledger.Confirm(ctx, paymentPkg.ConfirmParams{PaymentID: 1})

				Expect(err).NotTo(HaveOccurred())
				Expect(mockRepo.confirmCalls).To(HaveLen(1))
				Expect(mockRepo.confirmCalls[0].Method).To(Equal(paymentPkg.MethodUpfront))
				Expect(mockRepo.confirmCalls[0].InstallmentCount).To(Equal(1))
			})
		})

		Context("when the payment is already paid", func() {
			It("should return the stored snapshot as a replay", func() {
				// Given
				_, err := ledger.Confirm(ctx, paymentPkg.ConfirmParams{PaymentID: 1, InstallmentCount: 2})
				Expect(err).NotTo(HaveOccurred())

				// When
				snapshot, err := ledger.Confirm(ctx, paymentPkg.ConfirmParams{PaymentID: 1, InstallmentCount: 6})

				// Then
				Expect(err).NotTo(HaveOccurred())
				Expect(snapshot.Replayed).To(BeTrue())
				Expect(snapshot.InstallmentCount).To(Equal(2))
			})
		})

		Context("when the payment is cancelled", func() {
			It("should return ErrCancelled", func() {
				mockRepo.payments[1].Status = paymentDatamodel.StatusCancelled

				snapshot, err := ledger.Confirm(ctx, paymentPkg.ConfirmParams{PaymentID: 1})

				Expect(errors.Is(err, paymentPkg.ErrCancelled)).To(BeTrue())
				Expect(snapshot).To(BeNil())
			})
		})

		Context("when the payment does not exist", func() {
			It("should return ErrNotFound", func() {
				_, err := ledger.Confirm(ctx, paymentPkg.ConfirmParams{PaymentID: 99})

				Expect(errors.Is(err, paymentPkg.ErrNotFound)).To(BeTrue())
			})
		})

		Context("when storage fails", func() {
			It("should wrap the error and not read the row", func() {
				mockRepo.confirmError = errors.New("connection reset")

				_, err := ledger.Confirm(ctx, paymentPkg.ConfirmParams{PaymentID: 1})

				Expect(err).To(MatchError(ContainSubstring("connection reset")))
				Expect(errors.Is(err, paymentPkg.ErrNotFound)).To(BeFalse())
			})
		})
	})

	Describe("RevertToPending", func() {
		It("should move a paid payment back to pending", func() {
			_, err := ledger.Confirm(ctx, paymentPkg.ConfirmParams{PaymentID: 1})
			Expect(err).NotTo(HaveOccurred())

			Expect(ledger.RevertToPending(ctx, 1)).To(Succeed())

			Expect(mockRepo.payments[1].Status).To(Equal(paymentDatamodel.StatusPending))
			Expect(mockRepo.payments[1].PaidAt).To(BeNil())
		})

		It("should not fail when the payment is not paid", func() {
			Expect(ledger.RevertToPending(ctx, 1)).To(Succeed())
			Expect(mockRepo.payments[1].Status).To(Equal(paymentDatamodel.StatusPending))
		})
	})

	Describe("OtherPaidFor", func() {
		It("should ignore the payment being compensated", func() {
			// Given
			_, err := ledger.Confirm(ctx, paymentPkg.ConfirmParams{PaymentID: 1})
			Expect(err).NotTo(HaveOccurred())

			// When
			other, err := ledger.OtherPaidFor(ctx, 10, 1)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(other).To(BeFalse())
		})

		It("should see an earlier paid payment of the same entity", func() {
			// Given
			mockRepo.payments[2] = &paymentDatamodel.Payment{ID: 2, EntityID: 10, Status: paymentDatamodel.StatusPaid}
			mockRepo.payments[3] = &paymentDatamodel.Payment{ID: 3, EntityID: 11, Status: paymentDatamodel.StatusPaid}

			// When
			other, err := ledger.OtherPaidFor(ctx, 10, 1)

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(other).To(BeTrue())
		})
	})
})
