package notification_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/frahmantamala/subscription-billing/internal"
	notificationDatamodel "github.com/frahmantamala/subscription-billing/internal/core/datamodel/notification"
	"github.com/frahmantamala/subscription-billing/internal/installment"
	"github.com/frahmantamala/subscription-billing/internal/notification"
	"github.com/frahmantamala/subscription-billing/internal/testdb"
)

func TestNotification(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Notification Suite")
}

type recordingSender struct {
	mu       sync.Mutex
	messages []notification.Message
	failOn   map[int]error
	calls    int
	release  chan struct{}
}

func (s *recordingSender) Send(ctx context.Context, msg notification.Message) error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err, ok := s.failOn[s.calls]; ok {
		return err
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *recordingSender) delivered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func threeInstallments() installment.Schedule {
	schedule, err := installment.Compute(decimal.RequireFromString("500.00"), 3, time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC))
	Expect(err).NotTo(HaveOccurred())
	return schedule
}

var _ = Describe("Emitter", func() {
	var (
		ctx    context.Context
		logger *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	})

	Context("in development", func() {
		var (
			db    *gorm.DB
			store *notification.Store
		)

		BeforeEach(func() {
			var err error
			db, err = testdb.Open()
			Expect(err).NotTo(HaveOccurred())
			store = notification.NewStore(db)
		})

		It("stores one reminder per future installment", func() {
			// Given
			emitter := notification.NewEmitter(store, nil, notification.EmissionPolicy{Environment: internal.EnvironmentDevelopment}, logger)

			// When
			n, err := emitter.EmitInstallmentReminders(ctx, notification.Reminder{PaymentID: 7, EntityID: 3, Schedule: threeInstallments()})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			stored, err := store.ListForEntity(ctx, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).To(HaveLen(2))
			Expect(stored[0].Kind).To(Equal(notificationDatamodel.KindInstallmentDue))
			Expect(stored[0].Priority).To(Equal(notificationDatamodel.PriorityHigh))
			Expect(stored[0].Title).To(Equal("Installment 2/3 due on 10/02/2024"))
			Expect(stored[0].Body).To(ContainSubstring("R$ 166.67"))
			Expect(stored[0].Context["installment_number"]).To(BeNumerically("==", 2))
			Expect(stored[0].Context["due_date"]).To(Equal("2024-02-10"))
			Expect(stored[1].Title).To(Equal("Installment 3/3 due on 10/03/2024"))
			Expect(stored[1].Context["amount"]).To(Equal("166.66"))
		})

		It("emits nothing for a single installment", func() {
			// Given
			emitter := notification.NewEmitter(store, nil, notification.EmissionPolicy{Environment: internal.EnvironmentDevelopment}, logger)
			schedule, err := installment.Compute(decimal.RequireFromString("100.00"), 1, time.Now())
			Expect(err).NotTo(HaveOccurred())

			// When
			n, err := emitter.EmitInstallmentReminders(ctx, notification.Reminder{PaymentID: 1, EntityID: 3, Schedule: schedule})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(0))
		})
	})

	Context("when the policy skips immediate emission", func() {
		It("sends nothing", func() {
			// Given
			sender := &recordingSender{}
			emitter := notification.NewEmitter(sender, nil, notification.EmissionPolicy{SkipImmediateEmission: true}, logger)

			// When
			n, err := emitter.EmitInstallmentReminders(ctx, notification.Reminder{PaymentID: 1, EntityID: 3, Schedule: threeInstallments()})

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(0))
			Expect(sender.delivered()).To(Equal(0))
		})
	})

	Context("when one delivery fails", func() {
		It("keeps emitting the rest and reports the failure", func() {
			// Given
			sender := &recordingSender{failOn: map[int]error{1: errors.New("smtp down")}}
			emitter := notification.NewEmitter(sender, nil, notification.EmissionPolicy{Environment: internal.EnvironmentDevelopment}, logger)

			// When
			n, err := emitter.EmitInstallmentReminders(ctx, notification.Reminder{PaymentID: 1, EntityID: 3, Schedule: threeInstallments()})

			// Then
			Expect(n).To(Equal(1))
			Expect(err).To(MatchError(ContainSubstring("installment 2: smtp down")))
			Expect(sender.delivered()).To(Equal(1))
		})
	})

	Context("in production", func() {
		It("hands reminders to the dispatcher", func() {
			// Given
			sender := &recordingSender{}
			dispatcher := notification.NewDispatcher(sender, notification.DispatcherConfig{MaxWorkers: 2, QueueSize: 10}, logger)
			emitter := notification.NewEmitter(sender, dispatcher, notification.EmissionPolicy{Environment: internal.EnvironmentProduction}, logger)

			// When
			n, err := emitter.EmitInstallmentReminders(ctx, notification.Reminder{PaymentID: 1, EntityID: 3, Schedule: threeInstallments()})
			dispatcher.Shutdown()

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))
			Expect(sender.delivered()).To(Equal(2))
		})
	})
})

var _ = Describe("Dispatcher", func() {
	var logger *slog.Logger

	BeforeEach(func() {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	})

	It("delivers queued messages before shutting down", func() {
		// Given
		sender := &recordingSender{}
		dispatcher := notification.NewDispatcher(sender, notification.DispatcherConfig{MaxWorkers: 3, QueueSize: 50}, logger)

		// When
		for i := 0; i < 20; i++ {
			Expect(dispatcher.Enqueue(notification.Message{RecipientEntityID: int64(i)})).To(Succeed())
		}
		dispatcher.Shutdown()

		// Then
		Expect(sender.delivered()).To(Equal(20))
	})

	It("rejects messages when the queue is full", func() {
		// Given
		sender := &recordingSender{release: make(chan struct{})}
		dispatcher := notification.NewDispatcher(sender, notification.DispatcherConfig{MaxWorkers: 1, QueueSize: 1}, logger)

		// When
		accepted := 0
		var lastErr error
		for i := 0; i < 10; i++ {
			if err := dispatcher.Enqueue(notification.Message{RecipientEntityID: int64(i)}); err != nil {
				lastErr = err
				continue
			}
			accepted++
		}
		close(sender.release)
		dispatcher.Shutdown()

		// Then
		Expect(lastErr).To(MatchError(notification.ErrQueueFull))
		Expect(accepted).To(BeNumerically("<=", 3))
		Expect(sender.delivered()).To(Equal(accepted))
	})

	It("rejects messages after shutdown", func() {
		// Given
		dispatcher := notification.NewDispatcher(&recordingSender{}, notification.DispatcherConfig{}, logger)
		dispatcher.Shutdown()

		// When
		err := dispatcher.Enqueue(notification.Message{RecipientEntityID: 1})

		// Then
		Expect(err).To(MatchError(notification.ErrDispatcherClosed))
	})
})
