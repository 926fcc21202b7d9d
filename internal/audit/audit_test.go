package audit_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/subscription-billing/internal/audit"
	"github.com/frahmantamala/subscription-billing/internal/core/events"
	"github.com/frahmantamala/subscription-billing/internal/testdb"
)

func TestAudit(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Audit Suite")
}

var _ = Describe("Recorder", func() {
	var (
		ctx      context.Context
		bus      *events.EventBus
		recorder *audit.Recorder
		at       time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, err := testdb.Open()
		Expect(err).NotTo(HaveOccurred())

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		bus = events.NewEventBus(logger)
		recorder = audit.NewRecorder(db, "00000000000", "127.0.0.1", logger)
		recorder.Subscribe(bus)
		at = time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)
	})

	Context("when billing events are published", func() {
		It("records one entry per event against its resource", func() {
			// When
			Expect(bus.PublishSync(ctx, events.NewPaymentConfirmedEvent(5, 9, "pix", 3, false, at))).To(Succeed())
			Expect(bus.PublishSync(ctx, events.NewPaymentCompensatedEvent(5, 9, "disk full", "", at.Add(time.Second)))).To(Succeed())
			Expect(bus.PublishSync(ctx, events.NewEntityActivatedEvent(9, 5, true, at))).To(Succeed())

			// Then
			paymentTrail, err := recorder.List(ctx, audit.ResourcePayment, "5")
			Expect(err).NotTo(HaveOccurred())
			Expect(paymentTrail).To(HaveLen(2))
			Expect(paymentTrail[0].Action).To(Equal(events.EventTypePaymentConfirmed))
			Expect(paymentTrail[0].ActorID).To(Equal("00000000000"))
			Expect(paymentTrail[1].Action).To(Equal(events.EventTypePaymentCompensated))
			Expect(paymentTrail[1].Metadata).To(HaveKeyWithValue("cause", "disk full"))

			entityTrail, err := recorder.List(ctx, audit.ResourceEntity, "9")
			Expect(err).NotTo(HaveOccurred())
			Expect(entityTrail).To(HaveLen(1))
			Expect(entityTrail[0].Metadata).To(HaveKeyWithValue("login_created", true))
		})
	})

	Context("when the same event is recorded twice", func() {
		It("keeps a single entry", func() {
			// Given
			event := events.NewPaymentConfirmedEvent(6, 9, "pix", 1, false, at)

			// When
			Expect(recorder.Handle(ctx, event)).To(Succeed())
			Expect(recorder.Handle(ctx, event)).To(Succeed())

			// Then
			trail, err := recorder.List(ctx, audit.ResourcePayment, "6")
			Expect(err).NotTo(HaveOccurred())
			Expect(trail).To(HaveLen(1))
		})
	})

	Context("when the event type is not audited", func() {
		It("returns an error", func() {
			err := recorder.Handle(ctx, events.BaseEvent{ID: "x", Type: "something.else", Timestamp: at})
			Expect(err).To(MatchError(ContainSubstring("unsupported event type")))
		})
	})
})
