package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	CompensationReverted = "reverted"
	CompensationFailed   = "failed"
)

// ConfirmationMetrics tracks outcomes of the payment confirmation flow.
type ConfirmationMetrics struct {
	confirmations *prometheus.CounterVec
	softFailures  *prometheus.CounterVec
	compensations *prometheus.CounterVec
	duration      *prometheus.HistogramVec
}

// NewConfirmationMetrics registers the collectors on registerer, falling
// back to the default registerer when nil.
func NewConfirmationMetrics(registerer prometheus.Registerer) *ConfirmationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &ConfirmationMetrics{
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "confirmations_total",
			Help:      "Payment confirmation attempts by outcome.",
		}, []string{"outcome"}),
		softFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "soft_step_failures_total",
			Help:      "Best-effort confirmation steps that failed without aborting the confirmation.",
		}, []string{"step"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "compensations_total",
			Help:      "Compensation runs after a failed confirmation, by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "billing",
			Name:      "confirmation_duration_seconds",
			Help:      "Time spent confirming a payment, by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}

	registerer.MustRegister(m.confirmations, m.softFailures, m.compensations, m.duration)
	return m
}

func (m *ConfirmationMetrics) ObserveConfirmation(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *ConfirmationMetrics) IncSoftFailure(step string) {
	if m == nil {
		return
	}
	m.softFailures.WithLabelValues(step).Inc()
}

func (m *ConfirmationMetrics) IncCompensation(result string) {
	if m == nil {
		return
	}
	m.compensations.WithLabelValues(result).Inc()
}
