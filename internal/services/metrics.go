package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the booking and payment flow.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	bookingsCreated        prometheus.Counter
	attemptsStarted        *prometheus.CounterVec
	attemptOutcomes        *prometheus.CounterVec
	reconciliationFailures *prometheus.CounterVec
	webhookEvents          *prometheus.CounterVec
	activeAttempts         prometheus.Gauge
}

// MustNewMetrics registers the collectors with reg (the default registerer when nil).
// Collectors already registered under the same name are reused.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		bookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "event_booking",
			Subsystem: "bookings",
			Name:      "created_total",
			Help:      "Bookings created.",
		}),
		attemptsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_booking",
			Subsystem: "payments",
			Name:      "attempts_started_total",
			Help:      "Payment attempts that opened a gateway checkout.",
		}, []string{"stage"}),
		attemptOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_booking",
			Subsystem: "payments",
			Name:      "attempt_outcomes_total",
			Help:      "Terminal outcomes of payment attempts.",
		}, []string{"stage", "outcome"}),
		reconciliationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_booking",
			Subsystem: "payments",
			Name:      "reconciliation_failures_total",
			Help:      "Gateway successes that could not be recorded locally.",
		}, []string{"stage"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "event_booking",
			Subsystem: "payments",
			Name:      "webhook_events_total",
			Help:      "Gateway webhook deliveries by event and result.",
		}, []string{"event", "result"}),
		activeAttempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "event_booking",
			Subsystem: "payments",
			Name:      "active_attempts",
			Help:      "Payment attempts currently held by the coordinator.",
		}),
	}

	m.bookingsCreated = mustRegister(reg, m.bookingsCreated)
	m.attemptsStarted = mustRegister(reg, m.attemptsStarted)
	m.attemptOutcomes = mustRegister(reg, m.attemptOutcomes)
	m.reconciliationFailures = mustRegister(reg, m.reconciliationFailures)
	m.webhookEvents = mustRegister(reg, m.webhookEvents)
	m.activeAttempts = mustRegister(reg, m.activeAttempts)

	return m
}

func mustRegister[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) BookingCreated() {
	if m == nil {
		return
	}
	m.bookingsCreated.Inc()
}

func (m *Metrics) AttemptStarted(stage string) {
	if m == nil {
		return
	}
	m.attemptsStarted.WithLabelValues(stage).Inc()
}

// AttemptOutcome records a terminal attempt state (settled, failed, cancelled)
func (m *Metrics) AttemptOutcome(stage, outcome string) {
	if m == nil {
		return
	}
	m.attemptOutcomes.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) ReconciliationFailed(stage string) {
	if m == nil {
		return
	}
	m.reconciliationFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) WebhookEvent(event, result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(event, result).Inc()
}

// SetActiveAttempts reports the number of attempts held in memory
func (m *Metrics) SetActiveAttempts(n int) {
	if m == nil {
		return
	}
	m.activeAttempts.Set(float64(n))
}
