package services

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNewMetrics(reg)
	second := MustNewMetrics(reg)

	first.BookingCreated()
	second.BookingCreated()

	assert.Equal(t, float64(2), testutil.ToFloat64(first.bookingsCreated))
}

func TestMetrics_Record(t *testing.T) {
	m := MustNewMetrics(prometheus.NewRegistry())

	m.AttemptStarted("initial")
	m.AttemptOutcome("initial", "settled")
	m.AttemptOutcome("initial", "settled")
	m.ReconciliationFailed("progress")
	m.WebhookEvent(WebhookPaymentCaptured, WebhookResultSettled)
	m.SetActiveAttempts(4)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.attemptsStarted.WithLabelValues("initial")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.attemptOutcomes.WithLabelValues("initial", "settled")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reconciliationFailures.WithLabelValues("progress")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.webhookEvents.WithLabelValues(WebhookPaymentCaptured, WebhookResultSettled)))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.activeAttempts))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.BookingCreated()
		m.AttemptStarted("initial")
		m.AttemptOutcome("initial", "failed")
		m.ReconciliationFailed("initial")
		m.WebhookEvent("order.paid", "ignored")
		m.SetActiveAttempts(0)
	})
}
