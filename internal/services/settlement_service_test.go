package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/mq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialStageConfirms(t *testing.T) {
	from, to, ok := InitialStageConfirms{}.Transition(models.StageInitial)
	assert.True(t, ok)
	assert.Equal(t, models.BookingStatusPending, from)
	assert.Equal(t, models.BookingStatusConfirmed, to)

	for _, stage := range []models.PaymentStage{models.StageProgress, models.StageCompletion} {
		_, _, ok := InitialStageConfirms{}.Transition(stage)
		assert.False(t, ok, stage)
	}
}

type completionCompletes struct{}

func (completionCompletes) Transition(stage models.PaymentStage) (models.BookingStatus, models.BookingStatus, bool) {
	if stage == models.StageCompletion {
		return models.BookingStatusInProgress, models.BookingStatusCompleted, true
	}
	return "", "", false
}

func TestSettle(t *testing.T) {
	payments := newFakePaymentStore()
	bookings := newFakeBookingStore(payments)
	audit := &fakeAuditor{}
	events := &fakePublisher{}
	svc := NewSettlementService(payments, bookings, audit, nil, events, nil, quietLogger())
	ctx := context.Background()

	booking := bookings.add(models.Booking{UserID: uuid.New(), PackageName: "Essential", Status: models.BookingStatusPending})
	payment, _, err := payments.Ensure(ctx, booking.ID, models.StageInitial, models.Money(3490000))
	require.NoError(t, err)

	settlement := models.Settlement{TransactionID: "pay_1", OrderID: "order_1", PaidAt: time.Now()}

	paid, transitioned, err := svc.Settle(ctx, booking, payment, settlement, models.AuditSourceCheckout)
	require.NoError(t, err)
	assert.True(t, transitioned)
	assert.Equal(t, "card", *paid.PaymentMethod)
	assert.Equal(t, models.BookingStatusConfirmed, bookings.status(booking.ID))

	_, transitioned, err = svc.Settle(ctx, booking, payment, settlement, models.AuditSourceWebhook)
	require.NoError(t, err)
	assert.False(t, transitioned)

	assert.Equal(t, 1, audit.count(models.AuditPaymentSuccess))
	assert.Equal(t, "card", audit.last(models.AuditPaymentSuccess).Details["payment_method"])
	assert.Equal(t, 1, events.published(mq.KeyPaymentSettled))
}

func TestSettle_BookingUpdateFailure(t *testing.T) {
	payments := newFakePaymentStore()
	bookings := newFakeBookingStore(payments)
	audit := &fakeAuditor{}
	svc := NewSettlementService(payments, bookings, audit, nil, nil, nil, quietLogger())
	ctx := context.Background()

	booking := bookings.add(models.Booking{UserID: uuid.New(), Status: models.BookingStatusPending})
	payment, _, err := payments.Ensure(ctx, booking.ID, models.StageInitial, models.Money(100))
	require.NoError(t, err)

	bookings.updateErr = errors.New("lock timeout")
	_, _, err = svc.Settle(ctx, booking, payment, models.Settlement{TransactionID: "pay_1"}, models.AuditSourceCheckout)
	assert.Error(t, err)
	assert.True(t, payments.get(payment.ID).IsPaid())

	assert.Equal(t, 1, audit.count(models.AuditPaymentSuccess))

	// retrying re-applies the booking update without a second success record
	bookings.updateErr = nil
	_, transitioned, err := svc.Settle(ctx, booking, payment, models.Settlement{TransactionID: "pay_1"}, models.AuditSourceCheckout)
	require.NoError(t, err)
	assert.False(t, transitioned)
	assert.Equal(t, models.BookingStatusConfirmed, bookings.status(booking.ID))
	assert.Equal(t, 1, audit.count(models.AuditPaymentSuccess))
}

func TestApplyBookingStatus_CustomPolicy(t *testing.T) {
	bookings := newFakeBookingStore(nil)
	svc := NewSettlementService(newFakePaymentStore(), bookings, &fakeAuditor{}, completionCompletes{}, nil, nil, quietLogger())
	ctx := context.Background()

	booking := bookings.add(models.Booking{Status: models.BookingStatusInProgress})

	require.NoError(t, svc.ApplyBookingStatus(ctx, booking.ID, models.StageInitial))
	assert.Equal(t, models.BookingStatusInProgress, bookings.status(booking.ID))

	require.NoError(t, svc.ApplyBookingStatus(ctx, booking.ID, models.StageCompletion))
	assert.Equal(t, models.BookingStatusCompleted, bookings.status(booking.ID))
}
