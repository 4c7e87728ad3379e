package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectBooking_NoPayments(t *testing.T) {
	schedule := ProjectBooking(&models.Booking{TotalAmount: models.Rupees(499999)})

	require.Len(t, schedule.Stages, 3)
	want := []struct {
		stage   models.PaymentStage
		label   string
		percent int
		amount  models.Money
	}{
		{models.StageInitial, "Initial Payment", 10, models.Money(4999990)},
		{models.StageProgress, "Progress Payment", 70, models.Money(34999930)},
		{models.StageCompletion, "Final Payment", 20, models.Money(9999980)},
	}
	for i, w := range want {
		got := schedule.Stages[i]
		assert.Equal(t, w.stage, got.Stage)
		assert.Equal(t, w.label, got.Label)
		assert.Equal(t, w.percent, got.Percent)
		assert.Equal(t, w.amount, got.Amount)
		assert.False(t, got.Paid)
		assert.True(t, got.Payable)
	}
}

func TestProjectBooking_PaidAndPendingRows(t *testing.T) {
	paidAt := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	paidID := uuid.New()

	schedule := ProjectBooking(&models.Booking{
		TotalAmount: models.Rupees(349000),
		Payments: []models.Payment{
			{ID: paidID, Stage: models.StageInitial, Amount: models.Money(3490000), Status: models.PaymentStatusPaid, PaymentDate: &paidAt},
			// a pending row with a stale amount does not change what is shown
			{ID: uuid.New(), Stage: models.StageProgress, Amount: models.Money(1), Status: models.PaymentStatusPending},
		},
	})

	initial := schedule.Stages[0]
	assert.True(t, initial.Paid)
	assert.False(t, initial.Payable)
	assert.Equal(t, paidID, *initial.PaymentID)
	assert.Equal(t, paidAt, *initial.PaymentDate)

	progress := schedule.Stages[1]
	assert.False(t, progress.Paid)
	assert.True(t, progress.Payable)
	assert.Equal(t, models.Money(24430000), progress.Amount)
	assert.Nil(t, progress.PaymentID)
}

func TestProject(t *testing.T) {
	payments := newFakePaymentStore()
	bookings := newFakeBookingStore(payments)
	projector := NewStatusProjectorService(bookings, quietLogger())
	userID := uuid.New()

	mine := bookings.add(models.Booking{UserID: userID, PackageName: "Luxury", TotalAmount: models.Rupees(699999)})
	bookings.add(models.Booking{UserID: uuid.New(), PackageName: "Essential", TotalAmount: models.Rupees(349000)})

	payment, _, err := payments.Ensure(context.Background(), mine.ID, models.StageInitial, models.Money(6999990))
	require.NoError(t, err)
	payments.markPaidOutOfBand(payment.ID)

	schedules, err := projector.Project(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, mine.ID, schedules[0].Booking.ID)
	assert.True(t, schedules[0].Stages[0].Paid)
	assert.True(t, schedules[0].Stages[1].Payable)

	_, err = projector.Project(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, apperror.ErrAuthRequired)
}
