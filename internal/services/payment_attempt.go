package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
)

// DashboardPath is where the browser goes after a settled payment or a broken context
const DashboardPath = "/dashboard"

var errVerificationPending = errors.New("an earlier payment for this stage is still being verified")

type attemptKey struct {
	bookingID uuid.UUID
	stage     models.PaymentStage
}

// paymentAttempt is one trip through the gateway modal for a (booking, stage) pair.
// All fields after mu are guarded by it.
type paymentAttempt struct {
	id      uuid.UUID
	userID  uuid.UUID
	booking *models.Booking
	stage   models.PaymentStage
	amount  models.Money

	mu        sync.Mutex
	paymentID uuid.UUID
	orderID   string
	state     models.AttemptState
	errKind   apperror.Kind
	message   string
	checkout  *models.CheckoutSession
	startedAt time.Time
	updatedAt time.Time
	cancel    context.CancelFunc

	// opened is closed once the first Begin has finished opening the checkout
	opened chan struct{}
}

func newPaymentAttempt(userID uuid.UUID, booking *models.Booking, stage models.PaymentStage, amount models.Money, now time.Time) *paymentAttempt {
	return &paymentAttempt{
		id:        uuid.New(),
		userID:    userID,
		booking:   booking,
		stage:     stage,
		amount:    amount,
		state:     models.AttemptIdle,
		startedAt: now,
		updatedAt: now,
		opened:    make(chan struct{}),
	}
}

func (a *paymentAttempt) key() attemptKey {
	return attemptKey{bookingID: a.booking.ID, stage: a.stage}
}

func (a *paymentAttempt) setState(state models.AttemptState, kind apperror.Kind, message string) {
	a.state = state
	a.errKind = kind
	a.message = message
	a.updatedAt = time.Now()
}

// holdsPair reports whether the attempt still owns its (booking, stage) pair.
// A gateway success that could not be verified keeps the pair: the money may
// already be captured on this attempt's order.
func (a *paymentAttempt) holdsPair() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return !a.state.IsTerminal() || a.verificationPendingLocked()
}

func (a *paymentAttempt) verificationPendingLocked() bool {
	return a.state == models.AttemptFailed && a.errKind == apperror.KindReconciliationFailed
}

// waitOpened blocks until the checkout has been opened (or failed to open)
func (a *paymentAttempt) waitOpened(ctx context.Context) {
	select {
	case <-a.opened:
	case <-ctx.Done():
	}
}

// resumeError explains why a resumed attempt cannot take a new checkout
func (a *paymentAttempt) resumeError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != models.AttemptFailed {
		return nil
	}
	switch a.errKind {
	case apperror.KindReconciliationFailed:
		return apperror.ReconciliationFailed(errVerificationPending)
	case apperror.KindGatewayUnavailable:
		return apperror.GatewayUnavailable(errors.New(a.message))
	case apperror.KindPersistenceFailed:
		return apperror.Persistence(errors.New(a.message), "payment could not be prepared, please try again")
	}
	return nil
}

func (a *paymentAttempt) currentState() models.AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *paymentAttempt) setPayment(id uuid.UUID) {
	a.mu.Lock()
	a.paymentID = id
	a.mu.Unlock()
}

func (a *paymentAttempt) payment() (uuid.UUID, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paymentID, a.orderID
}

// awaitGateway records the opened checkout. Only valid from idle.
func (a *paymentAttempt) awaitGateway(checkout *models.CheckoutSession) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != models.AttemptIdle {
		return false
	}
	a.orderID = checkout.OrderID
	a.checkout = checkout
	a.setState(models.AttemptAwaitingGateway, "", "")
	return true
}

// failOpen marks an attempt whose checkout could not be opened
func (a *paymentAttempt) failOpen(kind apperror.Kind, message string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != models.AttemptIdle {
		return false
	}
	a.setState(models.AttemptFailed, kind, message)
	return true
}

// beginReconcile claims the attempt for a success callback
func (a *paymentAttempt) beginReconcile() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != models.AttemptAwaitingGateway && a.state != models.AttemptFailed {
		return false
	}
	a.setState(models.AttemptReconciling, "", "")
	return true
}

// failReconcile ends a success callback that could not be confirmed
func (a *paymentAttempt) failReconcile(message string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != models.AttemptReconciling {
		return false
	}
	a.setState(models.AttemptFailed, apperror.KindReconciliationFailed, message)
	return true
}

// confirmPending keeps a reconciling attempt open with a progress message
func (a *paymentAttempt) confirmPending(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == models.AttemptReconciling {
		a.setState(models.AttemptReconciling, "", message)
	}
}

// decline records a gateway rejection. The modal stays open for a retry.
func (a *paymentAttempt) decline(message string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.state == models.AttemptAwaitingGateway:
	case a.state == models.AttemptFailed && a.errKind == apperror.KindGatewayDeclined:
	default:
		return false
	}
	a.setState(models.AttemptFailed, apperror.KindGatewayDeclined, message)
	return true
}

// dismiss records that the user closed the modal. An attempt with a gateway
// success still being verified cannot be cancelled.
func (a *paymentAttempt) dismiss() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case a.state == models.AttemptIdle, a.state == models.AttemptAwaitingGateway:
	case a.state == models.AttemptFailed && !a.verificationPendingLocked():
	default:
		return false
	}
	a.setState(models.AttemptCancelled, apperror.KindGatewayCancelled, "payment was cancelled")
	return true
}

// settle moves the attempt to settled. Only the first caller gets true.
func (a *paymentAttempt) settle() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == models.AttemptSettled || a.state == models.AttemptCancelled {
		return false
	}
	a.setState(models.AttemptSettled, "", "")
	return true
}

func (a *paymentAttempt) setCancel(cancel context.CancelFunc) {
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
}

// stopPolling cancels the poller, if one is running
func (a *paymentAttempt) stopPolling() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (a *paymentAttempt) expired(now time.Time, ttl time.Duration) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return now.Sub(a.startedAt) >= ttl
}

func (a *paymentAttempt) snapshot(redirectDelay time.Duration) *models.AttemptSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := &models.AttemptSnapshot{
		ID:          a.id,
		BookingID:   a.booking.ID,
		Stage:       a.stage,
		Amount:      a.amount,
		PackageName: a.booking.PackageName,
		PaymentID:   a.paymentID,
		State:       a.state,
		ErrorKind:   string(a.errKind),
		Message:     a.message,
		StartedAt:   a.startedAt,
		UpdatedAt:   a.updatedAt,
	}
	if a.state == models.AttemptAwaitingGateway || a.state == models.AttemptFailed {
		snap.Checkout = a.checkout
	}
	if a.state == models.AttemptSettled {
		snap.RedirectTo = DashboardPath
		snap.RedirectAfterMs = redirectDelay.Milliseconds()
	}
	return snap
}
