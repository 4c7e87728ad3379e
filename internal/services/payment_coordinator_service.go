package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/catalog"
	"github.com/onehorn/event-booking-backend/internal/config"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
	"github.com/onehorn/event-booking-backend/pkg/obs"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const settleTimeout = 15 * time.Second

var errCoordinatorStopped = errors.New("payment coordinator is shutting down")

// PaymentCoordinatorService drives payment attempts through the gateway modal
// and reconciles them with the persisted payment rows.
// Attempts live in memory only; the payments table stays the source of truth.
type PaymentCoordinatorService struct {
	bookings   BookingStore
	payments   PaymentStore
	gateway    PaymentGateway
	settlement *SettlementService
	audit      PaymentAuditor
	metrics    *Metrics
	cfg        config.CoordinatorConfig
	logger     *logrus.Logger

	mu       sync.Mutex
	attempts map[uuid.UUID]*paymentAttempt
	live     map[attemptKey]*paymentAttempt
	stopped  bool

	baseCtx  context.Context
	stopAll  context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPaymentCoordinatorService creates a coordinator. Zero timings fall back to defaults.
func NewPaymentCoordinatorService(
	bookings BookingStore,
	payments PaymentStore,
	gateway PaymentGateway,
	settlement *SettlementService,
	audit PaymentAuditor,
	metrics *Metrics,
	cfg config.CoordinatorConfig,
	logger *logrus.Logger,
) *PaymentCoordinatorService {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.RedirectDelay <= 0 {
		cfg.RedirectDelay = 3 * time.Second
	}
	if cfg.AttemptTTL <= 0 {
		cfg.AttemptTTL = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	baseCtx, stopAll := context.WithCancel(context.Background())
	return &PaymentCoordinatorService{
		bookings:   bookings,
		payments:   payments,
		gateway:    gateway,
		settlement: settlement,
		audit:      audit,
		metrics:    metrics,
		cfg:        cfg,
		logger:     logger,
		attempts:   make(map[uuid.UUID]*paymentAttempt),
		live:       make(map[attemptKey]*paymentAttempt),
		baseCtx:    baseCtx,
		stopAll:    stopAll,
		stopCh:     make(chan struct{}),
	}
}

// Start begins sweeping expired attempts
func (s *PaymentCoordinatorService) Start() {
	s.logger.WithFields(logrus.Fields{
		"poll_interval": s.cfg.PollInterval.String(),
		"attempt_ttl":   s.cfg.AttemptTTL.String(),
	}).Info("🕐 Starting Payment Coordinator")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.wg.Add(1)
	go s.sweep()
}

// Stop tears down every attempt and waits for pollers to exit
func (s *PaymentCoordinatorService) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("🛑 Stopping Payment Coordinator")
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		s.stopAll()
		close(s.stopCh)
		s.wg.Wait()
	})
}

// ============================================================================
// BEGIN
// ============================================================================

// Begin starts (or resumes) the payment attempt for the stage named by pc
func (s *PaymentCoordinatorService) Begin(ctx context.Context, userID uuid.UUID, pc models.PaymentContext) (*models.AttemptSnapshot, error) {
	ctx, span := obs.Tracer().Start(ctx, "payment.begin")
	defer span.End()

	if userID == uuid.Nil {
		return nil, apperror.AuthRequired("sign in to continue with payment")
	}

	if missing := pc.MissingFields(); len(missing) > 0 {
		return nil, apperror.Validation("payment_context_incomplete", "payment details are missing, please start again from your dashboard").
			WithDetail("missing", missing).
			WithDetail("redirect_to", DashboardPath)
	}

	bookingID, err := uuid.Parse(pc.BookingID)
	if err != nil {
		return nil, apperror.Validation("invalid_booking_id", "booking id is not valid").
			WithDetail("redirect_to", DashboardPath)
	}
	stage, err := models.ParsePaymentStage(pc.Stage)
	if err != nil {
		return nil, apperror.Validation("invalid_stage", err.Error()).
			WithDetail("redirect_to", DashboardPath)
	}
	span.SetAttributes(
		attribute.String("booking.id", bookingID.String()),
		attribute.String("payment.stage", string(stage)),
	)

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, storeError(err, "booking", "booking could not be loaded, please try again")
	}
	if booking.UserID != userID {
		return nil, apperror.NotFound("booking")
	}
	if pc.PackageName != booking.PackageName {
		return nil, apperror.Validation("package_mismatch", "the package does not match this booking").
			WithDetail("package_name", booking.PackageName)
	}

	expected, err := catalog.StageAmount(booking.TotalAmount, stage)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if *pc.Amount != expected {
		return nil, apperror.Validation("amount_mismatch", "the payment amount does not match the amount due for this stage").
			WithDetail("expected_amount", expected.String())
	}

	attempt, resumed, err := s.register(userID, booking, stage, expected)
	if err != nil {
		return nil, err
	}
	if resumed {
		// a concurrent Begin may still be opening the checkout
		attempt.waitOpened(ctx)
		s.logger.WithFields(logrus.Fields{
			"attempt_id": attempt.id,
			"booking_id": booking.ID,
			"stage":      stage,
		}).Debug("Resuming live payment attempt")
		return attempt.snapshot(s.cfg.RedirectDelay), attempt.resumeError()
	}

	return s.open(ctx, attempt)
}

// register returns the live attempt for the pair, or records a new one
func (s *PaymentCoordinatorService) register(userID uuid.UUID, booking *models.Booking, stage models.PaymentStage, amount models.Money) (*paymentAttempt, bool, error) {
	key := attemptKey{bookingID: booking.ID, stage: stage}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, false, apperror.Internal(errCoordinatorStopped)
	}

	if existing := s.live[key]; existing != nil {
		if existing.holdsPair() {
			return existing, true, nil
		}
		// A finished attempt gives up the pair; its snapshot stays readable until swept.
		existing.stopPolling()
	}

	attempt := newPaymentAttempt(userID, booking, stage, amount, time.Now())
	s.attempts[attempt.id] = attempt
	s.live[key] = attempt
	s.metrics.SetActiveAttempts(len(s.attempts))
	return attempt, false, nil
}

// open ensures the payment row and opens the gateway checkout
func (s *PaymentCoordinatorService) open(ctx context.Context, a *paymentAttempt) (*models.AttemptSnapshot, error) {
	defer close(a.opened)

	log := s.logger.WithFields(logrus.Fields{
		"attempt_id": a.id,
		"booking_id": a.booking.ID,
		"stage":      a.stage,
	})

	// 1. Exactly one payment row for the pair, before the gateway is involved
	payment, _, err := s.payments.Ensure(ctx, a.booking.ID, a.stage, a.amount)
	if err != nil {
		log.WithError(err).Error("Failed to ensure payment row")
		a.failOpen(apperror.KindPersistenceFailed, "payment could not be prepared")
		s.metrics.AttemptOutcome(string(a.stage), "failed")
		return a.snapshot(s.cfg.RedirectDelay), apperror.Persistence(err, "payment could not be prepared, please try again")
	}
	a.setPayment(payment.ID)

	// 2. Already paid: nothing to collect
	if payment.IsPaid() {
		if err := s.settlement.ApplyBookingStatus(ctx, a.booking.ID, a.stage); err != nil {
			log.WithError(err).Warn("Failed to apply booking status for paid stage")
		}
		if a.settle() {
			s.metrics.AttemptOutcome(string(a.stage), string(models.AttemptSettled))
		}
		log.Info("Stage already paid")
		return a.snapshot(s.cfg.RedirectDelay), nil
	}

	// 3. Open the gateway checkout
	checkout, err := s.gateway.CreateCheckout(ctx, CheckoutRequest{
		Receipt:     payment.ID.String(),
		Amount:      a.amount,
		Description: fmt.Sprintf("%s - %s", a.booking.PackageName, a.stage.Label()),
		Prefill: models.CheckoutPrefill{
			Name:    a.booking.Details.Name,
			Email:   a.booking.Details.Email,
			Contact: a.booking.Details.Phone,
		},
		Notes: map[string]string{
			"booking_id": a.booking.ID.String(),
			"stage":      string(a.stage),
			"payment_id": payment.ID.String(),
			"attempt_id": a.id.String(),
		},
	})
	if err != nil {
		log.WithError(err).Error("Failed to open gateway checkout")
		a.failOpen(apperror.KindGatewayUnavailable, "payment gateway unavailable")
		s.metrics.AttemptOutcome(string(a.stage), string(models.AttemptFailed))
		return a.snapshot(s.cfg.RedirectDelay), apperror.GatewayUnavailable(err)
	}

	if err := s.payments.SetGatewayOrderID(ctx, payment.ID, checkout.OrderID); err != nil {
		log.WithError(err).Error("Failed to record gateway order id")
		a.failOpen(apperror.KindPersistenceFailed, "payment could not be prepared")
		s.metrics.AttemptOutcome(string(a.stage), string(models.AttemptFailed))
		return a.snapshot(s.cfg.RedirectDelay), apperror.Persistence(err, "payment could not be prepared, please try again")
	}

	if !a.awaitGateway(checkout) {
		return a.snapshot(s.cfg.RedirectDelay), nil
	}
	s.metrics.AttemptStarted(string(a.stage))
	s.startPoller(a)

	log.WithField("order_id", checkout.OrderID).Info("Payment attempt awaiting gateway")
	return a.snapshot(s.cfg.RedirectDelay), nil
}

// ============================================================================
// GATEWAY CALLBACKS
// ============================================================================

// Succeed verifies and records a gateway success reported by the browser
func (s *PaymentCoordinatorService) Succeed(ctx context.Context, userID, attemptID uuid.UUID, ref models.GatewayReference) (*models.AttemptSnapshot, error) {
	ctx, span := obs.Tracer().Start(ctx, "payment.succeed")
	defer span.End()

	a, err := s.lookup(userID, attemptID)
	if err != nil {
		return nil, err
	}
	if !a.beginReconcile() {
		return a.snapshot(s.cfg.RedirectDelay), nil
	}

	// The write must not be abandoned because the browser went away
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	paymentID, orderID := a.payment()
	if ref.OrderID != orderID || !s.gateway.VerifyPaymentSignature(ref.OrderID, ref.PaymentID, ref.Signature) {
		return s.reconcileFailed(ctx, a, ref, errors.New("payment signature verification failed"))
	}

	paid, _, err := s.settlement.Settle(ctx, a.booking, &models.Payment{
		ID:        paymentID,
		BookingID: a.booking.ID,
		Stage:     a.stage,
		Amount:    a.amount,
	}, models.Settlement{
		TransactionID: ref.PaymentID,
		OrderID:       ref.OrderID,
		PaymentMethod: "card",
		PaidAt:        time.Now().UTC(),
	}, models.AuditSourceCheckout)
	if err != nil {
		span.RecordError(err)
		if paid != nil && paid.IsPaid() {
			return s.confirmationPending(a, err)
		}
		return s.reconcileFailed(ctx, a, ref, err)
	}

	if a.settle() {
		s.metrics.AttemptOutcome(string(a.stage), string(models.AttemptSettled))
	}
	a.stopPolling()
	return a.snapshot(s.cfg.RedirectDelay), nil
}

// confirmationPending handles a payment that is recorded as paid while the
// booking update failed. The poller retries the booking update and settles.
func (s *PaymentCoordinatorService) confirmationPending(a *paymentAttempt, cause error) (*models.AttemptSnapshot, error) {
	s.logger.WithError(cause).WithFields(logrus.Fields{
		"attempt_id": a.id,
		"booking_id": a.booking.ID,
	}).Warn("Payment recorded, booking confirmation pending")

	a.confirmPending("payment received, confirming your booking")
	return a.snapshot(s.cfg.RedirectDelay), nil
}

func (s *PaymentCoordinatorService) reconcileFailed(ctx context.Context, a *paymentAttempt, ref models.GatewayReference, cause error) (*models.AttemptSnapshot, error) {
	paymentID, _ := a.payment()

	s.logger.WithError(cause).WithFields(logrus.Fields{
		"attempt_id":     a.id,
		"payment_id":     paymentID,
		"transaction_id": ref.PaymentID,
	}).Error("CRITICAL: Gateway success could not be reconciled")

	entry := models.NewPaymentAudit(models.AuditPaymentVerificationFailed, paymentID, a.userID).
		SetStage(a.stage, a.amount).
		SetBooking(a.booking.ID, a.booking.PackageName).
		SetGatewayReference(ref.PaymentID, ref.OrderID).
		SetSource(models.AuditSourceCheckout).
		SetError(cause.Error())
	if err := s.audit.Log(ctx, entry); err != nil {
		s.logger.WithError(err).Error("Failed to audit verification failure")
	}
	s.metrics.ReconciliationFailed(string(a.stage))

	appErr := apperror.ReconciliationFailed(cause)
	if !a.failReconcile(appErr.Message) {
		// Settled by the poller in the meantime
		return a.snapshot(s.cfg.RedirectDelay), nil
	}
	return a.snapshot(s.cfg.RedirectDelay), appErr
}

// Fail records a gateway rejection reported by the browser
func (s *PaymentCoordinatorService) Fail(ctx context.Context, userID, attemptID uuid.UUID, failure models.GatewayFailure) (*models.AttemptSnapshot, error) {
	a, err := s.lookup(userID, attemptID)
	if err != nil {
		return nil, err
	}

	appErr := apperror.GatewayDeclined(failure.Description)
	if !a.decline(appErr.Message) {
		return a.snapshot(s.cfg.RedirectDelay), nil
	}

	paymentID, orderID := a.payment()
	entry := models.NewPaymentAudit(models.AuditPaymentFailed, paymentID, a.userID).
		SetStage(a.stage, a.amount).
		SetBooking(a.booking.ID, a.booking.PackageName).
		SetGatewayReference("", orderID).
		SetSource(models.AuditSourceCheckout).
		SetError(appErr.Message)
	if failure.Code != "" {
		entry.SetDetail("gateway_code", failure.Code)
	}
	if failure.Reason != "" {
		entry.SetDetail("reason", failure.Reason)
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.logger.WithError(err).Error("Failed to audit declined payment")
	}

	s.metrics.AttemptOutcome(string(a.stage), string(models.AttemptFailed))
	s.logger.WithFields(logrus.Fields{
		"attempt_id": a.id,
		"code":       failure.Code,
		"reason":     failure.Reason,
	}).Warn("Payment declined by gateway")

	return a.snapshot(s.cfg.RedirectDelay), appErr
}

// Dismiss records that the user closed the gateway modal
func (s *PaymentCoordinatorService) Dismiss(ctx context.Context, userID, attemptID uuid.UUID) (*models.AttemptSnapshot, error) {
	a, err := s.lookup(userID, attemptID)
	if err != nil {
		return nil, err
	}
	if !a.dismiss() {
		return a.snapshot(s.cfg.RedirectDelay), nil
	}
	a.stopPolling()

	paymentID, orderID := a.payment()
	entry := models.NewPaymentAudit(models.AuditPaymentCancelled, paymentID, a.userID).
		SetStage(a.stage, a.amount).
		SetBooking(a.booking.ID, a.booking.PackageName).
		SetGatewayReference("", orderID).
		SetSource(models.AuditSourceCheckout)
	if err := s.audit.Log(ctx, entry); err != nil {
		s.logger.WithError(err).Error("Failed to audit cancelled payment")
	}

	s.metrics.AttemptOutcome(string(a.stage), string(models.AttemptCancelled))
	return a.snapshot(s.cfg.RedirectDelay), nil
}

// Snapshot returns the current view of an attempt
func (s *PaymentCoordinatorService) Snapshot(userID, attemptID uuid.UUID) (*models.AttemptSnapshot, error) {
	a, err := s.lookup(userID, attemptID)
	if err != nil {
		return nil, err
	}
	return a.snapshot(s.cfg.RedirectDelay), nil
}

// Close tears an attempt down. The payment row is left untouched, so the stage
// can be paid later from the dashboard.
func (s *PaymentCoordinatorService) Close(userID, attemptID uuid.UUID) error {
	a, err := s.lookup(userID, attemptID)
	if err != nil {
		return err
	}
	a.stopPolling()
	s.remove(a)
	return nil
}

func (s *PaymentCoordinatorService) lookup(userID, attemptID uuid.UUID) (*paymentAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	if !ok || a.userID != userID {
		return nil, apperror.NotFound("payment attempt")
	}
	return a, nil
}

func (s *PaymentCoordinatorService) remove(a *paymentAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, a.id)
	if s.live[a.key()] == a {
		delete(s.live, a.key())
	}
	s.metrics.SetActiveAttempts(len(s.attempts))
}

// ============================================================================
// POLLER & SWEEPER
// ============================================================================

func (s *PaymentCoordinatorService) startPoller(a *paymentAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	ctx, cancel := context.WithDeadline(s.baseCtx, a.startedAt.Add(s.cfg.AttemptTTL))
	a.setCancel(cancel)
	s.wg.Add(1)
	go s.poll(ctx, a)
}

// poll checks the persisted payment immediately and then every PollInterval
// until the attempt settles or its context ends
func (s *PaymentCoordinatorService) poll(ctx context.Context, a *paymentAttempt) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if s.checkPersisted(ctx, a) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// checkPersisted converges the attempt when its payment row is paid.
// It reports whether polling should stop.
func (s *PaymentCoordinatorService) checkPersisted(ctx context.Context, a *paymentAttempt) bool {
	switch a.currentState() {
	case models.AttemptSettled, models.AttemptCancelled:
		return true
	}

	paymentID, _ := a.payment()
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.WithError(err).WithField("attempt_id", a.id).Debug("Payment status check failed")
		}
		return false
	}
	if !payment.IsPaid() {
		return false
	}

	if err := s.settlement.ApplyBookingStatus(ctx, a.booking.ID, a.stage); err != nil {
		s.logger.WithError(err).WithField("booking_id", a.booking.ID).Warn("Failed to apply booking status, will retry")
		return false
	}

	if a.settle() {
		s.metrics.AttemptOutcome(string(a.stage), string(models.AttemptSettled))
		s.logger.WithFields(logrus.Fields{
			"attempt_id": a.id,
			"payment_id": paymentID,
		}).Info("Payment attempt converged to settled")
	}
	return true
}

func (s *PaymentCoordinatorService) sweep() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepExpired(time.Now())
		case <-s.stopCh:
			return
		}
	}
}

// sweepExpired drops attempts older than the TTL
func (s *PaymentCoordinatorService) sweepExpired(now time.Time) int {
	s.mu.Lock()
	var expired []*paymentAttempt
	for id, a := range s.attempts {
		if a.expired(now, s.cfg.AttemptTTL) {
			expired = append(expired, a)
			delete(s.attempts, id)
			if s.live[a.key()] == a {
				delete(s.live, a.key())
			}
		}
	}
	s.metrics.SetActiveAttempts(len(s.attempts))
	s.mu.Unlock()

	for _, a := range expired {
		a.stopPolling()
	}
	if len(expired) > 0 {
		s.logger.WithField("count", len(expired)).Info("Expired payment attempts swept")
	}
	return len(expired)
}
