package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

const maxWebhookBody = 1 << 20

// PaymentHandler exposes payment attempts and the gateway webhook
type PaymentHandler struct {
	coordinator *services.PaymentCoordinatorService
	reconciler  *services.PaymentReconcilerService
	logger      *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(
	coordinator *services.PaymentCoordinatorService,
	reconciler *services.PaymentReconcilerService,
	logger *logrus.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		coordinator: coordinator,
		reconciler:  reconciler,
		logger:      logger,
	}
}

// BeginAttempt handles POST /api/v1/payments/attempts
// The body is the payment context handed over by the booking step.
func (h *PaymentHandler) BeginAttempt(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var pc models.PaymentContext
	if err := c.ShouldBindJSON(&pc); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}

	snap, err := h.coordinator.Begin(c.Request.Context(), userID, pc)
	h.respondAttempt(c, http.StatusCreated, snap, err)
}

// GetAttempt handles GET /api/v1/payments/attempts/:id
func (h *PaymentHandler) GetAttempt(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	snap, err := h.coordinator.Snapshot(userID, attemptID)
	h.respondAttempt(c, http.StatusOK, snap, err)
}

// AttemptSucceeded handles POST /api/v1/payments/attempts/:id/success
func (h *PaymentHandler) AttemptSucceeded(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var ref models.GatewayReference
	if err := c.ShouldBindJSON(&ref); err != nil {
		badRequest(c, "razorpay_payment_id, razorpay_order_id and razorpay_signature are required")
		return
	}

	snap, err := h.coordinator.Succeed(c.Request.Context(), userID, attemptID, ref)
	h.respondAttempt(c, http.StatusOK, snap, err)
}

// AttemptFailed handles POST /api/v1/payments/attempts/:id/error
func (h *PaymentHandler) AttemptFailed(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var failure models.GatewayFailure
	if err := c.ShouldBindJSON(&failure); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}

	snap, err := h.coordinator.Fail(c.Request.Context(), userID, attemptID, failure)
	h.respondAttempt(c, http.StatusOK, snap, err)
}

// AttemptDismissed handles POST /api/v1/payments/attempts/:id/dismiss
func (h *PaymentHandler) AttemptDismissed(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	snap, err := h.coordinator.Dismiss(c.Request.Context(), userID, attemptID)
	h.respondAttempt(c, http.StatusOK, snap, err)
}

// CloseAttempt handles DELETE /api/v1/payments/attempts/:id
func (h *PaymentHandler) CloseAttempt(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	attemptID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.coordinator.Close(userID, attemptID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RazorpayWebhook handles POST /api/v1/webhooks/razorpay
// The signature covers the raw body, so it is read before any decoding.
func (h *PaymentHandler) RazorpayWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "Could not read request body")
		return
	}

	result, err := h.reconciler.HandleWebhook(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": result})
}

func (h *PaymentHandler) respondAttempt(c *gin.Context, status int, snap *models.AttemptSnapshot, err error) {
	if err != nil {
		if snap != nil {
			respondErrorWith(c, h.logger, err, snap)
		} else {
			respondError(c, h.logger, err)
		}
		return
	}
	if snap.State == models.AttemptSettled && status == http.StatusCreated {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"attempt": snap})
}
