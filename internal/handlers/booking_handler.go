package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// BookingHandler handles booking creation and the dashboard
type BookingHandler struct {
	orchestrator *services.BookingOrchestratorService
	projector    *services.StatusProjectorService
	logger       *logrus.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(
	orchestrator *services.BookingOrchestratorService,
	projector *services.StatusProjectorService,
	logger *logrus.Logger,
) *BookingHandler {
	return &BookingHandler{
		orchestrator: orchestrator,
		projector:    projector,
		logger:       logger,
	}
}

// CreateBooking handles POST /api/v1/bookings
// Anonymous callers get AUTH_REQUIRED with the package to resume after sign-in.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	resp, err := h.orchestrator.CreateBooking(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RetryInitialPayment handles POST /api/v1/bookings/:id/initial-payment
func (h *BookingHandler) RetryInitialPayment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.orchestrator.EnsureInitialPayment(c.Request.Context(), userID, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Dashboard handles GET /api/v1/dashboard
func (h *BookingHandler) Dashboard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	schedules, err := h.projector.Project(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"bookings": schedules,
		"count":    len(schedules),
	})
}
