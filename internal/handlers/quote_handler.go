package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/onehorn/event-booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// QuoteHandler handles custom quote requests
type QuoteHandler struct {
	quotes *services.QuoteService
	logger *logrus.Logger
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(quotes *services.QuoteService, logger *logrus.Logger) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, logger: logger}
}

// SubmitQuote handles POST /api/v1/quotes
// Guests may submit; signed-in users get the quote linked to their account.
func (h *QuoteHandler) SubmitQuote(c *gin.Context) {
	var req models.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	var userID *uuid.UUID
	if id := currentUserID(c); id != uuid.Nil {
		userID = &id
	}

	quote, err := h.quotes.SubmitQuote(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Quote request received. Our team will contact you soon.",
		"quote":   quote,
	})
}

// ListQuotes handles GET /api/v1/quotes
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	quotes, err := h.quotes.ListQuotes(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes, "count": len(quotes)})
}
