package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/middleware"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
	"github.com/sirupsen/logrus"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string         `json:"error"`
	Kind      apperror.Kind  `json:"kind"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	Attempt   any            `json:"attempt,omitempty"`
}

func errorResponse(appErr *apperror.Error) ErrorResponse {
	return ErrorResponse{
		Error:     appErr.Code,
		Kind:      appErr.Kind,
		Message:   appErr.Message,
		Retryable: appErr.Retryable,
		Details:   appErr.Details,
	}
}

// respondError writes err using its kind's status code. Internal causes are
// logged but never sent to the client.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	respondErrorWith(c, logger, err, nil)
}

// respondErrorWith also embeds the attempt snapshot, so the client can keep
// rendering the modal state alongside the error
func respondErrorWith(c *gin.Context, logger *logrus.Logger, err error, attempt any) {
	appErr := apperror.From(err)
	if appErr.Kind == apperror.KindInternal || appErr.Kind == apperror.KindPersistenceFailed {
		logger.WithError(err).WithFields(logrus.Fields{
			"path":   c.FullPath(),
			"method": c.Request.Method,
		}).Error("Request failed")
	}

	body := errorResponse(appErr)
	body.Attempt = attempt
	c.JSON(appErr.HTTPStatus(), body)
}

func badRequest(c *gin.Context, message string) {
	respondError(c, nil, apperror.Validation("invalid_request", message))
}

// currentUserID returns the authenticated user, or uuid.Nil for anonymous requests
func currentUserID(c *gin.Context) uuid.UUID {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok {
		return uuid.Nil
	}
	return userCtx.UserID
}

// requireUser writes an AuthRequired error when the request is anonymous
func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID := currentUserID(c)
	if userID == uuid.Nil {
		respondError(c, nil, apperror.AuthRequired("sign in to continue"))
		return uuid.Nil, false
	}
	return userID, true
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, nil, apperror.NotFound(name))
		return uuid.Nil, false
	}
	return id, true
}
