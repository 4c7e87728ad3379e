package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/pkg/apperror"
	"github.com/stretchr/testify/assert"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		kind      string
		code      string
		retryable bool
	}{
		{"auth", apperror.AuthRequired("sign in"), http.StatusUnauthorized, "AUTH_REQUIRED", "auth_required", false},
		{"validation", apperror.Validation("bad", "bad input"), http.StatusBadRequest, "VALIDATION_FAILED", "bad", false},
		{"persistence", apperror.Persistence(errors.New("db down"), "try again"), http.StatusServiceUnavailable, "PERSISTENCE_FAILED", "persistence_failed", true},
		{"not found", apperror.NotFound("booking"), http.StatusNotFound, "NOT_FOUND", "not_found", false},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/x", func(c *gin.Context) { respondError(c, quietLogger(), tt.err) })

			w := doJSON(t, r, http.MethodGet, "/x", nil)
			assert.Equal(t, tt.status, w.Code)

			body := decodeBody(t, w)
			assert.Equal(t, tt.kind, body["kind"])
			assert.Equal(t, tt.retryable, body["retryable"])
			if tt.code != "" {
				assert.Equal(t, tt.code, body["error"])
			}
			assert.NotContains(t, w.Body.String(), "db down")
			assert.NotContains(t, w.Body.String(), "boom")
		})
	}
}

func TestRequireUser(t *testing.T) {
	userID := uuid.New()

	r := gin.New()
	handler := func(c *gin.Context) {
		id, ok := requireUser(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	}
	r.GET("/anon", anonymous, handler)
	r.GET("/authed", asUser(userID), handler)

	w := doJSON(t, r, http.MethodGet, "/anon", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/authed", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), decodeBody(t, w)["user_id"])
}
