package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies failures by how the caller should react to them
type Kind string

const (
	KindAuthRequired         Kind = "AUTH_REQUIRED"
	KindValidationFailed     Kind = "VALIDATION_FAILED"
	KindPersistenceFailed    Kind = "PERSISTENCE_FAILED"
	KindGatewayUnavailable   Kind = "GATEWAY_UNAVAILABLE"
	KindGatewayDeclined      Kind = "GATEWAY_DECLINED"
	KindGatewayCancelled     Kind = "GATEWAY_CANCELLED"
	KindReconciliationFailed Kind = "RECONCILIATION_FAILED"
	KindNotFound             Kind = "NOT_FOUND"
	KindConflict             Kind = "CONFLICT"
	KindRateLimited          Kind = "RATE_LIMITED"
	KindInternal             Kind = "INTERNAL_ERROR"
)

// Sentinels for errors.Is matching on kind
var (
	ErrAuthRequired         = &Error{Kind: KindAuthRequired}
	ErrValidationFailed     = &Error{Kind: KindValidationFailed}
	ErrPersistenceFailed    = &Error{Kind: KindPersistenceFailed}
	ErrGatewayUnavailable   = &Error{Kind: KindGatewayUnavailable}
	ErrGatewayDeclined      = &Error{Kind: KindGatewayDeclined}
	ErrGatewayCancelled     = &Error{Kind: KindGatewayCancelled}
	ErrReconciliationFailed = &Error{Kind: KindReconciliationFailed}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrConflict             = &Error{Kind: KindConflict}
	ErrRateLimited          = &Error{Kind: KindRateLimited}
)

// Error is an application error carrying a kind, a stable code and user-facing message
type Error struct {
	Kind      Kind           `json:"kind"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Retryable bool           `json:"retryable"`
	Err       error          `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrPersistenceFailed) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// WithDetails attaches details and returns the error
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithDetail sets a single detail key
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = map[string]any{}
	}
	e.Details[key] = value
	return e
}

// HTTPStatus maps the kind to a response status
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindAuthRequired:
		return http.StatusUnauthorized
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindPersistenceFailed:
		return http.StatusServiceUnavailable
	case KindGatewayUnavailable:
		return http.StatusBadGateway
	case KindGatewayDeclined:
		return http.StatusPaymentRequired
	case KindGatewayCancelled:
		return http.StatusOK
	case KindReconciliationFailed:
		return http.StatusAccepted
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func newError(kind Kind, code, message string, retryable bool, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Retryable: retryable, Err: err}
}

func AuthRequired(message string) *Error {
	return newError(KindAuthRequired, "auth_required", message, false, nil)
}

func Validation(code, message string) *Error {
	return newError(KindValidationFailed, code, message, false, nil)
}

func Persistence(err error, message string) *Error {
	return newError(KindPersistenceFailed, "persistence_failed", message, true, err)
}

func GatewayUnavailable(err error) *Error {
	return newError(KindGatewayUnavailable, "gateway_unavailable", "the payment gateway could not be reached, please try again", true, err)
}

func GatewayDeclined(message string) *Error {
	if message == "" {
		message = "the payment was declined"
	}
	return newError(KindGatewayDeclined, "gateway_declined", message, true, nil)
}

func GatewayCancelled() *Error {
	return newError(KindGatewayCancelled, "gateway_cancelled", "payment was cancelled", true, nil)
}

func ReconciliationFailed(err error) *Error {
	return newError(KindReconciliationFailed, "reconciliation_failed", "payment is being verified", false, err)
}

func NotFound(resource string) *Error {
	return newError(KindNotFound, "not_found", fmt.Sprintf("%s not found", resource), false, nil)
}

func Conflict(code, message string) *Error {
	return newError(KindConflict, code, message, false, nil)
}

// RateLimited is retryable once retryAfter has passed
func RateLimited(message string, retryAfter time.Time) *Error {
	return newError(KindRateLimited, "rate_limited", message, true, nil).
		WithDetail("retry_after", retryAfter.UTC().Format(time.RFC3339))
}

func Internal(err error) *Error {
	return newError(KindInternal, "internal_error", "an unexpected error occurred", false, err)
}

// From extracts an *Error, wrapping anything else as internal
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// KindOf returns the kind of err, or KindInternal
func KindOf(err error) Kind {
	return From(err).Kind
}
