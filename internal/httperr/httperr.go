// Package httperr renders the deny/error envelope shared by the enforcement
// pipeline and the API handlers.
package httperr

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/praxlog/logbook-backend/internal/logging"
)

const (
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeForbidden         = "FORBIDDEN"
	CodeMissingResourceID = "MISSING_RESOURCE_ID"
	CodeRateLimited       = "RATE_LIMITED"
	CodeValidationError   = "VALIDATION_ERROR"
	CodeNotFound          = "RESOURCE_NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInternalError     = "INTERNAL_ERROR"
)

// Envelope is the consistent deny-response body. Required/Current carry the
// needed-vs-held entitlement context on 403s; Current only ever echoes the
// requester's own entitlements.
type Envelope struct {
	Success           bool           `json:"success"`
	Message           string         `json:"message"`
	ErrorCode         string         `json:"error_code,omitempty"`
	RequiredAccess    string         `json:"required_access,omitempty"`
	Required          map[string]any `json:"required,omitempty"`
	Current           map[string]any `json:"current,omitempty"`
	Hint              string         `json:"hint,omitempty"`
	ExpiredAt         *time.Time     `json:"expired_at,omitempty"`
	RetryAfterSeconds int            `json:"retry_after_seconds,omitempty"`
}

// Builder assembles an envelope and writes it exactly once.
type Builder struct {
	status   int
	envelope Envelope
}

func New(status int, code, message string) *Builder {
	return &Builder{
		status: status,
		envelope: Envelope{
			Success:   false,
			Message:   message,
			ErrorCode: code,
		},
	}
}

func Unauthorized(message string) *Builder {
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

func TokenExpired(message string, expiredAt time.Time) *Builder {
	b := New(http.StatusUnauthorized, CodeTokenExpired, message)
	b.envelope.ExpiredAt = &expiredAt
	return b
}

func Forbidden(message string) *Builder {
	return New(http.StatusForbidden, CodeForbidden, message)
}

func MissingResourceID(message string) *Builder {
	return New(http.StatusBadRequest, CodeMissingResourceID, message)
}

func RateLimited(message string, retryAfterSeconds int) *Builder {
	b := New(http.StatusTooManyRequests, CodeRateLimited, message)
	b.envelope.RetryAfterSeconds = retryAfterSeconds
	return b
}

func Validation(message string) *Builder {
	return New(http.StatusBadRequest, CodeValidationError, message)
}

func NotFound(resource string) *Builder {
	return New(http.StatusNotFound, CodeNotFound, resource+" not found")
}

func Conflict(message string) *Builder {
	return New(http.StatusConflict, CodeConflict, message)
}

func Internal(message string) *Builder {
	return New(http.StatusInternalServerError, CodeInternalError, message)
}

func (b *Builder) WithRequiredAccess(access string) *Builder {
	b.envelope.RequiredAccess = access
	return b
}

func (b *Builder) WithRequired(required map[string]any) *Builder {
	b.envelope.Required = required
	return b
}

func (b *Builder) WithCurrent(current map[string]any) *Builder {
	b.envelope.Current = current
	return b
}

func (b *Builder) WithHint(hint string) *Builder {
	b.envelope.Hint = hint
	return b
}

func (b *Builder) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.status)
	if err := json.NewEncoder(w).Encode(b.envelope); err != nil {
		logging.Error("failed to encode error response", "error", err)
	}
}
