// Package errors implements AETIM's failure taxonomy (spec section 7):
// every failure belongs to exactly one kind, each with its own
// propagation and retry policy.
package errors

import (
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorCode represents one of the closed set of AETIM failure kinds.
type ErrorCode string

const (
	// CodeValidationFailure wraps bad input: empty names, out-of-range
	// scores, illegal state transitions. Surfaced to the caller as-is;
	// never retried.
	CodeValidationFailure ErrorCode = "VALIDATION_FAILURE"
	// CodeAuthorisationFailure wraps an authorization gate denial.
	// Surfaced to the caller and always audited.
	CodeAuthorisationFailure ErrorCode = "AUTHORISATION_FAILURE"
	// CodeNotFound wraps a lookup miss on a required reference.
	CodeNotFound ErrorCode = "NOT_FOUND"
	// CodeTransientExternal wraps network/timeout/429/5xx collector
	// failures. Retried per the retry policy; escalated via the
	// failure tracker after retries are exhausted.
	CodeTransientExternal ErrorCode = "TRANSIENT_EXTERNAL"
	// CodePermanentExternal wraps 401/403/other-4xx/schema-mismatch
	// collector failures. Never retried; escalated immediately via the
	// failure tracker.
	CodePermanentExternal ErrorCode = "PERMANENT_EXTERNAL"
	// CodeInternalInvariant wraps a tripped internal assertion (e.g. a
	// final score outside [0,10]). Logged as error; the affected
	// command aborts but the process continues.
	CodeInternalInvariant ErrorCode = "INTERNAL_INVARIANT"
)

// AppError represents an application error with structured information,
// tagged with exactly one of the codes above.
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode maps the error's taxonomy code to the HTTP status the API
// surface should return for it.
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeValidationFailure:
		return http.StatusBadRequest
	case CodeAuthorisationFailure:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeTransientExternal:
		return http.StatusServiceUnavailable
	case CodePermanentExternal:
		return http.StatusBadGateway
	case CodeInternalInvariant:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata adds metadata to the error
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithCause adds a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StackTrace: getStackTrace(),
	}
}

// NewValidationFailure wraps bad input: empty names, out-of-range scores,
// illegal state transitions. Surfaced to the caller as-is; never retried.
func NewValidationFailure(details string) *AppError {
	return NewAppError(CodeValidationFailure, "Validation failure", details)
}

// NewAuthorisationFailure wraps an authorisation gate denial. Surfaced to
// the caller and always audited.
func NewAuthorisationFailure(action string) *AppError {
	return NewAppError(
		CodeAuthorisationFailure,
		"Authorisation failure",
		fmt.Sprintf("principal is not permitted to %s", action),
	).WithMetadata("action", action)
}

// NewNotFoundFailure wraps a lookup miss on a required reference.
func NewNotFoundFailure(resourceKind, resourceID string) *AppError {
	return NewAppError(
		CodeNotFound,
		fmt.Sprintf("%s not found", resourceKind),
		fmt.Sprintf("no %s with id %s", resourceKind, resourceID),
	).WithMetadata("resource_kind", resourceKind).WithMetadata("resource_id", resourceID)
}

// NewTransientExternalFailure wraps network/timeout/429/5xx collector
// failures. Retried per the retry policy; escalated via the failure
// tracker after retries are exhausted.
func NewTransientExternalFailure(source string, cause error) *AppError {
	return NewAppError(
		CodeTransientExternal,
		"Transient external failure",
		fmt.Sprintf("%s is temporarily unavailable", source),
	).WithCause(cause)
}

// NewPermanentExternalFailure wraps 401/403/other-4xx/schema-mismatch
// collector failures. Never retried; escalated immediately via the
// failure tracker.
func NewPermanentExternalFailure(source string, cause error) *AppError {
	return NewAppError(
		CodePermanentExternal,
		"Permanent external failure",
		fmt.Sprintf("%s rejected the request", source),
	).WithCause(cause)
}

// NewInternalInvariantFailure wraps a tripped internal assertion (e.g. a
// final score outside [0,10]). Logged as error; the affected command
// aborts but the process continues.
func NewInternalInvariantFailure(invariant string, cause error) *AppError {
	return NewAppError(
		CodeInternalInvariant,
		"Internal invariant violated",
		invariant,
	).WithCause(cause)
}

// Wrap wraps an error as an internal invariant failure if it is not
// already an AppError.
func Wrap(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := err.(*AppError); ok {
		return appErr
	}

	return NewInternalInvariantFailure(message, err)
}

// Is checks if an error is of a specific error code
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, defaulting to
// CodeInternalInvariant for anything not already an AppError.
func GetCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return CodeInternalInvariant
}

// getStackTrace captures the current stack trace
func getStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "pkg/errors") {
			builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return builder.String()
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// ErrorDetails represents the error details in API responses
type ErrorDetails struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// ToErrorResponse converts an AppError to an API error response
func ToErrorResponse(err *AppError, requestID string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetails{
			Code:      err.Code,
			Message:   err.Message,
			Details:   err.Details,
			Metadata:  err.Metadata,
			RequestID: requestID,
			Timestamp: fmt.Sprintf("%d", time.Now().Unix()),
		},
	}
}
