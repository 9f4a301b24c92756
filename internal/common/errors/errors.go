// Package errors provides standardized error handling for the
// support orchestration core.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed      ErrorCode = "VALIDATION_FAILED"
	ErrCodeTransactionNotFound   ErrorCode = "TRANSACTION_NOT_FOUND"
	ErrCodeVerificationMismatch  ErrorCode = "VERIFICATION_MISMATCH"
	ErrCodeQuotaExceeded         ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeSessionExpired        ErrorCode = "SESSION_EXPIRED"
	ErrCodeClassificationTimeout ErrorCode = "CLASSIFICATION_TIMEOUT"
	ErrCodeClassificationFailed  ErrorCode = "CLASSIFICATION_FAILED"
	ErrCodeRequestTimeout        ErrorCode = "REQUEST_TIMEOUT"
	ErrCodeStoreUnavailable      ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeInternal              ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code        ErrorCode              `json:"code"`
	Message     string                 `json:"message"`
	Details     string                 `json:"details,omitempty"`
	Recoverable bool                   `json:"recoverable"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewValidationError creates a recoverable error for malformed or
// missing user-supplied identifiers; the user must resupply.
func NewValidationError(message, details string) *StandardError {
	return &StandardError{
		Code:        ErrCodeValidationFailed,
		Message:     message,
		Details:     details,
		Recoverable: true,
		Timestamp:   time.Now().UTC(),
	}
}

// NewTransactionNotFoundError creates a recoverable reference-lookup
// miss error.
func NewTransactionNotFoundError(invoiceNo string) *StandardError {
	return &StandardError{
		Code:        ErrCodeTransactionNotFound,
		Message:     "We couldn't find a transaction with those details. Please double-check your invoice number and customer ID.",
		Details:     fmt.Sprintf("invoiceNo: %s", invoiceNo),
		Recoverable: true,
		Timestamp:   time.Now().UTC(),
	}
}

// NewVerificationMismatchError creates a recoverable verification
// error. The message is deliberately non-specific: it must not reveal
// whether the invoice exists for a different customer.
func NewVerificationMismatchError() *StandardError {
	return &StandardError{
		Code:        ErrCodeVerificationMismatch,
		Message:     "Verification failed for the details provided. Please double-check your invoice number and customer ID.",
		Recoverable: true,
		Timestamp:   time.Now().UTC(),
	}
}

// NewQuotaExceededError creates a terminal session error: the limit
// holds until the user starts a new session.
func NewQuotaExceededError(sessionID string, max int) *StandardError {
	return &StandardError{
		Code:        ErrCodeQuotaExceeded,
		Message:     "You've reached the maximum number of queries for this session. Please start a new conversation.",
		Details:     fmt.Sprintf("sessionId: %s, maxQueries: %d", sessionID, max),
		Recoverable: false,
		Timestamp:   time.Now().UTC(),
	}
}

// NewSessionExpiredError creates a terminal session error after idle
// timeout; prior conversation context is unrecoverable.
func NewSessionExpiredError(sessionID string) *StandardError {
	return &StandardError{
		Code:        ErrCodeSessionExpired,
		Message:     "Your session has expired. Please start a new conversation.",
		Details:     fmt.Sprintf("sessionId: %s", sessionID),
		Recoverable: false,
		Timestamp:   time.Now().UTC(),
	}
}

// NewClassificationTimeoutError creates a recoverable classifier
// timeout; the router recovers via the local fallback heuristic, so
// this never surfaces to the caller as a failure.
func NewClassificationTimeoutError(err error) *StandardError {
	e := &StandardError{
		Code:        ErrCodeClassificationTimeout,
		Message:     "Classification service did not respond in time",
		Recoverable: true,
		Timestamp:   time.Now().UTC(),
	}
	if err != nil {
		e.Details = err.Error()
	}
	return e
}

// NewClassificationFailedError creates a recoverable classifier error.
func NewClassificationFailedError(err error) *StandardError {
	return &StandardError{
		Code:        ErrCodeClassificationFailed,
		Message:     "Classification service call failed",
		Details:     err.Error(),
		Recoverable: true,
		Timestamp:   time.Now().UTC(),
	}
}

// NewRequestTimeoutError creates an error for a request that exceeded
// its overall deadline.
func NewRequestTimeoutError(sessionID string) *StandardError {
	return &StandardError{
		Code:        ErrCodeRequestTimeout,
		Message:     "Your request took too long to process. Please try again.",
		Details:     fmt.Sprintf("sessionId: %s", sessionID),
		Recoverable: true,
		Timestamp:   time.Now().UTC(),
	}
}

// NewStoreUnavailableError creates a fatal reference-store error;
// requests fail without caching or logging a misleading success.
func NewStoreUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:        ErrCodeStoreUnavailable,
		Message:     "Reference store unavailable",
		Details:     err.Error(),
		Recoverable: false,
		Timestamp:   time.Now().UTC(),
	}
}

// NewInternalError wraps a truly unexpected failure.
func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:        ErrCodeInternal,
		Message:     "Unexpected internal error",
		Details:     err.Error(),
		Recoverable: false,
		Timestamp:   time.Now().UTC(),
	}
}

// Fatal reports whether the code must abort the request rather than
// be converted into a user-facing Response.
func Fatal(code ErrorCode) bool {
	switch code {
	case ErrCodeStoreUnavailable, ErrCodeInternal:
		return true
	}
	return false
}

// CodeOf extracts the ErrorCode from any error, defaulting to
// INTERNAL_ERROR for non-standard errors.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}
