package errors

import (
	"errors"
	"fmt"
)

// Pipeline error kinds. These are sentinel values so callers can branch
// with errors.Is regardless of how deeply a failure was wrapped.
var (
	// ErrAuthentication indicates a missing, malformed, or stale request
	// signature. The request is rejected outright with no side effects.
	ErrAuthentication = errors.New("authentication failed")

	// ErrMalformedEvent indicates an event missing required fields. The
	// event is dropped but the delivery is still acknowledged so the
	// platform stops retrying it.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrTokenBudgetExceeded indicates a prompt too large for the
	// completion backend. Surfaced to the strategy layer, never silently
	// truncated.
	ErrTokenBudgetExceeded = errors.New("token budget exceeded")

	// ErrBackendUnavailable indicates a completion or conversation-store
	// call failed.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrDelivery indicates a reply send failed. Logged only; the event
	// counts as processed because re-sending risks duplicate replies.
	ErrDelivery = errors.New("delivery failed")
)

// TransientError wraps failures that are worth retrying: rate limits,
// network timeouts, backend 5xx responses.
type TransientError struct {
	msg   string
	cause error
}

// NewTransientError creates a transient error with a message and cause.
func NewTransientError(msg string, cause error) *TransientError {
	return &TransientError{msg: msg, cause: cause}
}

func (e *TransientError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *TransientError) Unwrap() error {
	return e.cause
}

// PermanentError wraps failures that retrying cannot fix: bad requests,
// revoked credentials, missing channels.
type PermanentError struct {
	msg   string
	cause error
}

// NewPermanentError creates a permanent error with a message and cause.
func NewPermanentError(msg string, cause error) *PermanentError {
	return &PermanentError{msg: msg, cause: cause}
}

func (e *PermanentError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.cause)
	}
	return e.msg
}

func (e *PermanentError) Unwrap() error {
	return e.cause
}

// IsTransientError reports whether err is (or wraps) a transient error.
func IsTransientError(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
