package engine

import (
	"errors"
	"fmt"
)

// EngineError represents a failure of the render pipeline around the
// compiler itself: persistence and determinism checks.
//
// Resolve and render failures are not wrapped in EngineError; they surface
// as the querysql error that caused them.
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Message is a human-readable description.
	Message string

	// Fingerprint identifies the rendered input.
	Fingerprint string

	// RenderID identifies the stored render involved, if any.
	RenderID string

	// Err is the underlying cause, if any.
	Err error
}

// EngineErrorCode categorizes engine errors.
type EngineErrorCode string

const (
	// ErrCodeNonDeterministic indicates a re-render of a stored fingerprint
	// produced different comments.
	ErrCodeNonDeterministic EngineErrorCode = "NON_DETERMINISTIC"

	// ErrCodeStoreFailed indicates the render log could not be read or written.
	ErrCodeStoreFailed EngineErrorCode = "STORE_FAILED"

	// ErrCodeMissingPlan indicates a stored render has no plan to replay.
	ErrCodeMissingPlan EngineErrorCode = "MISSING_PLAN"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.RenderID != "" {
		msg += fmt.Sprintf(" (render=%s)", e.RenderID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// IsNonDeterministic returns true if the error reports a render that
// differs from the stored render of the same fingerprint.
// Uses errors.As to handle wrapped errors.
func IsNonDeterministic(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeNonDeterministic
	}
	return false
}

// IsStoreError returns true if the error is a render log failure.
func IsStoreError(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == ErrCodeStoreFailed
	}
	return false
}
