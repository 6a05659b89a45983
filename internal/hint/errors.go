package hint

import (
	"errors"
	"fmt"

	"github.com/roach88/sqlhint/internal/queryir"
)

// Error is returned when an attachment or registration is rejected.
// Registration errors surface immediately, before any rendering happens.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the table or block the call targeted (0 when not applicable).
	Node queryir.NodeID

	// Name is the symbolic identifier or block name involved, if any.
	Name string
}

// ErrorCode categorizes registry errors.
type ErrorCode string

const (
	// ErrCodeDuplicateIdentifier indicates a TableID registered twice in one registry.
	ErrCodeDuplicateIdentifier ErrorCode = "DUPLICATE_IDENTIFIER"

	// ErrCodeDuplicateBlockName indicates two blocks given the same name.
	ErrCodeDuplicateBlockName ErrorCode = "DUPLICATE_BLOCK_NAME"

	// ErrCodeInvalidTarget indicates a hint attached to the wrong kind of node.
	ErrCodeInvalidTarget ErrorCode = "INVALID_TARGET"

	// ErrCodeInvalidHint indicates a malformed hint or parameter.
	ErrCodeInvalidHint ErrorCode = "INVALID_HINT"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Name != "" && e.Node.Valid():
		return fmt.Sprintf("%s: %s (node=%d, name=%s)", e.Code, e.Message, e.Node, e.Name)
	case e.Node.Valid():
		return fmt.Sprintf("%s: %s (node=%d)", e.Code, e.Message, e.Node)
	case e.Name != "":
		return fmt.Sprintf("%s: %s (name=%s)", e.Code, e.Message, e.Name)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode returns the code as a string.
func (e *Error) ErrorCode() string {
	return string(e.Code)
}

// IsDuplicateIdentifier returns true if err is a duplicate TableID error.
// Uses errors.As to handle wrapped errors.
func IsDuplicateIdentifier(err error) bool {
	return hasCode(err, ErrCodeDuplicateIdentifier)
}

// IsDuplicateBlockName returns true if err is a duplicate block name error.
func IsDuplicateBlockName(err error) bool {
	return hasCode(err, ErrCodeDuplicateBlockName)
}

// IsInvalidTarget returns true if err rejects the hint's target node.
func IsInvalidTarget(err error) bool {
	return hasCode(err, ErrCodeInvalidTarget)
}

// IsInvalidHint returns true if err rejects the hint itself.
func IsInvalidHint(err error) bool {
	return hasCode(err, ErrCodeInvalidHint)
}

func hasCode(err error, code ErrorCode) bool {
	var he *Error
	if errors.As(err, &he) {
		return he.Code == code
	}
	return false
}

func invalidTarget(node queryir.NodeID, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidTarget, Message: fmt.Sprintf(format, args...), Node: node}
}

func invalidHint(node queryir.NodeID, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidHint, Message: fmt.Sprintf(format, args...), Node: node}
}
