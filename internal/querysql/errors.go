package querysql

import (
	"errors"
	"fmt"

	"github.com/roach88/sqlhint/internal/queryir"
)

// RenderError represents a failure of a resolution or render pass.
//
// A render pass either produces every comment or none: there is no partial
// output and no hint is ever dropped silently.
type RenderError struct {
	// Code identifies the error category.
	Code RenderErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the table or block involved (0 when not applicable).
	Node queryir.NodeID

	// Name is the identifier or block name involved, if any.
	Name string
}

// RenderErrorCode categorizes render errors.
type RenderErrorCode string

const (
	// ErrCodeUnresolvedTableIdentifier indicates a TableID that names no live table.
	ErrCodeUnresolvedTableIdentifier RenderErrorCode = "UNRESOLVED_TABLE_IDENTIFIER"

	// ErrCodeUnknownBlockName indicates an @name parameter naming no block.
	ErrCodeUnknownBlockName RenderErrorCode = "UNKNOWN_BLOCK_NAME"

	// ErrCodeUnaddressableBlock indicates a block that must be addressed by
	// name but was flattened away.
	ErrCodeUnaddressableBlock RenderErrorCode = "UNADDRESSABLE_BLOCK"

	// ErrCodeInconsistentTree indicates the tree violates structural rules.
	ErrCodeInconsistentTree RenderErrorCode = "INCONSISTENT_TREE"

	// ErrCodeOrphanedHint indicates hints on a node no longer in the tree.
	ErrCodeOrphanedHint RenderErrorCode = "ORPHANED_HINT"

	// ErrCodeAliasConflict indicates two tables resolving to the same address.
	ErrCodeAliasConflict RenderErrorCode = "ALIAS_CONFLICT"

	// ErrCodeInvalidParam indicates a parameter with no rendered form.
	ErrCodeInvalidParam RenderErrorCode = "INVALID_PARAM"
)

// Error implements the error interface.
func (e *RenderError) Error() string {
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
func (e *RenderError) ErrorCode() string {
	return string(e.Code)
}

// IsUnresolvedTableIdentifier returns true if err is an unresolved TableID error.
// Uses errors.As to handle wrapped errors.
func IsUnresolvedTableIdentifier(err error) bool {
	return hasCode(err, ErrCodeUnresolvedTableIdentifier)
}

// IsUnknownBlockName returns true if err is an unknown block name error.
func IsUnknownBlockName(err error) bool {
	return hasCode(err, ErrCodeUnknownBlockName)
}

// IsUnaddressableBlock returns true if err is an unaddressable block error.
func IsUnaddressableBlock(err error) bool {
	return hasCode(err, ErrCodeUnaddressableBlock)
}

// IsInconsistentTree returns true if err is a tree consistency error.
func IsInconsistentTree(err error) bool {
	return hasCode(err, ErrCodeInconsistentTree)
}

// IsOrphanedHint returns true if err is an orphaned hint error.
func IsOrphanedHint(err error) bool {
	return hasCode(err, ErrCodeOrphanedHint)
}

// IsAliasConflict returns true if err is an alias conflict error.
func IsAliasConflict(err error) bool {
	return hasCode(err, ErrCodeAliasConflict)
}

func hasCode(err error, code RenderErrorCode) bool {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func newRenderError(code RenderErrorCode, node queryir.NodeID, name, format string, args ...any) *RenderError {
	return &RenderError{Code: code, Message: fmt.Sprintf(format, args...), Node: node, Name: name}
}
