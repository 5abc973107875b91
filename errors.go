package mymcp

import (
	"errors"
	"fmt"

	"github.com/tmarkel/mysql-mcp/internal/safety"
)

// Sentinel errors surfaced by tool handlers.
var (
	// ErrEmptyStatement rejects empty or whitespace/comment-only SQL before
	// classification is even consulted.
	ErrEmptyStatement = safety.ErrEmpty

	// ErrMultipleStatements rejects stacked queries, which would undermine
	// the keyword classifier.
	ErrMultipleStatements = safety.ErrMultiStatement

	// ErrUnconditionedMutation rejects update/delete without a WHERE
	// condition, even under the dangerous-allowed policy.
	ErrUnconditionedMutation = errors.New("update/delete without a where condition is not allowed")
)

// InvalidArgumentsError reports tool arguments that failed validation:
// missing required fields, wrong types, invalid identifiers.
type InvalidArgumentsError struct {
	Reason string
}

func (e *InvalidArgumentsError) Error() string {
	return "invalid arguments: " + e.Reason
}

func invalidArgs(format string, args ...any) error {
	return &InvalidArgumentsError{Reason: fmt.Sprintf(format, args...)}
}

// PolicyViolationError reports a dangerous statement rejected by the safety
// policy. The statement never reached the database.
type PolicyViolationError struct {
	Tool    string
	Keyword string
}

func (e *PolicyViolationError) Error() string {
	if e.Keyword != "" {
		return fmt.Sprintf("statement rejected by safety policy: leading keyword %s is dangerous; start the server with allow_dangerous_queries to permit it", e.Keyword)
	}
	return fmt.Sprintf("tool %q is mutating by construction and rejected by safety policy; start the server with allow_dangerous_queries to permit it", e.Tool)
}

// TableNotFoundError reports a schema lookup against a nonexistent table.
type TableNotFoundError struct {
	Table string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table %q does not exist in the connected database", e.Table)
}

// DatabaseError wraps a driver failure. Message carries the driver's
// diagnostic text (with any configured error prompts appended); the original
// statement's bound values are never included.
type DatabaseError struct {
	Message string
	Err     error
}

func (e *DatabaseError) Error() string {
	return "database error: " + e.Message
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
