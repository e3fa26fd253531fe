// Package apperrors defines the typed failure kinds used across the
// prompt-to-chart pipeline. Callers branch on Kind instead of matching
// error message text.
package apperrors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindIntrospection marks catalog discovery failures (connectivity,
	// permissions, unsupported dialect).
	KindIntrospection Kind = "introspection"

	// KindGeneration marks failures of the text-generation step: service
	// errors, unparseable replies, or structurally invalid replies.
	KindGeneration Kind = "generation"

	// KindSQLRejected marks SQL that the guard refused to admit.
	KindSQLRejected Kind = "sql_rejected"

	// KindDatabase marks query execution failures, including timeouts.
	KindDatabase Kind = "database"

	// KindUnknown is returned for errors that carry no Kind.
	KindUnknown Kind = "unknown"
)

// Error is a classified pipeline error. Rules carries the specific
// violated guard rules when Kind is KindSQLRejected.
type Error struct {
	Kind    Kind
	Message string
	Rules   []string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if len(e.Rules) > 0 {
		msg += " (" + strings.Join(e.Rules, "; ") + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a classified error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error wrapping a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Rejected creates a KindSQLRejected error carrying the violated rules.
func Rejected(rules []string) *Error {
	return &Error{
		Kind:    KindSQLRejected,
		Message: "generated SQL was rejected",
		Rules:   rules,
	}
}

// KindOf extracts the Kind from an error chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Hint returns a human-readable recovery hint derived from the error's
// Kind. Timeouts are detected via the context error in the chain, not by
// sniffing message text.
func Hint(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "The operation timed out. Try a narrower question or a smaller date range."
	}

	switch KindOf(err) {
	case KindIntrospection:
		return "Could not read the database catalog. Check the database connection settings and permissions."
	case KindGeneration:
		return "The chart generator could not produce a valid result. Try rephrasing your question."
	case KindSQLRejected:
		var e *Error
		if errors.As(err, &e) && len(e.Rules) > 0 {
			return "The generated query was blocked: " + strings.Join(e.Rules, "; ")
		}
		return "The generated query was blocked by the safety checks. Try rephrasing your question."
	case KindDatabase:
		return "The query failed to execute. Try simplifying your question."
	default:
		return "Something went wrong. Please try again."
	}
}
