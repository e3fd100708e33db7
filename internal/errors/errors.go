// Package errors provides sentinel errors and error types for the CQL front end.
// It defines common error conditions and structured error types that preserve
// context while allowing error inspection with errors.Is() and errors.As().
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure conditions.
// Use these with errors.Is() to check for specific error types.
var (
	// ErrCQLSyntax indicates a Chess Query Language syntax error.
	ErrCQLSyntax = errors.New("CQL syntax error")

	// ErrDefinition indicates a conflicting declaration or type lock.
	ErrDefinition = errors.New("definition conflict")

	// ErrDesignator indicates a malformed piece designator.
	ErrDesignator = errors.New("invalid piece designator")

	// ErrUnresolvedType indicates a name whose type was never fixed.
	ErrUnresolvedType = errors.New("unresolved type")

	// ErrInvalidConfig indicates invalid configuration values.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ParseError represents a parsing error with source location context.
// It's used for every failure raised while turning CQL text into an AST.
type ParseError struct {
	Err      error  // The underlying error
	File     string // Source file name
	Line     int    // Line number (1-based)
	Column   int    // Column number (1-based)
	Expected string // What was expected (for syntax errors)
	Got      string // What was found instead
}

// Error returns a formatted error message with location and context.
func (e *ParseError) Error() string {
	var parts []string

	// Add source location
	if loc := e.location(); loc != "" {
		parts = append(parts, loc)
	}

	// Add expected/got context
	if e.Expected != "" && e.Got != "" {
		parts = append(parts, fmt.Sprintf("expected %s, got %s", e.Expected, e.Got))
	} else if e.Expected != "" {
		parts = append(parts, fmt.Sprintf("expected %s", e.Expected))
	} else if e.Got != "" {
		parts = append(parts, fmt.Sprintf("unexpected %s", e.Got))
	}

	// Add underlying error
	if e.Err != nil {
		if len(parts) > 0 {
			return fmt.Sprintf("%s: %v", strings.Join(parts, ": "), e.Err)
		}
		return e.Err.Error()
	}

	if len(parts) > 0 {
		return strings.Join(parts, ": ")
	}
	return "parse error"
}

func (e *ParseError) location() string {
	loc := e.File
	if e.Line > 0 {
		if loc == "" {
			loc = fmt.Sprintf("line %d", e.Line)
		} else {
			loc += fmt.Sprintf(":%d", e.Line)
		}
		if e.Column > 0 {
			loc += fmt.Sprintf(":%d", e.Column)
		}
	}
	return loc
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// DefinitionError reports a rejected declaration or type change for a
// user-declared name. The registry is never modified when one is returned.
type DefinitionError struct {
	Name   string // The declared name
	Field  string // What was being set: "kind", "filter type", "persistence", ...
	Old    string // Current value
	New    string // Rejected value
	Detail string // Optional explanation
}

// Error returns a message naming the definition and both conflicting values.
func (e *DefinitionError) Error() string {
	msg := fmt.Sprintf("definition %q: cannot change %s from %s to %s", e.Name, e.Field, e.Old, e.New)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap returns ErrDefinition so callers can test with errors.Is().
func (e *DefinitionError) Unwrap() error {
	return ErrDefinition
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap adds context to an error while preserving the underlying error
// for inspection with errors.Is() and errors.As().
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf adds formatted context to an error while preserving the underlying
// error for inspection with errors.Is() and errors.As().
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}
