// Package errors provides structured error handling for the weave generator.
// It defines error codes, categories, and formatting for both human-readable
// terminal output and machine-parseable JSON.
package errors

import (
	"encoding/json"
	"fmt"
	"go/token"
)

// ErrorCode represents a unique error code in the generator
type ErrorCode string

// ErrorCategory represents the category of a generator error
type ErrorCategory string

const (
	// CategoryUsage represents misuse of a directive in annotated source (USE100-199)
	CategoryUsage ErrorCategory = "usage"
	// CategoryRegistry represents companion registry failures (REG200-299)
	CategoryRegistry ErrorCategory = "registry"
	// CategoryCodeGen represents code generation errors (GEN300-399)
	CategoryCodeGen ErrorCategory = "codegen"
	// CategoryAspect represents aspect compatibility warnings (ASP400-499)
	CategoryAspect ErrorCategory = "aspect"
)

// ErrorSeverity indicates the severity level of an error
type ErrorSeverity string

const (
	// SeverityError indicates an error that aborts the generation pass
	SeverityError ErrorSeverity = "error"
	// SeverityWarning indicates a problem that does not stop generation
	SeverityWarning ErrorSeverity = "warning"
	// SeverityInfo indicates informational messages
	SeverityInfo ErrorSeverity = "info"
)

// Location is a position in annotated source.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// LocationOf converts a token position.
func LocationOf(pos token.Position) Location {
	return Location{Line: pos.Line, Column: pos.Column}
}

// CompilerError represents a structured generator error
type CompilerError struct {
	// Code is the unique error code (e.g., "USE101", "REG201")
	Code ErrorCode `json:"code"`
	// Type is a machine-readable error type identifier
	Type string `json:"type"`
	// Category is the error category
	Category ErrorCategory `json:"category"`
	// Severity is the error severity level
	Severity ErrorSeverity `json:"severity"`
	// Message is the primary error message
	Message string `json:"message"`
	// Location is the source location of the error
	Location Location `json:"location"`
	// File is the source file name (optional)
	File string `json:"file,omitempty"`
	// Directive is the offending directive text (optional)
	Directive string `json:"directive,omitempty"`
	// Suggestion provides a hint for fixing the error (optional)
	Suggestion string `json:"suggestion,omitempty"`
	// Examples provides example fixes (optional)
	Examples []string `json:"examples,omitempty"`
	// Cause is the underlying error, if any
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *CompilerError) Error() string {
	return FormatCompact(e)
}

// Unwrap exposes the underlying cause
func (e *CompilerError) Unwrap() error {
	return e.Cause
}

// Format returns a human-readable error message for terminal output
func (e *CompilerError) Format() string {
	return FormatError(e)
}

// ToJSON returns the error as a JSON string
func (e *CompilerError) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// WithFile sets the source file name for the error
func (e *CompilerError) WithFile(file string) *CompilerError {
	e.File = file
	return e
}

// At sets the file and location from a token position
func (e *CompilerError) At(pos token.Position) *CompilerError {
	if pos.Filename != "" {
		e.File = pos.Filename
	}
	e.Location = LocationOf(pos)
	return e
}

// WithDirective records the directive that caused the error
func (e *CompilerError) WithDirective(text string) *CompilerError {
	e.Directive = text
	return e
}

// WithSuggestion sets a suggestion for fixing the error
func (e *CompilerError) WithSuggestion(suggestion string) *CompilerError {
	e.Suggestion = suggestion
	return e
}

// WithExamples sets example fixes for the error
func (e *CompilerError) WithExamples(examples ...string) *CompilerError {
	e.Examples = examples
	return e
}

// WithCause records the underlying error
func (e *CompilerError) WithCause(err error) *CompilerError {
	e.Cause = err
	return e
}

// ErrorList is a collection of generator errors
type ErrorList []*CompilerError

// Error implements the error interface
func (el ErrorList) Error() string {
	if len(el) == 0 {
		return "no errors"
	}
	return FormatErrorList(el)
}

// HasErrors returns true if the list contains any errors (excludes warnings/info)
func (el ErrorList) HasErrors() bool {
	for _, err := range el {
		if err.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the entries with error severity
func (el ErrorList) Errors() ErrorList {
	var out ErrorList
	for _, err := range el {
		if err.Severity == SeverityError {
			out = append(out, err)
		}
	}
	return out
}

// ToJSON returns all errors as a JSON array
func (el ErrorList) ToJSON() (string, error) {
	bytes, err := json.MarshalIndent(el, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// ErrorCount returns the number of errors by severity
func (el ErrorList) ErrorCount() (errors, warnings, info int) {
	for _, err := range el {
		switch err.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		case SeverityInfo:
			info++
		}
	}
	return
}

// newError creates a new CompilerError with the given parameters
func newError(
	code ErrorCode,
	typ string,
	category ErrorCategory,
	severity ErrorSeverity,
	message string,
) *CompilerError {
	return &CompilerError{
		Code:     code,
		Type:     typ,
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// As reports whether err is (or wraps) a *CompilerError and returns it.
func As(err error) (*CompilerError, bool) {
	for err != nil {
		if ce, ok := err.(*CompilerError); ok {
			return ce, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// Wrapf builds a generic generation failure around err.
func Wrapf(err error, format string, args ...interface{}) *CompilerError {
	return NewCodeGenFailed(fmt.Sprintf(format, args...)).WithCause(err)
}
