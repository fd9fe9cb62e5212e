package errors

import "fmt"

// Code generation error codes (GEN300-399)
const (
	// ErrCodeGenFailed indicates a general code generation failure
	ErrCodeGenFailed ErrorCode = "GEN300"
	// ErrOutputFailed indicates the woven output could not be written
	ErrOutputFailed ErrorCode = "GEN301"
	// ErrParseFailed indicates annotated source that does not parse
	ErrParseFailed ErrorCode = "GEN302"
)

// Aspect warning codes (ASP400-499)
const (
	// ErrUnrecognizedAdvice indicates an aspect method that is not advice
	ErrUnrecognizedAdvice ErrorCode = "ASP400"
)

// NewCodeGenFailed creates a GEN300 error
func NewCodeGenFailed(reason string) *CompilerError {
	return newError(
		ErrCodeGenFailed,
		"codegen_failed",
		CategoryCodeGen,
		SeverityError,
		fmt.Sprintf("Code generation failed: %s", reason),
	)
}

// NewOutputFailed creates a GEN301 error
func NewOutputFailed(path string, cause error) *CompilerError {
	return newError(
		ErrOutputFailed,
		"output_failed",
		CategoryCodeGen,
		SeverityError,
		fmt.Sprintf("Failed to write %s", path),
	).WithCause(cause)
}

// NewParseFailed creates a GEN302 error
func NewParseFailed(path string, cause error) *CompilerError {
	return newError(
		ErrParseFailed,
		"parse_failed",
		CategoryCodeGen,
		SeverityError,
		fmt.Sprintf("Failed to parse %s", path),
	).WithCause(cause)
}

// NewUnrecognizedAdvice creates an ASP400 warning
func NewUnrecognizedAdvice(aspect, method string) *CompilerError {
	return newError(
		ErrUnrecognizedAdvice,
		"unrecognized_advice",
		CategoryAspect,
		SeverityWarning,
		fmt.Sprintf("Incompatible aspect %s: method %s is not Before, After or Around and is ignored", aspect, method),
	)
}
