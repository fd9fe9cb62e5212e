package errors

import "fmt"

// Usage error codes (USE100-199)
const (
	// ErrMalformedDirective indicates a directive whose arguments cannot be parsed
	ErrMalformedDirective ErrorCode = "USE100"
	// ErrDescriptionPosition indicates a literal that is not the last rule unit
	ErrDescriptionPosition ErrorCode = "USE101"
	// ErrOldOutsideEnsures indicates old() used in requires or invariant
	ErrOldOutsideEnsures ErrorCode = "USE102"
	// ErrOldArity indicates old() called with other than one argument
	ErrOldArity ErrorCode = "USE103"
	// ErrMarkerMisuse indicates weave.Proceed() used as an expression
	ErrMarkerMisuse ErrorCode = "USE104"
	// ErrAroundWithoutProceed indicates around advice that skips the joint point on a function with ensures
	ErrAroundWithoutProceed ErrorCode = "USE105"
	// ErrUnsupportedDeclaration indicates a directive attached to the wrong kind of declaration
	ErrUnsupportedDeclaration ErrorCode = "USE106"
	// ErrInvalidAspectMethod indicates an aspect type with methods other than Before/After/Around
	ErrInvalidAspectMethod ErrorCode = "USE107"
	// ErrUnsupportedParameter indicates a parameter that cannot be forwarded
	ErrUnsupportedParameter ErrorCode = "USE108"
	// ErrDuplicateDirective indicates a directive that may appear only once
	ErrDuplicateDirective ErrorCode = "USE109"
	// ErrUnknownDirective indicates a //weave: directive with an unknown name
	ErrUnknownDirective ErrorCode = "USE110"
)

// NewMalformedDirective creates a USE100 error
func NewMalformedDirective(name, reason string) *CompilerError {
	return newError(
		ErrMalformedDirective,
		"malformed_directive",
		CategoryUsage,
		SeverityError,
		fmt.Sprintf("Malformed //weave:%s directive: %s", name, reason),
	)
}

// NewDescriptionPosition creates a USE101 error
func NewDescriptionPosition(lit string) *CompilerError {
	return newError(
		ErrDescriptionPosition,
		"description_position",
		CategoryUsage,
		SeverityError,
		fmt.Sprintf("Description should be last element, found %s before the end of the rule", lit),
	).WithSuggestion("Move the string literal to the very end of the rule").
		WithExamples(`//weave:requires x > 0, "x must be positive"`)
}

// NewOldOutsideEnsures creates a USE102 error
func NewOldOutsideEnsures(kind string) *CompilerError {
	return newError(
		ErrOldOutsideEnsures,
		"old_outside_ensures",
		CategoryUsage,
		SeverityError,
		fmt.Sprintf("Only ensures support 'old' pseudo-expressions, found one in %s", kind),
	)
}

// NewOldArity creates a USE103 error
func NewOldArity(got int) *CompilerError {
	return newError(
		ErrOldArity,
		"old_arity",
		CategoryUsage,
		SeverityError,
		fmt.Sprintf("The 'old' pseudo-function takes exactly one argument, got %d", got),
	)
}

// NewMarkerMisuse creates a USE104 error
func NewMarkerMisuse(aspect string) *CompilerError {
	return newError(
		ErrMarkerMisuse,
		"marker_misuse",
		CategoryUsage,
		SeverityError,
		fmt.Sprintf("weave.Proceed() in aspect %s must be a standalone statement", aspect),
	).WithExamples("weave.Proceed()")
}

// NewAroundWithoutProceed creates a USE105 error
func NewAroundWithoutProceed(aspect, fn string) *CompilerError {
	return newError(
		ErrAroundWithoutProceed,
		"around_without_proceed",
		CategoryUsage,
		SeverityError,
		fmt.Sprintf("Around advice of %s never calls weave.Proceed(), so the ensures contracts of %s would check a result that was never computed", aspect, fn),
	).WithSuggestion("Call weave.Proceed() in the around advice or drop the ensures contracts")
}

// NewUnsupportedDeclaration creates a USE106 error
func NewUnsupportedDeclaration(directive, want string) *CompilerError {
	return newError(
		ErrUnsupportedDeclaration,
		"unsupported_declaration",
		CategoryUsage,
		SeverityError,
		fmt.Sprintf("//weave:%s can only be attached to %s", directive, want),
	)
}

// NewInvalidAspectMethod creates a USE107 error
func NewInvalidAspectMethod(aspect, method string) *CompilerError {
	return newError(
		ErrInvalidAspectMethod,
		"invalid_aspect_method",
		CategoryUsage,
		SeverityError,
		fmt.Sprintf("Aspect %s supports only Before, After and Around methods, found %s", aspect, method),
	)
}

// NewUnsupportedParameter creates a USE108 error
func NewUnsupportedParameter(fn, reason string) *CompilerError {
	return newError(
		ErrUnsupportedParameter,
		"unsupported_parameter",
		CategoryUsage,
		SeverityError,
		fmt.Sprintf("Cannot forward parameters of %s: %s", fn, reason),
	).WithSuggestion("Give every parameter a name")
}

// NewDuplicateDirective creates a USE109 error
func NewDuplicateDirective(name string) *CompilerError {
	return newError(
		ErrDuplicateDirective,
		"duplicate_directive",
		CategoryUsage,
		SeverityError,
		fmt.Sprintf("Duplicate //weave:%s directive", name),
	)
}

// NewUnknownDirective creates a USE110 error
func NewUnknownDirective(name string) *CompilerError {
	return newError(
		ErrUnknownDirective,
		"unknown_directive",
		CategoryUsage,
		SeverityError,
		fmt.Sprintf("Unknown directive //weave:%s", name),
	)
}
