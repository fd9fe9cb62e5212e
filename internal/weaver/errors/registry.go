package errors

import "fmt"

// Registry error codes (REG200-299)
const (
	// ErrRegistryUnavailable indicates the companion registry did not answer
	ErrRegistryUnavailable ErrorCode = "REG200"
	// ErrNotRegistered indicates a lookup of a path nobody registered
	ErrNotRegistered ErrorCode = "REG201"
	// ErrMalformedRecord indicates a registry value that could not be decoded
	ErrMalformedRecord ErrorCode = "REG202"
	// ErrPayloadTooLarge indicates a definition that does not fit in one datagram
	ErrPayloadTooLarge ErrorCode = "REG203"
)

// NewRegistryUnavailable creates a REG200 error
func NewRegistryUnavailable(addr string, cause error) *CompilerError {
	return newError(
		ErrRegistryUnavailable,
		"registry_unavailable",
		CategoryRegistry,
		SeverityError,
		fmt.Sprintf("Companion registry at %s is unavailable", addr),
	).WithCause(cause).
		WithSuggestion("Start it with 'weave companion serve' or let 'weave gen' bootstrap it")
}

// NewNotRegistered creates a REG201 error
func NewNotRegistered(path string) *CompilerError {
	return newError(
		ErrNotRegistered,
		"not_registered",
		CategoryRegistry,
		SeverityError,
		fmt.Sprintf("%s is not registered", path),
	).WithSuggestion("Annotate the definition with //weave:register " + path + " and include its package in the run")
}

// NewMalformedRecord creates a REG202 error
func NewMalformedRecord(path string, cause error) *CompilerError {
	return newError(
		ErrMalformedRecord,
		"malformed_record",
		CategoryRegistry,
		SeverityError,
		fmt.Sprintf("Registry value for %s could not be decoded", path),
	).WithCause(cause)
}

// NewPayloadTooLarge creates a REG203 error
func NewPayloadTooLarge(path string, size, max int) *CompilerError {
	return newError(
		ErrPayloadTooLarge,
		"payload_too_large",
		CategoryRegistry,
		SeverityError,
		fmt.Sprintf("Definition %s encodes to %d bytes, above the %d byte datagram limit", path, size, max),
	)
}
