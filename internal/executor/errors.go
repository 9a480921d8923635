// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"errors"
	"fmt"
)

const (
	// ForwardErrorEncode means the request could not be serialized or the
	// outbound HTTP request could not be built.
	ForwardErrorEncode ForwardErrorKind = "encode"
	// ForwardErrorUnreachable means the upstream could not be contacted
	// (DNS, connect, TLS, timeout, cancellation).
	ForwardErrorUnreachable ForwardErrorKind = "unreachable"
	// ForwardErrorRead means the upstream answered but its body could not be read.
	ForwardErrorRead ForwardErrorKind = "read"
	// ForwardErrorMalformed means the upstream body was not JSON.
	ForwardErrorMalformed ForwardErrorKind = "malformed"
)

var (
	// ErrMalformedInput is the sentinel wrapped by MalformedInputError.
	ErrMalformedInput = errors.New("malformed input")
	// ErrMissingField is the sentinel wrapped by MissingFieldError.
	ErrMissingField = errors.New("missing required field")
	// ErrUpstreamUnreachable is wrapped by ForwardError when the upstream
	// could not be contacted at all.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	// ErrUpstream is wrapped by every other ForwardError kind.
	ErrUpstream = errors.New("upstream failure")
)

type (
	// MalformedInputError is returned when the request body is not a UTF-8
	// JSON object with the expected field types.
	MalformedInputError struct {
		Err error
	}

	// MissingFieldError is returned when a required ExecuteRequest field is
	// absent or blank and the FieldPolicy is FieldPolicyReject.
	MissingFieldError struct {
		Field string
	}

	// ForwardErrorKind classifies why a forward attempt failed.
	ForwardErrorKind string

	// ForwardError is the error half of Forwarder.Forward. Callers downgrade
	// every kind into a FallbackResponse.
	ForwardError struct {
		Kind ForwardErrorKind
		Err  error
	}
)

// Error implements the error interface for MalformedInputError.
func (e *MalformedInputError) Error() string {
	if e.Err == nil {
		return "malformed input"
	}
	return fmt.Sprintf("malformed input: %v", e.Err)
}

// Unwrap returns ErrMalformedInput for errors.Is() compatibility.
func (e *MalformedInputError) Unwrap() error { return ErrMalformedInput }

// Error implements the error interface for MissingFieldError.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// Unwrap returns ErrMissingField for errors.Is() compatibility.
func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// Error implements the error interface for ForwardError.
func (e *ForwardError) Error() string {
	switch e.Kind {
	case ForwardErrorUnreachable:
		return fmt.Sprintf("upstream unreachable: %v", e.Err)
	case ForwardErrorRead:
		return fmt.Sprintf("failed to read upstream response: %v", e.Err)
	case ForwardErrorMalformed:
		return fmt.Sprintf("malformed upstream response: %v", e.Err)
	default:
		return fmt.Sprintf("failed to build upstream request: %v", e.Err)
	}
}

// Unwrap exposes both the kind sentinel and the underlying cause, so
// errors.Is(err, ErrUpstreamUnreachable) and errors.Is(err, context.DeadlineExceeded)
// both work on the same value.
func (e *ForwardError) Unwrap() []error {
	if e.Kind == ForwardErrorUnreachable {
		return []error{ErrUpstreamUnreachable, e.Err}
	}
	return []error{ErrUpstream, e.Err}
}
