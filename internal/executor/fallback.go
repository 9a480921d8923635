// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"errors"
	"fmt"
)

const (
	// FallbackDemo answers failed forwards with a canned simulated execution.
	FallbackDemo FallbackPolicy = "demo"
	// FallbackEchoError answers failed forwards with the error message and
	// zeroed output fields.
	FallbackEchoError FallbackPolicy = "echo_error"

	// DemoOutput is the output of the demo fallback payload.
	DemoOutput = "[DEMO MODE] Simulated execution\nProgram output: Hello World"
	// DemoOutputPrefix marks every demo fallback payload.
	DemoOutputPrefix = "[DEMO MODE]"

	demoMemory  = "128"
	demoCPUTime = "0.05"
)

// ErrInvalidFallbackPolicy is returned when a FallbackPolicy value is not recognized.
var ErrInvalidFallbackPolicy = errors.New("invalid fallback policy")

type (
	// FallbackPolicy selects which FallbackResponse variant is synthesized
	// when the upstream call cannot be completed.
	FallbackPolicy string

	// InvalidFallbackPolicyError is returned when a FallbackPolicy value is not recognized.
	InvalidFallbackPolicyError struct {
		Value FallbackPolicy
	}

	// FallbackResponse is a locally synthesized response with the same shape
	// as the upstream's success body. Memory and CPUTime are strings in demo
	// mode and numbers in echo-error mode, matching what existing callers
	// already parse.
	FallbackResponse struct {
		Output  string `json:"output"`
		Memory  any    `json:"memory"`
		CPUTime any    `json:"cpuTime"`
		Error   string `json:"error,omitempty"`
	}
)

// Error implements the error interface for InvalidFallbackPolicyError.
func (e *InvalidFallbackPolicyError) Error() string {
	return fmt.Sprintf("invalid fallback policy %q (valid: demo, echo_error)", e.Value)
}

// Unwrap returns ErrInvalidFallbackPolicy for errors.Is() compatibility.
func (e *InvalidFallbackPolicyError) Unwrap() error { return ErrInvalidFallbackPolicy }

// String returns the string representation of the FallbackPolicy.
func (p FallbackPolicy) String() string { return string(p) }

// IsValid returns whether the FallbackPolicy is one of the defined policies,
// and a list of validation errors if it is not.
func (p FallbackPolicy) IsValid() (bool, []error) {
	switch p {
	case FallbackDemo, FallbackEchoError:
		return true, nil
	default:
		return false, []error{&InvalidFallbackPolicyError{Value: p}}
	}
}

// Fallback synthesizes the response for a failed forward. It is deterministic:
// the demo variant ignores err entirely and the echo variant only reflects
// err's message. Unknown policies behave like FallbackDemo.
func Fallback(policy FallbackPolicy, err error) FallbackResponse {
	if policy == FallbackEchoError {
		return echoError(err)
	}
	return FallbackResponse{
		Output:  DemoOutput,
		Memory:  demoMemory,
		CPUTime: demoCPUTime,
	}
}

func echoError(err error) FallbackResponse {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return FallbackResponse{
		Error:   msg,
		Output:  "",
		Memory:  0,
		CPUTime: 0,
	}
}
