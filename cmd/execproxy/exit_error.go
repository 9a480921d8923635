// SPDX-License-Identifier: MPL-2.0

package cmd

import "fmt"

// ExitCode is a process exit status.
type ExitCode int

const (
	// ExitOK means success.
	ExitOK ExitCode = 0
	// ExitFailure covers runtime failures: an unreachable upstream, rejected
	// credentials or a listener that could not start.
	ExitFailure ExitCode = 1
	// ExitConfig means the configuration could not be loaded or is invalid.
	ExitConfig ExitCode = 2
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
