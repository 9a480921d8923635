// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{
			name: "operation only",
			err:  &ActionableError{Operation: "start server"},
			want: "failed to start server",
		},
		{
			name: "with resource",
			err:  &ActionableError{Operation: "start server", Resource: "127.0.0.1:8001"},
			want: "failed to start server: 127.0.0.1:8001",
		},
		{
			name: "with cause",
			err:  &ActionableError{Operation: "load configuration", Resource: "config.cue", Cause: errors.New("bad port")},
			want: "failed to load configuration: config.cue: bad port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("sentinel")
	err := NewErrorContext().WithOperation("probe upstream").Wrap(sentinel).BuildError()
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection refused")
	err := NewErrorContext().
		WithOperation("probe upstream").
		WithResource("https://api.example.test").
		WithSuggestion("Check your network").
		WithSuggestions("Raise upstream.timeout", "Run with --verbose").
		Wrap(&wrapped{inner}).
		Build()

	plain := err.Format(false)
	if strings.Count(plain, "•") != 3 {
		t.Errorf("Format(false) should list 3 suggestions, got:\n%s", plain)
	}
	if strings.Contains(plain, "Error chain") {
		t.Error("Format(false) should not include the error chain")
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:") || !strings.Contains(verbose, "2. connection refused") {
		t.Errorf("Format(true) should include the unwrapped chain, got:\n%s", verbose)
	}
}

func TestErrorContext_BuildWithoutOperation(t *testing.T) {
	t.Parallel()

	if got := NewErrorContext().WithResource("x").Build(); got != nil {
		t.Errorf("Build() = %v, want nil", got)
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() = %v, want untyped nil", err)
	}
}

func TestWrapWithOperation(t *testing.T) {
	t.Parallel()

	if WrapWithOperation(nil, "x") != nil {
		t.Error("WrapWithOperation(nil) should return nil")
	}
	got := WrapWithOperation(errors.New("boom"), "write diagram")
	if got.Error() != "failed to write diagram: boom" {
		t.Errorf("Error() = %q", got.Error())
	}
	if got.HasSuggestions() {
		t.Error("HasSuggestions() = true, want false")
	}
}

func TestIssueOf(t *testing.T) {
	t.Parallel()

	linked := NewErrorContext().
		WithOperation("start server").
		WithIssue(ServerStartFailedId).
		Wrap(errors.New("address in use")).
		BuildError()

	got, ok := IssueOf(linked)
	if !ok || got.Id() != ServerStartFailedId {
		t.Errorf("IssueOf() = %v, %v; want ServerStartFailed", got, ok)
	}

	// Nested: outer error has no issue, inner one does.
	outer := NewErrorContext().WithOperation("serve").Wrap(linked).BuildError()
	if got, ok := IssueOf(outer); !ok || got.Id() != ServerStartFailedId {
		t.Errorf("IssueOf(nested) = %v, %v; want ServerStartFailed", got, ok)
	}

	if _, ok := IssueOf(errors.New("plain")); ok {
		t.Error("IssueOf(plain error) should be false")
	}
}

type wrapped struct{ err error }

func (w *wrapped) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }
