// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/execproxy/execproxy/internal/config"
	"github.com/execproxy/execproxy/internal/issue"

	"github.com/charmbracelet/fang"
)

func TestGetVersionString(t *testing.T) {
	// Not parallel: subtests mutate package-level Version/Commit/BuildDate vars.

	t.Run("ldflags version takes priority", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		Version = "v1.2.3"
		Commit = "abc1234"
		BuildDate = "2026-03-14T09:26:53Z"

		got := getVersionString()
		want := "v1.2.3 (commit: abc1234, built: 2026-03-14T09:26:53Z)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})

	t.Run("fallback to dev when no build info", func(t *testing.T) {
		origVersion, origCommit, origBuildDate := Version, Commit, BuildDate
		t.Cleanup(func() {
			Version, Commit, BuildDate = origVersion, origCommit, origBuildDate
		})

		// Test binaries report Main.Version == "(devel)".
		Version = "dev"

		got := getVersionString()
		want := "dev (built from source)"
		if got != want {
			t.Errorf("getVersionString() = %q, want %q", got, want)
		}
	})
}

func TestFormatErrorForDisplay(t *testing.T) {
	t.Parallel()

	plain := errors.New("boom")
	if got := formatErrorForDisplay(plain, false); got != "boom" {
		t.Errorf("plain error = %q, want boom", got)
	}

	ae := issue.NewErrorContext().
		WithOperation("start server").
		WithResource("127.0.0.1:8001").
		WithSuggestion("Pick another port").
		Wrap(errors.New("address already in use")).
		BuildError()

	got := formatErrorForDisplay(ae, false)
	for _, want := range []string{"failed to start server", "127.0.0.1:8001", "• Pick another port"} {
		if !strings.Contains(got, want) {
			t.Errorf("formatted error missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Error chain:") {
		t.Error("non-verbose output should not include the error chain")
	}

	if verbose := formatErrorForDisplay(ae, true); !strings.Contains(verbose, "Error chain:") {
		t.Errorf("verbose output should include the error chain:\n%s", verbose)
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	t.Parallel()

	root := NewRootCommand(NewApp(Dependencies{Config: &stubProvider{cfg: testConfig()}}))

	for _, name := range []string{"serve", "probe", "config", "issue"} {
		if sub, _, err := root.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("subcommand %q not registered (err = %v)", name, err)
		}
	}
	for _, flag := range []string{"config", "env-file", "verbose"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}

func TestGlobalFlagsReachProvider(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{cfg: testConfig()}
	res := runCLI(t, provider, "--config", "/tmp/custom.cue", "--env-file", "/tmp/creds.env", "config", "dump")
	if res.err != nil {
		t.Fatalf("config dump error = %v\nstderr: %s", res.err, res.stderr)
	}

	want := config.LoadOptions{ConfigFilePath: "/tmp/custom.cue", EnvFilePath: "/tmp/creds.env"}
	if got := provider.lastOptions(); got != want {
		t.Errorf("LoadOptions = %+v, want %+v", got, want)
	}
}

func TestConfigLoadFailureExitsWithConfigCode(t *testing.T) {
	t.Parallel()

	loadErr := issue.NewErrorContext().
		WithOperation("load configuration").
		WithResource("config.cue").
		WithIssue(issue.ConfigLoadFailedId).
		Wrap(errors.New("server.port: out of range")).
		BuildError()

	res := runCLI(t, &stubProvider{err: loadErr}, "config", "show")

	var exitErr *ExitError
	if !errors.As(res.err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", res.err)
	}
	if exitErr.Code != ExitConfig {
		t.Errorf("exit code = %d, want %d", exitErr.Code, ExitConfig)
	}
	if !strings.Contains(res.stderr, "server.port: out of range") {
		t.Errorf("stderr should explain the failure:\n%s", res.stderr)
	}
	if !strings.Contains(res.stderr, "failed to load configuration") {
		t.Errorf("stderr should name the failed operation:\n%s", res.stderr)
	}
}

func TestHandleError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantEmpty bool
	}{
		{name: "reported exit error", err: &ExitError{Code: ExitFailure, Err: errors.New("failed to reach upstream")}, wantEmpty: true},
		{name: "bare exit error", err: &ExitError{Code: ExitConfig}, wantEmpty: true},
		{name: "unreported error", err: errors.New(`unknown flag: --bogus`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			handleError(&buf, fang.Styles{}, tt.err)

			if tt.wantEmpty && buf.Len() != 0 {
				t.Errorf("handleError() wrote %q, want nothing", buf.String())
			}
			if !tt.wantEmpty && !strings.Contains(buf.String(), "unknown flag") {
				t.Errorf("handleError() wrote %q, want the error text", buf.String())
			}
		})
	}
}

func TestFailedCommandReportsErrorOnce(t *testing.T) {
	t.Parallel()

	res := runCLI(t, &stubProvider{err: errors.New("broken config")}, "probe")

	var exitErr *ExitError
	if !errors.As(res.err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", res.err)
	}
	var buf bytes.Buffer
	handleError(&buf, fang.Styles{}, res.err)
	if buf.Len() != 0 {
		t.Errorf("error rendered again after App.fail: %q", buf.String())
	}
	if n := strings.Count(res.stderr, "broken config"); n != 1 {
		t.Errorf("stderr mentions the error %d times, want 1:\n%s", n, res.stderr)
	}
}
