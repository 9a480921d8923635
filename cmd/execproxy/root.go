// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/execproxy/execproxy/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "execproxy",
		Short: "A CORS-enabled proxy for code-execution requests",
		Long: TitleStyle.Render("execproxy") + SubtitleStyle.Render(" - A CORS-enabled proxy for code-execution requests") + `

execproxy accepts execution requests from browser clients on /execute,
fills in defaults and server-side credentials, and forwards them to a
remote code-execution service. When the service cannot be reached it
answers with a demo payload so the client keeps working.

` + SubtitleStyle.Render("Examples:") + `
  execproxy serve                Start the proxy on 127.0.0.1:8001
  execproxy serve --port 9000    Start the proxy on another port
  execproxy probe                Check upstream credentials
  execproxy config show          Show the effective configuration
  execproxy issue                List troubleshooting topics`,
		SilenceUsage: true,
		// Commands report their own failures through App.fail; fang renders
		// the rest via handleError.
		SilenceErrors: true,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&app.flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&app.flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/execproxy/config.cue)")
	pf.StringVar(&app.flags.envFile, "env-file", "", "dotenv file with EXECPROXY_* overrides (default is ./.env when present)")

	rootCmd.AddCommand(newServeCommand(app))
	rootCmd.AddCommand(newProbeCommand(app))
	rootCmd.AddCommand(newConfigCommand(app))
	rootCmd.AddCommand(newIssueCommand(app))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version != "dev" {
		return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return "dev (built from source)"
}

// Execute runs the root command. It is called by main.main.
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(ExitFailure))
	}
}

// handleError renders errors that no command has reported yet. An ExitError
// means App.fail already printed the details to stderr.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors carry suggestions; verbose mode adds the full chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
