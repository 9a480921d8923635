// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/execproxy/execproxy/internal/config"
	"github.com/execproxy/execproxy/internal/issue"
	"github.com/execproxy/execproxy/internal/logging"

	"github.com/charmbracelet/log"
)

// issueStyle lets glamour pick dark, light or plain output from the terminal.
const issueStyle = "auto"

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the same App.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer
		flags  globalFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	globalFlags struct {
		configPath string
		envFile    string
		verbose    bool
	}
)

// NewApp creates an App from deps.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{
		ConfigFilePath: a.flags.configPath,
		EnvFilePath:    a.flags.envFile,
	}
}

// loadConfig loads configuration honoring the global flags. Failures are
// reported to stderr and returned as an ExitError with ExitConfig.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		return nil, a.fail(ExitConfig, err)
	}
	return cfg, nil
}

// newLogger builds the process logger from cfg. --verbose forces debug.
func (a *App) newLogger(cfg *config.Config) (*log.Logger, error) {
	level := string(cfg.Log.Level)
	if a.flags.verbose {
		level = string(config.LogLevelDebug)
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: string(cfg.Log.Format),
		Writer: a.stderr,
	})
}

// fail prints err for the user, including the linked troubleshooting entry,
// and wraps it in an ExitError.
func (a *App) fail(code ExitCode, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, a.flags.verbose))
	if iss, ok := issue.IssueOf(err); ok {
		if rendered, renderErr := iss.Render(issueStyle); renderErr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
	}
	return &ExitError{Code: code, Err: err}
}
