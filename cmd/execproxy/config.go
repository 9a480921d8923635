// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/execproxy/execproxy/internal/config"

	"github.com/spf13/cobra"
)

const (
	dumpFormatCUE  = "cue"
	dumpFormatTOML = "toml"
)

// newConfigCommand creates the `execproxy config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage execproxy configuration",
		Long: `Manage execproxy configuration.

Configuration is stored in:
  - Linux: ~/.config/execproxy/config.cue
  - macOS: ~/Library/Application Support/execproxy/config.cue
  - Windows: %APPDATA%\execproxy\config.cue

Every key can be overridden with an EXECPROXY_<SECTION>_<KEY> environment
variable, for example EXECPROXY_UPSTREAM_CLIENT_SECRET.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app)
		},
	})

	var (
		format  string
		reveal  bool
		dumpCmd = &cobra.Command{
			Use:   "dump",
			Short: "Output the effective configuration as CUE or TOML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return dumpConfig(cmd.Context(), app, format, reveal)
			},
		}
	)
	dumpCmd.Flags().StringVarP(&format, "format", "f", dumpFormatCUE, "output format: cue or toml")
	dumpCmd.Flags().BoolVar(&reveal, "reveal-secrets", false, "print the client secret instead of a mask")
	cfgCmd.AddCommand(dumpCmd)

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	cfg = cfg.Redacted()

	out := app.stdout
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	unset := SubtitleStyle.Render("(not set)")

	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	path, err := config.Locate(app.loadOptions())
	if err != nil || path == "" {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(out, "%s: %s\n", keyStyle.Render("Config file"), path)
	}

	orUnset := func(s string) string {
		if s == "" {
			return unset
		}
		return valueStyle.Render(s)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("server"))
	fmt.Fprintf(out, "  address: %s\n", valueStyle.Render(cfg.Server.Address()))
	fmt.Fprintf(out, "  max_body_bytes: %s\n", valueStyle.Render(strconv.FormatInt(cfg.Server.MaxBodyBytes, 10)))
	fmt.Fprintf(out, "  shutdown_timeout: %s\n", valueStyle.Render(cfg.Server.ShutdownTimeout.String()))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("upstream"))
	fmt.Fprintf(out, "  url: %s\n", valueStyle.Render(cfg.Upstream.URL))
	fmt.Fprintf(out, "  timeout: %s\n", valueStyle.Render(cfg.Upstream.Timeout.String()))
	fmt.Fprintf(out, "  user_agent: %s\n", valueStyle.Render(cfg.Upstream.UserAgent))
	fmt.Fprintf(out, "  client_id: %s\n", orUnset(cfg.Upstream.ClientID))
	fmt.Fprintf(out, "  client_secret: %s\n", orUnset(cfg.Upstream.ClientSecret))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("execute"))
	fmt.Fprintf(out, "  default_version_index: %s\n", valueStyle.Render(cfg.Execute.DefaultVersionIndex))
	fmt.Fprintf(out, "  missing_fields: %s\n", valueStyle.Render(cfg.Execute.MissingFields.String()))
	fmt.Fprintf(out, "  fallback_policy: %s\n", valueStyle.Render(cfg.Execute.FallbackPolicy.String()))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("diagrams"))
	fmt.Fprintf(out, "  enabled: %s\n", valueStyle.Render(strconv.FormatBool(cfg.Diagrams.Enabled)))
	fmt.Fprintf(out, "  dir: %s\n", orUnset(cfg.Diagrams.Dir))

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s:\n", keyStyle.Render("log"))
	fmt.Fprintf(out, "  level: %s\n", valueStyle.Render(cfg.Log.Level.String()))
	fmt.Fprintf(out, "  format: %s\n", valueStyle.Render(cfg.Log.Format.String()))

	return nil
}

func initConfig(app *App) error {
	path, created, err := config.CreateDefaultConfig()
	if err != nil {
		return app.fail(ExitFailure, fmt.Errorf("failed to create config: %w", err))
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}

func showConfigPath(app *App) error {
	cfgPath, err := config.ConfigFilePath()
	if err != nil {
		return app.fail(ExitFailure, err)
	}
	fmt.Fprintf(app.stdout, "Config file: %s\n", cfgPath)

	active, err := config.Locate(app.loadOptions())
	switch {
	case err != nil:
		return app.fail(ExitConfig, err)
	case active == "":
		fmt.Fprintf(app.stdout, "Active file: %s\n", "(none, using defaults)")
	default:
		fmt.Fprintf(app.stdout, "Active file: %s\n", active)
	}
	return nil
}

func dumpConfig(ctx context.Context, app *App, format string, reveal bool) error {
	if format != dumpFormatCUE && format != dumpFormatTOML {
		return app.fail(ExitConfig, fmt.Errorf("unknown format %q (expected %s or %s)", format, dumpFormatCUE, dumpFormatTOML))
	}

	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	if !reveal {
		cfg = cfg.Redacted()
	}

	if format == dumpFormatTOML {
		out, err := config.GenerateTOML(cfg)
		if err != nil {
			return app.fail(ExitFailure, err)
		}
		fmt.Fprint(app.stdout, out)
		return nil
	}
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}
