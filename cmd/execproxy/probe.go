// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/execproxy/execproxy/internal/config"
	"github.com/execproxy/execproxy/internal/executor"
	"github.com/execproxy/execproxy/internal/issue"
	"github.com/execproxy/execproxy/internal/logging"

	"github.com/spf13/cobra"
)

const defaultProbeScript = `print("Hello, World!")`

type (
	probeOptions struct {
		language     string
		script       string
		stdin        string
		versionIndex string
	}

	// probePayload is what a browser client would send; omitted fields are
	// filled in by normalization exactly as on /execute.
	probePayload struct {
		Script       string `json:"script"`
		Language     string `json:"language"`
		Stdin        string `json:"stdin,omitempty"`
		VersionIndex string `json:"versionIndex,omitempty"`
	}

	// upstreamReply holds the fields probe inspects in the upstream body.
	upstreamReply struct {
		Error any `json:"error"`
	}
)

func newProbeCommand(app *App) *cobra.Command {
	var opts probeOptions

	probeCmd := &cobra.Command{
		Use:   "probe",
		Short: "Check that the upstream accepts the configured credentials",
		Long: `Send one execution request through the same normalizer and forwarder
the proxy uses, then print the upstream's reply.

Exits with status 1 when the upstream cannot be reached or reports an error,
for example because the client credentials are wrong.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd.Context(), app, opts)
		},
	}

	probeCmd.Flags().StringVarP(&opts.language, "language", "l", "python3", "language identifier")
	probeCmd.Flags().StringVarP(&opts.script, "script", "s", defaultProbeScript, "program source to run")
	probeCmd.Flags().StringVar(&opts.stdin, "stdin", "", "program standard input")
	probeCmd.Flags().StringVar(&opts.versionIndex, "version-index", "", "language version (default is execute.default_version_index)")

	return probeCmd
}

func runProbe(ctx context.Context, app *App, opts probeOptions) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	logger, err := app.newLogger(cfg)
	if err != nil {
		return app.fail(ExitConfig, err)
	}

	body, err := json.Marshal(probePayload{
		Script:       opts.script,
		Language:     opts.language,
		Stdin:        opts.stdin,
		VersionIndex: opts.versionIndex,
	})
	if err != nil {
		return app.fail(ExitFailure, err)
	}

	// Credentials must come from configuration here, so a missing one is
	// always an error.
	req, err := executor.Normalize(body, cfg.Defaults(), executor.FieldPolicyReject)
	if err != nil {
		return app.fail(ExitConfig, credentialsError(err))
	}

	forwarder := executor.NewForwarder(executor.ForwarderConfig{
		URL:       cfg.Upstream.URL,
		Timeout:   cfg.Upstream.Timeout,
		UserAgent: cfg.Upstream.UserAgent,
		Logger:    logging.Component(logger, "forwarder"),
	})

	fmt.Fprintf(app.stdout, "%s %s %s\n",
		TitleStyle.Render("Probing"), CmdStyle.Render(forwarder.URL()),
		SubtitleStyle.Render("("+req.Language+", version "+req.VersionIndex+")"))
	if app.flags.verbose {
		fmt.Fprintln(app.stdout, VerboseStyle.Render(fmt.Sprintf(
			"  client %s, %d byte script, %d byte stdin, compileOnly=%t",
			req.ClientID, len(req.Script), len(req.Stdin), req.CompileOnly)))
	}

	result, err := forwarder.Forward(ctx, req)
	if err != nil {
		return app.fail(ExitFailure, issue.NewErrorContext().
			WithOperation("reach upstream").
			WithResource(forwarder.URL()).
			WithSuggestion("Check network access to the upstream host").
			WithSuggestion("Override the endpoint with "+config.EnvName("upstream.url")).
			WithIssue(issue.UpstreamUnreachableId).
			Wrap(err).
			BuildError())
	}

	fmt.Fprintln(app.stdout, responseStyle.Render(prettyJSON(result.Body)))

	var reply upstreamReply
	if err := json.Unmarshal(result.Body, &reply); err == nil && reply.message() != "" {
		return app.fail(ExitFailure, issue.NewErrorContext().
			WithOperation("execute probe").
			WithResource(forwarder.URL()).
			WithSuggestion("Verify "+config.EnvName("upstream.client_id")+" and "+config.EnvName("upstream.client_secret")).
			WithIssue(issue.InvalidCredentialsId).
			Wrap(&upstreamRejectedError{Status: result.StatusCode, Message: reply.message()}).
			BuildError())
	}

	fmt.Fprintf(app.stdout, "%s upstream accepted the request (HTTP %d)\n", SuccessStyle.Render("✓"), result.StatusCode)
	return nil
}

// credentialsError explains a normalization failure in terms of configuration.
func credentialsError(err error) error {
	var mf *executor.MissingFieldError
	if !errors.As(err, &mf) || (mf.Field != "clientId" && mf.Field != "clientSecret") {
		return err
	}
	return issue.NewErrorContext().
		WithOperation("build probe request").
		WithResource(mf.Field).
		WithSuggestions(
			"Set "+config.EnvName("upstream.client_id")+" and "+config.EnvName("upstream.client_secret"),
			"Or add upstream.client_id and upstream.client_secret to config.cue",
		).
		WithIssue(issue.InvalidCredentialsId).
		Wrap(err).
		BuildError()
}

// message returns the error field as text, or "" when it is absent or empty.
func (r upstreamReply) message() string {
	switch v := r.Error.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}

// upstreamRejectedError is an upstream reply that carried an error field.
type upstreamRejectedError struct {
	Status  int
	Message string
}

func (e *upstreamRejectedError) Error() string {
	return fmt.Sprintf("upstream rejected the request (HTTP %d): %s", e.Status, e.Message)
}

func prettyJSON(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}
