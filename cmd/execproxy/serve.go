// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/execproxy/execproxy/internal/config"
	"github.com/execproxy/execproxy/internal/diagrams"
	"github.com/execproxy/execproxy/internal/executor"
	"github.com/execproxy/execproxy/internal/issue"
	"github.com/execproxy/execproxy/internal/logging"
	"github.com/execproxy/execproxy/internal/server"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// writeTimeoutMargin leaves room to write the response after the upstream
// call has used its whole timeout.
const writeTimeoutMargin = 5 * time.Second

type serveOptions struct {
	host string
	port int
	// ready is called with the bound URL once the listener accepts requests.
	ready func(url string)
}

func newServeCommand(app *App) *cobra.Command {
	var opts serveOptions

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the proxy",
		Long: `Run the proxy until interrupted.

The listener answers:
  POST    /execute                       normalize and forward an execution request
  OPTIONS /execute                       CORS preflight
  GET     /health                        liveness probe
  *       /api/diagrams/...              diagram store (when diagrams.enabled)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("port") {
				opts.port = -1
			}
			return runServe(cmd.Context(), app, opts)
		},
	}

	serveCmd.Flags().StringVar(&opts.host, "host", "", "listen host (overrides server.host)")
	serveCmd.Flags().IntVarP(&opts.port, "port", "p", 0, "listen port, 0 picks a free one (overrides server.port)")

	return serveCmd
}

func runServe(ctx context.Context, app *App, opts serveOptions) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		return err
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port >= 0 {
		cfg.Server.Port = config.Port(opts.port)
		if ok, errs := cfg.Server.Port.IsValid(); !ok {
			return app.fail(ExitConfig, errs[0])
		}
	}

	logger, err := app.newLogger(cfg)
	if err != nil {
		return app.fail(ExitConfig, err)
	}
	logging.Install(logger)

	if !cfg.Upstream.HasCredentials() {
		logger.Warn("no server-side upstream credentials configured, callers must send clientId and clientSecret",
			"env", config.EnvName("upstream.client_id"))
	}

	forwarder := executor.NewForwarder(executor.ForwarderConfig{
		URL:       cfg.Upstream.URL,
		Timeout:   cfg.Upstream.Timeout,
		UserAgent: cfg.Upstream.UserAgent,
		Logger:    logging.Component(logger, "forwarder"),
	})

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Server.Host
	srvCfg.Port = int(cfg.Server.Port)
	srvCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	srvCfg.WriteTimeout = cfg.Upstream.Timeout + writeTimeoutMargin
	srvCfg.Execute = executor.NewHandler(executor.HandlerConfig{
		Upstream:       forwarder,
		Defaults:       cfg.Defaults(),
		FieldPolicy:    cfg.Execute.MissingFields,
		FallbackPolicy: cfg.Execute.FallbackPolicy,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Logger:         logging.Component(logger, "execute"),
	})

	if cfg.Diagrams.Enabled {
		store := diagrams.NewFileStore(cfg.Diagrams.Dir)
		if err := store.EnsureDir(); err != nil {
			return app.fail(ExitFailure, issue.NewErrorContext().
				WithOperation("prepare diagram store").
				WithResource(store.Dir()).
				WithSuggestion("Point diagrams.dir at a writable directory").
				WithSuggestion("Or disable the store with "+config.EnvName("diagrams.enabled")+"=false").
				WithIssue(issue.DiagramDirUnwritableId).
				Wrap(err).
				BuildError())
		}
		srvCfg.Diagrams = diagrams.NewHandler(store, logging.Component(logger, "diagrams"))
	}

	srv, err := server.New(srvCfg, server.WithLogger(logging.Component(logger, "server")))
	if err != nil {
		return app.fail(ExitFailure, err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return app.fail(ExitFailure, issue.NewErrorContext().
			WithOperation("start server").
			WithResource(cfg.Server.Address()).
			WithSuggestion("Pick another port with --port or "+config.EnvName("server.port")).
			WithIssue(issue.ServerStartFailedId).
			Wrap(err).
			BuildError())
	}

	fmt.Fprintf(app.stdout, "%s execproxy listening on %s, forwarding to %s\n",
		SuccessStyle.Render("✓"), CmdStyle.Render(srv.URL()), CmdStyle.Render(cfg.Upstream.URL))
	if opts.ready != nil {
		opts.ready(srv.URL())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-srv.Done()
		return srv.LastError()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return srv.Stop()
	})

	if err := g.Wait(); err != nil {
		return app.fail(ExitFailure, err)
	}
	return nil
}
