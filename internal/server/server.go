// SPDX-License-Identifier: MPL-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/execproxy/execproxy/internal/core/serverbase"
	"github.com/execproxy/execproxy/internal/diagrams"

	"github.com/charmbracelet/log"
)

const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 8001
	DefaultStartupTimeout  = 10 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
)

// ErrNoExecuteHandler is returned by New when Config.Execute is nil.
var ErrNoExecuteHandler = errors.New("execute handler is required")

type (
	// Config configures a Server.
	Config struct {
		Host string
		// Port 0 picks a free port; Address reports the bound one.
		Port            int
		StartupTimeout  time.Duration
		ShutdownTimeout time.Duration
		ReadTimeout     time.Duration
		// WriteTimeout must exceed the upstream timeout or slow executions
		// are cut off mid-response.
		WriteTimeout time.Duration
		IdleTimeout  time.Duration

		// Execute serves /execute. Required.
		Execute http.Handler
		// Diagrams serves /api/diagrams/ when non-nil.
		Diagrams *diagrams.Handler
	}

	// Option configures a Server.
	Option func(*Server)

	// Server is a single-use HTTP listener.
	Server struct {
		*serverbase.Base

		cfg    Config
		logger *log.Logger
		newID  func() string

		mu       sync.Mutex
		srv      *http.Server
		listener net.Listener
		addr     string
	}
)

// DefaultConfig returns a Config with every timeout set. Execute still has
// to be provided.
func DefaultConfig() Config {
	return Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		StartupTimeout:  DefaultStartupTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
	}
}

// WithLogger sets the logger used for lifecycle and access logs.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRequestIDGenerator replaces the uuid-based request ID source.
func WithRequestIDGenerator(fn func() string) Option {
	return func(s *Server) {
		s.newID = fn
	}
}

// New creates a Server. It does not listen until Start.
func New(cfg Config, opts ...Option) (*Server, error) {
	if cfg.Execute == nil {
		return nil, ErrNoExecuteHandler
	}
	d := DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = d.Host
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = d.StartupTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = d.ShutdownTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = d.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = d.WriteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = d.IdleTimeout
	}

	s := &Server{
		Base:  serverbase.New(),
		cfg:   cfg,
		newID: newRequestID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "server"})
	}
	return s, nil
}

// Start binds the listener and returns once the server accepts requests.
func (s *Server) Start(ctx context.Context) error {
	if err := s.BeginStart(ctx); err != nil {
		return err
	}

	startupCtx, cancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var lc net.ListenConfig
	listener, err := lc.Listen(startupCtx, "tcp", addr)
	if err != nil {
		err = fmt.Errorf("failed to listen on %s: %w", addr, err)
		s.Fail(err)
		return err
	}

	srv := &http.Server{
		Handler:           s.routes(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	s.mu.Lock()
	s.listener = listener
	s.srv = srv
	s.addr = listener.Addr().String()
	s.mu.Unlock()

	s.Go(func(context.Context) { s.serve(srv, listener) })

	if err := s.WaitReady(startupCtx); err != nil {
		_ = listener.Close()
		s.Fail(err)
		return err
	}

	s.logger.Info("listening", "address", s.Address())
	return nil
}

func (s *Server) serve(srv *http.Server, listener net.Listener) {
	s.MarkRunning()

	err := srv.Serve(listener)
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return
	}
	s.logger.Error("serve failed", "error", err)
	s.Fail(fmt.Errorf("serve error: %w", err))
}

// Stop shuts the server down gracefully, waiting up to ShutdownTimeout for
// in-flight requests. Repeated calls are no-ops.
func (s *Server) Stop() error {
	if !s.BeginStop() {
		if !s.State().IsTerminal() {
			<-s.Done()
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	var shutdownErr error
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			// Force-close whatever is still open.
			_ = srv.Close()
			shutdownErr = fmt.Errorf("graceful shutdown: %w", err)
		}
	}

	s.Wait()
	s.MarkStopped()
	s.logger.Info("stopped")
	return shutdownErr
}

// Address returns the bound host:port, or "" before Start.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// URL returns the base URL, or "" before Start.
func (s *Server) URL() string {
	addr := s.Address()
	if addr == "" {
		return ""
	}
	return "http://" + addr
}
