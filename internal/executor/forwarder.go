// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultUpstreamURL is the public JDoodle execute endpoint.
	DefaultUpstreamURL = "https://api.jdoodle.com/v1/execute"
	// DefaultTimeout bounds a single upstream round trip.
	DefaultTimeout = 15 * time.Second
	// DefaultUserAgent identifies the proxy to the upstream service.
	DefaultUserAgent = "execproxy"

	// maxUpstreamBody caps how much of an upstream reply is buffered.
	maxUpstreamBody = 8 << 20
)

type (
	// Upstream delivers a normalized request to the remote execution service.
	// Forwarder is the production implementation; handler tests use fakes.
	Upstream interface {
		Forward(ctx context.Context, req ExecuteRequest) (*Result, error)
	}

	// Result is a readable upstream reply. Body is passed to callers verbatim.
	Result struct {
		StatusCode int
		Body       []byte
		// ContentType is the upstream Content-Type header. The proxy always
		// answers application/json since Body has been checked to be JSON.
		ContentType string
	}

	// ForwarderConfig configures a Forwarder. Zero values fall back to the
	// package defaults.
	ForwarderConfig struct {
		// URL is the upstream execute endpoint.
		URL string
		// Timeout bounds the whole round trip including reading the body.
		Timeout time.Duration
		// UserAgent is sent as the User-Agent header.
		UserAgent string
		// Client overrides the HTTP client (tests). Its Timeout is left untouched.
		Client *http.Client
		// Logger receives forward diagnostics. Credentials are never logged.
		Logger *log.Logger
	}

	// Forwarder issues exactly one outbound POST per Forward call. It keeps no
	// per-request state and is safe for concurrent use.
	Forwarder struct {
		url       string
		userAgent string
		client    *http.Client
		logger    *log.Logger
	}
)

// NewForwarder creates a Forwarder from cfg, applying defaults.
func NewForwarder(cfg ForwarderConfig) *Forwarder {
	if cfg.URL == "" {
		cfg.URL = DefaultUpstreamURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "forwarder"})
	}

	return &Forwarder{
		url:       cfg.URL,
		userAgent: cfg.UserAgent,
		client:    client,
		logger:    logger,
	}
}

// URL returns the upstream endpoint this Forwarder posts to.
func (f *Forwarder) URL() string {
	return f.url
}

// Forward serializes req and posts it upstream. Any reply that can be read
// and is JSON counts as success regardless of its status code; the upstream
// reports bad credentials and compile errors in the body. There are no
// retries.
func (f *Forwarder) Forward(ctx context.Context, req ExecuteRequest) (*Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, &ForwardError{Kind: ForwardErrorEncode, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return nil, &ForwardError{Kind: ForwardErrorEncode, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", f.userAgent)

	f.logger.Debug("forwarding execute request",
		"language", req.Language,
		"versionIndex", req.VersionIndex,
		"scriptBytes", len(req.Script),
		"compileOnly", req.CompileOnly)

	started := time.Now()
	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &ForwardError{Kind: ForwardErrorUnreachable, Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxUpstreamBody+1))
	if err != nil {
		return nil, &ForwardError{Kind: classifyReadError(err), Err: err}
	}
	if len(body) > maxUpstreamBody {
		return nil, &ForwardError{Kind: ForwardErrorRead, Err: fmt.Errorf("response exceeds %d bytes", maxUpstreamBody)}
	}
	contentType := httpResp.Header.Get("Content-Type")
	if !json.Valid(body) {
		return nil, &ForwardError{
			Kind: ForwardErrorMalformed,
			Err:  fmt.Errorf("status %d, %d byte non-JSON body (content type %q)", httpResp.StatusCode, len(body), contentType),
		}
	}

	f.logger.Debug("upstream replied",
		"status", httpResp.StatusCode,
		"contentType", contentType,
		"bytes", len(body),
		"elapsed", time.Since(started).Round(time.Millisecond))

	return &Result{StatusCode: httpResp.StatusCode, Body: body, ContentType: contentType}, nil
}

// classifyReadError treats a deadline or cancellation hit while reading the
// body like a failure to reach the upstream at all.
func classifyReadError(err error) ForwardErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ForwardErrorUnreachable
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ForwardErrorUnreachable
	}
	return ForwardErrorRead
}
