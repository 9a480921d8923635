// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
)

const (
	// ExecutePath is the only path the Handler answers.
	ExecutePath = "/execute"

	// DefaultMaxBodyBytes caps inbound request bodies.
	DefaultMaxBodyBytes int64 = 1 << 20

	headerAllowOrigin  = "Access-Control-Allow-Origin"
	headerAllowMethods = "Access-Control-Allow-Methods"
	headerAllowHeaders = "Access-Control-Allow-Headers"
)

type (
	// HandlerConfig configures a Handler.
	HandlerConfig struct {
		// Upstream receives normalized requests. Required.
		Upstream Upstream
		// Defaults are applied during normalization.
		Defaults Defaults
		// FieldPolicy controls missing required fields (default: reject).
		FieldPolicy FieldPolicy
		// FallbackPolicy selects the payload for failed forwards (default: demo).
		FallbackPolicy FallbackPolicy
		// MaxBodyBytes caps the inbound body (default: DefaultMaxBodyBytes).
		MaxBodyBytes int64
		// Logger receives per-request diagnostics.
		Logger *log.Logger
	}

	// Handler serves POST and OPTIONS on /execute. It holds no mutable state
	// and is safe for concurrent use.
	Handler struct {
		upstream       Upstream
		defaults       Defaults
		fieldPolicy    FieldPolicy
		fallbackPolicy FallbackPolicy
		maxBodyBytes   int64
		logger         *log.Logger
	}
)

// NewHandler creates a Handler from cfg, applying defaults.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.FieldPolicy == "" {
		cfg.FieldPolicy = FieldPolicyReject
	}
	if cfg.FallbackPolicy == "" {
		cfg.FallbackPolicy = FallbackDemo
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "execute"})
	}

	return &Handler{
		upstream:       cfg.Upstream,
		defaults:       cfg.Defaults,
		fieldPolicy:    cfg.FieldPolicy,
		fallbackPolicy: cfg.FallbackPolicy,
		maxBodyBytes:   cfg.MaxBodyBytes,
		logger:         logger,
	}
}

// ServeHTTP implements http.Handler.
//
// POST /execute always answers 200: upstream replies are passed through
// verbatim whatever their status, and every failure is downgraded into a
// FallbackResponse. OPTIONS /execute answers the CORS preflight. Anything
// else is a bare 404.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != ExecutePath {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodOptions:
		h.handlePreflight(w)
	case http.MethodPost:
		h.handleExecute(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// handlePreflight answers unconditionally; the body of the preflight is ignored.
func (h *Handler) handlePreflight(w http.ResponseWriter) {
	hdr := w.Header()
	hdr.Set(headerAllowOrigin, "*")
	hdr.Set(headerAllowMethods, "POST, OPTIONS")
	hdr.Set(headerAllowHeaders, "Content-Type")
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleExecute(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if !errors.As(err, &tooLarge) {
			h.logger.Debug("failed to read request body", "error", err)
		}
		h.writeJSON(w, Fallback(FallbackEchoError, &MalformedInputError{Err: err}))
		return
	}

	req, err := Normalize(body, h.defaults, h.fieldPolicy)
	if err != nil {
		// Input errors are the caller's to fix, so they are echoed whatever
		// the fallback policy is.
		h.logger.Debug("rejected execute request", "error", err)
		h.writeJSON(w, Fallback(FallbackEchoError, err))
		return
	}

	result, err := h.upstream.Forward(r.Context(), req)
	if err != nil {
		h.logger.Warn("upstream forward failed, serving fallback",
			"policy", h.fallbackPolicy,
			"language", req.Language,
			"error", err)
		h.writeJSON(w, Fallback(h.fallbackPolicy, err))
		return
	}

	if result.StatusCode >= http.StatusBadRequest {
		h.logger.Info("upstream returned error status, passing through", "status", result.StatusCode)
	}

	hdr := w.Header()
	hdr.Set(headerAllowOrigin, "*")
	hdr.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Body)
}

// writeJSON sends v with status 200 and the CORS origin header.
func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		// FallbackResponse only holds strings and numbers.
		body = []byte(`{"output":"","memory":0,"cpuTime":0,"error":"internal error"}`)
	}
	hdr := w.Header()
	hdr.Set(headerAllowOrigin, "*")
	hdr.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
