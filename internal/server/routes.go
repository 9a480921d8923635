// SPDX-License-Identifier: MPL-2.0

package server

import (
	"net/http"
	"path"

	"github.com/execproxy/execproxy/internal/executor"
)

// HealthPath answers liveness probes.
const HealthPath = "/health"

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(executor.ExecutePath, s.cfg.Execute)
	if s.cfg.Diagrams != nil {
		s.cfg.Diagrams.RegisterRoutes(mux)
	}
	mux.HandleFunc("GET "+HealthPath, s.handleHealth)
	mux.HandleFunc("/", handleNotFound)

	return s.requestID(s.accessLog(cleanPathsOnly(mux)))
}

// cleanPathsOnly answers 404 for paths that are not in canonical form.
// ServeMux would otherwise redirect them to the cleaned path.
func cleanPathsOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; path.Clean(p) != p {
			handleNotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth reports 503 once shutdown has begun, so load balancers stop
// routing to a draining instance.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if !s.IsRunning() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(s.State().String()))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleNotFound replies 404 with no body.
func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNotFound)
}
