// SPDX-License-Identifier: MPL-2.0

// Package server runs the execproxy HTTP listener.
//
// It routes /execute to the executor handler, /api/diagrams/ to the diagram
// API when enabled, and /health to a liveness probe. Every other request gets
// a bare 404. Requests carry an X-Request-Id and are access-logged.
package server
