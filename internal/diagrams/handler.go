// SPDX-License-Identifier: MPL-2.0

package diagrams

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
)

const (
	// PathPrefix is the root of every diagram route.
	PathPrefix = "/api/diagrams/"

	maxDiagramBody = 4 << 20
)

type (
	// Handler exposes a Store over HTTP.
	Handler struct {
		store  Store
		logger *log.Logger
	}

	saveRequest struct {
		RoundType string `json:"roundType"`
		XML       string `json:"xml"`
		Timestamp string `json:"timestamp"`
	}

	saveResponse struct {
		Success   bool   `json:"success"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}

	notFoundResponse struct {
		XML     string `json:"xml"`
		Message string `json:"message"`
	}

	listResponse struct {
		Diagrams []string `json:"diagrams"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

// NewHandler creates a Handler. A nil logger logs to stderr.
func NewHandler(store Store, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "diagrams"})
	}
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes registers the diagram routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+PathPrefix+"save", h.HandleSave)
	mux.HandleFunc("GET "+PathPrefix+"load/{roundType}", h.HandleLoad)
	mux.HandleFunc("GET "+PathPrefix+"list", h.HandleList)
	mux.HandleFunc("OPTIONS "+PathPrefix, h.HandlePreflight)
}

// HandlePreflight answers CORS preflight requests for any diagram route.
func (h *Handler) HandlePreflight(w http.ResponseWriter, _ *http.Request) {
	hdr := w.Header()
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	hdr.Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusOK)
}

// HandleSave handles POST /api/diagrams/save.
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDiagramBody))
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	if req.RoundType == "" || req.XML == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing roundType or xml"})
		return
	}

	saved, err := h.store.Save(r.Context(), Diagram{XML: req.XML, Timestamp: req.Timestamp, RoundType: req.RoundType})
	if err != nil {
		h.writeStoreError(w, "save", req.RoundType, err)
		return
	}

	h.logger.Debug("diagram saved", "round_type", saved.RoundType, "bytes", len(saved.XML))
	writeJSON(w, http.StatusOK, saveResponse{
		Success:   true,
		Message:   "Diagram saved for " + saved.RoundType,
		Timestamp: saved.Timestamp,
	})
}

// HandleLoad handles GET /api/diagrams/load/{roundType}.
func (h *Handler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	roundType := r.PathValue("roundType")

	d, found, err := h.store.Load(r.Context(), roundType)
	if err != nil {
		h.writeStoreError(w, "load", roundType, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusOK, notFoundResponse{XML: "", Message: "No diagram found"})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleList handles GET /api/diagrams/list.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.List(r.Context())
	if err != nil {
		h.writeStoreError(w, "list", "", err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, listResponse{Diagrams: names})
}

func (h *Handler) writeStoreError(w http.ResponseWriter, op, roundType string, err error) {
	if errors.Is(err, ErrInvalidRoundType) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	h.logger.Error("diagram store failed", "op", op, "round_type", roundType, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	hdr := w.Header()
	hdr.Set("Access-Control-Allow-Origin", "*")
	hdr.Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
