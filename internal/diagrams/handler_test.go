// SPDX-License-Identifier: MPL-2.0

package diagrams

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func newTestMux(t *testing.T, store Store) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(store, log.New(io.Discard)).RegisterRoutes(mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, rec.Body.String())
	}
	return m
}

func TestHandler_SaveLoadList(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t, newTestStore(t))

	rec := do(mux, http.MethodPost, "/api/diagrams/save", `{"roundType":"coding","xml":"<mxGraphModel/>"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", rec.Code, rec.Body)
	}
	saved := decode(t, rec)
	if saved["success"] != true || saved["message"] != "Diagram saved for coding" {
		t.Errorf("save response = %v", saved)
	}
	if saved["timestamp"] != "2026-03-14T09:26:53Z" {
		t.Errorf("timestamp = %v", saved["timestamp"])
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}

	rec = do(mux, http.MethodGet, "/api/diagrams/load/coding", "")
	loaded := decode(t, rec)
	if loaded["xml"] != "<mxGraphModel/>" || loaded["roundType"] != "coding" || loaded["timestamp"] == nil {
		t.Errorf("load response = %v", loaded)
	}

	rec = do(mux, http.MethodGet, "/api/diagrams/list", "")
	if got := rec.Body.String(); strings.TrimSpace(got) != `{"diagrams":["coding"]}` {
		t.Errorf("list response = %s", got)
	}
}

func TestHandler_SaveMissingFields(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t, newTestStore(t))

	for _, body := range []string{`{"xml":"<x/>"}`, `{"roundType":"a"}`, `{}`} {
		rec := do(mux, http.MethodPost, "/api/diagrams/save", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("save %s status = %d, want 400", body, rec.Code)
		}
		if got := decode(t, rec)["error"]; got != "Missing roundType or xml" {
			t.Errorf("save %s error = %v", body, got)
		}
	}
}

func TestHandler_SaveBadJSON(t *testing.T) {
	t.Parallel()

	rec := do(newTestMux(t, newTestStore(t)), http.MethodPost, "/api/diagrams/save", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_SaveInvalidRoundType(t *testing.T) {
	t.Parallel()

	rec := do(newTestMux(t, newTestStore(t)), http.MethodPost, "/api/diagrams/save", `{"roundType":"../x","xml":"<x/>"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_LoadMissing(t *testing.T) {
	t.Parallel()

	rec := do(newTestMux(t, newTestStore(t)), http.MethodGet, "/api/diagrams/load/behavioral", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"xml":"","message":"No diagram found"}` {
		t.Errorf("body = %s", got)
	}
}

func TestHandler_ListEmpty(t *testing.T) {
	t.Parallel()

	rec := do(newTestMux(t, newTestStore(t)), http.MethodGet, "/api/diagrams/list", "")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"diagrams":[]}` {
		t.Errorf("body = %s, want empty array", got)
	}
}

func TestHandler_Preflight(t *testing.T) {
	t.Parallel()

	rec := do(newTestMux(t, newTestStore(t)), http.MethodOptions, "/api/diagrams/save", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("Allow-Methods = %q", got)
	}
}

type failingStore struct{ err error }

func (f failingStore) Save(context.Context, Diagram) (Diagram, error) { return Diagram{}, f.err }
func (f failingStore) Load(context.Context, string) (Diagram, bool, error) {
	return Diagram{}, false, f.err
}
func (f failingStore) List(context.Context) ([]string, error) { return nil, f.err }

func TestHandler_StoreFailure(t *testing.T) {
	t.Parallel()

	mux := newTestMux(t, failingStore{err: errors.New("disk full")})

	tests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/diagrams/save", `{"roundType":"a","xml":"<x/>"}`},
		{http.MethodGet, "/api/diagrams/load/a", ""},
		{http.MethodGet, "/api/diagrams/list", ""},
	}

	for _, tt := range tests {
		rec := do(mux, tt.method, tt.path, tt.body)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s %s status = %d, want 500", tt.method, tt.path, rec.Code)
		}
		if got := decode(t, rec)["error"]; got != "disk full" {
			t.Errorf("%s %s error = %v", tt.method, tt.path, got)
		}
	}
}
