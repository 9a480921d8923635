// SPDX-License-Identifier: MPL-2.0

// Package diagrams stores one XML diagram per interview round type and
// serves them over a small CORS-enabled JSON API.
package diagrams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/exp/slices"
)

const fileSuffix = "_diagram.json"

var (
	// ErrInvalidRoundType is the sentinel wrapped by InvalidRoundTypeError.
	ErrInvalidRoundType = errors.New("invalid round type")

	roundTypePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

type (
	// Diagram is a stored diagram document.
	Diagram struct {
		XML       string `json:"xml"`
		Timestamp string `json:"timestamp"`
		RoundType string `json:"roundType"`
	}

	// InvalidRoundTypeError is returned for round types that could escape the
	// storage directory or are empty.
	InvalidRoundTypeError struct {
		Value string
	}

	// Store persists diagrams keyed by round type.
	Store interface {
		Save(ctx context.Context, d Diagram) (Diagram, error)
		Load(ctx context.Context, roundType string) (Diagram, bool, error)
		List(ctx context.Context) ([]string, error)
	}

	// FileStore keeps each diagram in <dir>/<roundType>_diagram.json.
	FileStore struct {
		dir string
		now func() time.Time
		mu  sync.Mutex
	}

	// FileStoreOption configures a FileStore.
	FileStoreOption func(*FileStore)
)

// Error implements the error interface for InvalidRoundTypeError.
func (e *InvalidRoundTypeError) Error() string {
	return fmt.Sprintf("invalid round type %q (allowed: letters, digits, '_' and '-')", e.Value)
}

// Unwrap returns ErrInvalidRoundType for errors.Is() compatibility.
func (e *InvalidRoundTypeError) Unwrap() error { return ErrInvalidRoundType }

// ValidateRoundType rejects anything that is not a plain file-name token.
func ValidateRoundType(roundType string) error {
	if !roundTypePattern.MatchString(roundType) {
		return &InvalidRoundTypeError{Value: roundType}
	}
	return nil
}

// WithClock overrides the time source used for missing timestamps.
func WithClock(now func() time.Time) FileStoreOption {
	return func(s *FileStore) {
		s.now = now
	}
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first save.
func NewFileStore(dir string, opts ...FileStoreOption) *FileStore {
	s := &FileStore{dir: dir, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the storage directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// EnsureDir creates the storage directory and checks that it is writable.
func (s *FileStore) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	probe, err := os.CreateTemp(s.dir, ".probe-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}

func (s *FileStore) path(roundType string) string {
	return filepath.Join(s.dir, roundType+fileSuffix)
}

// Save writes d, filling in a missing timestamp, and returns what was stored.
func (s *FileStore) Save(ctx context.Context, d Diagram) (Diagram, error) {
	if err := ctx.Err(); err != nil {
		return Diagram{}, err
	}
	if err := ValidateRoundType(d.RoundType); err != nil {
		return Diagram{}, err
	}
	if d.Timestamp == "" {
		d.Timestamp = s.now().Format(time.RFC3339)
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return Diagram{}, fmt.Errorf("failed to encode diagram: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Diagram{}, fmt.Errorf("failed to create diagram directory: %w", err)
	}

	// Write-then-rename so readers never see a partial file.
	tmp, err := os.CreateTemp(s.dir, "."+d.RoundType+"-*.tmp")
	if err != nil {
		return Diagram{}, fmt.Errorf("failed to create diagram file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return Diagram{}, fmt.Errorf("failed to write diagram: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return Diagram{}, fmt.Errorf("failed to write diagram: %w", err)
	}
	if err := os.Rename(tmpName, s.path(d.RoundType)); err != nil {
		_ = os.Remove(tmpName)
		return Diagram{}, fmt.Errorf("failed to store diagram: %w", err)
	}

	return d, nil
}

// Load returns the diagram for roundType. The bool is false when none exists.
func (s *FileStore) Load(ctx context.Context, roundType string) (Diagram, bool, error) {
	if err := ctx.Err(); err != nil {
		return Diagram{}, false, err
	}
	if err := ValidateRoundType(roundType); err != nil {
		return Diagram{}, false, err
	}

	data, err := os.ReadFile(s.path(roundType))
	if errors.Is(err, fs.ErrNotExist) {
		return Diagram{}, false, nil
	}
	if err != nil {
		return Diagram{}, false, fmt.Errorf("failed to read diagram: %w", err)
	}

	var d Diagram
	if err := json.Unmarshal(data, &d); err != nil {
		return Diagram{}, false, fmt.Errorf("failed to decode diagram %s: %w", roundType, err)
	}
	return d, true, nil
}

// List returns the stored round types in lexical order. A missing directory
// yields an empty list.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list diagrams: %w", err)
	}

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		out = append(out, strings.TrimSuffix(name, fileSuffix))
	}
	slices.Sort(out)
	return out, nil
}
