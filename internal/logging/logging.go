// SPDX-License-Identifier: MPL-2.0

// Package logging builds the charmbracelet loggers used across execproxy.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatLogfmt = "logfmt"
)

// Options configures New. Zero values mean info level, text format, stderr.
type Options struct {
	Level  string
	Format string
	Prefix string
	Writer io.Writer
}

// New creates a logger from opts.
func New(opts Options) (*log.Logger, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		parsed, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	formatter, err := parseFormatter(opts.Format)
	if err != nil {
		return nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	return log.NewWithOptions(w, log.Options{
		Prefix:          opts.Prefix,
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	}), nil
}

func parseFormatter(format string) (log.Formatter, error) {
	switch format {
	case "", FormatText:
		return log.TextFormatter, nil
	case FormatJSON:
		return log.JSONFormatter, nil
	case FormatLogfmt:
		return log.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("invalid log format %q (valid: text, json, logfmt)", format)
	}
}

// Install makes l the package default for both charmbracelet/log and log/slog.
func Install(l *log.Logger) {
	log.SetDefault(l)
	slog.SetDefault(slog.New(l))
}

// Component returns a child logger whose prefix names a subsystem.
func Component(l *log.Logger, name string) *log.Logger {
	return l.WithPrefix(name)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
