// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
	"time"
)

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level LogLevel
		valid bool
	}{
		{LogLevelDebug, true},
		{LogLevelInfo, true},
		{LogLevelWarn, true},
		{LogLevelError, true},
		{"", false},
		{"trace", false},
		{"INFO", false},
	}

	for _, tt := range tests {
		ok, errs := tt.level.IsValid()
		if ok != tt.valid {
			t.Errorf("LogLevel(%q).IsValid() = %v, want %v", tt.level, ok, tt.valid)
		}
		if !ok && !errors.Is(errs[0], ErrInvalidLogLevel) {
			t.Errorf("LogLevel(%q) error should wrap ErrInvalidLogLevel", tt.level)
		}
	}
}

func TestLogFormat_IsValid(t *testing.T) {
	t.Parallel()

	for _, f := range []LogFormat{LogFormatText, LogFormatJSON, LogFormatLogfmt} {
		if ok, _ := f.IsValid(); !ok {
			t.Errorf("LogFormat(%q) should be valid", f)
		}
	}
	ok, errs := LogFormat("xml").IsValid()
	if ok || !errors.Is(errs[0], ErrInvalidLogFormat) {
		t.Errorf("LogFormat(xml).IsValid() = %v, %v", ok, errs)
	}
}

func TestPort_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		port  Port
		valid bool
	}{
		{0, true},
		{8001, true},
		{65535, true},
		{-1, false},
		{65536, false},
	}

	for _, tt := range tests {
		ok, errs := tt.port.IsValid()
		if ok != tt.valid {
			t.Errorf("Port(%d).IsValid() = %v, want %v", tt.port, ok, tt.valid)
		}
		if !ok {
			var pe *InvalidPortError
			if !errors.As(errs[0], &pe) || pe.Value != tt.port {
				t.Errorf("Port(%d) error = %v, want *InvalidPortError", tt.port, errs[0])
			}
		}
	}
}

func TestConfig_IsValid_CollectsFieldErrors(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Server.Port = -5
	cfg.Upstream.URL = "ftp://example.com"
	cfg.Upstream.Timeout = 0
	cfg.Diagrams.Dir = " "
	cfg.Log.Format = "xml"

	ok, errs := cfg.IsValid()
	if ok {
		t.Fatal("IsValid() = true, want false")
	}
	var ice *InvalidConfigError
	if !errors.As(errs[0], &ice) {
		t.Fatalf("error %T is not *InvalidConfigError", errs[0])
	}
	if len(ice.FieldErrors) != 5 {
		t.Errorf("len(FieldErrors) = %d, want 5: %v", len(ice.FieldErrors), ice.FieldErrors)
	}
	for _, sentinel := range []error{ErrInvalidConfig, ErrInvalidPort, ErrInvalidUpstreamURL, ErrInvalidLogFormat} {
		if !errors.Is(errs[0], sentinel) {
			t.Errorf("error should match %v", sentinel)
		}
	}
}

func TestValidateUpstreamURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url   string
		valid bool
	}{
		{"https://api.jdoodle.com/v1/execute", true},
		{"http://127.0.0.1:9999/execute", true},
		{"api.jdoodle.com/v1/execute", false},
		{"https://", false},
		{"::not a url", false},
	}

	for _, tt := range tests {
		err := validateUpstreamURL(tt.url)
		if (err == nil) != tt.valid {
			t.Errorf("validateUpstreamURL(%q) = %v, want valid=%v", tt.url, err, tt.valid)
		}
	}
}

func TestDisabledDiagramsAllowEmptyDir(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Diagrams.Enabled = false
	cfg.Diagrams.Dir = ""
	cfg.Server.ShutdownTimeout = time.Second

	if ok, errs := cfg.IsValid(); !ok {
		t.Errorf("IsValid() = false: %v", errs)
	}
}
