// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/execproxy/execproxy/internal/executor"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// LogFormatText is charmbracelet/log's human-readable format.
	LogFormatText LogFormat = "text"
	// LogFormatJSON emits one JSON object per line.
	LogFormatJSON LogFormat = "json"
	// LogFormatLogfmt emits key=value pairs.
	LogFormatLogfmt LogFormat = "logfmt"

	redacted = "********"
)

var (
	// ErrInvalidLogLevel is the sentinel wrapped by InvalidLogLevelError.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is the sentinel wrapped by InvalidLogFormatError.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidPort is the sentinel wrapped by InvalidPortError.
	ErrInvalidPort = errors.New("invalid port")
	// ErrInvalidUpstreamURL is the sentinel wrapped by InvalidUpstreamURLError.
	ErrInvalidUpstreamURL = errors.New("invalid upstream URL")
	// ErrInvalidConfig is the sentinel wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level that is emitted.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// LogFormat selects the log line encoding.
	LogFormat string

	// InvalidLogFormatError is returned when a LogFormat is not recognized.
	InvalidLogFormatError struct {
		Value LogFormat
	}

	// Port is a TCP port. Zero asks the OS for a free port.
	Port int

	// InvalidPortError is returned when a Port is outside 0..65535.
	InvalidPortError struct {
		Value Port
	}

	// InvalidUpstreamURLError is returned when the upstream URL is not an
	// absolute http(s) URL.
	InvalidUpstreamURLError struct {
		Value  string
		Reason string
	}

	// InvalidConfigError collects every field-level validation error.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		Server   ServerConfig   `json:"server" mapstructure:"server"`
		Upstream UpstreamConfig `json:"upstream" mapstructure:"upstream"`
		Execute  ExecuteConfig  `json:"execute" mapstructure:"execute"`
		Diagrams DiagramsConfig `json:"diagrams" mapstructure:"diagrams"`
		Log      LogConfig      `json:"log" mapstructure:"log"`
	}

	// ServerConfig configures the HTTP listener.
	ServerConfig struct {
		Host string `json:"host" mapstructure:"host"`
		Port Port   `json:"port" mapstructure:"port"`
		// MaxBodyBytes caps inbound request bodies.
		MaxBodyBytes int64 `json:"max_body_bytes" mapstructure:"max_body_bytes"`
		// ShutdownTimeout bounds graceful shutdown.
		ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	}

	// UpstreamConfig configures the code-execution service.
	UpstreamConfig struct {
		URL       string        `json:"url" mapstructure:"url"`
		Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
		UserAgent string        `json:"user_agent" mapstructure:"user_agent"`
		// ClientID and ClientSecret fill in credentials the caller omits.
		ClientID     string `json:"client_id" mapstructure:"client_id"`
		ClientSecret string `json:"client_secret" mapstructure:"client_secret"`
	}

	// ExecuteConfig configures request normalization and fallbacks.
	ExecuteConfig struct {
		DefaultVersionIndex string                  `json:"default_version_index" mapstructure:"default_version_index"`
		MissingFields       executor.FieldPolicy    `json:"missing_fields" mapstructure:"missing_fields"`
		FallbackPolicy      executor.FallbackPolicy `json:"fallback_policy" mapstructure:"fallback_policy"`
	}

	// DiagramsConfig configures the diagram store.
	DiagramsConfig struct {
		Enabled bool   `json:"enabled" mapstructure:"enabled"`
		Dir     string `json:"dir" mapstructure:"dir"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level  LogLevel  `json:"level" mapstructure:"level"`
		Format LogFormat `json:"format" mapstructure:"format"`
	}
)

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8001,
			MaxBodyBytes:    executor.DefaultMaxBodyBytes,
			ShutdownTimeout: 10 * time.Second,
		},
		Upstream: UpstreamConfig{
			URL:       executor.DefaultUpstreamURL,
			Timeout:   executor.DefaultTimeout,
			UserAgent: executor.DefaultUserAgent,
		},
		Execute: ExecuteConfig{
			DefaultVersionIndex: executor.DefaultVersionIndex,
			MissingFields:       executor.FieldPolicyReject,
			FallbackPolicy:      executor.FallbackDemo,
		},
		Diagrams: DiagramsConfig{
			Enabled: true,
			Dir:     "diagrams",
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}

// Address returns host:port for the listener.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HasCredentials reports whether both server-side credentials are set.
func (c UpstreamConfig) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Defaults converts the configuration into normalization defaults.
func (c *Config) Defaults() executor.Defaults {
	return executor.Defaults{
		VersionIndex: c.Execute.DefaultVersionIndex,
		ClientID:     c.Upstream.ClientID,
		ClientSecret: c.Upstream.ClientSecret,
	}
}

// Redacted returns a copy with the client secret masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Upstream.ClientSecret != "" {
		out.Upstream.ClientSecret = redacted
	}
	return &out
}

// IsValid checks every enum and range in the configuration.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	collect := func(_ bool, fieldErrs []error) {
		errs = append(errs, fieldErrs...)
	}

	collect(c.Server.Port.IsValid())
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout))
	}
	if err := validateUpstreamURL(c.Upstream.URL); err != nil {
		errs = append(errs, err)
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("upstream.timeout must be positive, got %s", c.Upstream.Timeout))
	}
	collect(c.Execute.MissingFields.IsValid())
	collect(c.Execute.FallbackPolicy.IsValid())
	if c.Diagrams.Enabled && strings.TrimSpace(c.Diagrams.Dir) == "" {
		errs = append(errs, errors.New("diagrams.dir must be set when diagrams are enabled"))
	}
	collect(c.Log.Level.IsValid())
	collect(c.Log.Format.IsValid())

	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func validateUpstreamURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return &InvalidUpstreamURLError{Value: raw, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &InvalidUpstreamURLError{Value: raw, Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return &InvalidUpstreamURLError{Value: raw, Reason: "missing host"}
	}
	return nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msgs = append(msgs, err.Error())
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}

// Unwrap returns ErrInvalidConfig and every field error, so errors.Is
// matches both the aggregate and the specific failure.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

func (f LogFormat) String() string { return string(f) }

// IsValid returns whether the LogFormat is one of the defined formats.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case LogFormatText, LogFormatJSON, LogFormatLogfmt:
		return true, nil
	default:
		return false, []error{&InvalidLogFormatError{Value: f}}
	}
}

// Error implements the error interface for InvalidLogFormatError.
func (e *InvalidLogFormatError) Error() string {
	return fmt.Sprintf("invalid log format %q (valid: text, json, logfmt)", e.Value)
}

// Unwrap returns ErrInvalidLogFormat for errors.Is() compatibility.
func (e *InvalidLogFormatError) Unwrap() error { return ErrInvalidLogFormat }

// IsValid returns whether the Port fits in 0..65535.
func (p Port) IsValid() (bool, []error) {
	if p < 0 || p > 65535 {
		return false, []error{&InvalidPortError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidPortError.
func (e *InvalidPortError) Error() string {
	return fmt.Sprintf("invalid port %d (valid: 0-65535)", e.Value)
}

// Unwrap returns ErrInvalidPort for errors.Is() compatibility.
func (e *InvalidPortError) Unwrap() error { return ErrInvalidPort }

// Error implements the error interface for InvalidUpstreamURLError.
func (e *InvalidUpstreamURLError) Error() string {
	return fmt.Sprintf("invalid upstream URL %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidUpstreamURL for errors.Is() compatibility.
func (e *InvalidUpstreamURLError) Unwrap() error { return ErrInvalidUpstreamURL }
