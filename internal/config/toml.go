// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// tomlDocument mirrors Config with durations as strings, since go-toml has
// no native duration type.
type tomlDocument struct {
	Server struct {
		Host            string `toml:"host"`
		Port            int    `toml:"port"`
		MaxBodyBytes    int64  `toml:"max_body_bytes"`
		ShutdownTimeout string `toml:"shutdown_timeout"`
	} `toml:"server"`
	Upstream struct {
		URL          string `toml:"url"`
		Timeout      string `toml:"timeout"`
		UserAgent    string `toml:"user_agent"`
		ClientID     string `toml:"client_id,omitempty"`
		ClientSecret string `toml:"client_secret,omitempty"`
	} `toml:"upstream"`
	Execute struct {
		DefaultVersionIndex string `toml:"default_version_index"`
		MissingFields       string `toml:"missing_fields"`
		FallbackPolicy      string `toml:"fallback_policy"`
	} `toml:"execute"`
	Diagrams struct {
		Enabled bool   `toml:"enabled"`
		Dir     string `toml:"dir"`
	} `toml:"diagrams"`
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
}

// GenerateTOML renders cfg as TOML.
func GenerateTOML(cfg *Config) (string, error) {
	var doc tomlDocument
	doc.Server.Host = cfg.Server.Host
	doc.Server.Port = int(cfg.Server.Port)
	doc.Server.MaxBodyBytes = cfg.Server.MaxBodyBytes
	doc.Server.ShutdownTimeout = cfg.Server.ShutdownTimeout.String()
	doc.Upstream.URL = cfg.Upstream.URL
	doc.Upstream.Timeout = cfg.Upstream.Timeout.String()
	doc.Upstream.UserAgent = cfg.Upstream.UserAgent
	doc.Upstream.ClientID = cfg.Upstream.ClientID
	doc.Upstream.ClientSecret = cfg.Upstream.ClientSecret
	doc.Execute.DefaultVersionIndex = cfg.Execute.DefaultVersionIndex
	doc.Execute.MissingFields = string(cfg.Execute.MissingFields)
	doc.Execute.FallbackPolicy = string(cfg.Execute.FallbackPolicy)
	doc.Diagrams.Enabled = cfg.Diagrams.Enabled
	doc.Diagrams.Dir = cfg.Diagrams.Dir
	doc.Log.Level = string(cfg.Log.Level)
	doc.Log.Format = string(cfg.Log.Format)

	out, err := toml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode config as TOML: %w", err)
	}
	return string(out), nil
}
