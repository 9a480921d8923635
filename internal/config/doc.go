// SPDX-License-Identifier: MPL-2.0

// Package config handles execproxy configuration using Viper with CUE as the file format.
//
// Configuration is loaded from config.cue in the config directory
// ($XDG_CONFIG_HOME/execproxy on Linux, ~/Library/Application Support/execproxy
// on macOS, %APPDATA%\execproxy on Windows), falling back to ./config.cue.
// Files are validated against the embedded #Config schema (config_schema.cue)
// before being merged over the built-in defaults.
//
// Environment variables prefixed with EXECPROXY_ override file values, with
// dots in the key replaced by underscores (EXECPROXY_UPSTREAM_CLIENT_SECRET).
// A .env file is read with godotenv; its entries apply only where the real
// environment leaves a variable unset.
package config
