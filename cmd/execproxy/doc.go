// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the execproxy command tree.
//
// The root command carries the global --config, --env-file and --verbose
// flags. Subcommands run the proxy (serve), check upstream credentials
// (probe), inspect configuration (config) and browse the troubleshooting
// catalog (issue).
package cmd
