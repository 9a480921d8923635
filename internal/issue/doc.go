// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing errors for the execproxy CLI.
//
// ActionableError carries the failed operation, the resource involved and a
// list of remediation hints. The Issue catalog holds longer Markdown guidance
// for the failure classes an operator is likely to hit (bad configuration,
// unreachable upstream, rejected credentials), rendered with glamour.
package issue
