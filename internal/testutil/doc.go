// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by tests across packages. Helpers
// fail the test on error instead of returning it.
package testutil
