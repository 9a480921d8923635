// SPDX-License-Identifier: MPL-2.0

// Package serverbase holds the lifecycle state machine shared by long-running
// listeners: Created, Starting, Running, Stopping and then Stopped or Failed.
// Instances are single-use.
package serverbase
