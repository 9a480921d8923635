// SPDX-License-Identifier: MPL-2.0

// Package executor forwards code execution requests from browser callers to a
// remote online compiler API.
//
// The package is split in two halves. Normalize turns an inbound JSON body into a
// fully populated ExecuteRequest, applying defaults and rejecting structurally
// invalid input. Forwarder delivers that request upstream in a single POST and
// returns either the upstream body or a typed ForwardError. Handler glues both
// together behind a CORS-enabled /execute endpoint that always answers POST with
// HTTP 200, downgrading any failure into a FallbackResponse so browser fetch call
// sites only have to inspect the body.
package executor
