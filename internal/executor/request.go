// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultVersionIndex is the compiler version index used when neither the
	// caller nor the configuration supplies one.
	DefaultVersionIndex = "3"

	// FieldPolicyReject fails normalization when a required field is missing.
	FieldPolicyReject FieldPolicy = "reject"
	// FieldPolicyForward passes missing required fields upstream as empty strings
	// and lets the upstream service report the problem.
	FieldPolicyForward FieldPolicy = "forward"
)

// ErrInvalidFieldPolicy is returned when a FieldPolicy value is not recognized.
var ErrInvalidFieldPolicy = errors.New("invalid field policy")

type (
	// ExecuteRequest is the normalized execute-request sent to the upstream
	// compiler API. Every field is always serialized so the upstream sees
	// explicit defaults.
	ExecuteRequest struct {
		ClientID     string `json:"clientId"`
		ClientSecret string `json:"clientSecret"`
		Script       string `json:"script"`
		Stdin        string `json:"stdin"`
		Language     string `json:"language"`
		VersionIndex string `json:"versionIndex"`
		CompileOnly  bool   `json:"compileOnly"`
	}

	// Defaults holds server-side values applied to fields the caller omitted.
	Defaults struct {
		// VersionIndex replaces an absent or blank versionIndex.
		VersionIndex string
		// ClientID and ClientSecret are server-held upstream credentials. They
		// fill in for callers that do not embed credentials in the page.
		ClientID     string
		ClientSecret string
	}

	// FieldPolicy selects how missing required fields are handled.
	FieldPolicy string

	// InvalidFieldPolicyError is returned when a FieldPolicy value is not recognized.
	InvalidFieldPolicyError struct {
		Value FieldPolicy
	}

	// inboundRequest mirrors ExecuteRequest with pointer fields so absent and
	// null values can be told apart from empty strings.
	inboundRequest struct {
		ClientID     *string         `json:"clientId"`
		ClientSecret *string         `json:"clientSecret"`
		Script       *string         `json:"script"`
		Stdin        *string         `json:"stdin"`
		Language     *string         `json:"language"`
		VersionIndex json.RawMessage `json:"versionIndex"`
		CompileOnly  *bool           `json:"compileOnly"`
	}
)

// Error implements the error interface for InvalidFieldPolicyError.
func (e *InvalidFieldPolicyError) Error() string {
	return fmt.Sprintf("invalid field policy %q (valid: reject, forward)", e.Value)
}

// Unwrap returns ErrInvalidFieldPolicy for errors.Is() compatibility.
func (e *InvalidFieldPolicyError) Unwrap() error { return ErrInvalidFieldPolicy }

// String returns the string representation of the FieldPolicy.
func (p FieldPolicy) String() string { return string(p) }

// IsValid returns whether the FieldPolicy is one of the defined policies,
// and a list of validation errors if it is not.
func (p FieldPolicy) IsValid() (bool, []error) {
	switch p {
	case FieldPolicyReject, FieldPolicyForward:
		return true, nil
	default:
		return false, []error{&InvalidFieldPolicyError{Value: p}}
	}
}

// Normalize parses an inbound request body and returns a fully populated
// ExecuteRequest. It has no side effects.
//
// Defaults applied: stdin -> "", versionIndex -> defaults.VersionIndex (or
// DefaultVersionIndex), compileOnly -> false, clientId/clientSecret -> the
// server-held credentials. Credentials are only filled in when absent, null
// or empty; a caller value is never rewritten. Under FieldPolicyReject a
// missing or blank clientId, clientSecret, script or language yields a
// *MissingFieldError.
func Normalize(body []byte, defaults Defaults, policy FieldPolicy) (ExecuteRequest, error) {
	if !utf8.Valid(body) {
		return ExecuteRequest{}, &MalformedInputError{Err: errors.New("body is not valid UTF-8")}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ExecuteRequest{}, &MalformedInputError{Err: errors.New("body must be a JSON object")}
	}

	var in inboundRequest
	if err := json.Unmarshal(trimmed, &in); err != nil {
		return ExecuteRequest{}, &MalformedInputError{Err: err}
	}

	versionIndex, err := parseVersionIndex(in.VersionIndex)
	if err != nil {
		return ExecuteRequest{}, &MalformedInputError{Err: err}
	}
	if strings.TrimSpace(versionIndex) == "" {
		versionIndex = defaults.VersionIndex
	}
	if strings.TrimSpace(versionIndex) == "" {
		versionIndex = DefaultVersionIndex
	}

	req := ExecuteRequest{
		ClientID:     orDefault(in.ClientID, defaults.ClientID),
		ClientSecret: orDefault(in.ClientSecret, defaults.ClientSecret),
		Script:       deref(in.Script),
		Stdin:        deref(in.Stdin),
		Language:     deref(in.Language),
		VersionIndex: versionIndex,
		CompileOnly:  in.CompileOnly != nil && *in.CompileOnly,
	}

	if policy != FieldPolicyForward {
		if field := firstMissing(req); field != "" {
			return ExecuteRequest{}, &MissingFieldError{Field: field}
		}
	}

	return req, nil
}

// firstMissing returns the JSON name of the first blank required field, in
// the order the upstream documents them.
func firstMissing(req ExecuteRequest) string {
	required := []struct {
		name  string
		value string
	}{
		{"clientId", req.ClientID},
		{"clientSecret", req.ClientSecret},
		{"script", req.Script},
		{"language", req.Language},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return f.name
		}
	}
	return ""
}

// parseVersionIndex accepts a JSON string or number. Absent and null values
// return "".
func parseVersionIndex(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("versionIndex: %w", err)
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("versionIndex must be a string or number: %w", err)
	}
	return n.String(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
