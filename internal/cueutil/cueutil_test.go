// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"strings"
	"testing"
)

const testSchema = `
#Listener: close({
	host?:   string
	port?:   int & >=0 & <=65535
	routes?: [...{path: =~"^/"}]
})
`

type listener struct {
	Host   string           `json:"host"`
	Port   int              `json:"port"`
	Routes []map[string]any `json:"routes"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	got, err := ParseAndDecode[listener](testSchema, []byte(`host: "0.0.0.0", port: 8001`), "#Listener",
		WithConcrete(false), WithFilename("listener.cue"))
	if err != nil {
		t.Fatalf("ParseAndDecode() error = %v", err)
	}
	if got.Host != "0.0.0.0" || got.Port != 8001 {
		t.Errorf("decoded %+v", got)
	}
}

func TestParseAndDecode_IntoMap(t *testing.T) {
	t.Parallel()

	got, err := ParseAndDecode[map[string]any](testSchema, []byte(`port: 9000`), "#Listener", WithConcrete(false))
	if err != nil {
		t.Fatalf("ParseAndDecode() error = %v", err)
	}
	if len(*got) != 1 {
		t.Errorf("map should only hold the fields that were set, got %v", *got)
	}
}

func TestParseAndDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantSub []string
	}{
		{name: "syntax", data: `port: `, wantSub: []string{"listener.cue"}},
		{name: "out of range", data: `port: 70000`, wantSub: []string{"listener.cue", "port:"}},
		{name: "wrong type", data: `host: 1`, wantSub: []string{"host"}},
		{name: "closed struct", data: `bogus: true`, wantSub: []string{"bogus"}},
		{name: "list index path", data: `routes: [{path: "/ok"}, {path: "nope"}]`, wantSub: []string{"routes[1].path"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseAndDecode[listener](testSchema, []byte(tt.data), "#Listener",
				WithConcrete(false), WithFilename("listener.cue"))
			if err == nil {
				t.Fatal("ParseAndDecode() should fail")
			}
			for _, sub := range tt.wantSub {
				if !strings.Contains(err.Error(), sub) {
					t.Errorf("error %q should contain %q", err, sub)
				}
			}
		})
	}
}

func TestParseAndDecode_FileTooLarge(t *testing.T) {
	t.Parallel()

	_, err := ParseAndDecode[listener](testSchema, []byte(`host: "`+strings.Repeat("x", 64)+`"`), "#Listener",
		WithMaxFileSize(16), WithFilename("big.cue"))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("error = %v, want ErrFileTooLarge", err)
	}
	var tooLarge *FileTooLargeError
	if !errors.As(err, &tooLarge) || tooLarge.Max != 16 || tooLarge.Filename != "big.cue" {
		t.Errorf("error = %#v", err)
	}
}

func TestParseAndDecode_MissingDefinition(t *testing.T) {
	t.Parallel()

	_, err := ParseAndDecode[listener](testSchema, []byte(`port: 1`), "#Nope")
	if err == nil || !strings.Contains(err.Error(), "#Nope") {
		t.Errorf("error = %v, want missing definition", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"server"}, "server"},
		{[]string{"server", "port"}, "server.port"},
		{[]string{"routes", "0", "path"}, "routes[0].path"},
		{[]string{"0"}, "0"},
	}
	for _, tt := range tests {
		if got := formatPath(tt.path); got != tt.want {
			t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFormatError_NonCUE(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk on fire")
	err := FormatError(cause, "config.cue")
	if !errors.Is(err, cause) || !strings.HasPrefix(err.Error(), "config.cue: ") {
		t.Errorf("FormatError() = %v", err)
	}
	if FormatError(nil, "x") != nil {
		t.Error("FormatError(nil) should be nil")
	}
}
