// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/execproxy/execproxy/internal/config"
)

// stubProvider returns a fixed configuration and records the options it saw.
type stubProvider struct {
	cfg *config.Config
	err error

	mu   sync.Mutex
	opts config.LoadOptions
}

func (p *stubProvider) Load(_ context.Context, opts config.LoadOptions) (*config.Config, error) {
	p.mu.Lock()
	p.opts = opts
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	cp := *p.cfg
	return &cp, nil
}

func (p *stubProvider) lastOptions() config.LoadOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opts
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, provider config.Provider, args ...string) cliResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := NewApp(Dependencies{Config: provider, Stdout: &stdout, Stderr: &stderr})
	root := NewRootCommand(app)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// testConfig returns defaults with credentials and a quiet logger.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Upstream.ClientID = "test-id"
	cfg.Upstream.ClientSecret = "test-secret"
	cfg.Log.Level = config.LogLevelError
	return cfg
}
