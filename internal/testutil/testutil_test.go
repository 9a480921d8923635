// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFakeClock(t *testing.T) {
	t.Parallel()

	c := NewFakeClock(time.Time{})
	if !c.Now().Equal(ReferenceTime) {
		t.Errorf("Now() = %v, want %v", c.Now(), ReferenceTime)
	}

	c.Advance(90 * time.Second)
	if want := ReferenceTime.Add(90 * time.Second); !c.Now().Equal(want) {
		t.Errorf("after Advance Now() = %v, want %v", c.Now(), want)
	}
}

type stopFunc func() error

func (f stopFunc) Stop() error { return f() }

func TestMustStop(t *testing.T) {
	t.Parallel()

	called := false
	MustStop(t, stopFunc(func() error {
		called = true
		return errors.New("already stopped")
	}))
	if !called {
		t.Error("Stop was not called")
	}
}

func TestMustWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := MustWriteFile(t, dir, "config.cue", "server: {}\n")
	if path != filepath.Join(dir, "config.cue") {
		t.Errorf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "server: {}\n" {
		t.Errorf("ReadFile() = %q, %v", data, err)
	}
}

func TestClosedServerURL(t *testing.T) {
	t.Parallel()

	resp, err := http.Get(ClosedServerURL(t))
	if err == nil {
		resp.Body.Close()
		t.Fatal("request to a closed server should fail")
	}
}

func TestMustChdir(t *testing.T) {
	// Not parallel: changes the process working directory.
	before, _ := os.Getwd()
	dir := t.TempDir()

	t.Run("inner", func(t *testing.T) {
		MustChdir(t, dir)
		now, _ := os.Getwd()
		if resolved, _ := filepath.EvalSymlinks(dir); now != dir && now != resolved {
			t.Errorf("Getwd() = %q, want %q", now, dir)
		}
	})

	after, _ := os.Getwd()
	if after != before {
		t.Errorf("working directory not restored: %q, want %q", after, before)
	}
}
