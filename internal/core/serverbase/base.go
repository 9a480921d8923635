// SPDX-License-Identifier: MPL-2.0

package serverbase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Base tracks lifecycle state, the goroutines a server owns, and the error
// that failed it. Servers embed it and drive the transitions from Start and Stop.
type Base struct {
	state atomic.Int32

	mu      sync.Mutex
	lastErr error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ready    chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

// New returns a Base in StateCreated.
func New() *Base {
	b := &Base{
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
	b.state.Store(int32(StateCreated))
	return b
}

// State returns the current state without locking.
func (b *Base) State() State {
	return State(b.state.Load())
}

// IsRunning reports whether the server is accepting work.
func (b *Base) IsRunning() bool {
	return b.State() == StateRunning
}

// LastError returns the error that moved the server to StateFailed.
func (b *Base) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Done is closed once the server reaches a terminal state.
func (b *Base) Done() <-chan struct{} {
	return b.done
}

// BeginStart moves Created to Starting. A cancelled ctx fails the server
// before any resources are set up.
func (b *Base) BeginStart(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		err = fmt.Errorf("context cancelled before start: %w", err)
		b.Fail(err)
		return err
	}

	if !b.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("cannot start server in state %s", b.State())
	}

	b.ctx, b.cancel = context.WithCancel(context.Background())
	return nil
}

// MarkRunning moves Starting to Running and releases WaitReady callers.
func (b *Base) MarkRunning() {
	if b.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		close(b.ready)
	}
}

// Fail records err, moves to StateFailed and cancels Context.
func (b *Base) Fail(err error) {
	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()

	b.state.Store(int32(StateFailed))
	if b.cancel != nil {
		b.cancel()
	}
	b.finish()
}

// BeginStop moves Starting or Running to Stopping and cancels Context. It
// returns false when there is nothing to shut down; a server that never
// started goes straight to StateStopped.
func (b *Base) BeginStop() bool {
	for {
		cur := b.State()
		switch cur {
		case StateCreated:
			if b.state.CompareAndSwap(int32(cur), int32(StateStopped)) {
				b.finish()
				return false
			}
		case StateStarting, StateRunning:
			if b.state.CompareAndSwap(int32(cur), int32(StateStopping)) {
				if b.cancel != nil {
					b.cancel()
				}
				return true
			}
		default:
			return false
		}
	}
}

// MarkStopped moves to StateStopped. Call it after Wait returns.
func (b *Base) MarkStopped() {
	b.state.Store(int32(StateStopped))
	b.finish()
}

func (b *Base) finish() {
	b.doneOnce.Do(func() { close(b.done) })
}

// WaitReady blocks until the server is running, fails, or ctx ends.
func (b *Base) WaitReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-b.done:
		if err := b.LastError(); err != nil {
			return err
		}
		return fmt.Errorf("server %s before becoming ready", b.State())
	case <-ctx.Done():
		return fmt.Errorf("waiting for server ready: %w", ctx.Err())
	}
}

// Go runs fn on a tracked goroutine. Its context is cancelled when the
// server starts stopping or fails.
func (b *Base) Go(fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn(b.ctx)
	}()
}

// Wait blocks until every goroutine started with Go has returned.
func (b *Base) Wait() {
	b.wg.Wait()
}
