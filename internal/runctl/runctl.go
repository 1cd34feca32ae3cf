// Package runctl provides the orchestrator's cooperative cancellation and
// pause primitives, generalized from the web job manager's cancel/status
// handling into a form usable by a headless worker pool.
package runctl

import (
	"context"
	"sync"
)

// Status is the run's coarse lifecycle state.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Control is a cooperative cancellation token plus pause gate shared by every
// worker in a run's pools. Workers call Wait at safe checkpoints (between
// pages) to block while paused and to observe cancellation.
type Control struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	status Status
	paused chan struct{} // closed while NOT paused; replaced on Pause
}

// New creates a Control derived from parent, initially running.
func New(parent context.Context) *Control {
	ctx, cancel := context.WithCancel(parent)
	c := &Control{
		ctx:    ctx,
		cancel: cancel,
		status: StatusRunning,
		paused: make(chan struct{}),
	}
	close(c.paused) // not paused initially: closed channel never blocks
	return c
}

// Context returns the run's cancellation context.
func (c *Control) Context() context.Context {
	return c.ctx
}

// Cancel stops the run. Already-running work is expected to observe
// ctx.Done() at its next checkpoint and unwind; Cancel does not forcibly
// stop anything.
func (c *Control) Cancel() {
	c.cancel()
	c.mu.Lock()
	c.status = StatusCancelled
	c.mu.Unlock()
}

// Pause blocks subsequent Wait calls until Resume is called.
func (c *Control) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusRunning {
		return
	}
	c.status = StatusPaused
	c.paused = make(chan struct{})
}

// Resume unblocks any workers parked in Wait.
func (c *Control) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusPaused {
		return
	}
	c.status = StatusRunning
	close(c.paused)
}

// Complete marks the run finished, independent of pause/cancel state.
func (c *Control) Complete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusCancelled {
		c.status = StatusCompleted
	}
}

// Status returns the current lifecycle state.
func (c *Control) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Cancelled reports whether the run has been cancelled.
func (c *Control) Cancelled() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// Wait blocks the caller while the run is paused, and returns ctx.Err() if
// the run is cancelled either before or during the pause. Call this at a
// safe per-page checkpoint inside a worker loop.
func (c *Control) Wait() error {
	c.mu.Lock()
	gate := c.paused
	c.mu.Unlock()

	select {
	case <-c.ctx.Done():
		return c.ctx.Err()
	case <-gate:
	}

	select {
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return nil
	}
}
