// Package autosubmit coordinates debounced automatic submissions for one
// form: triggers restart a shared window, a submission in flight turns new
// triggers into a single pending flag, and the flag is flushed into a fresh
// window once the submission settles.
package autosubmit

import (
	"context"
	"sync"
	"time"

	"github.com/reoring/formstate/internal/debounce"
)

// Phase is the coordinator's current state.
type Phase int

const (
	Idle Phase = iota
	Debouncing
	Submitting
)

func (p Phase) String() string {
	switch p {
	case Debouncing:
		return "debouncing"
	case Submitting:
		return "submitting"
	default:
		return "idle"
	}
}

// Coordinator is safe for concurrent use.
type Coordinator struct {
	delay time.Duration
	deb   *debounce.Debouncer
	run   func(ctx context.Context)

	mu      sync.Mutex
	active  int
	pending bool
	closed  bool
	phase   Phase
}

// New returns a coordinator whose elapsed windows call run exactly once.
// run receives a context that is cancelled when the coordinator closes.
func New(parent context.Context, delay time.Duration, run func(ctx context.Context)) *Coordinator {
	return &Coordinator{
		delay: delay,
		deb:   debounce.New(parent, delay),
		run:   run,
	}
}

// Trigger requests a submission after the default window.
func (c *Coordinator) Trigger() { c.TriggerAfter(c.delay) }

// TriggerAfter requests a submission after delay. While a submission is
// active the request is remembered as pending instead.
func (c *Coordinator) TriggerAfter(delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.active > 0 {
		c.pending = true
		return
	}
	c.phase = Debouncing
	c.deb.TriggerAfter(delay, c.fire)
}

func (c *Coordinator) fire(ctx context.Context) {
	c.mu.Lock()
	if c.closed || ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	if c.active > 0 {
		c.pending = true
		c.mu.Unlock()
		return
	}
	c.active++
	c.phase = Submitting
	c.mu.Unlock()

	c.run(ctx)
	c.Settle()
}

// Begin marks a submission started outside the coordinator as active.
func (c *Coordinator) Begin() {
	c.mu.Lock()
	c.active++
	c.phase = Submitting
	c.mu.Unlock()
}

// Settle marks one active submission finished. When it was the last one and
// a trigger arrived meanwhile, a new window starts immediately.
func (c *Coordinator) Settle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active > 0 {
		c.active--
	}
	if c.active > 0 {
		return
	}
	if c.pending && !c.closed {
		c.pending = false
		c.phase = Debouncing
		c.deb.Trigger(c.fire)
		return
	}
	c.pending = false
	if c.phase != Debouncing || !c.deb.Pending() {
		c.phase = Idle
	}
}

// Phase returns the current phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Debouncing && !c.deb.Pending() && c.active == 0 {
		return Idle
	}
	return c.phase
}

// Pending reports whether a trigger is waiting for the active submission.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Cancel drops a scheduled window without closing the coordinator.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false
	c.deb.Cancel()
	if c.active == 0 {
		c.phase = Idle
	}
}

// Close cancels any scheduled window and waits for a running submission to
// return. No submission starts after Close returns.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.pending = false
	c.mu.Unlock()
	c.deb.Stop()
}
