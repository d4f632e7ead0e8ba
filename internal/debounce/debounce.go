// Package debounce runs a callback once a quiet period has elapsed since the
// last trigger. Every trigger restarts the window and cancels the context of
// the previous callback; Stop cancels everything and waits for running
// callbacks to return.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Debouncer schedules trailing-edge callbacks.
type Debouncer struct {
	delay  time.Duration
	parent context.Context

	mu      sync.Mutex
	timer   *time.Timer
	cancel  context.CancelFunc
	gen     uint64
	pending bool
	stopped bool
	wg      sync.WaitGroup
}

// New returns a Debouncer whose callbacks receive contexts derived from
// parent.
func New(parent context.Context, delay time.Duration) *Debouncer {
	return &Debouncer{parent: parent, delay: delay}
}

// Trigger (re)starts the window with the default delay.
func (d *Debouncer) Trigger(fn func(ctx context.Context)) uint64 {
	return d.TriggerAfter(d.delay, fn)
}

// TriggerAfter (re)starts the window with an explicit delay and returns the
// generation of the scheduled callback. It returns 0 once stopped.
func (d *Debouncer) TriggerAfter(delay time.Duration, fn func(ctx context.Context)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return 0
	}
	d.stopTimerLocked()
	if d.cancel != nil {
		d.cancel()
	}
	ctx, cancel := context.WithCancel(d.parent)
	d.gen++
	gen := d.gen
	d.cancel = cancel
	d.pending = true
	d.wg.Add(1)
	d.timer = time.AfterFunc(delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		if d.stopped || gen != d.gen || ctx.Err() != nil {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.pending = false
		d.mu.Unlock()
		fn(ctx)
	})
	return gen
}

// Current reports whether gen is still the latest scheduled generation.
func (d *Debouncer) Current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.stopped && gen == d.gen
}

// Pending reports whether a callback is waiting for its window to elapse.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Cancel drops the pending callback, if any, and cancels the context of a
// running one.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopTimerLocked()
	d.gen++
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Stop cancels everything and waits for running callbacks. It must not be
// called from inside a callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		d.stopTimerLocked()
		if d.cancel != nil {
			d.cancel()
			d.cancel = nil
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Debouncer) stopTimerLocked() {
	if d.timer != nil && d.timer.Stop() {
		d.wg.Done()
	}
	d.timer = nil
	d.pending = false
}
