// Package timer provides a schedulable interval timer that the capture
// session and slideshow controller use instead of framework animation
// primitives, so both can be driven and tested without a UI harness.
package timer

import (
	"sync"
	"time"
)

// Interval invokes a callback at a fixed period until stopped. Start,
// Stop and Reset are safe for concurrent use. The callback runs on the
// timer goroutine; it must not call back into the Interval.
type Interval struct {
	every time.Duration
	fn    func()

	mu   sync.Mutex
	stop chan struct{}
}

func NewInterval(every time.Duration, fn func()) *Interval {
	return &Interval{every: every, fn: fn}
}

// Start begins ticking. Calling Start on a running timer is a no-op.
func (i *Interval) Start() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stop != nil {
		return
	}
	stop := make(chan struct{})
	i.stop = stop

	go func() {
		t := time.NewTicker(i.every)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				i.fn()
			}
		}
	}()
}

// Stop halts ticking. Safe to call when not running.
func (i *Interval) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stop == nil {
		return
	}
	close(i.stop)
	i.stop = nil
}

// Reset restarts the period from zero, so the next tick fires a full
// interval from now.
func (i *Interval) Reset() {
	i.Stop()
	i.Start()
}

// Running reports whether the timer is ticking.
func (i *Interval) Running() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stop != nil
}
