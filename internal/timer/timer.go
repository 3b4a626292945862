// Package timer implements the single-shot-then-periodic interval
// timer the scheduler is built on: fire once after an initial delay,
// then every period thereafter, until stopped. Stopping is idempotent
// and a slow action never causes the next fire to pile up — the timer
// itself never queues, it only re-arms on the original cadence.
package timer

import (
	"sync"
	"time"
)

// Handle controls a running Timer.
type Handle struct {
	stopOnce sync.Once
	done     chan struct{}
}

// Stop prevents any further fires. It is safe to call more than once
// and safe to call concurrently with a fire in progress; it does not
// wait for an in-flight action to finish — callers that need that
// guarantee track it themselves (see jobscheduler's pending set).
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Start arms a timer that calls action once after delay, then every
// period, until Stop is called on the returned Handle. delay may be
// zero; period must be positive.
func Start(delay, period time.Duration, action func()) *Handle {
	h := &Handle{done: make(chan struct{})}

	go func() {
		first := time.NewTimer(delay)
		defer first.Stop()

		select {
		case <-h.done:
			return
		case <-first.C:
		}
		action()

		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				action()
			}
		}
	}()

	return h
}
