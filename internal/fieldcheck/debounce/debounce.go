// Package debounce delays a callback until input has been quiet for an interval.
package debounce

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultDelay is the quiet period used when Schedule is given a zero delay
// through ScheduleDefault.
const DefaultDelay = 500 * time.Millisecond

// Debouncer runs at most one pending callback. Each Schedule cancels the
// previous one before arming the new timer, so bursts collapse into a single
// trailing call. A timer that fires after being superseded does nothing.
type Debouncer struct {
	clock clock.Clock

	mu         sync.Mutex
	timer      *clock.Timer
	generation uint64
}

// New creates a Debouncer on the given clock. A nil clock uses wall time.
func New(c clock.Clock) *Debouncer {
	if c == nil {
		c = clock.New()
	}
	return &Debouncer{clock: c}
}

// Schedule arms fn to run after delay, replacing any pending call.
func (d *Debouncer) Schedule(fn func(), delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.generation++
	gen := d.generation
	d.timer = d.clock.AfterFunc(delay, func() {
		d.mu.Lock()
		if gen != d.generation {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// ScheduleDefault is Schedule with DefaultDelay.
func (d *Debouncer) ScheduleDefault(fn func()) {
	d.Schedule(fn, DefaultDelay)
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.generation++
}

// Pending reports whether a call is armed and has not fired yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
