package scheduler

import (
	"math"
	"sync"
	"time"
)

// MaxDelay bounds the debounce window.
const MaxDelay = 10 * time.Second

// Delay returns the debounce window for a viewer whose last render took
// renderTime milliseconds, with liveViewers viewers sharing the document:
// renderTime * liveViewers * 2, clamped to [0, MaxDelay].
func Delay(renderTime float64, liveViewers int) time.Duration {
	ms := renderTime * float64(liveViewers) * 2
	if math.IsNaN(ms) || ms <= 0 {
		return 0
	}
	if ms >= float64(MaxDelay.Milliseconds()) {
		return MaxDelay
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// Debouncer keeps at most one pending timer.
type Debouncer struct {
	clock Clock

	mu      sync.Mutex
	timer   Timer
	pending bool
	gen     uint64
}

func NewDebouncer(clock Clock) *Debouncer {
	if clock == nil {
		clock = RealClock()
	}
	return &Debouncer{clock: clock}
}

// Trigger arms a timer that runs fn after delay. When a timer is already
// pending the call is dropped and Trigger returns false.
func (d *Debouncer) Trigger(delay time.Duration, fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending {
		return false
	}
	d.pending = true
	gen := d.gen
	d.timer = d.clock.AfterFunc(delay, func() {
		d.mu.Lock()
		if gen != d.gen || !d.pending {
			d.mu.Unlock()
			return
		}
		d.pending = false
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
	return true
}

// Pending reports whether a timer is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Cancel stops the pending timer, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
}
