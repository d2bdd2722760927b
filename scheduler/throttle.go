package scheduler

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing of throttled runs.
const DefaultInterval = 10 * time.Millisecond

// Throttle runs fn at most once per interval. A call in a quiet period runs
// fn immediately on the caller's goroutine; calls inside the interval
// collapse into one trailing run on the clock's goroutine.
type Throttle struct {
	clock   Clock
	limiter *rate.Limiter
	fn      func()

	mu       sync.Mutex
	trailing Timer
	stopped  bool
}

func NewThrottle(clock Clock, interval time.Duration, fn func()) *Throttle {
	if clock == nil {
		clock = RealClock()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Throttle{
		clock:   clock,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		fn:      fn,
	}
}

// Call requests a run. It reports whether fn ran immediately.
func (t *Throttle) Call() bool {
	t.mu.Lock()
	if t.stopped || t.trailing != nil {
		t.mu.Unlock()
		return false
	}
	now := t.clock.Now()
	if t.limiter.AllowN(now, 1) {
		t.mu.Unlock()
		t.fn()
		return true
	}

	r := t.limiter.ReserveN(now, 1)
	if !r.OK() {
		t.mu.Unlock()
		return false
	}
	t.trailing = t.clock.AfterFunc(r.DelayFrom(now), func() {
		t.mu.Lock()
		if t.stopped {
			t.mu.Unlock()
			return
		}
		t.trailing = nil
		t.mu.Unlock()
		t.fn()
	})
	t.mu.Unlock()
	return false
}

// Pending reports whether a trailing run is scheduled.
func (t *Throttle) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.trailing != nil
}

// Stop cancels any trailing run and ignores later calls.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.trailing != nil {
		t.trailing.Stop()
		t.trailing = nil
	}
}
