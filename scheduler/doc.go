// Package scheduler coalesces update notifications into bounded-rate work.
//
// A Debouncer holds at most one pending timer: notifications that arrive
// while a timer is pending are dropped, and the timer's callback renders
// whatever state is current when it fires. Delay computes the debounce
// window from the last render time and the number of live viewers.
//
// A Throttle runs a function at most once per interval. The first call in
// a quiet period runs immediately and a burst of later calls collapses into
// a single trailing run.
//
// Both take a Clock so tests can drive time with a ManualClock.
package scheduler
