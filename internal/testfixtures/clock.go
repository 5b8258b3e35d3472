package testfixtures

import (
	"sort"
	"sync"
	"time"

	"github.com/empowerhr/empower-client/auth"
)

// Clock provides a controllable time source for tests. It implements
// auth.Clock; timers armed through it only fire when the test advances
// virtual time, never from wall-clock delays.
type Clock struct {
	mu      sync.Mutex
	current time.Time
	timers  []*fakeTimer
}

type fakeTimer struct {
	clock   *Clock
	when    time.Time
	fn      func()
	stopped bool
	fired   bool
}

// Stop prevents the timer from firing.
func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// NewClock returns a clock initialised to the supplied time.
func NewClock(start time.Time) *Clock {
	return &Clock{current: start}
}

// Now returns the current instant tracked by the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// AfterFunc arms a one-shot timer at now+d. The callback runs synchronously
// from Advance once virtual time reaches it.
func (c *Clock) AfterFunc(d time.Duration, f func()) auth.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	timer := &fakeTimer{
		clock: c,
		when:  c.current.Add(d),
		fn:    f,
	}
	c.timers = append(c.timers, timer)
	return timer
}

// Advance moves the clock forward by d and fires every due timer in order,
// including timers armed by the callbacks themselves when they fall within
// the advanced window.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.current = c.current.Add(d)
	updated := c.current
	c.mu.Unlock()

	for {
		timer := c.nextDueTimer()
		if timer == nil {
			return updated
		}
		timer.fn()
	}
}

// PendingTimers counts the timers still armed.
func (c *Clock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := 0
	for _, timer := range c.timers {
		if !timer.fired && !timer.stopped {
			pending++
		}
	}
	return pending
}

// nextDueTimer claims the earliest timer due at the current instant, or nil.
func (c *Clock) nextDueTimer() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	due := make([]*fakeTimer, 0)
	for _, timer := range c.timers {
		if !timer.fired && !timer.stopped && !timer.when.After(c.current) {
			due = append(due, timer)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool { return due[i].when.Before(due[j].when) })

	next := due[0]
	next.fired = true
	return next
}
