package utils

import "time"

type manualTimer struct {
	handle TimerHandle
	due    time.Time
	fn     func()
}

// ManualClock is a Clock and a Scheduler driven by virtual time. Nothing
// fires until AdvanceTo or Advance is called, which makes timing behaviour
// reproducible down to the millisecond.
type ManualClock struct {
	now     time.Time
	last    TimerHandle
	timers  []manualTimer
	maxLive int
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time { return c.now }

func (c *ManualClock) Schedule(delay time.Duration, fn func()) TimerHandle {
	if delay < 0 {
		delay = 0
	}
	c.last++
	c.timers = append(c.timers, manualTimer{handle: c.last, due: c.now.Add(delay), fn: fn})
	if len(c.timers) > c.maxLive {
		c.maxLive = len(c.timers)
	}
	return c.last
}

func (c *ManualClock) Cancel(h TimerHandle) {
	for i, t := range c.timers {
		if t.handle == h {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

// AdvanceTo moves virtual time forward to t, firing every timer due at or
// before t in due order (ties broken by scheduling order). Now reports each
// timer's due time while its callback runs. Callbacks may schedule further
// timers; those fire too if they fall due before t.
func (c *ManualClock) AdvanceTo(t time.Time) {
	for {
		next := c.nextDue()
		if next < 0 || c.timers[next].due.After(t) {
			break
		}
		timer := c.timers[next]
		c.timers = append(c.timers[:next], c.timers[next+1:]...)
		if timer.due.After(c.now) {
			c.now = timer.due
		}
		timer.fn()
	}
	if t.After(c.now) {
		c.now = t
	}
}

func (c *ManualClock) Advance(d time.Duration) {
	c.AdvanceTo(c.now.Add(d))
}

// Flush fires every outstanding timer, including ones scheduled by the
// callbacks themselves, and leaves Now at the last due time.
func (c *ManualClock) Flush() {
	for len(c.timers) > 0 {
		c.AdvanceTo(c.timers[c.nextDue()].due)
	}
}

func (c *ManualClock) nextDue() int {
	if len(c.timers) == 0 {
		return -1
	}
	idx := 0
	for i, t := range c.timers[1:] {
		best := c.timers[idx]
		if t.due.Before(best.due) || (t.due.Equal(best.due) && t.handle < best.handle) {
			idx = i + 1
		}
	}
	return idx
}

// Live reports how many timers are outstanding right now.
func (c *ManualClock) Live() int { return len(c.timers) }

// MaxLive reports the most timers that were ever outstanding at once.
func (c *ManualClock) MaxLive() int { return c.maxLive }
