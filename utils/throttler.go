package utils

import "time"

// Throttler runs action at most once per interval. A call arriving after a
// full interval runs immediately (leading edge). Calls inside the window are
// folded into a single trailing execution at the window boundary, carrying
// the arguments of the last of them.
//
// A Throttler is not safe for concurrent use. Invoke must be called from
// the goroutine that runs the scheduler's callbacks.
type Throttler[A any] struct {
	action   func(A)
	interval time.Duration
	sched    Scheduler
	clock    Clock
	last     time.Time // zero until the first execution
	timer    TimerHandle
}

func NewThrottler[A any](sched Scheduler, clock Clock, interval time.Duration, action func(A)) *Throttler[A] {
	return &Throttler[A]{
		action:   action,
		interval: interval,
		sched:    sched,
		clock:    clock,
	}
}

// Throttle is the closure form of NewThrottler.
func Throttle[A any](sched Scheduler, clock Clock, interval time.Duration, action func(A)) func(A) {
	return NewThrottler(sched, clock, interval, action).Invoke
}

func (t *Throttler[A]) Invoke(args A) {
	now := t.clock.Now()
	elapsed := now.Sub(t.last)

	if t.last.IsZero() || elapsed >= t.interval {
		// a trailing timer can still be live here only if its callback was
		// delivered late; the newer call supersedes it
		t.cancel()
		t.last = now
		t.action(args)
		return
	}

	t.cancel()
	t.timer = t.sched.Schedule(t.interval-elapsed, func() {
		t.timer = 0
		t.last = t.clock.Now()
		t.action(args)
	})
}

func (t *Throttler[A]) cancel() {
	if t.timer != 0 {
		t.sched.Cancel(t.timer)
		t.timer = 0
	}
}

// Pending reports whether a trailing execution is scheduled.
func (t *Throttler[A]) Pending() bool { return t.timer != 0 }
