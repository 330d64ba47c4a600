package utils

import "time"

// Debouncer delays action until delay has passed without another Invoke.
// Only the arguments of the last Invoke in a burst reach action. There is
// no maximum wait: calls arriving closer than delay apart forever keep
// action from ever running.
//
// A Debouncer is not safe for concurrent use. Invoke must be called from
// the goroutine that runs the scheduler's callbacks.
type Debouncer[A any] struct {
	action func(A)
	delay  time.Duration
	sched  Scheduler
	timer  TimerHandle
}

func NewDebouncer[A any](sched Scheduler, delay time.Duration, action func(A)) *Debouncer[A] {
	return &Debouncer[A]{
		action: action,
		delay:  delay,
		sched:  sched,
	}
}

// Debounce is the closure form of NewDebouncer.
func Debounce[A any](sched Scheduler, delay time.Duration, action func(A)) func(A) {
	return NewDebouncer(sched, delay, action).Invoke
}

func (d *Debouncer[A]) Invoke(args A) {
	if d.timer != 0 {
		d.sched.Cancel(d.timer)
	}
	d.timer = d.sched.Schedule(d.delay, func() {
		d.timer = 0
		d.action(args)
	})
}

// Pending reports whether a call is waiting for the quiet period to end.
func (d *Debouncer[A]) Pending() bool { return d.timer != 0 }
