package utils

import "time"

// TimerHandle identifies a scheduled callback. The zero value means "no timer".
type TimerHandle uint64

type Scheduler interface {
	Schedule(delay time.Duration, fn func()) TimerHandle
	Cancel(h TimerHandle)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

var SystemClock Clock = systemClock{}

// EventScheduler arms real timers but never runs callbacks on the timer
// goroutine: a fired timer hands its callback to post, and whoever drains
// post runs it. Schedule, Cancel and the posted callbacks must all run on
// that same goroutine.
type EventScheduler struct {
	post   func(func())
	last   TimerHandle
	timers map[TimerHandle]*time.Timer
}

func NewEventScheduler(post func(func())) *EventScheduler {
	return &EventScheduler{
		post:   post,
		timers: make(map[TimerHandle]*time.Timer),
	}
}

func (s *EventScheduler) Schedule(delay time.Duration, fn func()) TimerHandle {
	s.last++
	h := s.last
	s.timers[h] = time.AfterFunc(delay, func() {
		s.post(func() {
			// cancelled after the timer fired but before we got here
			if _, ok := s.timers[h]; !ok {
				return
			}
			delete(s.timers, h)
			fn()
		})
	})
	return h
}

func (s *EventScheduler) Cancel(h TimerHandle) {
	if t, ok := s.timers[h]; ok {
		t.Stop()
		delete(s.timers, h)
	}
}

// Stop cancels every outstanding timer.
func (s *EventScheduler) Stop() {
	for h, t := range s.timers {
		t.Stop()
		delete(s.timers, h)
	}
}

func (s *EventScheduler) Live() int { return len(s.timers) }
