package utils

import (
	"math/rand"
	"testing"
	"time"
)

func TestThrottler(t *testing.T) {
	ms := time.Millisecond

	testCases := []struct {
		name     string
		interval time.Duration
		offsets  []int
		exp      []execution
	}{
		{
			name:     "First call runs immediately",
			interval: 1000 * ms,
			offsets:  []int{0},
			exp:      []execution{{0, 0}},
		},
		{
			name:     "Golden trace",
			interval: 1000 * ms,
			offsets:  []int{0, 100, 300, 1050, 1100},
			exp:      []execution{{0, 0}, {1000 * ms, 2}, {2000 * ms, 4}},
		},
		{
			name:     "Spaced calls all lead",
			interval: 1000 * ms,
			offsets:  []int{0, 1000, 2500},
			exp:      []execution{{0, 0}, {1000 * ms, 1}, {2500 * ms, 2}},
		},
		{
			name:     "Single suppressed call trails at the window boundary",
			interval: 1000 * ms,
			offsets:  []int{0, 999},
			exp:      []execution{{0, 0}, {1000 * ms, 1}},
		},
		{
			name:     "Quiet gap after trailing run leads again",
			interval: 500 * ms,
			offsets:  []int{0, 10, 20, 1600},
			exp:      []execution{{0, 0}, {500 * ms, 2}, {1600 * ms, 3}},
		},
		{
			name:     "Zero interval never suppresses",
			interval: 0,
			offsets:  []int{0, 0, 1},
			exp:      []execution{{0, 0}, {0, 1}, {1 * ms, 2}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clock := NewManualClock(epoch)
			var got []execution
			th := NewThrottler(clock, clock, tc.interval, recorder(clock, &got))

			drive(clock, tc.offsets, th.Invoke)

			equalTrace(t, got, tc.exp)
			if clock.MaxLive() > 1 {
				t.Errorf("exp at most 1 outstanding timer; got %d", clock.MaxLive())
			}
			if th.Pending() {
				t.Error("exp no pending call after flush")
			}
		})
	}
}

func TestThrottler_RandomStreams(t *testing.T) {
	const interval = 250 * time.Millisecond
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 200; run++ {
		offsets := make([]int, 1+rng.Intn(40))
		at := 0
		for i := range offsets {
			if i > 0 {
				at += rng.Intn(400)
			}
			offsets[i] = at
		}

		clock := NewManualClock(epoch)
		var got []execution
		th := NewThrottler(clock, clock, interval, recorder(clock, &got))
		drive(clock, offsets, th.Invoke)

		if len(got) == 0 || got[0] != (execution{0, 0}) {
			t.Fatalf("run %d: exp first call to run at once; got %v", run, got)
		}
		for i := 1; i < len(got); i++ {
			if gap := got[i].at - got[i-1].at; gap < interval {
				t.Fatalf("run %d: executions %d and %d only %v apart: %v", run, i-1, i, gap, got)
			}
			if got[i].arg <= got[i-1].arg {
				t.Fatalf("run %d: args out of order: %v", run, got)
			}
		}
		if last := got[len(got)-1].arg; last != len(offsets)-1 {
			t.Fatalf("run %d: exp final execution to carry the last call %d; got %d", run, len(offsets)-1, last)
		}
		if clock.MaxLive() > 1 {
			t.Fatalf("run %d: exp at most 1 outstanding timer; got %d", run, clock.MaxLive())
		}
	}
}

func TestThrottler_LeadingEdgeDropsLateTrailingTimer(t *testing.T) {
	// A scheduler that never fires on its own stands in for an event loop
	// that has not yet delivered an already-due timer.
	clock := NewManualClock(epoch)
	held := NewManualClock(epoch)
	var got []int
	th := NewThrottler(held, clock, time.Second, func(arg int) { got = append(got, arg) })

	th.Invoke(0)
	clock.Advance(100 * time.Millisecond)
	th.Invoke(1)
	if held.Live() != 1 {
		t.Fatalf("exp trailing timer; got %d live", held.Live())
	}

	clock.Advance(2 * time.Second)
	th.Invoke(2)

	if held.Live() != 0 {
		t.Fatalf("exp stale trailing timer cancelled; got %d live", held.Live())
	}
	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Fatalf("exp executions [0 2]; got %v", got)
	}
}

func TestThrottler_PanicPropagatesFromInvoke(t *testing.T) {
	clock := NewManualClock(epoch)
	th := NewThrottler(clock, clock, time.Second, func(string) { panic("boom") })

	defer func() {
		if r := recover(); r != "boom" {
			t.Fatalf("exp panic %q; got %v", "boom", r)
		}
	}()
	th.Invoke("x")
	t.Fatal("exp leading-edge panic to reach the caller")
}

func TestThrottle_ClosureForm(t *testing.T) {
	clock := NewManualClock(epoch)
	count := 0
	invoke := Throttle(clock, clock, time.Second, func(struct{}) { count++ })

	for i := 0; i < 10; i++ {
		invoke(struct{}{})
		clock.Advance(50 * time.Millisecond)
	}
	clock.Flush()

	if count != 2 {
		t.Fatalf("exp leading + trailing execution; got %d", count)
	}
}
