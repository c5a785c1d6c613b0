// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"testing"
	"time"
)

// drainTimers runs a timer-only iteration without sleeping.
func drainTimers(r *Reactor) int {
	return r.ProcessEvents(TimeEvents | DontWait)
}

func TestCreateTimer_IDsStrictlyIncreasing(t *testing.T) {
	r := newTestReactor(t, 16)
	noop := func(*Reactor, int64, any) int { return NoMore }

	var last int64 = -1
	for i := 0; i < 100; i++ {
		id := r.CreateTimer(1_000, noop, nil, nil)
		if id <= last {
			t.Fatalf("id %d not greater than previous %d", id, last)
		}
		last = id
	}
}

func TestDeleteTimer_NotFound(t *testing.T) {
	r := newTestReactor(t, 16)
	if err := r.DeleteTimer(12345); err != ErrTimerNotFound {
		t.Errorf("got %v, want ErrTimerNotFound", err)
	}
}

func TestDeleteTimer_NeverFires(t *testing.T) {
	clock := newFakeClock()
	r := newTestReactor(t, 16, WithClock(clock.Now))

	fired := false
	finalized := false
	id := r.CreateTimer(100, func(*Reactor, int64, any) int {
		fired = true
		return NoMore
	}, nil, func(*Reactor, any) {
		finalized = true
	})

	if err := r.DeleteTimer(id); err != nil {
		t.Fatalf("DeleteTimer: %v", err)
	}

	clock.advance(time.Second)
	for i := 0; i < 3; i++ {
		drainTimers(r)
	}

	if fired {
		t.Error("deleted timer fired")
	}
	if !finalized {
		t.Error("finalizer did not run for deleted timer")
	}
	// A reaped id is gone for good.
	if err := r.DeleteTimer(id); err != ErrTimerNotFound {
		t.Errorf("second delete: got %v, want ErrTimerNotFound", err)
	}
}

func TestTimer_FiresAtDeadline(t *testing.T) {
	clock := newFakeClock()
	r := newTestReactor(t, 16, WithClock(clock.Now))

	fired := 0
	r.CreateTimer(100, func(*Reactor, int64, any) int {
		fired++
		return NoMore
	}, nil, nil)

	drainTimers(r)
	if fired != 0 {
		t.Fatal("timer fired before its deadline")
	}

	clock.advance(100 * time.Millisecond)
	drainTimers(r)
	if fired != 1 {
		t.Fatalf("fired %d times at deadline, want 1", fired)
	}

	// NoMore retires the timer.
	clock.advance(time.Second)
	drainTimers(r)
	if fired != 1 {
		t.Fatalf("retired timer fired again (%d times total)", fired)
	}
}

func TestTimer_RescheduleInterval(t *testing.T) {
	clock := newFakeClock()
	r := newTestReactor(t, 16, WithClock(clock.Now))

	fired := 0
	r.CreateTimer(30, func(*Reactor, int64, any) int {
		fired++
		return 20
	}, nil, nil)

	clock.advance(30 * time.Millisecond)
	drainTimers(r)
	if fired != 1 {
		t.Fatalf("fired %d, want 1", fired)
	}

	// Rescheduled 20ms ahead; 10ms is not enough.
	clock.advance(10 * time.Millisecond)
	drainTimers(r)
	if fired != 1 {
		t.Fatalf("timer fired %d times before its reschedule interval elapsed", fired)
	}

	clock.advance(10 * time.Millisecond)
	drainTimers(r)
	if fired != 2 {
		t.Fatalf("fired %d, want 2", fired)
	}
}

func TestTimer_CadenceWallClock(t *testing.T) {
	// A 30ms timer rescheduling every 20ms fires near t=30,50,70,90,110
	// over a 125ms window. Generous bounds absorb scheduler noise.
	r := newTestReactor(t, 16)

	fired := 0
	r.CreateTimer(30, func(*Reactor, int64, any) int {
		fired++
		return 20
	}, nil, nil)

	start := time.Now()
	for time.Since(start) < 125*time.Millisecond {
		r.ProcessEvents(AllEvents)
	}

	if fired < 3 || fired > 7 {
		t.Errorf("fired %d times in 125ms, want about 5", fired)
	}
}

func TestTimer_BackwardClockJump(t *testing.T) {
	clock := newFakeClock()
	r := newTestReactor(t, 16, WithClock(clock.Now))

	fired := 0
	proc := func(*Reactor, int64, any) int {
		fired++
		return NoMore
	}
	r.CreateTimer(100, proc, nil, nil)
	r.CreateTimer(200, proc, nil, nil)

	// One pass before the jump; neither deadline has arrived.
	drainTimers(r)
	if fired != 0 {
		t.Fatalf("timers fired prematurely (%d)", fired)
	}

	// The wall clock moves back 10 seconds. Both timers must be forced
	// to expire in the next pass rather than stalling for the jump.
	clock.rewind(10 * time.Second)
	n := drainTimers(r)
	if fired != 2 {
		t.Fatalf("after backward jump: fired %d, want 2", fired)
	}
	if n != 2 {
		t.Fatalf("processed %d, want 2", n)
	}

	// And only once.
	clock.advance(time.Second)
	drainTimers(r)
	if fired != 2 {
		t.Fatalf("timers refired after skew recovery (%d)", fired)
	}
}

func TestTimer_SelfDelete(t *testing.T) {
	clock := newFakeClock()
	r := newTestReactor(t, 16, WithClock(clock.Now))

	fired := 0
	finalized := false
	var id int64
	id = r.CreateTimer(10, func(r *Reactor, tid int64, clientData any) int {
		fired++
		if err := r.DeleteTimer(id); err != nil {
			t.Errorf("self delete: %v", err)
		}
		// A positive reschedule must not resurrect a deleted timer.
		return 10
	}, nil, func(*Reactor, any) {
		finalized = true
	})

	clock.advance(10 * time.Millisecond)
	drainTimers(r)
	if fired != 1 {
		t.Fatalf("fired %d, want 1", fired)
	}
	if finalized {
		t.Fatal("node reaped while its proc was still referenced this pass")
	}

	// Reaped on the next pass; the proc never runs again.
	clock.advance(time.Second)
	drainTimers(r)
	if fired != 1 {
		t.Fatalf("deleted timer fired again (%d)", fired)
	}
	if !finalized {
		t.Fatal("finalizer did not run on the pass after deletion")
	}
}

func TestTimer_DeleteOtherDuringPass(t *testing.T) {
	clock := newFakeClock()
	r := newTestReactor(t, 16, WithClock(clock.Now))

	var deletedFired bool
	victim := r.CreateTimer(10, func(*Reactor, int64, any) int {
		deletedFired = true
		return NoMore
	}, nil, nil)

	// Created later, so it sits ahead of the victim in the list and
	// runs first.
	r.CreateTimer(10, func(r *Reactor, id int64, clientData any) int {
		if err := r.DeleteTimer(victim); err != nil {
			t.Errorf("delete other: %v", err)
		}
		return NoMore
	}, nil, nil)

	clock.advance(10 * time.Millisecond)
	drainTimers(r)
	if deletedFired {
		t.Error("timer deleted earlier in the same pass still fired")
	}
}

func TestTimer_CreatedDuringPassShielded(t *testing.T) {
	clock := newFakeClock()
	r := newTestReactor(t, 16, WithClock(clock.Now))

	childFired := 0
	r.CreateTimer(10, func(r *Reactor, id int64, clientData any) int {
		r.CreateTimer(0, func(*Reactor, int64, any) int {
			childFired++
			return NoMore
		}, nil, nil)
		return NoMore
	}, nil, nil)

	clock.advance(10 * time.Millisecond)
	drainTimers(r)
	if childFired != 0 {
		t.Fatal("timer created during the pass fired in the same pass")
	}

	drainTimers(r)
	if childFired != 1 {
		t.Fatalf("child fired %d times on the following pass, want 1", childFired)
	}
}

func TestTimer_ClientDataAndID(t *testing.T) {
	clock := newFakeClock()
	r := newTestReactor(t, 16, WithClock(clock.Now))

	type payload struct{ tag string }
	want := &payload{tag: "cron"}

	var gotData any
	var gotID, wantID int64
	wantID = r.CreateTimer(5, func(r *Reactor, id int64, clientData any) int {
		gotID = id
		gotData = clientData
		return NoMore
	}, want, nil)

	clock.advance(5 * time.Millisecond)
	drainTimers(r)

	if gotID != wantID {
		t.Errorf("proc saw id %d, want %d", gotID, wantID)
	}
	if gotData != want {
		t.Errorf("proc saw clientData %v, want %v", gotData, want)
	}
}

func TestNearestTimer(t *testing.T) {
	clock := newFakeClock()
	r := newTestReactor(t, 16, WithClock(clock.Now))

	if r.nearestTimer() != nil {
		t.Fatal("nearestTimer on empty list")
	}

	noop := func(*Reactor, int64, any) int { return NoMore }
	r.CreateTimer(200, noop, nil, nil)
	later := r.CreateTimer(100, noop, nil, nil)

	nearest := r.nearestTimer()
	if nearest == nil || nearest.id != later {
		t.Fatal("nearestTimer did not pick the earliest deadline")
	}
}
