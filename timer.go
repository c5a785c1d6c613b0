package reactor

import (
	"github.com/joeycumines/go-reactor/internal/list"
)

// timeEvent is a pending timer. Deadlines are wall clock, split into
// seconds and milliseconds so a backward clock jump can force expiry by
// zeroing the seconds component.
type timeEvent struct {
	id         int64 // deletedEventID once logically deleted
	whenSec    int64
	whenMs     int64
	proc       TimeProc
	finalizer  FinalizerProc
	clientData any
	// refcount guards the node against being freed while its proc is on
	// the stack, including recursive timer passes started by the proc.
	refcount int
	node     *list.Node[*timeEvent]
}

// CreateTimer schedules proc to run once milliseconds from now and
// returns the timer's id. Ids are strictly increasing and never reused.
// The proc's return value retires or reschedules the timer; see
// [TimeProc]. finalizer, if non-nil, runs when the node is removed from
// the list.
//
// New timers are inserted at the list head. A timer created from within
// a timer proc is shielded from execution until the next pass.
func (r *Reactor) CreateTimer(milliseconds int64, proc TimeProc, clientData any, finalizer FinalizerProc) int64 {
	id := r.timeEventNextID
	r.timeEventNextID++

	te := &timeEvent{
		id:         id,
		proc:       proc,
		finalizer:  finalizer,
		clientData: clientData,
	}
	te.whenSec, te.whenMs = r.addMillisecondsToNow(milliseconds)
	te.node = r.timers.AddHead(te)
	return id
}

// DeleteTimer marks the timer with the given id as deleted. The node is
// physically unlinked (and its finalizer run) during the next timer pass
// once no proc invocation holds it, so a timer may safely delete itself
// or any other timer from inside its proc.
func (r *Reactor) DeleteTimer(id int64) error {
	for n := r.timers.Head(); n != nil; n = n.Next() {
		if n.Value.id == id {
			n.Value.id = deletedEventID
			return nil
		}
	}
	return ErrTimerNotFound
}

// nearestTimer returns the pending timer with the earliest deadline, or
// nil when the list is empty. O(N); the list is unsorted.
func (r *Reactor) nearestTimer() *timeEvent {
	var nearest *timeEvent
	for n := r.timers.Head(); n != nil; n = n.Next() {
		te := n.Value
		if nearest == nil || te.whenSec < nearest.whenSec ||
			(te.whenSec == nearest.whenSec && te.whenMs < nearest.whenMs) {
			nearest = te
		}
	}
	return nearest
}

// processTimeEvents runs every expired timer and reaps deleted nodes.
// Returns the number of procs invoked.
func (r *Reactor) processTimeEvents() int {
	processed := 0

	// A system clock that moved backward would delay every timer by the
	// size of the jump. Force all deadlines into the past instead:
	// running callbacks early once is safer than stalling them
	// indefinitely.
	now := r.now().Unix()
	if now < r.lastTime {
		for n := r.timers.Head(); n != nil; n = n.Next() {
			n.Value.whenSec = 0
		}
	}
	r.lastTime = now

	// Timers created by procs during this pass have id > maxID and are
	// skipped until the next pass.
	maxID := r.timeEventNextID - 1

	n := r.timers.Head()
	for n != nil {
		te := n.Value

		if te.id == deletedEventID {
			next := n.Next()
			if te.refcount > 0 {
				// Still on some proc's stack; reap on a later pass.
				n = next
				continue
			}
			r.timers.Remove(n)
			if te.finalizer != nil {
				te.finalizer(r, te.clientData)
			}
			n = next
			continue
		}

		if te.id > maxID {
			n = n.Next()
			continue
		}

		nowSec, nowMs := r.clockTime()
		if nowSec > te.whenSec || (nowSec == te.whenSec && nowMs >= te.whenMs) {
			id := te.id
			te.refcount++
			retval := te.proc(r, id, te.clientData)
			te.refcount--
			processed++
			if retval != NoMore {
				te.whenSec, te.whenMs = r.addMillisecondsToNow(int64(retval))
			} else {
				te.id = deletedEventID
			}
		}
		n = n.Next()
	}
	return processed
}

// clockTime returns the wall clock as whole seconds plus milliseconds.
func (r *Reactor) clockTime() (sec, ms int64) {
	t := r.now()
	return t.Unix(), int64(t.Nanosecond() / 1e6)
}

// addMillisecondsToNow returns the wall-clock deadline ms milliseconds
// ahead, in the split representation used by timeEvent.
func (r *Reactor) addMillisecondsToNow(ms int64) (whenSec, whenMs int64) {
	curSec, curMs := r.clockTime()
	whenSec = curSec + ms/1000
	whenMs = curMs + ms%1000
	if whenMs >= 1000 {
		whenSec++
		whenMs -= 1000
	}
	return whenSec, whenMs
}
