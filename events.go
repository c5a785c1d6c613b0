package reactor

import "errors"

// File event mask bits. A slot whose mask is None is free; its handlers
// are never invoked.
const (
	// None indicates no registered interest.
	None = 0
	// Readable fires when the descriptor is readable.
	Readable = 1 << 0
	// Writable fires when the descriptor is writable.
	Writable = 1 << 1
	// Barrier, combined with Writable, inverts dispatch for the fd so the
	// writable handler never runs after the readable handler within the
	// same iteration.
	Barrier = 1 << 2
)

// Flags accepted by [Reactor.ProcessEvents].
const (
	// FileEvents enables file event processing.
	FileEvents = 1 << 0
	// TimeEvents enables time event processing.
	TimeEvents = 1 << 1
	// AllEvents enables both file and time events.
	AllEvents = FileEvents | TimeEvents
	// DontWait makes the iteration return as soon as all events that can
	// be processed without waiting have been processed.
	DontWait = 1 << 2
	// CallBeforeSleep invokes the before-sleep hook, if installed.
	CallBeforeSleep = 1 << 3
	// CallAfterSleep invokes the after-sleep hook, if installed.
	CallAfterSleep = 1 << 4
)

// NoMore is returned by a [TimeProc] to retire the timer. Any positive
// return value reschedules the timer that many milliseconds ahead.
const NoMore = -1

// deletedEventID marks a time event as logically deleted. The node is
// unlinked by the next timer pass once its refcount drops to zero.
const deletedEventID int64 = -1

// FileProc handles a ready file descriptor. firedMask holds the events
// the backend reported ready, which may be a superset of the bits the
// handler was registered for.
type FileProc func(r *Reactor, fd int, clientData any, firedMask int)

// TimeProc handles an expired timer. It returns NoMore to retire the
// timer, or a positive reschedule delay in milliseconds.
type TimeProc func(r *Reactor, id int64, clientData any) int

// FinalizerProc runs when a time event is removed from the list.
type FinalizerProc func(r *Reactor, clientData any)

// SleepProc is a before-sleep or after-sleep hook.
type SleepProc func(r *Reactor)

// fileEvent is one slot of the file-event table.
//
// sharedProc records whether the read and write slots were populated by a
// single registration call. Go function values are not comparable, so
// this flag stands in for handler identity: during dispatch a shared
// handler runs at most once per iteration for its fd.
type fileEvent struct {
	mask       int // bitset of Readable, Writable, Barrier
	rfileProc  FileProc
	wfileProc  FileProc
	clientData any
	sharedProc bool
}

// firedEvent is one entry of the scratch buffer the backend fills on each
// poll. Entries are valid only until the next poll.
type firedEvent struct {
	fd   int
	mask int
}

// Standard errors.
var (
	// ErrRange is returned when a file registration names an fd outside
	// [0, setsize).
	ErrRange = errors.New("reactor: fd is out of range")

	// ErrResizeMaxFD is returned when a resize would drop an fd that
	// still has registered interest.
	ErrResizeMaxFD = errors.New("reactor: resize below highest registered fd")

	// ErrTimerNotFound is returned by DeleteTimer for an unknown id.
	ErrTimerNotFound = errors.New("reactor: no timer with that id")

	// ErrClosed is returned by Close when the reactor is already closed.
	// Other methods do not check for closure.
	ErrClosed = errors.New("reactor: reactor is closed")
)
