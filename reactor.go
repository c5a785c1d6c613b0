package reactor

import (
	"fmt"
	"time"

	"github.com/joeycumines/go-reactor/internal/list"
	"github.com/joeycumines/logiface"
)

// Reactor multiplexes readiness notifications for registered file
// descriptors with a set of timers, dispatching handlers from a single
// loop goroutine. Create one with [New].
type Reactor struct {
	// Prevent copying
	_ [0]func()

	maxfd   int // highest fd with registered interest, -1 when none
	setsize int // tracked fd capacity

	events []fileEvent  // registered events, indexed by fd
	fired  []firedEvent // scratch buffer filled by the backend each poll

	timers          *list.List[*timeEvent]
	timeEventNextID int64
	lastTime        int64 // wall-clock seconds at the last timer pass

	stop   bool
	flags  int // reactor-level flags, currently only DontWait
	closed bool

	beforeSleep SleepProc
	afterSleep  SleepProc

	backend backend
	now     func() time.Time

	logger  *logiface.Logger[logiface.Event]
	metrics *Metrics
}

// New creates a reactor able to track descriptors in [0, setsize). It
// fails when the platform backend cannot allocate its kernel handle, or
// when an option is invalid.
func New(setsize int, opts ...Option) (*Reactor, error) {
	if setsize <= 0 {
		return nil, fmt.Errorf("reactor: setsize must be positive, got %d", setsize)
	}
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	r := &Reactor{
		maxfd:   -1,
		setsize: setsize,
		events:  make([]fileEvent, setsize),
		fired:   make([]firedEvent, setsize),
		timers:  list.New[*timeEvent](),
		now:     cfg.now,
		logger:  cfg.logger,
	}
	if cfg.dontWait {
		r.flags |= DontWait
	}
	if cfg.metricsEnabled {
		r.metrics = newMetrics()
	}
	r.lastTime = r.now().Unix()

	b, err := newBackend(setsize)
	if err != nil {
		return nil, err
	}
	r.backend = b

	r.logCreated()
	return r, nil
}

// Close releases the backend's kernel handles and drops all registered
// events and timers. Timer finalizers do not run. Returns ErrClosed if
// the reactor was already closed.
func (r *Reactor) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	err := r.backend.close()
	r.timers = list.New[*timeEvent]()
	clear(r.events)
	r.maxfd = -1
	r.logClosed(err)
	return err
}

// SetSize returns the current capacity, i.e. the maximum tracked fd plus
// one.
func (r *Reactor) SetSize() int { return r.setsize }

// BackendName reports which polling mechanism this build uses: "evport",
// "epoll", "kqueue", or "select".
func (r *Reactor) BackendName() string { return r.backend.name() }

// SetDontWait forces subsequent iterations to poll with a zero timeout
// regardless of per-call flags, until cleared. Used to drain without
// blocking after work has been queued from inside a handler.
func (r *Reactor) SetDontWait(on bool) {
	if on {
		r.flags |= DontWait
	} else {
		r.flags &^= DontWait
	}
}

// SetBeforeSleep installs fn to run immediately before each backend
// poll. A nil fn clears the hook.
func (r *Reactor) SetBeforeSleep(fn SleepProc) { r.beforeSleep = fn }

// SetAfterSleep installs fn to run immediately after each backend poll.
// A nil fn clears the hook.
func (r *Reactor) SetAfterSleep(fn SleepProc) { r.afterSleep = fn }

// Resize grows or shrinks the tracked fd capacity. Shrinking below the
// highest registered fd fails with ErrResizeMaxFD and leaves the
// capacity unchanged. New slots start with no registered interest.
func (r *Reactor) Resize(setsize int) error {
	if setsize == r.setsize {
		return nil
	}
	if r.maxfd >= setsize {
		return ErrResizeMaxFD
	}
	if err := r.backend.resize(setsize); err != nil {
		return err
	}

	events := make([]fileEvent, setsize)
	copy(events, r.events)
	r.events = events

	// Entries already written by the current poll stay valid: dispatch
	// iterates over the slice it captured before any handler ran.
	fired := make([]firedEvent, setsize)
	copy(fired, r.fired)
	r.fired = fired

	r.setsize = setsize
	r.logResized(setsize)
	return nil
}

// RegisterFile registers interest in mask for fd and installs proc as
// the handler for the corresponding direction(s). mask bits OR into any
// interest already registered; a call covering both Readable and
// Writable installs proc for both and marks the slots as shared, so
// dispatch invokes it at most once per iteration. clientData is handed
// back to the handler verbatim.
func (r *Reactor) RegisterFile(fd, mask int, proc FileProc, clientData any) error {
	if fd < 0 || fd >= r.setsize {
		return ErrRange
	}
	fe := &r.events[fd]

	if err := r.backend.addEvent(fd, mask, fe.mask); err != nil {
		return err
	}
	fe.mask |= mask
	if mask&Readable != 0 {
		fe.rfileProc = proc
	}
	if mask&Writable != 0 {
		fe.wfileProc = proc
	}
	fe.sharedProc = mask&Readable != 0 && mask&Writable != 0
	fe.clientData = clientData
	if fd > r.maxfd {
		r.maxfd = fd
	}
	return nil
}

// UnregisterFile drops the mask bits from fd's registered interest.
// Removing Writable always removes Barrier as well. Out-of-range fds and
// free slots are ignored. A backend failure to drop kernel interest is
// not propagated; it is logged when a logger is installed.
func (r *Reactor) UnregisterFile(fd, mask int) {
	if fd < 0 || fd >= r.setsize {
		return
	}
	fe := &r.events[fd]
	if fe.mask == None {
		return
	}

	if mask&Writable != 0 {
		mask |= Barrier
	}
	remaining := fe.mask &^ mask
	if err := r.backend.delEvent(fd, mask, remaining); err != nil {
		r.logUnregisterFailed(fd, err)
	}
	fe.mask = remaining

	if fd == r.maxfd && fe.mask == None {
		j := r.maxfd - 1
		for ; j >= 0; j-- {
			if r.events[j].mask != None {
				break
			}
		}
		r.maxfd = j
	}
}

// FileInterest returns the mask currently registered for fd, or None
// when fd is out of range.
func (r *Reactor) FileInterest(fd int) int {
	if fd < 0 || fd >= r.setsize {
		return None
	}
	return r.events[fd].mask
}

// ProcessEvents performs one reactor iteration and returns the number of
// file plus time events dispatched. flags selects what runs; with
// neither FileEvents nor TimeEvents set it returns immediately.
//
// The iteration sleeps in the backend until the nearest timer deadline
// when timers are enabled, indefinitely when only file events are
// enabled, and not at all under DontWait (per call or reactor level).
// Fired file events are dispatched before timers run, so a handler
// registered by a timer proc is first served on a later call.
func (r *Reactor) ProcessEvents(flags int) int {
	processed := 0

	if flags&TimeEvents == 0 && flags&FileEvents == 0 {
		return 0
	}
	if r.metrics != nil {
		r.metrics.ticks.Add(1)
	}

	// Poll even with no registered files when timer processing may
	// sleep, so the iteration wakes exactly at the next deadline.
	if r.maxfd != -1 || (flags&TimeEvents != 0 && flags&DontWait == 0) {
		var shortest *timeEvent
		if flags&TimeEvents != 0 && flags&DontWait == 0 {
			shortest = r.nearestTimer()
		}

		timeout := -1 // block until an event arrives
		if shortest != nil {
			nowSec, nowMs := r.clockTime()
			ms := (shortest.whenSec-nowSec)*1000 + shortest.whenMs - nowMs
			if ms < 0 {
				ms = 0
			}
			timeout = int(ms)
		} else if flags&DontWait != 0 {
			timeout = 0
		}
		// The reactor-level flag wins over whatever was computed above.
		if r.flags&DontWait != 0 {
			timeout = 0
		}

		if r.beforeSleep != nil && flags&CallBeforeSleep != 0 {
			r.beforeSleep(r)
		}

		// Capture the buffer: a handler may resize the reactor, swapping
		// r.fired, but this poll's entries live in the captured slice.
		firedBuf := r.fired

		var pollStart time.Time
		if r.metrics != nil {
			pollStart = time.Now()
		}
		numevents, err := r.backend.poll(timeout, firedBuf)
		if err != nil {
			// Keep the loop live; treat the iteration as zero fired.
			numevents = 0
			r.logPollError(err)
		}
		if r.metrics != nil {
			r.metrics.recordPoll(time.Since(pollStart), numevents)
		}

		if r.afterSleep != nil && flags&CallAfterSleep != 0 {
			r.afterSleep(r)
		}

		for j := 0; j < numevents; j++ {
			fd := firedBuf[j].fd
			mask := firedBuf[j].mask
			if fd < 0 || fd >= r.setsize {
				continue
			}
			fe := &r.events[fd]

			// Barrier inverts the usual read-then-write order for this fd.
			invert := fe.mask&Barrier != 0

			// fe.mask&mask&... below: an earlier handler this iteration may
			// have unregistered an event that fired but was not yet
			// delivered, so check the slot is still interested.
			fired := 0

			if !invert && fe.mask&mask&Readable != 0 {
				fe.rfileProc(r, fd, fe.clientData, mask)
				fired++
				if fd >= r.setsize {
					processed++
					continue
				}
				fe = &r.events[fd] // refresh, the proc may have resized
			}

			if fe.mask&mask&Writable != 0 && (fired == 0 || !fe.sharedProc) {
				fe.wfileProc(r, fd, fe.clientData, mask)
				fired++
			}

			if invert {
				if fd >= r.setsize {
					processed++
					continue
				}
				fe = &r.events[fd]
				if fe.mask&mask&Readable != 0 && (fired == 0 || !fe.sharedProc) {
					fe.rfileProc(r, fd, fe.clientData, mask)
					fired++
				}
			}

			processed++
		}
		if r.metrics != nil && processed > 0 {
			r.metrics.fileEvents.Add(uint64(processed))
		}
	}

	if flags&TimeEvents != 0 {
		n := r.processTimeEvents()
		if r.metrics != nil && n > 0 {
			r.metrics.timeEvents.Add(uint64(n))
		}
		processed += n
	}

	return processed
}

// Run drives ProcessEvents with all events and both sleep hooks enabled
// until Stop is called. It blocks the calling goroutine; handlers run on
// it.
func (r *Reactor) Run() {
	r.stop = false
	for !r.stop {
		r.ProcessEvents(AllEvents | CallBeforeSleep | CallAfterSleep)
	}
}

// Stop makes Run return after the current iteration completes. Must be
// called from the loop goroutine (typically from a handler).
func (r *Reactor) Stop() { r.stop = true }
