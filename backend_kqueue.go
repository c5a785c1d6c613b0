//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// kqueueBackend implements backend using kqueue(2).
//
// kqueue reports read and write readiness as separate kevents, so a
// single poll may yield two entries for one fd. Those are coalesced into
// one fired entry using a per-fd generation stamp, keeping the fired
// buffer bounded by setsize without any per-poll clearing.
type kqueueBackend struct {
	kqfd   int
	events []unix.Kevent_t // 2*setsize: one read plus one write kevent per fd
	genAt  []uint64        // generation that last fired each fd
	idxAt  []int           // fired index for fds stamped with the current generation
	gen    uint64
}

func newBackend(setsize int) (backend, error) {
	kqfd, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("reactor: kqueue: %w", err)
	}
	unix.CloseOnExec(kqfd)
	return &kqueueBackend{
		kqfd:   kqfd,
		events: make([]unix.Kevent_t, setsize*2),
		genAt:  make([]uint64, setsize),
		idxAt:  make([]int, setsize),
	}, nil
}

func (b *kqueueBackend) name() string { return "kqueue" }

func (b *kqueueBackend) resize(setsize int) error {
	events := make([]unix.Kevent_t, setsize*2)
	copy(events, b.events)
	b.events = events

	genAt := make([]uint64, setsize)
	copy(genAt, b.genAt)
	b.genAt = genAt

	idxAt := make([]int, setsize)
	copy(idxAt, b.idxAt)
	b.idxAt = idxAt
	return nil
}

func (b *kqueueBackend) addEvent(fd, mask, oldMask int) error {
	var ke [1]unix.Kevent_t
	if mask&Readable != 0 {
		unix.SetKevent(&ke[0], fd, unix.EVFILT_READ, unix.EV_ADD)
		if _, err := unix.Kevent(b.kqfd, ke[:], nil, nil); err != nil {
			return fmt.Errorf("reactor: kevent add read: %w", err)
		}
	}
	if mask&Writable != 0 {
		unix.SetKevent(&ke[0], fd, unix.EVFILT_WRITE, unix.EV_ADD)
		if _, err := unix.Kevent(b.kqfd, ke[:], nil, nil); err != nil {
			return fmt.Errorf("reactor: kevent add write: %w", err)
		}
	}
	return nil
}

func (b *kqueueBackend) delEvent(fd, mask, remaining int) error {
	var ke [1]unix.Kevent_t
	var err error
	if mask&Readable != 0 {
		unix.SetKevent(&ke[0], fd, unix.EVFILT_READ, unix.EV_DELETE)
		if _, e := unix.Kevent(b.kqfd, ke[:], nil, nil); e != nil && err == nil {
			err = e
		}
	}
	if mask&Writable != 0 {
		unix.SetKevent(&ke[0], fd, unix.EVFILT_WRITE, unix.EV_DELETE)
		if _, e := unix.Kevent(b.kqfd, ke[:], nil, nil); e != nil && err == nil {
			err = e
		}
	}
	return err
}

func (b *kqueueBackend) poll(timeoutMs int, fired []firedEvent) (int, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &t
	}

	n, err := unix.Kevent(b.kqfd, nil, b.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("reactor: kevent wait: %w", err)
	}

	b.gen++
	numFired := 0
	for i := 0; i < n; i++ {
		e := &b.events[i]
		fd := int(e.Ident)
		if fd < 0 || fd >= len(b.genAt) {
			continue
		}

		var mask int
		switch e.Filter {
		case unix.EVFILT_READ:
			mask = Readable
		case unix.EVFILT_WRITE:
			mask = Writable
		default:
			continue
		}

		if b.genAt[fd] == b.gen {
			fired[b.idxAt[fd]].mask |= mask
			continue
		}
		b.genAt[fd] = b.gen
		b.idxAt[fd] = numFired
		fired[numFired] = firedEvent{fd: fd, mask: mask}
		numFired++
	}
	return numFired, nil
}

func (b *kqueueBackend) close() error {
	return unix.Close(b.kqfd)
}
