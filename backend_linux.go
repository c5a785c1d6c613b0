//go:build linux

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// epollBackend implements backend using epoll(7).
type epollBackend struct {
	epfd   int
	events []unix.EpollEvent
}

func newBackend(setsize int) (backend, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("reactor: epoll create: %w", err)
	}
	return &epollBackend{
		epfd:   epfd,
		events: make([]unix.EpollEvent, setsize),
	}, nil
}

func (b *epollBackend) name() string { return "epoll" }

func (b *epollBackend) resize(setsize int) error {
	events := make([]unix.EpollEvent, setsize)
	copy(events, b.events)
	b.events = events
	return nil
}

func (b *epollBackend) addEvent(fd, mask, oldMask int) error {
	// MOD if the fd is already watched, ADD otherwise.
	op := unix.EPOLL_CTL_ADD
	if oldMask != None {
		op = unix.EPOLL_CTL_MOD
	}
	ev := unix.EpollEvent{
		Events: epollEvents(mask | oldMask),
		Fd:     int32(fd),
	}
	if err := unix.EpollCtl(b.epfd, op, fd, &ev); err != nil {
		return fmt.Errorf("reactor: epoll ctl: %w", err)
	}
	return nil
}

func (b *epollBackend) delEvent(fd, mask, remaining int) error {
	if remaining == None {
		// Kernels before 2.6.9 require a non-nil event with EPOLL_CTL_DEL;
		// passing one is harmless everywhere else.
		ev := unix.EpollEvent{Fd: int32(fd)}
		return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_DEL, fd, &ev)
	}
	ev := unix.EpollEvent{
		Events: epollEvents(remaining),
		Fd:     int32(fd),
	}
	return unix.EpollCtl(b.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (b *epollBackend) poll(timeoutMs int, fired []firedEvent) (int, error) {
	n, err := unix.EpollWait(b.epfd, b.events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("reactor: epoll wait: %w", err)
	}
	for i := 0; i < n; i++ {
		e := &b.events[i]
		var mask int
		if e.Events&unix.EPOLLIN != 0 {
			mask |= Readable
		}
		if e.Events&unix.EPOLLOUT != 0 {
			mask |= Writable
		}
		// Error and hang-up wake both directions so handlers notice the
		// broken descriptor whichever way they are registered.
		if e.Events&unix.EPOLLERR != 0 {
			mask |= Readable | Writable
		}
		if e.Events&unix.EPOLLHUP != 0 {
			mask |= Readable | Writable
		}
		fired[i] = firedEvent{fd: int(e.Fd), mask: mask}
	}
	return n, nil
}

func (b *epollBackend) close() error {
	return unix.Close(b.epfd)
}

// epollEvents maps an interest mask to epoll event bits. Barrier is
// dispatch-level only and is ignored here.
func epollEvents(mask int) uint32 {
	var ev uint32
	if mask&Readable != 0 {
		ev |= unix.EPOLLIN
	}
	if mask&Writable != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}
