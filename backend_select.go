//go:build unix && !linux && !darwin && !dragonfly && !freebsd && !netbsd && !openbsd && !illumos && !solaris

package reactor

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// selectBackend implements backend using select(2). It is the portable
// fallback for Unix targets without a better mechanism.
type selectBackend struct {
	rfds, wfds unix.FdSet // master sets, mutated by add/del
	masks      []int      // interest per fd, for readiness scanning
	maxfd      int
}

func newBackend(setsize int) (backend, error) {
	if setsize > unix.FD_SETSIZE {
		return nil, fmt.Errorf("reactor: select backend capped at %d descriptors", unix.FD_SETSIZE)
	}
	return &selectBackend{
		masks: make([]int, setsize),
		maxfd: -1,
	}, nil
}

func (b *selectBackend) name() string { return "select" }

func (b *selectBackend) resize(setsize int) error {
	if setsize > unix.FD_SETSIZE {
		return fmt.Errorf("reactor: select backend capped at %d descriptors", unix.FD_SETSIZE)
	}
	masks := make([]int, setsize)
	copy(masks, b.masks)
	b.masks = masks
	return nil
}

func (b *selectBackend) addEvent(fd, mask, oldMask int) error {
	if mask&Readable != 0 {
		b.rfds.Set(fd)
	}
	if mask&Writable != 0 {
		b.wfds.Set(fd)
	}
	b.masks[fd] |= mask & (Readable | Writable)
	if fd > b.maxfd {
		b.maxfd = fd
	}
	return nil
}

func (b *selectBackend) delEvent(fd, mask, remaining int) error {
	if mask&Readable != 0 {
		b.rfds.Clear(fd)
	}
	if mask&Writable != 0 {
		b.wfds.Clear(fd)
	}
	b.masks[fd] &^= mask & (Readable | Writable)
	if b.masks[fd] == None && fd == b.maxfd {
		j := b.maxfd - 1
		for ; j >= 0; j-- {
			if b.masks[j] != None {
				break
			}
		}
		b.maxfd = j
	}
	return nil
}

func (b *selectBackend) poll(timeoutMs int, fired []firedEvent) (int, error) {
	// select mutates its sets in place; poll against copies.
	rfds := b.rfds
	wfds := b.wfds

	var tv *unix.Timeval
	if timeoutMs >= 0 {
		t := unix.NsecToTimeval(int64(timeoutMs) * 1e6)
		tv = &t
	}

	n, err := unix.Select(b.maxfd+1, &rfds, &wfds, nil, tv)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, fmt.Errorf("reactor: select: %w", err)
	}
	if n <= 0 {
		return 0, nil
	}

	numFired := 0
	for fd := 0; fd <= b.maxfd; fd++ {
		if b.masks[fd] == None {
			continue
		}
		var mask int
		if b.masks[fd]&Readable != 0 && rfds.IsSet(fd) {
			mask |= Readable
		}
		if b.masks[fd]&Writable != 0 && wfds.IsSet(fd) {
			mask |= Writable
		}
		if mask != None {
			fired[numFired] = firedEvent{fd: fd, mask: mask}
			numFired++
		}
	}
	return numFired, nil
}

func (b *selectBackend) close() error { return nil }
