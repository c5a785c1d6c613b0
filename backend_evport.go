//go:build illumos || solaris

package reactor

import (
	"fmt"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"
)

// evportBackend implements backend using Solaris event ports.
//
// Event ports are one shot: retrieving an event dissociates the fd from
// the port. Descriptors delivered by the previous poll are queued and
// re-associated with their current interest at the start of the next
// poll, so interest changes made by handlers in between are honored
// without an extra syscall per change.
type evportBackend struct {
	portfd  int
	masks   []int // current interest per fd
	pending *queue.Queue
	queued  []bool // whether fd currently sits in pending
	events  []unix.PortEvent
}

func newBackend(setsize int) (backend, error) {
	portfd, err := unix.PortCreate()
	if err != nil {
		return nil, fmt.Errorf("reactor: port create: %w", err)
	}
	unix.CloseOnExec(portfd)
	return &evportBackend{
		portfd:  portfd,
		masks:   make([]int, setsize),
		pending: queue.New(),
		queued:  make([]bool, setsize),
		events:  make([]unix.PortEvent, setsize),
	}, nil
}

func (b *evportBackend) name() string { return "evport" }

func (b *evportBackend) resize(setsize int) error {
	masks := make([]int, setsize)
	copy(masks, b.masks)
	b.masks = masks

	queued := make([]bool, setsize)
	copy(queued, b.queued)
	b.queued = queued

	events := make([]unix.PortEvent, setsize)
	copy(events, b.events)
	b.events = events
	return nil
}

// associate (re)binds fd to the port for mask. Overwrites any existing
// association.
func (b *evportBackend) associate(fd, mask int) error {
	var events int
	if mask&Readable != 0 {
		events |= unix.POLLIN
	}
	if mask&Writable != 0 {
		events |= unix.POLLOUT
	}
	if _, err := unix.PortAssociate(b.portfd, unix.PORT_SOURCE_FD, uintptr(fd), events, nil); err != nil {
		return fmt.Errorf("reactor: port associate: %w", err)
	}
	return nil
}

func (b *evportBackend) addEvent(fd, mask, oldMask int) error {
	b.masks[fd] = (oldMask | mask) & (Readable | Writable)
	if b.queued[fd] {
		// Already dissociated by the last retrieval; the next poll will
		// re-associate with the updated mask.
		return nil
	}
	return b.associate(fd, b.masks[fd])
}

func (b *evportBackend) delEvent(fd, mask, remaining int) error {
	b.masks[fd] = remaining & (Readable | Writable)
	if b.queued[fd] {
		return nil
	}
	if b.masks[fd] == None {
		if _, err := unix.PortDissociate(b.portfd, unix.PORT_SOURCE_FD, uintptr(fd)); err != nil {
			return fmt.Errorf("reactor: port dissociate: %w", err)
		}
		return nil
	}
	return b.associate(fd, b.masks[fd])
}

func (b *evportBackend) poll(timeoutMs int, fired []firedEvent) (int, error) {
	// Re-associate everything the previous retrieval dissociated.
	for b.pending.Length() > 0 {
		fd := b.pending.Remove().(int)
		if fd >= len(b.queued) {
			continue
		}
		b.queued[fd] = false
		if b.masks[fd] != None {
			if err := b.associate(fd, b.masks[fd]); err != nil {
				return 0, err
			}
		}
	}

	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * 1e6)
		ts = &t
	}

	n, err := unix.PortGetn(b.portfd, b.events, 1, ts)
	if err != nil && err != unix.ETIME && err != unix.EINTR {
		return 0, fmt.Errorf("reactor: port getn: %w", err)
	}

	numFired := 0
	for i := uint32(0); i < n; i++ {
		e := &b.events[i]
		if e.Source != unix.PORT_SOURCE_FD {
			continue
		}
		fd := int(e.Object)
		var mask int
		if e.Events&unix.POLLIN != 0 {
			mask |= Readable
		}
		if e.Events&unix.POLLOUT != 0 {
			mask |= Writable
		}
		if e.Events&(unix.POLLERR|unix.POLLHUP) != 0 {
			mask |= Readable | Writable
		}
		fired[numFired] = firedEvent{fd: fd, mask: mask}
		numFired++

		if fd < len(b.queued) && !b.queued[fd] {
			b.queued[fd] = true
			b.pending.Add(fd)
		}
	}
	return numFired, nil
}

func (b *evportBackend) close() error {
	return unix.Close(b.portfd)
}
