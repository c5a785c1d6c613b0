package reactor

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// newTestReactor creates a reactor and arranges for it to be closed when
// the test finishes.
func newTestReactor(t *testing.T, setsize int, opts ...Option) *Reactor {
	t.Helper()
	r, err := New(setsize, opts...)
	if err != nil {
		t.Fatalf("New(%d) failed: %v", setsize, err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// makePipe returns the read and write ends of a pipe, closed on cleanup.
func makePipe(t *testing.T) (rd, wr int) {
	t.Helper()
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		_ = unix.Close(p[0])
		_ = unix.Close(p[1])
	})
	return p[0], p[1]
}

// makeSocketpair returns both ends of a connected unix stream pair,
// closed on cleanup. Each end is readable once the peer has written and
// writable while the send buffer has room, which makes it convenient for
// driving simultaneous read/write readiness.
func makeSocketpair(t *testing.T) (a, b int) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds[0], fds[1]
}

// fakeClock is a manually advanced wall-clock source for WithClock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	// An arbitrary fixed instant well past the epoch.
	return &fakeClock{now: time.Date(2026, 8, 5, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func (c *fakeClock) rewind(d time.Duration) { c.now = c.now.Add(-d) }
