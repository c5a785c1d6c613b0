package reactor

// backend is the OS readiness-notification layer. Exactly one
// implementation is compiled per build target; newBackend constructs it.
//
// Backends translate only the Readable and Writable bits to the OS; the
// Barrier bit is a dispatch-level hint and never reaches the kernel. All
// implementations present the same observable behavior: after the same
// sequence of interest changes and kernel events, poll reports the same
// set of (fd, mask) pairs, in some order, possibly coalescing multiple
// notifications for one fd into a single entry.
type backend interface {
	// name identifies the mechanism ("evport", "epoll", "kqueue",
	// "select") for diagnostics.
	name() string

	// resize adjusts internal buffers to track setsize descriptors. The
	// caller guarantees no interest is registered for any fd >= setsize.
	resize(setsize int) error

	// addEvent installs interest in mask for fd. oldMask is the interest
	// registered before this call; the kernel is left watching
	// oldMask|mask. Idempotent.
	addEvent(fd, mask, oldMask int) error

	// delEvent drops the mask bits from fd's interest. remaining is the
	// interest left after the removal (None when the slot becomes free).
	delEvent(fd, mask, remaining int) error

	// poll blocks up to timeoutMs milliseconds (0 polls without blocking,
	// negative blocks until an event arrives), writes ready descriptors
	// into fired, and returns how many entries it wrote. An interrupted
	// syscall is reported as zero fired with a nil error.
	poll(timeoutMs int, fired []firedEvent) (int, error)

	// close releases kernel handles. Must be called at most once.
	close() error
}
