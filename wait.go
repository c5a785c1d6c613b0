package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// WaitFD blocks until fd reports one of the events in mask or the
// timeout elapses, independent of any reactor. A negative timeout blocks
// indefinitely; a zero timeout polls. The returned mask maps error and
// hang-up conditions to Writable, so a caller discovers a broken
// connection by its next attempted write.
//
// WaitFD touches no reactor state and is reentrant; it serves
// synchronous rendezvous on a single descriptor, such as waiting for a
// handshake byte outside the loop.
func WaitFD(fd, mask int, timeout time.Duration) (int, error) {
	pfd := []unix.PollFd{{Fd: int32(fd)}}
	if mask&Readable != 0 {
		pfd[0].Events |= unix.POLLIN
	}
	if mask&Writable != 0 {
		pfd[0].Events |= unix.POLLOUT
	}

	timeoutMs := -1
	if timeout >= 0 {
		timeoutMs = int(timeout.Milliseconds())
	}

	n, err := unix.Poll(pfd, timeoutMs)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil // timeout
	}

	retmask := 0
	revents := pfd[0].Revents
	if revents&unix.POLLIN != 0 {
		retmask |= Readable
	}
	if revents&unix.POLLOUT != 0 {
		retmask |= Writable
	}
	if revents&unix.POLLERR != 0 {
		retmask |= Writable
	}
	if revents&unix.POLLHUP != 0 {
		retmask |= Writable
	}
	return retmask, nil
}
