// Package reactor provides a single-threaded, event-driven reactor: a
// readiness-notification multiplexer for file descriptors combined with a
// timer list, dispatching callbacks from one loop goroutine.
//
// # Architecture
//
// A [Reactor] owns a dense file-event table indexed by fd, an unordered
// list of time events, and a scratch buffer of fired events filled by the
// polling backend on every iteration. [Reactor.ProcessEvents] performs one
// iteration: it computes the sleep budget from the nearest timer, invokes
// the before-sleep hook, polls the backend, invokes the after-sleep hook,
// dispatches ready file events, and finally expires timers.
// [Reactor.Run] repeats iterations until [Reactor.Stop] is observed.
//
// # Platform Support
//
// Readiness polling uses the best mechanism available on the build target:
//   - illumos/Solaris: event ports
//   - Linux: epoll
//   - Darwin/BSD: kqueue
//   - other Unix targets: select
//
// The selected backend is reported by [Reactor.BackendName]. Windows is
// not a supported target.
//
// # Execution Model
//
// The reactor is strictly single threaded. All registration, timer, and
// loop-control methods must be called from the loop goroutine (or before
// the loop starts); handlers run inline during dispatch and may freely
// call back into the reactor, including deleting the timer currently
// executing or mutating the file-event table mid-dispatch. The only
// methods safe from other goroutines are [Reactor.Metrics] and the
// standalone [WaitFD] helper.
//
// # Dispatch Ordering
//
// Within one fired entry the readable handler runs before the writable
// handler, so a reply can be written in the same iteration that parsed
// the request. Registering the [Barrier] bit alongside [Writable] inverts
// the order for that fd: pending output (for instance, a file synced to
// disk in the before-sleep hook) drains before new input is served.
package reactor
