// Package reactor provides a reactor-style event base for Go: readiness
// notification for file descriptors, and timers, dispatched to callbacks on
// the goroutine that runs the loop.
//
// The semantics follow libevent. [Flags] and [LoopFlags] share libevent's
// values, as do the status codes returned by [Base.Loop], so that a binding
// for an embedded scripting runtime can pass them through unchanged. See the
// gojareactor package for such a binding.
//
// # Events
//
// An [Event] watches a descriptor for EvRead and/or EvWrite, and/or a
// timeout. Events without EvPersist are removed before their callback runs.
// Persistent events stay pending, and a persistent event with a timeout has
// the timeout rescheduled each time it fires. Several events may watch the
// same descriptor.
//
// [Base.AddEvent] is the registration façade: it extracts the descriptor
// from a [Descriptor] (or an Fd() uintptr method), always sets EvPersist, and
// arms the event. A nil target with a timeout is a pure timer, using the
// descriptor -1, which never reaches the poller.
//
// # Platform Support
//
// I/O polling is implemented using platform-native mechanisms:
//   - Linux: epoll
//   - macOS: kqueue
//
// # Thread Safety
//
// A [Base] is driven by a single goroutine. [Base.LoopBreak],
// [Base.LoopExit] and [Base.Free] may be called from any goroutine, and wake
// a blocked poll.
//
// # Usage
//
//	base, err := reactor.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer base.Free()
//
//	tv := reactor.TimevalFromSeconds(0.1)
//	_, err = base.AddEvent(nil, reactor.EvTimeout, func(fd int, what reactor.Flags) {
//	    base.LoopBreak()
//	}, &tv)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	status := base.Dispatch(context.Background())
package reactor
