package reactor

import (
	"fmt"
	"time"
)

// Callback is invoked by the loop when an event fires. The fd is the
// descriptor the event was created with (-1 for pure timers), and what
// reports why it fired, e.g. EvRead, or EvTimeout.
type Callback func(fd int, what Flags)

// event state bits
const (
	evInserted uint8 = 1 << iota // watching its descriptor
	evTimeout                    // in the timer heap
	evActive                     // in the active queue
)

// Event is one registration of a callback against a descriptor and/or a
// timeout, belonging to exactly one [Base].
//
// An event is pending from [Event.Add] until [Event.Del], or until it fires,
// unless it has EvPersist. Methods must be called from the goroutine that
// drives the base.
type Event struct {
	base      *Base
	cb        Callback
	deadline  time.Time
	interval  time.Duration
	id        uint64
	heapIndex int
	fd        int
	events    Flags
	res       Flags
	// activeSeq identifies the latest enqueue, so entries left behind by a
	// Del are skipped
	activeSeq uint64
	state     uint8
}

// activeEntry is an element of a base's active queue.
type activeEntry struct {
	ev  *Event
	seq uint64
}

// NewEvent creates an event that is not yet pending. The fd is ignored
// unless what contains EvRead or EvWrite, by convention -1 for timers.
func (b *Base) NewEvent(fd int, what Flags, cb Callback) (*Event, error) {
	if cb == nil {
		return nil, ErrNilCallback
	}
	if b.state.Load() == StateFreed {
		return nil, ErrBaseFreed
	}
	if what&ioFlags != 0 && fd < 0 {
		return nil, ErrBadDescriptor
	}
	return &Event{
		base:      b,
		cb:        cb,
		id:        b.registry.allocID(),
		heapIndex: -1,
		fd:        fd,
		events:    what,
	}, nil
}

// FD returns the descriptor the event was created with.
func (ev *Event) FD() int { return ev.fd }

// Events returns the event's mask.
func (ev *Event) Events() Flags { return ev.events }

// Base returns the base the event belongs to.
func (ev *Event) Base() *Base { return ev.base }

// Timeout returns the timeout last passed to [Event.Add], and whether one is
// currently scheduled.
func (ev *Event) Timeout() (Timeval, bool) {
	return TimevalFromDuration(ev.interval), ev.state&evTimeout != 0
}

// Add makes the event pending. If timeout is non-nil the event also fires
// (with EvTimeout) once it elapses, replacing any previously scheduled
// timeout; a nil timeout leaves a scheduled timeout in place. Adding a
// pending event is not an error.
func (ev *Event) Add(timeout *Timeval) error {
	b := ev.base
	if b.state.Load() == StateFreed {
		return ErrBaseFreed
	}

	if ev.events&ioFlags != 0 && ev.state&evInserted == 0 {
		if ev.fd < 0 {
			return ErrBadDescriptor
		}
		if err := b.insertIO(ev); err != nil {
			return err
		}
	}

	if timeout != nil {
		ev.interval = timeout.Duration()
		b.timers.schedule(ev, time.Now().Add(ev.interval))
		b.setState(ev, ev.state|evTimeout)
	}

	return nil
}

// Del makes the event non-pending, and cancels it if it is active. It is a
// no-op if the event is neither, or if the base was freed.
func (ev *Event) Del() error {
	b := ev.base
	if b.state.Load() == StateFreed {
		return nil
	}
	return b.delEvent(ev)
}

// Pending reports which of the conditions in what the event is pending or
// active on. EvTimeout is reported while a timeout is scheduled.
func (ev *Event) Pending(what Flags) Flags {
	var flags Flags
	if ev.state&evInserted != 0 {
		flags |= ev.events & (ioFlags)
	}
	if ev.state&evTimeout != 0 {
		flags |= EvTimeout
	}
	if ev.state&evActive != 0 {
		flags |= ev.res
	}
	return flags & what
}

// Active activates the event with res, as if the conditions had occurred.
// The callback runs on the next pass over active events. Activating an
// already active event merges res.
func (ev *Event) Active(res Flags) error {
	if ev.base.state.Load() == StateFreed {
		return ErrBaseFreed
	}
	ev.base.activate(ev, res)
	return nil
}

// Reset deletes the event, replaces its mask with what, then adds it with
// the given timeout (nil for none).
func (ev *Event) Reset(what Flags, timeout *Timeval) error {
	if err := ev.Del(); err != nil {
		return err
	}
	if what&ioFlags != 0 && ev.fd < 0 {
		return ErrBadDescriptor
	}
	ev.events = what
	ev.interval = 0
	return ev.Add(timeout)
}

func (ev *Event) String() string {
	return fmt.Sprintf("reactor.Event{id=%d fd=%d events=%s}", ev.id, ev.fd, ev.events)
}
