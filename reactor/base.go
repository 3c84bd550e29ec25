// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"github.com/joeycumines/logiface"
)

var baseIDCounter atomic.Uint64

// Descriptor is implemented by values that can provide a file descriptor,
// the capability [Base.AddEvent] requires of its target.
type Descriptor interface {
	Descriptor() int
}

// FD is a raw file descriptor, implementing [Descriptor].
type FD int

// Descriptor implements [Descriptor].
func (fd FD) Descriptor() int { return int(fd) }

// fdEntry tracks every inserted event watching one descriptor.
type fdEntry struct {
	events []*Event
	// mask is the union of the readiness flags of events, plus EvET if they
	// are edge-triggered
	mask Flags
}

// Base is an event base: a set of events, and the loop that dispatches them.
//
// A Base is driven by one goroutine at a time: [Base.Loop], event
// registration, and every [Event] method must be called from it. The
// exceptions are [Base.LoopBreak], [Base.LoopExit], [Base.Free],
// [Base.Metrics], [Base.State] and [Base.ID], which may be called from any
// goroutine.
//
// The OS resources of a Base are released by [Base.Free], or once the Base
// becomes unreachable. Note that pending events keep their Base reachable
// only for as long as something references one of them, or the Base.
type Base struct {
	// ctx is the context of the running Loop call
	ctx      context.Context
	res      *baseResources
	metrics  *metrics
	fds      map[int]*fdEntry
	registry *registry
	active   *queue.Queue
	diag     diagnostics
	timers   timerHeap
	cleanup  runtime.Cleanup

	// exitMu guards exitAt and exitPending
	exitMu      sync.Mutex
	exitAt      time.Time
	exitPending bool

	id      uint64
	nEvents int // inserted or with a scheduled timeout
	nActive int

	state         baseState
	gotBreak      atomic.Bool
	gotExit       atomic.Bool
	freeRequested atomic.Bool
}

// New creates a new event base.
func New(opts ...Option) (*Base, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	res, err := newBaseResources(cfg.maxEventsPerPoll)
	if err != nil {
		return nil, fmt.Errorf("reactor: failed to create base: %w", err)
	}

	id := baseIDCounter.Add(1)

	b := &Base{
		res:      res,
		fds:      make(map[int]*fdEntry),
		registry: newRegistry(),
		active:   queue.New(),
		diag:     newDiagnostics(cfg, id),
		id:       id,
	}
	if cfg.metricsEnabled {
		b.metrics = newMetrics()
	}

	b.cleanup = runtime.AddCleanup(b, func(res *baseResources) {
		_ = res.close()
	}, res)

	b.diag.debug().Log("base created")

	return b, nil
}

// ID returns the unique identifier of the base, used in log output.
func (b *Base) ID() uint64 { return b.id }

// State returns the current lifecycle state.
func (b *Base) State() BaseState { return b.state.Load() }

// Context returns the context passed to the running [Base.Loop] call, or
// [context.Background] outside of one. Callbacks use it to reach the state
// of whoever is driving the loop.
func (b *Base) Context() context.Context {
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

// NumEvents returns the number of pending events.
func (b *Base) NumEvents() int { return b.nEvents }

// Metrics returns a snapshot of the runtime statistics, all zero unless
// enabled with [WithMetrics].
func (b *Base) Metrics() MetricsSnapshot { return b.metrics.snapshot() }

// GotBreak reports whether the last loop was stopped by [Base.LoopBreak], or
// by cancellation of its context.
func (b *Base) GotBreak() bool { return b.gotBreak.Load() }

// GotExit reports whether the last loop was stopped by [Base.LoopExit].
func (b *Base) GotExit() bool { return b.gotExit.Load() }

// LoopBreak stops the running loop after the current callback returns. If
// the base is not looping, the request is discarded when the next loop
// starts.
func (b *Base) LoopBreak() {
	b.gotBreak.Store(true)
	_ = b.res.wake()
}

// LoopExit stops the loop once d has elapsed, after running every callback
// that is active at that point. The request outlives the current loop, and
// an earlier deadline wins.
func (b *Base) LoopExit(d time.Duration) {
	at := time.Now().Add(max(d, 0))
	b.exitMu.Lock()
	if !b.exitPending || at.Before(b.exitAt) {
		b.exitAt = at
		b.exitPending = true
	}
	b.exitMu.Unlock()
	_ = b.res.wake()
}

// Free releases the resources of the base, and drops every event. It is
// idempotent. If the base is looping, the loop is stopped and the base is
// freed as it returns; no further callbacks are run.
func (b *Base) Free() error {
	for {
		switch b.state.Load() {
		case StateFreed:
			return nil
		case StateLooping:
			b.freeRequested.Store(true)
			_ = b.res.wake()
			if b.state.Load() == StateLooping {
				b.diag.debug().Log("free deferred until loop returns")
				return nil
			}
		default:
			if b.state.TryTransition(StateIdle, StateFreed) {
				return b.release()
			}
		}
	}
}

func (b *Base) release() error {
	b.cleanup.Stop()

	for _, ev := range b.registry.snapshot() {
		ev.state = 0
		ev.res = 0
		ev.heapIndex = -1
	}
	b.registry.clear()
	b.fds = make(map[int]*fdEntry)
	b.timers = nil
	b.active = queue.New()
	b.nEvents, b.nActive = 0, 0

	err := b.res.close()
	if err != nil {
		b.diag.limited(logiface.LevelWarning, logCategory{name: categoryFree}).
			Err(err).
			Log("failed to release base resources")
	} else {
		b.diag.debug().Log("base freed")
	}
	return err
}

// AddEvent creates an event and makes it pending, the single entry point a
// host binding needs.
//
// The target provides the descriptor: it must implement [Descriptor], or
// have an Fd() uintptr method (e.g. *os.File, note that calling Fd puts the
// file into blocking mode). A nil target with a non-nil timeout creates a
// pure timer, with descriptor -1. Any other target fails with a *TypeError
// wrapping ErrNoDescriptor, and nothing is armed.
//
// EvPersist is always added to what.
func (b *Base) AddEvent(target any, what Flags, cb Callback, timeout *Timeval) (*Event, error) {
	fd := -1
	if target != nil || timeout == nil {
		var err error
		if fd, err = descriptorOf(target); err != nil {
			return nil, err
		}
	}

	ev, err := b.NewEvent(fd, what|EvPersist, cb)
	if err != nil {
		return nil, err
	}

	if err := ev.Add(timeout); err != nil {
		return nil, err
	}

	return ev, nil
}

func descriptorOf(target any) (int, error) {
	switch t := target.(type) {
	case Descriptor:
		return t.Descriptor(), nil
	case interface{ Fd() uintptr }:
		return int(t.Fd()), nil
	}
	return -1, &TypeError{
		Cause:   ErrNoDescriptor,
		Message: fmt.Sprintf("reactor: target of type %T does not provide a file descriptor", target),
	}
}

// setState updates ev's state bits, maintaining the counters and registry.
func (b *Base) setState(ev *Event, state uint8) {
	const pending = evInserted | evTimeout
	switch was, now := ev.state&pending != 0, state&pending != 0; {
	case !was && now:
		b.nEvents++
	case was && !now:
		b.nEvents--
	}
	switch was, now := ev.state&evActive != 0, state&evActive != 0; {
	case !was && now:
		b.nActive++
	case was && !now:
		b.nActive--
	}
	ev.state = state
	if state != 0 {
		b.registry.retain(ev)
	} else {
		b.registry.release(ev)
	}
}

func (b *Base) insertIO(ev *Event) error {
	entry := b.fds[ev.fd]
	if entry == nil {
		entry = new(fdEntry)
	}
	if len(entry.events) != 0 && entry.mask&EvET != ev.events&EvET {
		return ErrEdgeTriggerConflict
	}

	next := entry.mask | ev.events&(ioFlags|EvET)
	if next != entry.mask {
		if err := b.res.poller.update(ev.fd, entry.mask, next); err != nil {
			return fmt.Errorf("reactor: failed to watch fd %d: %w", ev.fd, err)
		}
	}

	entry.events = append(entry.events, ev)
	entry.mask = next
	b.fds[ev.fd] = entry
	b.setState(ev, ev.state|evInserted)

	return nil
}

func (b *Base) removeIO(ev *Event) error {
	b.setState(ev, ev.state&^evInserted)

	entry := b.fds[ev.fd]
	if entry == nil {
		return nil
	}
	entry.events = slices.DeleteFunc(entry.events, func(v *Event) bool { return v == ev })

	var next Flags
	for _, v := range entry.events {
		next |= v.events & (ioFlags | EvET)
	}
	if len(entry.events) == 0 {
		delete(b.fds, ev.fd)
	}

	if next == entry.mask {
		return nil
	}
	old := entry.mask
	entry.mask = next
	if err := b.res.poller.update(ev.fd, old, next); err != nil {
		return fmt.Errorf("reactor: failed to unwatch fd %d: %w", ev.fd, err)
	}
	return nil
}

func (b *Base) delEvent(ev *Event) error {
	var err error
	if ev.state&evInserted != 0 {
		err = b.removeIO(ev)
	}
	if ev.state&evTimeout != 0 {
		b.timers.remove(ev)
	}
	ev.res = 0
	b.setState(ev, 0)
	return err
}

func (b *Base) activate(ev *Event, res Flags) {
	if ev.state&evActive != 0 {
		ev.res |= res
		return
	}
	ev.res = res
	ev.activeSeq++
	b.active.Add(activeEntry{ev: ev, seq: ev.activeSeq})
	b.setState(ev, ev.state|evActive)
}
