package reactor

import (
	"context"
	"time"

	"github.com/joeycumines/logiface"
)

// Dispatch runs the loop with no flags, see [Base.Loop].
func (b *Base) Dispatch(ctx context.Context) int {
	return b.Loop(ctx, 0)
}

// Loop runs the event loop on the calling goroutine, invoking callbacks as
// their events fire, until one of:
//
//   - no events are pending or active, returning [StatusNoEvents] (unless
//     [LoopNoExitOnEmpty] is set)
//   - [Base.LoopBreak], [Base.LoopExit] or [Base.Free] was called, or ctx
//     was canceled, returning [StatusOK]
//   - the flags [LoopOnce] or [LoopNonBlock] are satisfied, returning
//     [StatusOK]
//   - polling failed, or the base is freed or already looping (including
//     a call from one of its own callbacks), returning [StatusError]
//
// The ctx is available to callbacks via [Base.Context].
func (b *Base) Loop(ctx context.Context, flags LoopFlags) int {
	if ctx == nil {
		ctx = context.Background()
	}

	if !b.state.TryTransition(StateIdle, StateLooping) {
		if b.state.Load() == StateFreed {
			b.diag.debug().Log("loop called on freed base")
		} else {
			b.diag.limited(logiface.LevelWarning, logCategory{name: categoryReentrant}).
				Log("loop called while already looping")
		}
		return StatusError
	}

	b.ctx = ctx
	b.gotBreak.Store(false)
	b.gotExit.Store(false)

	stop := context.AfterFunc(ctx, func() { _ = b.res.wake() })

	defer func() {
		stop()
		b.ctx = nil
		b.state.Store(StateIdle)
		if b.freeRequested.Load() && b.state.TryTransition(StateIdle, StateFreed) {
			_ = b.release()
		}
	}()

	return b.run(ctx, flags)
}

func (b *Base) run(ctx context.Context, flags LoopFlags) int {
	for {
		if b.gotBreak.Load() || b.freeRequested.Load() {
			return StatusOK
		}
		if ctx.Err() != nil {
			b.gotBreak.Store(true)
			return StatusOK
		}

		now := time.Now()
		if b.exitDue(now) {
			b.gotExit.Store(true)
			return StatusOK
		}

		timeout := 0
		if b.nActive == 0 && flags&LoopNonBlock == 0 {
			timeout = b.nextTimeout(now)
		}

		if flags&LoopNoExitOnEmpty == 0 && b.nActive == 0 && !b.haveEvents() {
			b.diag.debug().Log("no events registered")
			return StatusNoEvents
		}

		_, err := b.res.poller.wait(timeout, b.onReady)
		b.metrics.recordIteration(err != nil)
		if err != nil {
			b.diag.limited(logiface.LevelError, logCategory{name: categoryPoll}).
				Err(err).
				Log("poll failed")
			return StatusError
		}

		b.processTimeouts(time.Now())

		if b.nActive > 0 {
			n := b.processActive()
			if flags&LoopOnce != 0 && b.nActive == 0 && n != 0 {
				return StatusOK
			}
		} else if flags&LoopNonBlock != 0 {
			return StatusOK
		}
	}
}

func (b *Base) haveEvents() bool {
	if b.nEvents > 0 {
		return true
	}
	b.exitMu.Lock()
	defer b.exitMu.Unlock()
	return b.exitPending
}

// exitDue consumes a pending LoopExit request that is due.
func (b *Base) exitDue(now time.Time) bool {
	b.exitMu.Lock()
	defer b.exitMu.Unlock()
	if b.exitPending && !now.Before(b.exitAt) {
		b.exitPending = false
		return true
	}
	return false
}

func (b *Base) nextTimeout(now time.Time) int {
	timeout := b.timers.calculateTimeout(now)
	b.exitMu.Lock()
	defer b.exitMu.Unlock()
	if b.exitPending {
		if t := durationToTimeout(b.exitAt.Sub(now)); timeout < 0 || t < timeout {
			timeout = t
		}
	}
	return timeout
}

// onReady activates the events watching fd that are interested in res.
func (b *Base) onReady(fd int, res Flags) {
	if fd == b.res.wakeR {
		b.res.drainWake()
		return
	}
	entry := b.fds[fd]
	if entry == nil {
		return
	}
	for _, ev := range entry.events {
		if r := res & ev.events & ioFlags; r != 0 {
			b.activate(ev, r)
		}
	}
}

func (b *Base) processTimeouts(now time.Time) {
	var n int
	for ev := b.timers.peek(); ev != nil && !ev.deadline.After(now); ev = b.timers.peek() {
		b.timers.remove(ev)
		b.setState(ev, ev.state&^evTimeout)
		b.activate(ev, EvTimeout)
		n++
	}
	b.metrics.recordTimeouts(n)
}

// processActive runs the callbacks of active events, in activation order,
// including any activated along the way. Returns the number run.
func (b *Base) processActive() int {
	var n int
	for b.nActive > 0 && b.active.Length() > 0 {
		entry := b.active.Remove().(activeEntry)
		ev := entry.ev
		if ev.state&evActive == 0 || entry.seq != ev.activeSeq {
			// deleted since activation
			continue
		}

		res := ev.res
		ev.res = 0
		b.setState(ev, ev.state&^evActive)

		if ev.events&EvPersist == 0 {
			_ = b.delEvent(ev)
		} else if ev.interval > 0 {
			// drift-free when repeating on timeout
			from := time.Now()
			if res&EvTimeout != 0 {
				from = ev.deadline
			}
			b.timers.schedule(ev, from.Add(ev.interval))
			b.setState(ev, ev.state|evTimeout)
		}

		n++
		b.invoke(ev, res)

		if b.gotBreak.Load() || b.freeRequested.Load() {
			break
		}
	}
	return n
}

func (b *Base) invoke(ev *Event, res Flags) {
	if b.metrics == nil {
		b.safeInvoke(ev, res)
		return
	}
	start := time.Now()
	panicked := b.safeInvoke(ev, res)
	b.metrics.recordCallback(time.Since(start), panicked)
}

func (b *Base) safeInvoke(ev *Event, res Flags) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			b.diag.limited(logiface.LevelError, logCategory{name: categoryPanic, id: ev.id}).
				Int(`fd`, ev.fd).
				Str(`what`, res.String()).
				Err(PanicError{Value: r}).
				Log("callback panicked")
		}
	}()
	ev.cb(ev.fd, res)
	return false
}
