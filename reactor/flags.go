package reactor

import (
	"strconv"
	"strings"
)

// Flags is an event mask. Values are identical to libevent's EV_* constants,
// so masks may be passed through a host binding unchanged.
type Flags uint16

const (
	// EvTimeout reports (or requests) that the event's timeout elapsed.
	EvTimeout Flags = 0x01
	// EvRead requests read readiness notification.
	EvRead Flags = 0x02
	// EvWrite requests write readiness notification.
	EvWrite Flags = 0x04
	// EvPersist keeps the event armed after it fires.
	EvPersist Flags = 0x10
	// EvET requests edge-triggered notification, where supported.
	EvET Flags = 0x20
)

// Leave is the conventional callback result requesting removal of the event.
const Leave = -1

// ioFlags is the subset of Flags that concerns descriptor readiness.
const ioFlags = EvRead | EvWrite

func (f Flags) String() string {
	if f == 0 {
		return "0"
	}
	var parts []string
	for _, v := range [...]struct {
		flag Flags
		name string
	}{
		{EvTimeout, "timeout"},
		{EvRead, "read"},
		{EvWrite, "write"},
		{EvPersist, "persist"},
		{EvET, "et"},
	} {
		if f&v.flag != 0 {
			parts = append(parts, v.name)
			f &^= v.flag
		}
	}
	if f != 0 {
		parts = append(parts, "0x"+strconv.FormatUint(uint64(f), 16))
	}
	return strings.Join(parts, "|")
}

// LoopFlags modify the behavior of [Base.Loop].
type LoopFlags int

const (
	// LoopOnce blocks until at least one event is active, runs the active
	// callbacks, then returns.
	LoopOnce LoopFlags = 0x01
	// LoopNonBlock polls without blocking and runs whatever is ready.
	LoopNonBlock LoopFlags = 0x02
	// LoopNoExitOnEmpty keeps looping even with no events registered, until
	// [Base.LoopBreak] or [Base.LoopExit] is called.
	LoopNoExitOnEmpty LoopFlags = 0x04
)

// Loop status codes, as returned by [Base.Loop].
const (
	StatusOK       = 0
	StatusNoEvents = 1
	StatusError    = -1
)
