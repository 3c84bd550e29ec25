package reactor

import (
	"sync/atomic"
)

// BaseState represents the lifecycle state of a [Base].
//
//	StateIdle (0) → StateLooping (1)   [Loop()]
//	StateLooping (1) → StateIdle (0)   [Loop() returns]
//	StateIdle (0) → StateFreed (2)     [Free()]
//	StateFreed (2) → (terminal)
//
// Free while looping does not transition; it is recorded and applied when the
// loop returns.
type BaseState uint32

const (
	// StateIdle indicates the base is usable and not dispatching.
	StateIdle BaseState = iota
	// StateLooping indicates Loop is running.
	StateLooping
	// StateFreed indicates the base released its resources.
	StateFreed
)

// String returns a human-readable representation of the state.
func (s BaseState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLooping:
		return "Looping"
	case StateFreed:
		return "Freed"
	default:
		return "Unknown"
	}
}

// baseState is a lock-free state machine.
type baseState struct {
	v atomic.Uint32
}

func (s *baseState) Load() BaseState {
	return BaseState(s.v.Load())
}

func (s *baseState) Store(state BaseState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts to atomically transition from one state to another.
func (s *baseState) TryTransition(from, to BaseState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
