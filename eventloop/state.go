package eventloop

import (
	"sync/atomic"
)

// LoopState represents the current state of the event loop.
//
// State Machine:
//
//	StateAwake → StateRunning              [Run()]
//	StateRunning → StateSleeping           [poll() via CAS]
//	StateSleeping → StateRunning           [poll() wake via CAS]
//	StateRunning → StateAwake              [Run() returns, idle or cancelled]
//	StateAwake|Running|Sleeping → StateTerminating [Shutdown(), Close()]
//	StateTerminating → StateTerminated     [shutdown complete]
//	StateTerminated → (terminal)
//
// Use TryTransition (CAS) for the transient states, Store only for
// StateTerminated.
type LoopState uint64

const (
	// StateAwake indicates the loop is not currently running, and may be run.
	StateAwake LoopState = 0
	// StateTerminated indicates the loop has been stopped and is fully shut down.
	StateTerminated LoopState = 1
	// StateSleeping indicates the loop is blocked in poll waiting for events.
	StateSleeping LoopState = 2
	// StateRunning indicates the loop is actively processing callbacks.
	StateRunning LoopState = 3
	// StateTerminating indicates shutdown has been requested but not completed.
	StateTerminating LoopState = 4
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// FastState is a lock-free state machine.
type FastState struct {
	v atomic.Uint64
}

// NewFastState creates a new state machine in the Awake state.
func NewFastState() *FastState {
	s := &FastState{}
	s.v.Store(uint64(StateAwake))
	return s
}

// Load returns the current state atomically.
func (s *FastState) Load() LoopState {
	return LoopState(s.v.Load())
}

// Store atomically stores a new state, without validating the transition.
func (s *FastState) Store(state LoopState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to another.
// Returns true if the transition was successful.
func (s *FastState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// IsRunning returns true if the loop is currently running or sleeping.
func (s *FastState) IsRunning() bool {
	state := s.Load()
	return state == StateRunning || state == StateSleeping
}

// IsClosing returns true once termination has been requested.
func (s *FastState) IsClosing() bool {
	state := s.Load()
	return state == StateTerminating || state == StateTerminated
}
