package curio

import "sync/atomic"

// KernelState represents the current state of the kernel run loop.
//
// State Machine:
//
//	StateAwake (0) → StateRunning (3)       [Run(), via CAS]
//	StateRunning (3) → StateTerminated (1)  [Run() returns, via Store]
//	StateTerminated (1) → (terminal)
//
// StateSleeping (2) and StateTerminating (4) are defined but the kernel
// never enters them.
type KernelState uint64

const (
	StateAwake KernelState = iota
	StateTerminated
	StateSleeping
	StateRunning
	StateTerminating
)

func (s KernelState) String() string {
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

// fastState is a lock-free state machine used to coordinate the run loop
// with concurrent callers of Run and Spawn.
type fastState struct {
	v atomic.Uint64
}

func newFastState() *fastState {
	s := &fastState{}
	s.v.Store(uint64(StateAwake))
	return s
}

func (s *fastState) Load() KernelState { return KernelState(s.v.Load()) }

func (s *fastState) Store(state KernelState) { s.v.Store(uint64(state)) }

func (s *fastState) TryTransition(from, to KernelState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

func (s *fastState) IsTerminal() bool { return s.Load() == StateTerminated }
