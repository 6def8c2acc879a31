package curio

import (
	"context"
	"time"
)

// This file declares the thin external-collaborator contracts SPEC_FULL.md
// §6 scopes out of this module: socket/stream wrappers, a worker pool, a
// pickle-style IPC channel, a subprocess wrapper, a sync-thread bridge,
// and a signal queue. The kernel depends on none of these internally —
// they exist purely as interfaces a higher-level package could implement
// against Context's trap surface (ReadWait/WriteWait/Spawn/etc.), so that
// such a package has a documented, stable shape to target without this
// one growing platform-specific networking, process-management, or
// signal-handling code of its own.

// StreamConn is the shape a non-blocking, fd-backed connection must
// expose to be driven through ReadWait/WriteWait.
type StreamConn interface {
	Fd() int
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
}

// WorkerPool offloads blocking or CPU-bound work to a fixed pool of OS
// threads/goroutines and reports completion on a per-submission
// channel, for callers that need Context.Spawn semantics without
// ever suspending the calling task body itself on raw OS work.
type WorkerPool interface {
	// Submit runs fn on a pool worker and reports its result via the
	// returned channel once complete, or ctx's cancellation if it fires
	// first.
	Submit(ctx context.Context, fn func() (any, error)) <-chan WorkResult
	// Resize changes the number of active workers.
	Resize(n int)
	// Close stops accepting new work and waits for in-flight work to
	// drain.
	Close() error
}

// WorkResult is what WorkerPool.Submit delivers on completion.
type WorkResult struct {
	Value any
	Err   error
}

// Channel is a serialize-and-send IPC primitive between kernels running
// in separate OS processes, generalized to an arbitrary Go encoder rather
// than tying this module to one serialization format.
type Channel interface {
	Send(v any) error
	Recv() (any, error)
	Close() error
}

// SubprocessRunner wraps an external process whose stdio is driven
// through StreamConn-style non-blocking fds rather than os/exec's
// synchronous Wait/Output helpers.
type SubprocessRunner interface {
	Start() error
	Stdin() StreamConn
	Stdout() StreamConn
	Stderr() StreamConn
	Wait() (exitCode int, err error)
	Kill() error
}

// SyncBridge lets a task body hand work to, or accept work from, ordinary
// synchronous goroutines that hold no Context, mirroring the source
// system's run_in_thread/AsyncThread pair.
type SyncBridge interface {
	// RunInThread offloads fn to a plain goroutine and suspends the
	// calling task until it completes or d elapses.
	RunInThread(c *Context, fn func() (any, error), d time.Duration) (any, error)
	// CallFromThread delivers fn to the kernel's run-loop goroutine from
	// a foreign thread and blocks that thread until fn returns.
	CallFromThread(fn func(*Kernel) (any, error)) (any, error)
}

// SignalQueue delivers OS signal notifications into the task world as
// values retrievable through a UniversalQueue-shaped Get, rather than via
// Go's signal.Notify channel-of-os.Signal directly.
type SignalQueue interface {
	Get(c *Context) (any, error)
	Stop()
}
