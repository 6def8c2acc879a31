package curio

// readinessEvent reports that fd became ready for the given direction(s).
type readinessEvent struct {
	fd            int
	readable      bool
	writable      bool
	hungUp        bool
}

// readinessSelector is the platform-specific I/O multiplexer contract,
// with independent reader/writer registration per fd.
type readinessSelector interface {
	// registerRead arranges for fd to be reported readable. Only one
	// reader may be registered on a given fd at a time.
	registerRead(fd int) error
	// registerWrite arranges for fd to be reported writable.
	registerWrite(fd int) error
	// unregisterRead/unregisterWrite remove a prior registration. Removing
	// the last interest on an fd drops it from the underlying poll set.
	unregisterRead(fd int) error
	unregisterWrite(fd int) error
	// poll blocks up to timeoutNanos (negative: forever, zero: don't
	// block) and appends ready events to dst, returning the extended
	// slice.
	poll(dst []readinessEvent, timeoutNanos int64) ([]readinessEvent, error)
	// wake interrupts a concurrent poll() call from another goroutine,
	// used when a new deadline or a cross-thread wakeup needs the loop to
	// stop blocking immediately.
	wake() error
	// close releases OS resources held by the selector.
	close() error
}

// fdState tracks which task, if any, currently owns each direction of an
// fd's readiness interest, enforcing the single-reader/single-writer
// invariant (P5 / spec.md §4.3).
type fdState struct {
	reader *Task
	writer *Task
}
