package curio

import (
	"errors"
	"fmt"
)

// CurioError is the common base of the kernel's exception taxonomy. It is
// embedded by TaskCancelled, TaskTimeout, TimeoutCancellationError,
// UncaughtTimeoutError, SyncIOError, AsyncOnlyError, and TaskPanicError.
// Because those types embed a *CurioError rather than wrap one,
// errors.As(err, new(*CurioError)) does not match them. The ResourceBusy family,
// TaskError, and the Err* sentinels do not embed CurioError at all.
type CurioError struct {
	Message string
	Cause   error
}

func (e *CurioError) Error() string {
	if e.Message == "" {
		return "curio: error"
	}
	return e.Message
}

func (e *CurioError) Unwrap() error { return e.Cause }

// CancelledError is the marker interface satisfied by every member of the
// cancellation family: TaskCancelled, TaskTimeout, and
// TimeoutCancellationError. Catching CancelledError (via errors.As) is how
// a task's cleanup code distinguishes "I was asked to stop" from an
// ordinary application error.
type CancelledError interface {
	error
	cancelledError()
}

// TaskCancelled is the default exception delivered by Cancel.
type TaskCancelled struct {
	*CurioError
	// Requester is the id of the task that issued the cancellation.
	Requester uint64
}

func (e *TaskCancelled) cancelledError() {}

// NewTaskCancelled constructs a TaskCancelled raised on behalf of requester.
func NewTaskCancelled(requester uint64) *TaskCancelled {
	return &TaskCancelled{
		CurioError: &CurioError{Message: "curio: task cancelled"},
		Requester:  requester,
	}
}

// TaskTimeout is delivered when the innermost timeout frame that owns the
// cancellation point's outcome expires. It is a CancelledError, but it is
// recoverable: a task may catch exactly its own TaskTimeout and continue.
type TaskTimeout struct {
	*CurioError
	// Frame identifies which timeout frame (by push-order depth) expired.
	Frame int
}

func (e *TaskTimeout) cancelledError() {}

func newTaskTimeout(frame int) *TaskTimeout {
	return &TaskTimeout{
		CurioError: &CurioError{Message: "curio: task timeout"},
		Frame:      frame,
	}
}

// TimeoutCancellationError signals "a timeout fired, but not yours": an
// outer timeout frame's deadline expired while a deeper (inner) frame was
// the one observing the cancellation point. Catching TaskTimeout at the
// inner frame must not match this.
type TimeoutCancellationError struct {
	*CurioError
	// OuterFrame identifies the outer frame whose deadline actually fired.
	OuterFrame int
}

func (e *TimeoutCancellationError) cancelledError() {}

func newTimeoutCancellationError(outerFrame int) *TimeoutCancellationError {
	return &TimeoutCancellationError{
		CurioError: &CurioError{Message: "curio: timeout cancellation (outer frame fired)"},
		OuterFrame: outerFrame,
	}
}

// UncaughtTimeoutError is raised in a frame's enclosing context when a
// TaskTimeout belonging to an inner frame escapes an outer frame's exit
// without being caught anywhere inside it.
type UncaughtTimeoutError struct {
	*CurioError
	InnerFrame int
}

func newUncaughtTimeoutError(innerFrame int, cause error) *UncaughtTimeoutError {
	return &UncaughtTimeoutError{
		CurioError: &CurioError{Message: "curio: uncaught inner timeout escaped frame", Cause: cause},
		InnerFrame: innerFrame,
	}
}

// TaskError wraps a user exception that terminated a task, as surfaced by
// Task.Join. The original error is available both as .Cause and via
// errors.Unwrap, matching spec.md's "join re-raises them wrapped as
// TaskError with the original as cause; result attribute re-raises
// directly" rule.
type TaskError struct {
	TaskID uint64
	Cause  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("curio: task %d failed: %v", e.TaskID, e.Cause)
}

func (e *TaskError) Unwrap() error { return e.Cause }

// ResourceBusy is the root of the single-reader/single-writer violation
// family (P5). ReadResourceBusy and WriteResourceBusy specialize it by
// direction; callers that only care about "was this fd busy" should use
// errors.As(err, new(*ResourceBusy)).
type ResourceBusy struct {
	FD        int
	Direction string
}

func (e *ResourceBusy) Error() string {
	return fmt.Sprintf("curio: fd %d busy for %s", e.FD, e.Direction)
}

// ReadResourceBusy is returned when a second task attempts read_wait on an
// fd that already has a registered reader.
type ReadResourceBusy struct{ *ResourceBusy }

// WriteResourceBusy is returned when a second task attempts write_wait on
// an fd that already has a registered writer.
type WriteResourceBusy struct{ *ResourceBusy }

func (e *ReadResourceBusy) Unwrap() error  { return e.ResourceBusy }
func (e *WriteResourceBusy) Unwrap() error { return e.ResourceBusy }

func newReadResourceBusy(fd int) *ReadResourceBusy {
	return &ReadResourceBusy{&ResourceBusy{FD: fd, Direction: "read"}}
}

func newWriteResourceBusy(fd int) *WriteResourceBusy {
	return &WriteResourceBusy{&ResourceBusy{FD: fd, Direction: "write"}}
}

// SyncIOError is a programmer error surfaced synchronously at the offending
// trap, e.g. attempting a blocking trap from outside any running task.
type SyncIOError struct{ *CurioError }

func newSyncIOError(msg string) *SyncIOError {
	return &SyncIOError{&CurioError{Message: msg}}
}

// AsyncOnlyError is raised when an API that requires the kernel to be
// running is invoked while it is not (e.g. scheduling a trap before Run).
type AsyncOnlyError struct{ *CurioError }

func newAsyncOnlyError(msg string) *AsyncOnlyError {
	return &AsyncOnlyError{&CurioError{Message: msg}}
}

// Standard sentinel errors for kernel-lifecycle conditions.
var (
	// ErrKernelAlreadyRunning is returned when Run is called on a kernel
	// that is already running.
	ErrKernelAlreadyRunning = errors.New("curio: kernel is already running")

	// ErrKernelTerminated is returned when operations are attempted on a
	// kernel that has fully shut down.
	ErrKernelTerminated = errors.New("curio: kernel has been terminated")

	// ErrTaskNotFound is returned by CancelTask when given a nil target.
	ErrTaskNotFound = errors.New("curio: task not found")

	// ErrGroupAlreadyJoined is returned by a second call to
	// TaskGroup.Join.
	ErrGroupAlreadyJoined = errors.New("curio: task group already joined")

	// ErrQueueClosed is returned by Queue/UniversalQueue operations after
	// Shutdown.
	ErrQueueClosed = errors.New("curio: queue is shut down")

	// ErrNotOwner is returned by RLock.Release when called by a task that
	// does not hold the lock.
	ErrNotOwner = errors.New("curio: release by non-owner")

	// ErrEmptyTaskGroup is returned by wait policies (GroupAny,
	// GroupObject) when no child ever produced a qualifying result.
	ErrEmptyTaskGroup = errors.New("curio: task group produced no result")
)

// WrapError wraps an error with a message and preserves the cause chain.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}

// TaskPanicError wraps a recovered panic value from a task body.
type TaskPanicError struct {
	*CurioError
	Value any
}

func newTaskPanicError(r any) *TaskPanicError {
	return &TaskPanicError{
		CurioError: &CurioError{Message: fmt.Sprintf("curio: task panicked: %v", r)},
		Value:      r,
	}
}
