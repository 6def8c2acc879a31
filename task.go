package curio

// TaskState is one of the states a Task can occupy, per spec.md §3.
type TaskState int

const (
	StateReady TaskState = iota
	StateRunningTask
	StateReadWait
	StateWriteWait
	StateTimeSleep
	StateFutureWait
	StateSchedWait
	StateTaskTerminated
)

func (s TaskState) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StateRunningTask:
		return "RUNNING"
	case StateReadWait:
		return "READ_WAIT"
	case StateWriteWait:
		return "WRITE_WAIT"
	case StateTimeSleep:
		return "TIME_SLEEP"
	case StateFutureWait:
		return "FUTURE_WAIT"
	case StateSchedWait:
		return "SCHED_WAIT"
	case StateTaskTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// TaskFunc is a task body. It receives a Context through which it invokes
// traps (§4.5), and returns a value or an error on completion.
type TaskFunc func(c *Context) (any, error)

// taskResult is the two-field realization of spec.md's result "value xor
// exception" slot — Go has no sum type, so settle enforces the invariant
// that exactly one of value/err is meaningful instead.
type taskResult struct {
	settled bool
	value   any
	err     error
}

// Task is a single cooperative routine scheduled by the kernel. Every
// exported accessor is safe to call from any goroutine once the task has
// terminated; while running, Task state must only be touched from the
// kernel's run-loop goroutine (the one exception being the thread-safe
// Cancel/Join paths, which hand off through the kernel's trap channel).
type Task struct {
	id     uint64
	kernel *Kernel
	fn     TaskFunc
	step   *stepper

	state  TaskState
	daemon bool
	cycles int

	result taskResult

	// Cancellation bookkeeping, per spec.md §4.7.
	cancelPending error
	allowCancel   bool
	cancelled     bool
	cancelJoiners WaitQueue // tasks blocked in Cancel(blocking=true)

	// Timeout frame stack, per spec.md §4.7.
	timeoutStack []*timeoutFrame

	// joiners are tasks blocked in Join waiting for this task to finish.
	joiners WaitQueue

	// terminated mirrors spec.md's terminated flag: once true, the task
	// appears in no wait structure and no timer, and result is frozen.
	terminated bool

	// group is the TaskGroup that owns this task, if any (nil for
	// top-level spawns, per spec.md's "ungrouped task" rule).
	group *TaskGroup

	// waitNode/waitQueue let WaitQueue.CancelWait locate and unlink this
	// task in O(1) regardless of which queue currently holds it.
	waitNode  *waitNode
	waitQueue *WaitQueue

	// timerTok is set while the task is suspended in TIME_SLEEP, so
	// cancellation/wakeup can cancel the stale timer entry. Timeout frames
	// keep their own tokens on timeoutFrame.
	timerTok    timerToken
	hasTimerTok bool

	// fd/dir record the readiness registration this task currently holds,
	// if any, so forceWake can release it when the task is interrupted
	// mid-wait.
	fd  int
	dir ioDirection

	// pendingResume/hasPendingResume carry a forced resume value (a
	// cancellation or timeout error delivered while the task was
	// suspended) to the next time the kernel actually resumes this task's
	// stepper, per kernel.go's forceWake/nextResume pair.
	pendingResume    resumeValue
	hasPendingResume bool
}

// ID returns the task's unique, monotonically assigned identifier.
func (t *Task) ID() uint64 { return t.id }

// State returns the task's current lifecycle state.
func (t *Task) State() TaskState { return t.state }

// Daemon reports whether the task was spawned as a daemon (its
// cancellation-cleanup panics/errors are logged and discarded rather than
// propagated, per spec.md §7).
func (t *Task) Daemon() bool { return t.daemon }

// Cycles returns how many times the kernel has dispatched this task.
func (t *Task) Cycles() int { return t.cycles }

// Terminated reports whether the task has finished (normally or via
// exception).
func (t *Task) Terminated() bool { return t.terminated }

// Cancelled reports whether cancellation was ever requested for this task
// through CancelTask/Cancel, independent of whether it was delivered (a
// shielded task may finish first) and of whether the task went on to
// terminate with that exception or caught and suppressed it.
func (t *Task) Cancelled() bool { return t.cancelled }

// Result returns the task's value and error once terminated. It is only
// meaningful after Terminated() is true.
func (t *Task) Result() (any, error) {
	return t.result.value, t.result.err
}

// settle freezes the task's result. It must be called at most once.
func (t *Task) settle(value any, err error) {
	if t.result.settled {
		return
	}
	t.result.settled = true
	t.result.value = value
	t.result.err = err
}

// Join blocks the calling task until t terminates, then returns its value
// or re-raises its exception wrapped as TaskError (spec.md: "join
// re-raises them wrapped as TaskError with the original as cause").
// Calling Join from outside any task (c == nil) is a SyncIOError.
func (t *Task) Join(c *Context) (any, error) {
	if c == nil {
		return nil, newSyncIOError("Task.Join called outside a running task")
	}
	if !t.terminated {
		if err := c.schedulerWait(&t.joiners, StateSchedWait); err != nil {
			return nil, err
		}
	}
	value, err := t.Result()
	if err != nil {
		return nil, &TaskError{TaskID: t.id, Cause: err}
	}
	return value, nil
}

// Wait is an alias for Join kept for readers familiar with the source
// system's Task.wait() naming; it has identical semantics.
func (t *Task) Wait(c *Context) (any, error) { return t.Join(c) }

// Cancel requests t stop, delivering TaskCancelled (or cause, if
// non-nil) at t's next cancellable suspension point. If blocking, the
// calling task suspends until t has actually terminated.
func (t *Task) Cancel(c *Context, cause error, blocking bool) error {
	return c.CancelTask(t, cause, blocking)
}
