package curio

import "time"

// ioDirection distinguishes the two halves of an fd's readiness interest,
// per spec.md §4.3's single-reader/single-writer-per-fd model.
type ioDirection int

const (
	dirRead ioDirection = iota
	dirWrite
)

func (d ioDirection) String() string {
	if d == dirWrite {
		return "write"
	}
	return "read"
}

// trapKind enumerates every request a task body can hand to the kernel.
type trapKind int

const (
	trapReadWait trapKind = iota
	trapWriteWait
	trapSleep
	trapSchedWait
	trapSpawn
	trapCancelTask
	trapSetTimeout
	trapUnsetTimeout
	trapGetKernel
	trapGetCurrent
	trapClock
	trapIOWaiting
	trapYield
	trapDone
)

// trapRequest is the envelope a task goroutine sends to the kernel over
// its stepper's trap channel; the kernel's answer travels back the other
// way as a resumeValue.
type trapRequest struct {
	kind trapKind

	fd  int
	dir ioDirection

	duration time.Duration

	queue *WaitQueue
	state TaskState

	spawnFn     TaskFunc
	spawnDaemon bool
	spawnGroup  *TaskGroup

	targetTask *Task
	cancelErr  error
	blocking   bool

	timeoutDeadline time.Time
	timeoutIsIgnore bool

	result resumeValue
}

// Context is the handle a running task body uses to invoke traps. It is
// only valid for the duration of that task's own goroutine execution and
// must not be retained across a suspend point by reference into another
// task.
type Context struct {
	task *Task
	step *stepper
}

// Task returns the task this context belongs to.
func (c *Context) Task() *Task { return c.task }

// Kernel returns the kernel driving this task, equivalent to the
// get_kernel trap.
func (c *Context) Kernel() *Kernel { return c.task.kernel }

// Clock returns the kernel's time source.
func (c *Context) Clock() Clock { return c.task.kernel.clock }

// ReadWait suspends the current task until fd becomes readable, per
// spec.md §4.3/§4.5. Returns ReadResourceBusy if another task already
// holds the read registration on fd.
func (c *Context) ReadWait(fd int) error {
	rv := c.step.emit(&trapRequest{kind: trapReadWait, fd: fd, dir: dirRead})
	return rv.err
}

// WriteWait suspends the current task until fd becomes writable.
func (c *Context) WriteWait(fd int) error {
	rv := c.step.emit(&trapRequest{kind: trapWriteWait, fd: fd, dir: dirWrite})
	return rv.err
}

// Sleep suspends the current task for at least d.
func (c *Context) Sleep(d time.Duration) error {
	rv := c.step.emit(&trapRequest{kind: trapSleep, duration: d})
	return rv.err
}

// Yield gives other ready tasks a chance to run without otherwise
// blocking: the task is immediately re-appended to the ready queue.
func (c *Context) Yield() error {
	rv := c.step.emit(&trapRequest{kind: trapYield})
	return rv.err
}

// schedulerWait suspends the current task on an arbitrary WaitQueue,
// recording state as the task's visible TaskState while parked. Used by
// Task.Join and every WaitQueue-backed sync primitive.
func (c *Context) schedulerWait(q *WaitQueue, state TaskState) error {
	rv := c.step.emit(&trapRequest{kind: trapSchedWait, queue: q, state: state})
	return rv.err
}

// Spawn creates a new, ungrouped child task running fn and returns it
// once it has been registered with the kernel (not once it has
// finished).
func (c *Context) Spawn(fn TaskFunc, daemon bool) (*Task, error) {
	return c.spawnInGroup(fn, daemon, nil)
}

func (c *Context) spawnInGroup(fn TaskFunc, daemon bool, group *TaskGroup) (*Task, error) {
	rv := c.step.emit(&trapRequest{kind: trapSpawn, spawnFn: fn, spawnDaemon: daemon, spawnGroup: group})
	if rv.err != nil {
		return nil, rv.err
	}
	return rv.value.(*Task), nil
}

// CancelTask requests cancellation of target with the given exception
// (nil selects the default TaskCancelled). If blocking, the calling task
// suspends until target has actually terminated, per spec.md's
// Cancel(blocking=true) semantics.
func (c *Context) CancelTask(target *Task, cause error, blocking bool) error {
	rv := c.step.emit(&trapRequest{kind: trapCancelTask, targetTask: target, cancelErr: cause, blocking: blocking})
	return rv.err
}

// SetTimeout pushes a new timeout (or ignore, if isIgnore) frame for the
// current task with an absolute deadline, per spec.md §4.7.
func (c *Context) SetTimeout(deadline time.Time, isIgnore bool) (frame int, err error) {
	rv := c.step.emit(&trapRequest{kind: trapSetTimeout, timeoutDeadline: deadline, timeoutIsIgnore: isIgnore})
	if rv.err != nil {
		return 0, rv.err
	}
	return rv.value.(int), nil
}

// UnsetTimeout pops timeout frames down to and including frame, per
// spec.md §4.7's "unwind on normal exit" rule.
func (c *Context) UnsetTimeout(frame int) error {
	rv := c.step.emit(&trapRequest{kind: trapUnsetTimeout, result: resumeValue{value: frame}})
	return rv.err
}

// IOWaiting reports, for diagnostics, whether fd currently has a
// registered reader and/or writer task.
func (c *Context) IOWaiting(fd int) (reader, writer *Task) {
	rv := c.step.emit(&trapRequest{kind: trapIOWaiting, fd: fd})
	pair := rv.value.([2]*Task)
	return pair[0], pair[1]
}
