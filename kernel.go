package curio

import (
	"sync"
	"sync/atomic"
)

// Logger is the minimal structured-logging facade the kernel depends on,
// implemented over a github.com/joeycumines/logiface.Logger[*izerolog.Event]
// by the adapter NewZerologLogger returns (see logging.go). Declaring it as a small local interface, rather than
// importing logiface's generic type directly into every signature, keeps
// the kernel's public surface free of the logging backend's type
// parameter.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// Kernel is the cooperative task scheduler: the central run loop owning
// the ready queue, the timer wheel, the readiness selector, and every
// live Task. A Kernel is built for single-threaded use from its own Run
// goroutine; the only methods safe to call from other goroutines are
// Spawn (queued through a lock), ScheduleExternal, and Close.
//
// Each tick drains staged ready work, computes a poll budget from the
// timer wheel, polls for I/O readiness, and dispatches whatever becomes
// ready, then repeats.
type Kernel struct {
	clock  Clock
	logger Logger

	timers timerWheel
	ready  readyQueue

	tasks      map[uint64]*Task
	nextTaskID uint64

	state fastState

	sel      readinessSelector
	fds      map[int]*fdState
	observer ActivationObserver

	mu           sync.Mutex
	spawnQueue   []*Task         // tasks spawned from outside the loop goroutine
	externalWork []func(*Kernel) // cross-thread callbacks, e.g. UniversalQueue puts
	closeCh      chan struct{}
	closeOnce    sync.Once
	diagnostics  *diagnosticLimiter

	// loopGoroutineID identifies the goroutine currently executing Run, or
	// 0 if the kernel isn't running. Used to let Spawn take a lock-free
	// fast path when called from the loop goroutine itself instead of from
	// a foreign thread.
	loopGoroutineID atomic.Uint64
}

// isLoopThread reports whether the calling goroutine is the one currently
// executing k.Run.
func (k *Kernel) isLoopThread() bool {
	id := k.loopGoroutineID.Load()
	return id != 0 && getGoroutineID() == id
}

// ScheduleExternal queues fn to run on the kernel's own run-loop goroutine
// at the start of its next tick, and interrupts a blocked poll so it runs
// promptly. Safe to call from any goroutine; this is the one sanctioned
// door from foreign threads into kernel state, used by UniversalQueue's
// PutFromThread.
func (k *Kernel) ScheduleExternal(fn func(*Kernel)) {
	k.mu.Lock()
	k.externalWork = append(k.externalWork, fn)
	k.mu.Unlock()
	_ = k.sel.wake()
}

// NewKernel constructs a Kernel ready to Run.
func NewKernel(opts ...KernelOption) (*Kernel, error) {
	o := kernelOptions{clock: RealClock, logger: noopLogger{}, observer: noopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}
	sel, err := newReadinessSelector()
	if err != nil {
		return nil, WrapError("curio: creating readiness selector", err)
	}
	k := &Kernel{
		clock:       o.clock,
		logger:      o.logger,
		tasks:       make(map[uint64]*Task),
		sel:         sel,
		fds:         make(map[int]*fdState),
		observer:    o.observer,
		closeCh:     make(chan struct{}),
		diagnostics: newDiagnosticLimiter(o.logger),
	}
	return k, nil
}

// Spawn creates a new top-level task running fn. Safe to call both before
// Run and, cross-thread, while Run is executing. Called from the loop
// goroutine itself (e.g. from a ScheduleExternal callback), it skips the
// staging queue and lands the task straight on the ready queue; task
// bodies run on their own goroutines and so take the staging path.
func (k *Kernel) Spawn(fn TaskFunc, daemon bool) (*Task, error) {
	if k.state.Load() == StateTerminated {
		return nil, ErrKernelTerminated
	}
	t := k.newTask(fn, daemon, nil)
	if k.isLoopThread() {
		k.ready.push(t)
		return t, nil
	}
	k.mu.Lock()
	k.spawnQueue = append(k.spawnQueue, t)
	k.mu.Unlock()
	_ = k.sel.wake()
	return t, nil
}

func (k *Kernel) newTask(fn TaskFunc, daemon bool, group *TaskGroup) *Task {
	k.nextTaskID++
	t := &Task{
		id:          k.nextTaskID,
		kernel:      k,
		fn:          fn,
		state:       StateReady,
		daemon:      daemon,
		allowCancel: true,
		group:       group,
	}
	t.step = newStepper(t)
	k.tasks[t.id] = t
	k.observer.TaskCreated(t)
	return t
}

// Task looks up a live task by id.
func (k *Kernel) Task(id uint64) (*Task, bool) {
	t, ok := k.tasks[id]
	return t, ok
}

// Run drives the kernel until every non-daemon task has terminated, or
// err is returned from an unrecoverable selector failure. It must be
// called from exactly one goroutine at a time; a second concurrent call,
// including one racing in from a task the kernel itself is driving,
// returns ErrKernelAlreadyRunning.
func (k *Kernel) Run() error {
	if !k.state.TryTransition(StateAwake, StateRunning) {
		if k.state.Load() == StateTerminated {
			return ErrKernelTerminated
		}
		return ErrKernelAlreadyRunning
	}
	k.loopGoroutineID.Store(getGoroutineID())
	defer k.loopGoroutineID.Store(0)
	defer k.state.Store(StateTerminated)

	for {
		k.drainSpawnQueue()
		k.drainExternalWork()

		for {
			t, ok := k.ready.pop()
			if !ok {
				break
			}
			k.runTask(t, k.nextResume(t))
		}

		if k.liveNonDaemonCount() == 0 {
			return nil
		}

		select {
		case <-k.closeCh:
			return nil
		default:
		}

		timeoutNanos := k.pollBudget()
		events, err := k.sel.poll(k.eventBuf(), timeoutNanos)
		if err != nil {
			return WrapError("curio: readiness poll failed", err)
		}
		now := k.clock.Now().UnixNano()
		k.timers.popExpired(now)
		k.dispatchReadiness(events)
	}
}

func (k *Kernel) eventBuf() []readinessEvent { return make([]readinessEvent, 0, 64) }

func (k *Kernel) drainSpawnQueue() {
	k.mu.Lock()
	pending := k.spawnQueue
	k.spawnQueue = nil
	k.mu.Unlock()
	for _, t := range pending {
		k.ready.push(t)
	}
}

func (k *Kernel) drainExternalWork() {
	k.mu.Lock()
	pending := k.externalWork
	k.externalWork = nil
	k.mu.Unlock()
	for _, fn := range pending {
		fn(k)
	}
}

func (k *Kernel) liveNonDaemonCount() int {
	n := 0
	for _, t := range k.tasks {
		if !t.terminated && !t.daemon {
			n++
		}
	}
	return n
}

// pollBudget computes how long poll may block: zero if the ready queue
// or the spawn staging queue has work pending, otherwise until the nearest timer
// deadline, otherwise forever.
func (k *Kernel) pollBudget() int64 {
	if k.ready.Len() > 0 {
		return 0
	}
	k.mu.Lock()
	staged := len(k.spawnQueue)
	k.mu.Unlock()
	if staged > 0 {
		return 0
	}
	if deadline, ok := k.timers.nextDeadline(); ok {
		now := k.clock.Now().UnixNano()
		if deadline <= now {
			return 0
		}
		return deadline - now
	}
	return -1
}

func (k *Kernel) dispatchReadiness(events []readinessEvent) {
	for _, ev := range events {
		st, ok := k.fds[ev.fd]
		if !ok {
			continue
		}
		if (ev.readable || ev.hungUp) && st.reader != nil {
			t := st.reader
			st.reader = nil
			_ = k.sel.unregisterRead(ev.fd)
			k.clearTimerFor(t)
			t.state = StateReady
			t.fd = 0
			k.ready.push(t)
		}
		if (ev.writable || ev.hungUp) && st.writer != nil {
			t := st.writer
			st.writer = nil
			_ = k.sel.unregisterWrite(ev.fd)
			k.clearTimerFor(t)
			t.state = StateReady
			t.fd = 0
			k.ready.push(t)
		}
		if st.reader == nil && st.writer == nil {
			delete(k.fds, ev.fd)
		}
	}
}

func (k *Kernel) clearTimerFor(t *Task) {
	if t.hasTimerTok {
		k.timers.cancel(t.timerTok)
		t.hasTimerTok = false
	}
}

// runTask resumes t with rv and keeps processing any further traps that
// answer synchronously (get_kernel, get_current, spawn, set/unset
// timeout, io_waiting, clock) without leaving the dispatch loop, only
// returning once t has either suspended on something external or
// terminated.
func (k *Kernel) runTask(t *Task, rv resumeValue) {
	for {
		if t.terminated {
			return
		}
		t.cycles++
		t.state = StateRunningTask
		k.observer.TaskRunning(t)
		req := t.step.resume(rv)
		cont, next := k.handleTrap(t, req)
		if !cont {
			if !t.terminated {
				k.observer.TaskSuspended(t)
			}
			return
		}
		rv = next
	}
}

// handleTrap processes one trap from t. The bool result reports whether t
// should be resumed again immediately with the accompanying resumeValue
// (true), or whether t has been parked/terminated and the dispatch loop
// should move on (false).
func (k *Kernel) handleTrap(t *Task, req *trapRequest) (bool, resumeValue) {
	switch req.kind {
	case trapDone:
		k.finishTask(t, req.result)
		return false, resumeValue{}

	case trapReadWait:
		if cp, ok := k.checkCancelPending(t); ok {
			return true, cp
		}
		return k.handleIOWait(t, req.fd, dirRead)
	case trapWriteWait:
		if cp, ok := k.checkCancelPending(t); ok {
			return true, cp
		}
		return k.handleIOWait(t, req.fd, dirWrite)

	case trapSleep:
		if cp, ok := k.checkCancelPending(t); ok {
			return true, cp
		}
		t.state = StateTimeSleep
		deadline := k.clock.Now().Add(req.duration).UnixNano()
		t.timerTok = k.timers.push(deadline, func() {
			t.state = StateReady
			t.hasTimerTok = false
			k.ready.push(t)
		})
		t.hasTimerTok = true
		return false, resumeValue{}

	case trapSchedWait:
		if cp, ok := k.checkCancelPending(t); ok {
			return true, cp
		}
		t.state = req.state
		req.queue.Suspend(t)
		return false, resumeValue{}

	case trapSpawn:
		child := k.newTask(req.spawnFn, req.spawnDaemon, req.spawnGroup)
		k.ready.push(child)
		if req.spawnGroup != nil {
			req.spawnGroup.tasks = append(req.spawnGroup.tasks, child)
		}
		return true, resumeValue{value: child}

	case trapCancelTask:
		suspended, err := k.cancelTask(t, req.targetTask, req.cancelErr, req.blocking)
		if suspended {
			return false, resumeValue{}
		}
		return true, resumeValue{err: err}

	case trapSetTimeout:
		idx := pushTimeoutFrame(k, t, req.timeoutDeadline, req.timeoutIsIgnore)
		return true, resumeValue{value: idx}

	case trapUnsetTimeout:
		idx := req.result.value.(int)
		err := popTimeoutFrame(k, t, idx)
		return true, resumeValue{err: err}

	case trapYield:
		if cp, ok := k.checkCancelPending(t); ok {
			return true, cp
		}
		t.state = StateReady
		k.ready.push(t)
		return false, resumeValue{}

	case trapIOWaiting:
		st := k.fds[req.fd]
		var pair [2]*Task
		if st != nil {
			pair[0], pair[1] = st.reader, st.writer
		}
		return true, resumeValue{value: pair}

	case trapGetKernel:
		return true, resumeValue{value: k}
	case trapGetCurrent:
		return true, resumeValue{value: t}
	case trapClock:
		return true, resumeValue{value: k.clock}

	default:
		return true, resumeValue{err: newSyncIOError("curio: unknown trap")}
	}
}

// checkCancelPending reports a cancellation that was deferred while
// cancellation was shielded (Task.allowCancel == false) and has since
// become deliverable, per spec.md §4.7's "deliver at the next cancellable
// suspension point" rule. It never fires while the shield is still up.
func (k *Kernel) checkCancelPending(t *Task) (resumeValue, bool) {
	if t.cancelPending != nil && t.allowCancel {
		err := t.cancelPending
		t.cancelPending = nil
		return resumeValue{err: err}, true
	}
	return resumeValue{}, false
}

func (k *Kernel) handleIOWait(t *Task, fd int, dir ioDirection) (bool, resumeValue) {
	st, ok := k.fds[fd]
	if !ok {
		st = &fdState{}
		k.fds[fd] = st
	}
	if dir == dirRead {
		if st.reader != nil {
			return true, resumeValue{err: newReadResourceBusy(fd)}
		}
		st.reader = t
		if err := k.sel.registerRead(fd); err != nil {
			st.reader = nil
			return true, resumeValue{err: WrapError("curio: register read", err)}
		}
		t.state = StateReadWait
	} else {
		if st.writer != nil {
			return true, resumeValue{err: newWriteResourceBusy(fd)}
		}
		st.writer = t
		if err := k.sel.registerWrite(fd); err != nil {
			st.writer = nil
			return true, resumeValue{err: WrapError("curio: register write", err)}
		}
		t.state = StateWriteWait
	}
	t.fd, t.dir = fd, dir
	return false, resumeValue{}
}

func (k *Kernel) finishTask(t *Task, rv resumeValue) {
	t.terminated = true
	t.state = StateTaskTerminated
	t.settle(rv.value, rv.err)
	delete(k.tasks, t.id)

	for _, w := range t.joiners.WakeAll() {
		w.state = StateReady
		k.ready.push(w)
	}
	for _, w := range t.cancelJoiners.WakeAll() {
		w.state = StateReady
		k.ready.push(w)
	}
	if t.group != nil {
		t.group.onChildDone(k, t)
	}
	if rv.err != nil && t.daemon {
		k.logger.Warn("daemon task terminated with error", "task", t.id, "error", rv.err)
	}
	k.observer.TaskTerminated(t)
}

// deliverAsyncError forces err into t at its current suspension point
// (or, if t is not currently suspended, marks it to be delivered as soon
// as it next reaches one), per spec.md §4.7/§4.8's "cancellation is
// delivered at a suspension point" rule (P2).
func (k *Kernel) deliverAsyncError(t *Task, err error) {
	k.forceWake(t, err)
}

// forceWake yanks t out of whatever it is suspended on (a WaitQueue, a
// timer, or an fd registration) and re-enqueues it to run immediately
// with err as its resume error. If t is not currently suspended (e.g. it
// is still StateReady, about to be dispatched), the pending error is
// recorded on cancelPending and delivered by checkCancelPending at the
// task's next blocking trap.
func (k *Kernel) forceWake(t *Task, err error) {
	if t.terminated {
		return
	}
	switch t.state {
	case StateReadWait, StateWriteWait:
		if st, ok := k.fds[t.fd]; ok {
			if t.dir == dirRead && st.reader == t {
				st.reader = nil
				_ = k.sel.unregisterRead(t.fd)
			}
			if t.dir == dirWrite && st.writer == t {
				st.writer = nil
				_ = k.sel.unregisterWrite(t.fd)
			}
			if st.reader == nil && st.writer == nil {
				delete(k.fds, t.fd)
			}
		}
	case StateTimeSleep:
		k.clearTimerFor(t)
	case StateSchedWait:
		if t.waitQueue != nil {
			t.waitQueue.CancelWait(t)
		}
	default:
		t.cancelPending = err
		if !t.allowCancel {
			k.diagnostics.warnPolicyViolation("shielded-cancel", "cancellation deferred by cancellation shield", "task", t.id)
		}
		return
	}
	t.state = StateReady
	k.ready.push(t)
	k.pendResume(t, resumeValue{err: err})
}

// pendResume records the resume value forceWake interrupted a task with,
// so the dispatch loop hands it back in on the task's next resume instead
// of the zero value. Grounded on the need for cancellation/timeout
// delivery to surface as the *return value* of whatever trap the task was
// blocked in, matching spec.md's "raised at the point of suspension"
// wording translated into Go's error-return idiom.
func (k *Kernel) pendResume(t *Task, rv resumeValue) {
	t.pendingResume = rv
	t.hasPendingResume = true
}

// nextResume returns and clears any resume value forceWake left pending
// for t, or the zero value if t was woken normally.
func (k *Kernel) nextResume(t *Task) resumeValue {
	if t.hasPendingResume {
		rv := t.pendingResume
		t.pendingResume = resumeValue{}
		t.hasPendingResume = false
		return rv
	}
	return resumeValue{}
}

// Close requests that Run return at the next opportunity. Safe to call
// from any goroutine. It does not cancel the remaining tasks: any task
// still suspended when Run returns stays suspended and is never resumed.
func (k *Kernel) Close() {
	k.closeOnce.Do(func() {
		close(k.closeCh)
		_ = k.sel.wake()
	})
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
