package curio

import "errors"

// GroupPolicy selects what TaskGroup.Join waits for, per spec.md §4.8's
// ALL/ANY/OBJECT/NONE wait policies.
type GroupPolicy int

const (
	// GroupAll waits for every spawned task to terminate. If any child
	// fails, Join cancels the remaining children and returns that
	// child's error wrapped as TaskError.
	GroupAll GroupPolicy = iota
	// GroupAny returns as soon as any one child terminates, successfully
	// or not, cancelling the rest.
	GroupAny
	// GroupObject returns the first child to terminate successfully with
	// a non-nil result value, cancelling the rest; if every child
	// finishes without ever producing one, Join returns
	// ErrEmptyTaskGroup.
	GroupObject
	// GroupNone never waits automatically; Join returns immediately with
	// whatever has already completed. Callers drive the group purely via
	// NextDone.
	GroupNone
)

// TaskGroup is a structured-concurrency scope: a set of sibling tasks
// that are spawned, awaited, and (on group failure or scope exit) torn
// down together.
type TaskGroup struct {
	policy GroupPolicy

	tasks     []*Task
	completed []*Task // completion order, distinct from tasks (spawn order)

	waiters WaitQueue
	joined  bool
}

// NewTaskGroup creates an empty group with the given wait policy.
func NewTaskGroup(policy GroupPolicy) *TaskGroup {
	return &TaskGroup{policy: policy}
}

// Len reports how many tasks have been spawned into the group.
func (g *TaskGroup) Len() int { return len(g.tasks) }

// Tasks returns the group's member tasks in spawn order.
func (g *TaskGroup) Tasks() []*Task {
	out := make([]*Task, len(g.tasks))
	copy(out, g.tasks)
	return out
}

// Spawn creates a new child task running fn as a member of g.
func (g *TaskGroup) Spawn(c *Context, fn TaskFunc) (*Task, error) {
	return c.spawnInGroup(fn, false, g)
}

// onChildDone is invoked by the kernel when one of g's tasks terminates.
func (g *TaskGroup) onChildDone(k *Kernel, t *Task) {
	g.completed = append(g.completed, t)
	// Every waiter (Join or NextDone) re-checks its own condition, so all
	// of them are woken on each child's termination.
	for _, w := range g.waiters.WakeAll() {
		w.state = StateReady
		k.ready.push(w)
	}
}

// policyReady reports whether enough children have completed for the
// group's policy to stop waiting even though some tasks may still be
// running. GroupAll is "ready" as soon as any one child fails with a
// non-cancellation error, not only once every child has finished
// naturally — spec.md §8 scenario 5 expects surviving siblings to be
// cancelled promptly on first failure, not run to their own natural
// completion first. A child that merely observed a cancellation (e.g. one
// cancelled directly by external code, rather than by CancelRemaining)
// does not count as a group failure.
func (g *TaskGroup) policyReady() bool {
	switch g.policy {
	case GroupAny:
		return len(g.completed) >= 1
	case GroupObject:
		for _, t := range g.completed {
			if v, err := t.Result(); err == nil && v != nil {
				return true
			}
		}
		return false
	case GroupAll:
		for _, t := range g.completed {
			if _, err := t.Result(); err != nil && !errors.As(err, new(CancelledError)) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// NextDone blocks until at least one more child has terminated since the
// last call, returning it. Returns (nil, nil) once every child has
// already been drained this way.
func (g *TaskGroup) NextDone(c *Context) (*Task, error) {
	for len(g.completed) == 0 {
		running := false
		for _, t := range g.tasks {
			if !t.terminated {
				running = true
				break
			}
		}
		if !running {
			return nil, nil
		}
		if err := c.schedulerWait(&g.waiters, StateSchedWait); err != nil {
			return nil, err
		}
	}
	t := g.completed[0]
	g.completed = g.completed[1:]
	return t, nil
}

// CancelRemaining cancels every member task that has not yet terminated
// and blocks until each has actually finished, per spec.md P6 ("after a
// TaskGroup's scope exits, all children are terminated") — a non-blocking
// cancel would let Join return while a sibling is still unwinding.
func (g *TaskGroup) CancelRemaining(c *Context) {
	for _, t := range g.tasks {
		if !t.terminated {
			_ = c.CancelTask(t, nil, true)
		}
	}
}

// Join waits according to g's policy and returns the qualifying
// result(s). A second call returns ErrGroupAlreadyJoined.
//
//   - GroupAll: waits for every child; returns all of them. If any
//     failed, the remaining children are cancelled and the first failure
//     (by completion order) is returned as *TaskError.
//   - GroupAny: waits for the first child to finish (success or not),
//     cancels the rest, and returns that one task.
//   - GroupObject: waits for the first child whose result is non-nil,
//     cancels the rest. ErrEmptyTaskGroup if none ever qualify.
//   - GroupNone: returns immediately with whatever has completed so far.
func (g *TaskGroup) Join(c *Context) ([]*Task, error) {
	if g.joined {
		return nil, ErrGroupAlreadyJoined
	}
	g.joined = true

	switch g.policy {
	case GroupNone:
		return append([]*Task(nil), g.completed...), nil

	case GroupAny:
		for len(g.completed) == 0 {
			if len(g.tasks) == 0 {
				return nil, ErrEmptyTaskGroup
			}
			if err := c.schedulerWait(&g.waiters, StateSchedWait); err != nil {
				return nil, err
			}
		}
		winner := g.completed[0]
		g.CancelRemaining(c)
		return []*Task{winner}, nil

	case GroupObject:
		for {
			for _, t := range g.completed {
				if v, err := t.Result(); err == nil && v != nil {
					g.CancelRemaining(c)
					return []*Task{t}, nil
				}
			}
			if len(g.completed) == len(g.tasks) {
				return nil, ErrEmptyTaskGroup
			}
			if err := c.schedulerWait(&g.waiters, StateSchedWait); err != nil {
				return nil, err
			}
		}

	default: // GroupAll
		for len(g.completed) < len(g.tasks) && !g.policyReady() {
			if err := c.schedulerWait(&g.waiters, StateSchedWait); err != nil {
				return nil, err
			}
		}
		for _, t := range g.completed {
			if _, err := t.Result(); err != nil && !errors.As(err, new(CancelledError)) {
				g.CancelRemaining(c)
				return g.Tasks(), &TaskError{TaskID: t.id, Cause: err}
			}
		}
		return g.Tasks(), nil
	}
}
