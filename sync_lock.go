package curio

// Lock is a non-reentrant mutex for tasks, grounded on spec.md §4.9's
// WaitQueue-based primitive family.
type Lock struct {
	owner *Task
	wait  WaitQueue
}

// NewLock returns an unlocked Lock.
func NewLock() *Lock { return &Lock{} }

// Locked reports whether the lock is currently held.
func (l *Lock) Locked() bool { return l.owner != nil }

// Acquire blocks until the lock is free, then takes it on behalf of the
// calling task.
func (l *Lock) Acquire(c *Context) error {
	for l.owner != nil {
		if err := c.schedulerWait(&l.wait, StateSchedWait); err != nil {
			return err
		}
	}
	l.owner = c.Task()
	return nil
}

// Release gives up the lock, waking the next waiter (if any). Releasing a
// lock the calling task does not hold is ErrNotOwner.
func (l *Lock) Release(c *Context) error {
	if l.owner != c.Task() {
		return ErrNotOwner
	}
	l.owner = nil
	if next := l.wait.WakeOne(); next != nil {
		next.state = StateReady
		c.Kernel().ready.push(next)
	}
	return nil
}

// RLock is a reentrant (recursive) lock: the owning task may Acquire it
// again without blocking, and must Release the same number of times to
// free it, per spec.md's reentrant-lock variant of the primitive family.
type RLock struct {
	owner *Task
	depth int
	wait  WaitQueue
}

// NewRLock returns an unlocked RLock.
func NewRLock() *RLock { return &RLock{} }

// Acquire blocks until the lock is free or already held by the calling
// task, then increments the reentrancy depth.
func (l *RLock) Acquire(c *Context) error {
	t := c.Task()
	for l.owner != nil && l.owner != t {
		if err := c.schedulerWait(&l.wait, StateSchedWait); err != nil {
			return err
		}
	}
	l.owner = t
	l.depth++
	return nil
}

// Release decrements the reentrancy depth, freeing the lock and waking
// the next waiter once it reaches zero. Called by a non-owner, it
// returns ErrNotOwner.
func (l *RLock) Release(c *Context) error {
	if l.owner != c.Task() {
		return ErrNotOwner
	}
	l.depth--
	if l.depth > 0 {
		return nil
	}
	l.owner = nil
	if next := l.wait.WakeOne(); next != nil {
		next.state = StateReady
		c.Kernel().ready.push(next)
	}
	return nil
}
