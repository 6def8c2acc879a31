package curio

// cancelTask implements the CancelTask trap: a cancellation exception is
// delivered to a task at most once, and only at a point where the task is
// actually suspended or next becomes suspendable. A second cancel issued
// before the task has observed the first simply joins the first rather
// than queuing a distinct exception behind it. It returns (true, nil)
// when the calling task must itself suspend to wait for target's
// termination (blocking=true), or (false, err) when the calling task
// should resume immediately.
func (k *Kernel) cancelTask(canceller, target *Task, cause error, blocking bool) (bool, error) {
	if target == nil {
		return false, ErrTaskNotFound
	}
	if target.terminated {
		return false, nil
	}
	if !target.cancelled {
		if cause == nil {
			cause = NewTaskCancelled(canceller.id)
		}
		target.cancelled = true
		if target.allowCancel {
			k.forceWake(target, cause)
		} else {
			// Shielded: record it, to be delivered by checkCancelPending once
			// the shield lifts at the next cancellable suspension point.
			target.cancelPending = cause
		}
	}
	if blocking {
		canceller.state = StateSchedWait
		target.cancelJoiners.Suspend(canceller)
		return true, nil
	}
	return false, nil
}

// Shielded runs fn with cancellation delivery suppressed for the calling
// task. Any cancellation requested during fn is queued and delivered at
// the first cancellable suspension point after Shielded returns, rather
// than being lost.
func (c *Context) Shielded(fn func(c *Context) (any, error)) (any, error) {
	t := c.task
	prev := t.allowCancel
	t.allowCancel = false
	defer func() { t.allowCancel = prev }()
	return fn(c)
}

// CheckCancellation suspends the calling task for zero duration purely to
// give a pending cancellation a chance to be delivered, for cooperative
// checkpoints in CPU-bound loops that never otherwise block.
func (c *Context) CheckCancellation() error {
	return c.Yield()
}

// AllowCancellation reports whether the calling task currently accepts
// cancellation delivery (i.e. is not inside a Shielded call).
func (c *Context) AllowCancellation() bool {
	return c.task.allowCancel
}
