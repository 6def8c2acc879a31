package curio

import "time"

// timeoutFrame is one entry in a task's nested timeout-frame stack, per
// spec.md §4.7. Frames are pushed innermost-last; index 0 is the
// outermost frame currently active for the task.
type timeoutFrame struct {
	deadline time.Time
	isIgnore bool
	tok      timerToken
	hasTok   bool
	fired    bool
	firedErr error
}

// pushTimeoutFrame schedules a kernel timer for deadline and appends a new
// frame to t's stack, returning its index. Grounded on spec.md §4.7's
// "each timeout_after/ignore_after opens a new frame with its own
// deadline" rule; the timer callback is deliverTimeoutFrame below.
func pushTimeoutFrame(k *Kernel, t *Task, deadline time.Time, isIgnore bool) int {
	frame := &timeoutFrame{deadline: deadline, isIgnore: isIgnore}
	t.timeoutStack = append(t.timeoutStack, frame)
	idx := len(t.timeoutStack) - 1
	frame.tok = k.timers.push(deadline.UnixNano(), func() {
		deliverTimeoutFrame(k, t, idx)
	})
	frame.hasTok = true
	return idx
}

// deliverTimeoutFrame fires when frame idx's deadline is reached. If idx is
// still the innermost active frame, the task's "own" timeout fires
// (TaskTimeout); otherwise an enclosing frame fired while a deeper frame
// was active, which is TimeoutCancellationError from the inner frame's
// point of view (spec.md §4.7, scenario 3).
func deliverTimeoutFrame(k *Kernel, t *Task, idx int) {
	if idx >= len(t.timeoutStack) {
		return // frame already popped; stale timer, nothing to do
	}
	frame := t.timeoutStack[idx]
	if frame.fired {
		return
	}
	frame.fired = true
	var err error
	if idx == len(t.timeoutStack)-1 {
		err = newTaskTimeout(idx)
	} else {
		err = newTimeoutCancellationError(idx)
	}
	frame.firedErr = err
	k.deliverAsyncError(t, err)
}

// popTimeoutFrame unwinds t's stack back to and including idx, cancelling
// any still-live timer and reclassifying any escaped inner-frame timeout
// as UncaughtTimeoutError per spec.md's unhandled-inner-timeout rule
// (scenario 4). It returns the error the frame's exit should surface, if
// any (nil when the frame closed without any timeout ever touching it).
func popTimeoutFrame(k *Kernel, t *Task, idx int) error {
	if idx < 0 || idx >= len(t.timeoutStack) {
		return nil
	}
	var escaped error
	for i := len(t.timeoutStack) - 1; i > idx; i-- {
		inner := t.timeoutStack[i]
		if inner.hasTok {
			k.timers.cancel(inner.tok)
		}
		if inner.fired {
			if _, ok := inner.firedErr.(*TaskTimeout); ok {
				escaped = newUncaughtTimeoutError(i, inner.firedErr)
			}
		}
	}
	frame := t.timeoutStack[idx]
	if frame.hasTok {
		k.timers.cancel(frame.tok)
	}
	t.timeoutStack = t.timeoutStack[:idx]

	switch {
	case escaped != nil:
		return escaped
	case frame.fired:
		return frame.firedErr
	default:
		return nil
	}
}

// activeFrameDeadline reports the nearest not-yet-fired deadline among t's
// frames, used only for diagnostics/tests; the kernel relies on the timer
// wheel directly rather than scanning this on the hot path.
func activeFrameDeadline(t *Task) (time.Time, bool) {
	var best time.Time
	found := false
	for _, f := range t.timeoutStack {
		if f.fired {
			continue
		}
		if !found || f.deadline.Before(best) {
			best = f.deadline
			found = true
		}
	}
	return best, found
}

// TimeoutAfter runs fn under a deadline frame, per spec.md §4.7. If fn's
// own frame is the one whose deadline fires, TimeoutAfter returns the
// *TaskTimeout for the caller to inspect via errors.As. A deeper frame's
// *TaskTimeout that escapes fn is returned as *UncaughtTimeoutError; any
// other error (including an outer frame's TimeoutCancellationError)
// propagates unchanged.
func (c *Context) TimeoutAfter(d time.Duration, fn func(c *Context) (any, error)) (any, error) {
	return c.runWithFrame(d, false, fn)
}

// IgnoreAfter runs fn under a deadline frame that is swallowed rather than
// raised if it is the one that fires: the call simply returns whatever
// partial value fn had produced (nil if none) with a nil error.
func (c *Context) IgnoreAfter(d time.Duration, fn func(c *Context) (any, error)) (any, error) {
	return c.runWithFrame(d, true, fn)
}

// runWithFrame translates whatever deliverTimeoutFrame raised at fn's
// suspension point into the outcome this specific frame should surface to
// its own caller:
//   - its own deadline fired while it was innermost (*TaskTimeout for this
//     frame), or its own deadline fired while a deeper frame was innermost
//     and the error unwound back up to this frame
//     (*TimeoutCancellationError for this frame) — either way, from this
//     frame's own caller's perspective its deadline simply expired, so
//     both become *TaskTimeout (or are swallowed, for IgnoreAfter).
//   - a *different*, deeper frame's own *TaskTimeout propagated past this
//     frame uncaught — reclassified as *UncaughtTimeoutError, per
//     spec.md's scenario 4.
//   - anything else (an application error, an unrelated cancellation)
//     passes through unchanged.
func (c *Context) runWithFrame(d time.Duration, isIgnore bool, fn func(c *Context) (any, error)) (any, error) {
	deadline := c.Clock().Now().Add(d)
	frame, err := c.SetTimeout(deadline, isIgnore)
	if err != nil {
		return nil, err
	}
	value, ferr := fn(c)
	if uerr := c.UnsetTimeout(frame); uerr != nil && ferr == nil {
		ferr = uerr
	}
	switch e := ferr.(type) {
	case *TaskTimeout:
		if e.Frame != frame {
			return value, newUncaughtTimeoutError(e.Frame, e)
		}
		if isIgnore {
			return value, nil
		}
		return value, e
	case *TimeoutCancellationError:
		if e.OuterFrame != frame {
			return value, e
		}
		if isIgnore {
			return value, nil
		}
		return value, newTaskTimeout(frame)
	default:
		return value, ferr
	}
}
