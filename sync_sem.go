package curio

// Semaphore is a counting semaphore for tasks, grounded on spec.md §4.9.
type Semaphore struct {
	value int
	wait  WaitQueue
}

// NewSemaphore returns a Semaphore with the given initial count.
func NewSemaphore(value int) *Semaphore {
	if value < 0 {
		value = 0
	}
	return &Semaphore{value: value}
}

// Value reports the current count.
func (s *Semaphore) Value() int { return s.value }

// Locked reports whether the semaphore is currently exhausted (count 0).
func (s *Semaphore) Locked() bool { return s.value == 0 }

// Acquire blocks until the count is positive, then decrements it.
func (s *Semaphore) Acquire(c *Context) error {
	for s.value == 0 {
		if err := c.schedulerWait(&s.wait, StateSchedWait); err != nil {
			return err
		}
	}
	s.value--
	return nil
}

// Release increments the count, waking one waiter if any are parked. The
// woken task re-checks the count itself before consuming it, so it is
// safe for Release to run ahead of the waiter actually being scheduled.
func (s *Semaphore) Release(c *Context) {
	s.value++
	if next := s.wait.WakeOne(); next != nil {
		next.state = StateReady
		c.Kernel().ready.push(next)
	}
}
