package curio

// stepper is the Go-native stand-in for a suspendable coroutine frame. Go
// has no way to pause and resume a call stack in place, so each Task body
// runs on its own goroutine that is kept parked on a channel recv
// everywhere it needs to yield control back to the scheduler. Exactly one
// of {kernel goroutine, stepper goroutine} ever runs at a time for a given
// task — resumeCh and trapCh are unbuffered and alternate strictly, so
// this reproduces single-threaded cooperative semantics rather than real
// concurrency.
type stepper struct {
	resumeCh chan resumeValue
	trapCh   chan *trapRequest
}

// resumeValue is what the kernel hands back into a parked task goroutine
// to unblock it: either the result of the trap it issued, or a
// cancellation exception to raise at the resume point instead.
type resumeValue struct {
	value any
	err   error
}

// newStepper starts fn running on a new goroutine, immediately parked
// until the kernel sends the first resumeValue (conventionally nil, nil,
// meaning "begin execution").
func newStepper(t *Task) *stepper {
	s := &stepper{
		resumeCh: make(chan resumeValue),
		trapCh:   make(chan *trapRequest),
	}
	go s.run(t)
	return s
}

func (s *stepper) run(t *Task) {
	<-s.resumeCh // wait for the kernel's go-ahead before touching fn
	c := &Context{task: t, step: s}
	value, err := runGuarded(t, c)
	s.trapCh <- &trapRequest{kind: trapDone, result: resumeValue{value: value, err: err}}
}

// runGuarded invokes the task body, converting a panic into a TaskError
// instead of crashing the goroutine.
func runGuarded(t *Task, c *Context) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &TaskError{TaskID: t.id, Cause: newTaskPanicError(r)}
		}
	}()
	return t.fn(c)
}

// resume hands control to the parked task goroutine and blocks until it
// either issues its next trap or terminates. It must only be called from
// the kernel's run-loop goroutine.
func (s *stepper) resume(rv resumeValue) *trapRequest {
	s.resumeCh <- rv
	return <-s.trapCh
}

// emit is called from inside the task's own goroutine (via Context) to
// hand a trap to the kernel and block until resumed.
func (s *stepper) emit(req *trapRequest) resumeValue {
	s.trapCh <- req
	return <-s.resumeCh
}
