package curio

// ActivationObserver receives scheduler lifecycle notifications, per
// spec.md's debug-hook surface (declared as a thin external contract
// rather than implemented as a full tracing subsystem — see
// SPEC_FULL.md §6). A Kernel with no observer configured pays no cost for
// it.
type ActivationObserver interface {
	TaskCreated(t *Task)
	TaskRunning(t *Task)
	TaskSuspended(t *Task)
	TaskTerminated(t *Task)
}

// WithActivationObserver registers obs to receive task lifecycle events.
func WithActivationObserver(obs ActivationObserver) KernelOption {
	return func(o *kernelOptions) { o.observer = obs }
}

type noopObserver struct{}

func (noopObserver) TaskCreated(*Task)    {}
func (noopObserver) TaskRunning(*Task)    {}
func (noopObserver) TaskSuspended(*Task)  {}
func (noopObserver) TaskTerminated(*Task) {}
