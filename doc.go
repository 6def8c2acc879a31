// Package curio provides a single-threaded, trap-driven cooperative task
// kernel: the scheduler at the heart of an asynchronous concurrency runtime.
//
// # Architecture
//
// The kernel is built around a [Kernel] core that drives user-written task
// bodies ([TaskFunc]) to completion. A task suspends at well-defined points
// by invoking a trap on its [Context] (see Context.ReadWait, Context.Sleep,
// Context.Spawn, and friends); the kernel reads the trap, updates its
// bookkeeping, and resumes the next ready task. Go has no native coroutine
// primitive capable of suspending an arbitrary call stack, so each task is
// backed by a goroutine blocked on a pair of rendezvous channels (a
// [stepper]) that the kernel uses to resume it with a value or inject an
// exception — see the package-level "stepper" type for the mechanics.
//
// # Platform Support
//
// I/O readiness is implemented using platform-native mechanisms:
//   - Linux: epoll
//   - Darwin/BSD: kqueue
//   - Other Unix-like platforms: a select(2)-based fallback.
//
// # Structured Concurrency
//
// [TaskGroup] is the supervisor over a dynamically grown set of child
// tasks, enforcing that all children terminate before the group's scope
// exits. [Event], [Lock], [RLock], [Semaphore], [Condition], [Queue], and
// [UniversalQueue] are synchronization primitives built uniformly on top of
// [WaitQueue].
//
// # Thread Safety
//
// A [Kernel] binds to the OS thread that first calls [Kernel.Run]; running
// it reentrantly, or running two kernels concurrently on the same thread,
// is a programmer error. [Kernel.Spawn] and the trap vocabulary are only
// safe to call from the task goroutines the kernel itself drives — curio
// is a single-threaded scheduler, not a thread-safe queue. The one
// exception is [UniversalQueue], which is explicitly designed to bridge
// foreign OS threads into the kernel.
//
// # Usage
//
//	k, err := curio.NewKernel()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer k.Close()
//
//	_, err = k.Spawn(func(c *curio.Context) (any, error) {
//	    child, err := c.Spawn(func(c *curio.Context) (any, error) {
//	        if err := c.Sleep(50 * time.Millisecond); err != nil {
//	            return nil, err
//	        }
//	        return 42, nil
//	    }, false)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return child.Join(c)
//	}, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := k.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Types
//
// The package exports a small exception taxonomy built around
// [CurioError]: [CancelledError] and its concrete members [TaskCancelled],
// [TaskTimeout], and [TimeoutCancellationError]; [UncaughtTimeoutError];
// [TaskError] (the join-wrapper, with [errors.Unwrap] support); and the
// operational errors [ResourceBusy], [ReadResourceBusy],
// [WriteResourceBusy], [SyncIOError], and [AsyncOnlyError]. [TaskError]
// and the [ResourceBusy] family do not embed [CurioError].
package curio
