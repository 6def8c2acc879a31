package curio

// WaitQueue is the uniform FIFO rendezvous primitive every higher-level
// synchronization primitive (Event, Lock, Semaphore, Condition, Queue)
// delegates to. It is a plain doubly linked list of waiting tasks rather
// than a chunked, pool-backed structure like readyQueue — wait queues
// here hold a handful of blocked tasks at a time, not a high-throughput
// task-submission stream, so the correctness properties (FIFO order, O(1)
// cancel-in-place) matter more than chunk-amortized allocation.
//
// WaitQueue is not safe for concurrent use; every method must be called
// from the kernel's run-loop goroutine, which is the only goroutine ever
// touching task scheduling state.
type WaitQueue struct {
	head, tail *waitNode
	length     int
}

type waitNode struct {
	task       *Task
	prev, next *waitNode
}

// Len reports the number of tasks currently waiting.
func (q *WaitQueue) Len() int { return q.length }

// Suspend appends t to the tail of the queue and records the node on the
// task so CancelWait can later remove it in O(1).
func (q *WaitQueue) Suspend(t *Task) {
	n := &waitNode{task: t}
	if q.tail == nil {
		q.head, q.tail = n, n
	} else {
		n.prev = q.tail
		q.tail.next = n
		q.tail = n
	}
	q.length++
	t.waitNode = n
	t.waitQueue = q
}

// WakeOne removes and returns the head task, or nil if the queue is empty.
// Per spec.md §4.4, woken tasks are placed at the tail of the kernel's
// ready queue by the caller — WakeOne itself only performs the WaitQueue
// side of the handoff.
func (q *WaitQueue) WakeOne() *Task {
	n := q.head
	if n == nil {
		return nil
	}
	q.remove(n)
	return n.task
}

// WakeAll removes and returns every waiting task, head first, preserving
// FIFO order.
func (q *WaitQueue) WakeAll() []*Task {
	tasks := make([]*Task, 0, q.length)
	for n := q.head; n != nil; {
		next := n.next
		tasks = append(tasks, n.task)
		n.prev, n.next = nil, nil
		n.task.waitNode, n.task.waitQueue = nil, nil
		n = next
	}
	q.head, q.tail, q.length = nil, nil, 0
	return tasks
}

// CancelWait removes t from the queue without treating it as a normal
// wakeup — used when a suspended task is cancelled. It is a no-op if t is
// not actually on this queue. The caller (the owning synchronization
// primitive) is responsible for restoring any invariant the cancellation
// would otherwise violate (spec.md §4.4/§4.9 cancellation policy).
func (q *WaitQueue) CancelWait(t *Task) bool {
	n := t.waitNode
	if n == nil || t.waitQueue != q {
		return false
	}
	q.remove(n)
	return true
}

func (q *WaitQueue) remove(n *waitNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		q.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		q.tail = n.prev
	}
	n.prev, n.next = nil, nil
	n.task.waitNode, n.task.waitQueue = nil, nil
	q.length--
}
