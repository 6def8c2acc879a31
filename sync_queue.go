package curio

import "container/heap"

// Queue is an unbounded-or-bounded FIFO for tasks, grounded on spec.md
// §4.9's WaitQueue-based primitive family. A maxsize of 0 means
// unbounded.
type Queue struct {
	items   []any
	maxsize int

	notEmpty WaitQueue
	notFull  WaitQueue

	closed bool
}

// NewQueue creates a Queue. maxsize <= 0 means unbounded.
func NewQueue(maxsize int) *Queue {
	return &Queue{maxsize: maxsize}
}

// Len reports the number of items currently queued.
func (q *Queue) Len() int { return len(q.items) }

// Put appends v, blocking if the queue is at capacity. Returns
// ErrQueueClosed if Shutdown has been called.
func (q *Queue) Put(c *Context, v any) error {
	for q.maxsize > 0 && len(q.items) >= q.maxsize {
		if q.closed {
			return ErrQueueClosed
		}
		if err := c.schedulerWait(&q.notFull, StateSchedWait); err != nil {
			return err
		}
	}
	if q.closed {
		return ErrQueueClosed
	}
	q.items = append(q.items, v)
	if t := q.notEmpty.WakeOne(); t != nil {
		t.state = StateReady
		c.Kernel().ready.push(t)
	}
	return nil
}

// Get removes and returns the head item, blocking until one is
// available. Once the queue is closed and drained, Get returns
// ErrQueueClosed.
func (q *Queue) Get(c *Context) (any, error) {
	for len(q.items) == 0 {
		if q.closed {
			return nil, ErrQueueClosed
		}
		if err := c.schedulerWait(&q.notEmpty, StateSchedWait); err != nil {
			return nil, err
		}
	}
	v := q.items[0]
	q.items = q.items[1:]
	if t := q.notFull.WakeOne(); t != nil {
		t.state = StateReady
		c.Kernel().ready.push(t)
	}
	return v, nil
}

// Shutdown closes the queue and wakes every waiter; queued-but-unread
// items remain retrievable by Get until drained, then Get starts
// returning ErrQueueClosed (the spec.md §9 Open Question on
// UniversalQueue.Shutdown resolved the same way here: in-flight items
// are delivered, only the channel itself is closed).
func (q *Queue) Shutdown(c *Context) {
	if q.closed {
		return
	}
	q.closed = true
	for _, t := range q.notEmpty.WakeAll() {
		t.state = StateReady
		c.Kernel().ready.push(t)
	}
	for _, t := range q.notFull.WakeAll() {
		t.state = StateReady
		c.Kernel().ready.push(t)
	}
}

// LifoQueue behaves like Queue but Get removes the most recently Put
// item (stack order) rather than the oldest.
type LifoQueue struct {
	Queue
}

// NewLifoQueue creates a LifoQueue. maxsize <= 0 means unbounded.
func NewLifoQueue(maxsize int) *LifoQueue {
	return &LifoQueue{Queue: Queue{maxsize: maxsize}}
}

// Get removes and returns the most recently Put item, blocking until one
// is available.
func (q *LifoQueue) Get(c *Context) (any, error) {
	for len(q.items) == 0 {
		if q.closed {
			return nil, ErrQueueClosed
		}
		if err := c.schedulerWait(&q.notEmpty, StateSchedWait); err != nil {
			return nil, err
		}
	}
	n := len(q.items) - 1
	v := q.items[n]
	q.items = q.items[:n]
	if t := q.notFull.WakeOne(); t != nil {
		t.state = StateReady
		c.Kernel().ready.push(t)
	}
	return v, nil
}

// priorityItem pairs a value with its priority for PriorityQueue's heap.
type priorityItem struct {
	value    any
	priority int64
}

type priorityHeap []priorityItem

func (h priorityHeap) Len() int            { return len(h) }
func (h priorityHeap) Less(i, j int) bool  { return h[i].priority < h[j].priority }
func (h priorityHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *priorityHeap) Push(x any)         { *h = append(*h, x.(priorityItem)) }
func (h *priorityHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// PriorityQueue is a min-priority-ordered blocking queue, grounded on
// spec.md §4.9's priority queue variant, implemented with container/heap
// the same way timerheap.go orders timer entries.
type PriorityQueue struct {
	items   priorityHeap
	maxsize int

	notEmpty WaitQueue
	notFull  WaitQueue

	closed bool
}

// NewPriorityQueue creates a PriorityQueue. maxsize <= 0 means unbounded.
func NewPriorityQueue(maxsize int) *PriorityQueue {
	return &PriorityQueue{maxsize: maxsize}
}

// Len reports the number of items currently queued.
func (q *PriorityQueue) Len() int { return q.items.Len() }

// Put inserts v with the given priority (lower values come out first),
// blocking if the queue is at capacity.
func (q *PriorityQueue) Put(c *Context, v any, priority int64) error {
	for q.maxsize > 0 && q.items.Len() >= q.maxsize {
		if q.closed {
			return ErrQueueClosed
		}
		if err := c.schedulerWait(&q.notFull, StateSchedWait); err != nil {
			return err
		}
	}
	if q.closed {
		return ErrQueueClosed
	}
	heap.Push(&q.items, priorityItem{value: v, priority: priority})
	if t := q.notEmpty.WakeOne(); t != nil {
		t.state = StateReady
		c.Kernel().ready.push(t)
	}
	return nil
}

// Get removes and returns the lowest-priority item, blocking until one is
// available.
func (q *PriorityQueue) Get(c *Context) (any, error) {
	for q.items.Len() == 0 {
		if q.closed {
			return nil, ErrQueueClosed
		}
		if err := c.schedulerWait(&q.notEmpty, StateSchedWait); err != nil {
			return nil, err
		}
	}
	item := heap.Pop(&q.items).(priorityItem)
	if t := q.notFull.WakeOne(); t != nil {
		t.state = StateReady
		c.Kernel().ready.push(t)
	}
	return item.value, nil
}

// Shutdown closes the queue and wakes every waiter.
func (q *PriorityQueue) Shutdown(c *Context) {
	if q.closed {
		return
	}
	q.closed = true
	for _, t := range q.notEmpty.WakeAll() {
		t.state = StateReady
		c.Kernel().ready.push(t)
	}
	for _, t := range q.notFull.WakeAll() {
		t.state = StateReady
		c.Kernel().ready.push(t)
	}
}

// UniversalQueue is a Queue that can also be fed from outside the kernel
// entirely — a foreign OS thread with no Context at all — for bridging
// blocking/thread-pool work back into the task world. PutFromThread and
// Shutdown deliver a value (or close signal) to a waiting Get the same
// way cross-thread work gets delivered into the single-threaded loop
// elsewhere in the kernel, just generalized from "schedule a callback" to
// "deliver a value".
type UniversalQueue struct {
	kernel *Kernel
	q      Queue
}

// NewUniversalQueue creates a UniversalQueue bound to k, so PutFromThread
// can safely reach into k's state from any goroutine.
func NewUniversalQueue(k *Kernel, maxsize int) *UniversalQueue {
	return &UniversalQueue{kernel: k, q: Queue{maxsize: maxsize}}
}

// Put appends v from within a task, identically to Queue.Put.
func (q *UniversalQueue) Put(c *Context, v any) error { return q.q.Put(c, v) }

// Get removes the head item, identically to Queue.Get.
func (q *UniversalQueue) Get(c *Context) (any, error) { return q.q.Get(c) }

// PutFromThread delivers v from a goroutine with no task Context at all.
// It is always accepted immediately (subject to the kernel eventually
// running); if the queue is bounded and full, the item is still queued
// rather than blocking the foreign thread, since there is no task to
// suspend on its behalf.
func (q *UniversalQueue) PutFromThread(v any) {
	q.kernel.ScheduleExternal(func(k *Kernel) {
		q.q.items = append(q.q.items, v)
		if t := q.q.notEmpty.WakeOne(); t != nil {
			t.state = StateReady
			k.ready.push(t)
		}
	})
}

// Shutdown closes the queue, safe to call from any goroutine.
func (q *UniversalQueue) Shutdown() {
	q.kernel.ScheduleExternal(func(k *Kernel) {
		if q.q.closed {
			return
		}
		q.q.closed = true
		for _, t := range q.q.notEmpty.WakeAll() {
			t.state = StateReady
			k.ready.push(t)
		}
		for _, t := range q.q.notFull.WakeAll() {
			t.state = StateReady
			k.ready.push(t)
		}
	})
}
