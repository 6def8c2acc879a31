package curio

import "testing"

func TestWaitQueueFIFOOrder(t *testing.T) {
	var q WaitQueue
	a := &Task{id: 1}
	b := &Task{id: 2}
	c := &Task{id: 3}

	q.Suspend(a)
	q.Suspend(b)
	q.Suspend(c)

	if q.Len() != 3 {
		t.Fatalf("expected len 3, got %d", q.Len())
	}
	if got := q.WakeOne(); got != a {
		t.Fatalf("expected a woken first, got %v", got)
	}
	if got := q.WakeOne(); got != b {
		t.Fatalf("expected b woken second, got %v", got)
	}
	if got := q.WakeOne(); got != c {
		t.Fatalf("expected c woken third, got %v", got)
	}
	if got := q.WakeOne(); got != nil {
		t.Fatalf("expected nil on empty queue, got %v", got)
	}
}

func TestWaitQueueCancelWaitRemovesInPlace(t *testing.T) {
	var q WaitQueue
	a := &Task{id: 1}
	b := &Task{id: 2}
	c := &Task{id: 3}

	q.Suspend(a)
	q.Suspend(b)
	q.Suspend(c)

	if !q.CancelWait(b) {
		t.Fatal("expected CancelWait(b) to succeed")
	}
	if q.Len() != 2 {
		t.Fatalf("expected len 2 after cancelling b, got %d", q.Len())
	}
	if q.CancelWait(b) {
		t.Fatal("second CancelWait(b) must be a no-op")
	}

	if got := q.WakeOne(); got != a {
		t.Fatalf("expected a still head, got %v", got)
	}
	if got := q.WakeOne(); got != c {
		t.Fatalf("expected c next, b must have been skipped, got %v", got)
	}
}

func TestWaitQueueWakeAllPreservesOrder(t *testing.T) {
	var q WaitQueue
	tasks := []*Task{{id: 1}, {id: 2}, {id: 3}}
	for _, task := range tasks {
		q.Suspend(task)
	}

	woken := q.WakeAll()
	if len(woken) != 3 {
		t.Fatalf("expected 3 woken tasks, got %d", len(woken))
	}
	for i, task := range tasks {
		if woken[i] != task {
			t.Fatalf("WakeAll must preserve FIFO order, got %v", woken)
		}
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after WakeAll, got len %d", q.Len())
	}
}
