package curio

import "container/heap"

// timerToken identifies a single push onto the timer heap. Cancelling a
// token bumps its liveness bit without touching the heap itself (O(1)), so
// pop_expired can lazily discard stale entries — spec.md §4.2.
type timerToken struct {
	seq uint64
	rec *timerRecord
}

// timerRecord is the shared, mutable liveness cell a token points at. The
// heap entry and the token both reference the same record; cancellation
// just flips live to false.
type timerRecord struct {
	live bool
	fire func()
}

// timerEntry is one (deadline, generation, record) row in the min-heap. The
// generation field breaks ties between entries sharing a deadline and
// pairs with the liveness cell so a cancelled timer can be discarded
// lazily rather than removed from the heap immediately.
type timerEntry struct {
	deadline   int64 // UnixNano, for heap ordering
	generation uint64
	rec        *timerRecord
}

// timerHeap is a min-heap over (deadline, generation) with insertion-order
// tie-breaking, matching spec.md's "Tie-break: insertion order (stable via
// generation)".
type timerHeap []timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline != h[j].deadline {
		return h[i].deadline < h[j].deadline
	}
	return h[i].generation < h[j].generation
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) { *h = append(*h, x.(timerEntry)) }

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = timerEntry{}
	*h = old[:n-1]
	return x
}

// timerWheel owns the heap and the generation counter used to mint tokens.
// Only ever touched from the kernel's run-loop goroutine.
type timerWheel struct {
	heap timerHeap
	gen  uint64
}

// push schedules fire to run at deadline and returns a token that can
// later be cancelled in O(1).
func (w *timerWheel) push(deadline int64, fire func()) timerToken {
	w.gen++
	rec := &timerRecord{live: true, fire: fire}
	heap.Push(&w.heap, timerEntry{deadline: deadline, generation: w.gen, rec: rec})
	return timerToken{seq: w.gen, rec: rec}
}

// cancel marks a token's entry dead; it is skipped (and lazily dropped) the
// next time popExpired walks past it.
func (w *timerWheel) cancel(tok timerToken) {
	tok.rec.live = false
}

// popExpired pops and fires every live entry whose deadline has passed,
// discarding dead entries as it goes.
func (w *timerWheel) popExpired(now int64) {
	for w.heap.Len() > 0 {
		top := w.heap[0]
		if !top.rec.live {
			heap.Pop(&w.heap)
			continue
		}
		if top.deadline > now {
			return
		}
		heap.Pop(&w.heap)
		top.rec.live = false
		if top.rec.fire != nil {
			top.rec.fire()
		}
	}
}

// nextDeadline reports the deadline of the earliest live entry. Dead
// entries found at the root on the way are popped from the heap, so the
// root it stops at is always live.
func (w *timerWheel) nextDeadline() (int64, bool) {
	for w.heap.Len() > 0 {
		if w.heap[0].rec.live {
			return w.heap[0].deadline, true
		}
		heap.Pop(&w.heap)
	}
	return 0, false
}

func (w *timerWheel) len() int { return w.heap.Len() }
