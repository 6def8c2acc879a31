package curio

import "testing"

func TestTimerHeapFiresInDeadlineOrder(t *testing.T) {
	var w timerWheel
	var fired []string

	w.push(300, func() { fired = append(fired, "c") })
	w.push(100, func() { fired = append(fired, "a") })
	w.push(200, func() { fired = append(fired, "b") })

	w.popExpired(250)
	if got := fired; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected [a b], got %v", fired)
	}

	w.popExpired(1000)
	if len(fired) != 3 || fired[2] != "c" {
		t.Fatalf("expected c to fire last, got %v", fired)
	}
}

func TestTimerHeapCancelIsLazy(t *testing.T) {
	var w timerWheel
	fired := false

	tok := w.push(100, func() { fired = true })
	w.cancel(tok)

	if n := w.len(); n != 1 {
		t.Fatalf("cancel must not eagerly remove the heap entry, len=%d", n)
	}

	w.popExpired(200)
	if fired {
		t.Fatal("cancelled timer must not fire")
	}
	if n := w.len(); n != 0 {
		t.Fatalf("popExpired must sweep the dead entry, len=%d", n)
	}
}

func TestTimerHeapTieBreaksByInsertionOrder(t *testing.T) {
	var w timerWheel
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		w.push(500, func() { order = append(order, i) })
	}
	w.popExpired(500)

	for i, v := range order {
		if v != i {
			t.Fatalf("expected insertion-order tie-break, got %v", order)
		}
	}
}

func TestTimerHeapNextDeadlineSkipsDeadEntries(t *testing.T) {
	var w timerWheel

	tok := w.push(100, func() {})
	w.push(200, func() {})
	w.cancel(tok)

	d, ok := w.nextDeadline()
	if !ok || d != 200 {
		t.Fatalf("expected next live deadline 200, got (%d, %v)", d, ok)
	}
}
