package objstore

import (
	"testing"
	"time"
)

func idSet(ids ...ObjectID) map[ObjectID]struct{} {
	set := make(map[ObjectID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// TestWaiterSatisfiedByDeliveries verifies the waiter wakes once the
// required count is reached and deliveries are marked accessed.
func TestWaiterSatisfiedByDeliveries(t *testing.T) {
	id1 := NewObjectID()
	id2 := NewObjectID()
	w := newWaiter(idSet(id1, id2), 2, false, false)

	if w.wait(0) {
		t.Fatal("fresh waiter must not report ready")
	}

	obj1 := NewObject([]byte("1"), nil, nil)
	w.set(id1, obj1)
	if w.wait(0) {
		t.Fatal("one of two deliveries must not satisfy the waiter")
	}

	w.set(id2, NewObject([]byte("2"), nil, nil))
	if !w.wait(0) {
		t.Fatal("waiter should be satisfied")
	}
	if !obj1.WasAccessed() {
		t.Fatal("delivery must mark the object accessed")
	}
	if got := w.get(id1); got == nil {
		t.Fatal("delivered object lost")
	}
}

// TestWaiterTimeout verifies the bounded wait returns false on expiry.
func TestWaiterTimeout(t *testing.T) {
	id := NewObjectID()
	w := newWaiter(idSet(id), 1, false, false)

	start := time.Now()
	if w.wait(30 * time.Millisecond) {
		t.Fatal("waiter should time out")
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("returned after %v, before expiry", elapsed)
	}
}

// TestWaiterWakesBlockedCaller verifies a parked wait is woken by a
// concurrent delivery.
func TestWaiterWakesBlockedCaller(t *testing.T) {
	id := NewObjectID()
	w := newWaiter(idSet(id), 1, false, false)

	done := make(chan bool, 1)
	go func() { done <- w.wait(-1) }()

	time.Sleep(20 * time.Millisecond)
	w.set(id, NewObject([]byte("x"), nil, nil))

	select {
	case ok := <-done:
		if !ok {
			t.Fatal("infinite wait returned unsatisfied")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("delivery did not wake the waiter")
	}
}

// TestWaiterAbortsOnError verifies an error delivery satisfies an aborting
// waiter early, while the fallback sentinel never does.
func TestWaiterAbortsOnError(t *testing.T) {
	id1 := NewObjectID()
	id2 := NewObjectID()
	w := newWaiter(idSet(id1, id2), 2, false, true)

	w.set(id1, NewFallbackObject())
	if w.wait(0) {
		t.Fatal("fallback sentinel must not abort the waiter")
	}

	w.set(id2, NewErrorObject(ErrTWorkerDied, nil))
	if !w.wait(0) {
		t.Fatal("error delivery must abort the waiter")
	}
}

// TestWaiterDropsLateDeliveries verifies deliveries after satisfaction are
// ignored.
func TestWaiterDropsLateDeliveries(t *testing.T) {
	id1 := NewObjectID()
	id2 := NewObjectID()
	w := newWaiter(idSet(id1, id2), 1, false, false)

	w.set(id1, NewObject([]byte("first"), nil, nil))
	if !w.wait(0) {
		t.Fatal("waiter should be satisfied")
	}

	late := NewObject([]byte("late"), nil, nil)
	w.set(id2, late)
	if w.get(id2) != nil {
		t.Fatal("late delivery must be dropped")
	}
	if late.WasAccessed() {
		t.Fatal("late delivery must not be marked accessed")
	}
}

// TestWaiterRejectsImpossibleRequirement verifies the constructor refuses a
// required count larger than the id set.
func TestWaiterRejectsImpossibleRequirement(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	newWaiter(idSet(NewObjectID()), 2, false, false)
}
