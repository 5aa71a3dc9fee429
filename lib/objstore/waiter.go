package objstore

import (
	"fmt"
	"sync"
	"time"
)

// --------------------------------------------------------------------------
// Blocking Read Request
// --------------------------------------------------------------------------

// waiter tracks one in-flight blocking read until enough of its ids have
// been delivered. It is registered in the store's pending-request registry
// under every id it waits for and fed by concurrent Put calls via set.
//
// Thread-safety: waiter carries its own lock so writers deliver objects
// without holding the store lock longer than the registry lookup. The store
// lock and the waiter lock are never held at the same time by the waiting
// goroutine; writers take them in store-then-waiter order only.
type waiter struct {
	ids            map[ObjectID]struct{}
	required       int
	removeAfterGet bool
	abortOnError   bool

	mu      sync.Mutex
	ready   bool
	readyCh chan struct{}
	objects map[ObjectID]*Object
}

// newWaiter creates a request for the given id set. required is the number
// of deliveries that satisfies the request and can never exceed the number
// of distinct ids.
func newWaiter(ids map[ObjectID]struct{}, required int, removeAfterGet, abortOnError bool) *waiter {
	if required > len(ids) {
		panic(fmt.Sprintf("objstore: waiter requires %d objects but waits for only %d ids", required, len(ids)))
	}
	return &waiter{
		ids:            ids,
		required:       required,
		removeAfterGet: removeAfterGet,
		abortOnError:   abortOnError,
		readyCh:        make(chan struct{}),
		objects:        make(map[ObjectID]*Object, len(ids)),
	}
}

// set delivers an object to the request. Deliveries after satisfaction are
// dropped. The object is marked accessed on delivery, so a value consumed
// through a waiter never counts as unhandled later.
//
// The request becomes satisfied when required deliveries arrived, or
// immediately when abortOnError is set and the object is a genuine error
// (the fallback sentinel does not abort).
func (w *waiter) set(id ObjectID, obj *Object) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ready {
		return
	}

	obj.SetAccessed()
	w.objects[id] = obj

	if len(w.objects) >= w.required ||
		(w.abortOnError && obj.IsError() && !obj.IsInFallback()) {
		w.ready = true
		close(w.readyCh)
	}
}

// get returns the delivered object for id, or nil.
func (w *waiter) get(id ObjectID) *Object {
	w.mu.Lock()
	defer w.mu.Unlock()
	obj, ok := w.objects[id]
	if !ok {
		return nil
	}
	obj.SetAccessed()
	return obj
}

// wait blocks until the request is satisfied or the timeout expires, and
// reports satisfaction. A negative timeout blocks indefinitely, zero is a
// non-blocking poll.
func (w *waiter) wait(timeout time.Duration) bool {
	if timeout < 0 {
		<-w.readyCh
		return true
	}
	if timeout == 0 {
		select {
		case <-w.readyCh:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.readyCh:
		return true
	case <-timer.C:
		// Satisfaction may have raced the timer.
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.ready
	}
}

// shouldRemoveObjects reports whether the issuing read asked for removal of
// retrieved objects.
func (w *waiter) shouldRemoveObjects() bool {
	return w.removeAfterGet
}
