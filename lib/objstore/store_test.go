package objstore

import (
	"bytes"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	s := New(opts)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// staticRefCounter answers HasReference from a fixed map.
type staticRefCounter struct {
	refs map[ObjectID]bool
}

func (c *staticRefCounter) HasReference(id ObjectID) bool {
	return c.refs[id]
}

// countingSignaler records block/unblock notifications.
type countingSignaler struct {
	blocked   atomic.Int32
	unblocked atomic.Int32
}

func (c *countingSignaler) TaskBlocked() error {
	c.blocked.Add(1)
	return nil
}

func (c *countingSignaler) TaskUnblocked() error {
	c.unblocked.Add(1)
	return nil
}

// releasingCtx is a worker context that allows resource release.
type releasingCtx struct{}

func (releasingCtx) ShouldReleaseResourcesOnBlockingCalls() bool { return true }

// --------------------------------------------------------------------------
// Basic Semantics
// --------------------------------------------------------------------------

// TestPutGetRoundTrip verifies a stored object comes back unchanged.
func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t, Options{})
	id := NewObjectID()
	data := []byte("hello object store")
	meta := []byte("meta")

	if !s.Put(NewObject(data, meta, nil), id) {
		t.Fatal("put failed")
	}

	results, err := s.Get([]ObjectID{id}, 1, Infinite, nil, false)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(results) != 1 || results[0] == nil {
		t.Fatal("expected one result")
	}
	if !bytes.Equal(results[0].Data(), data) {
		t.Errorf("data mismatch: got %q", results[0].Data())
	}
	if !bytes.Equal(results[0].Metadata(), meta) {
		t.Errorf("metadata mismatch: got %q", results[0].Metadata())
	}
}

// TestPutIdempotent verifies the first write wins.
func TestPutIdempotent(t *testing.T) {
	s := newTestStore(t, Options{})
	id := NewObjectID()

	s.Put(NewObject([]byte("first"), nil, nil), id)
	if !s.Put(NewObject([]byte("second"), nil, nil), id) {
		t.Fatal("duplicate put must still report success")
	}

	if exists, _ := s.Contains(id); !exists {
		t.Fatal("object should be resident")
	}
	obj := s.GetIfExists(id)
	if obj == nil || !bytes.Equal(obj.Data(), []byte("first")) {
		t.Fatalf("expected first write to win, got %q", obj.Data())
	}
}

// TestGetMissingNonBlocking verifies GetIfExists and Contains on absent ids.
func TestGetMissingNonBlocking(t *testing.T) {
	s := newTestStore(t, Options{})
	id := NewObjectID()

	if obj := s.GetIfExists(id); obj != nil {
		t.Fatal("expected nil for missing id")
	}
	if exists, inFallback := s.Contains(id); exists || inFallback {
		t.Fatal("missing id must report (false, false)")
	}
}

// --------------------------------------------------------------------------
// Blocking Reads
// --------------------------------------------------------------------------

// TestBlockingRendezvous verifies a read issued before the write blocks and
// is woken by it, with no lost wakeup.
func TestBlockingRendezvous(t *testing.T) {
	s := newTestStore(t, Options{})
	id := NewObjectID()
	data := []byte("late arrival")

	type getResult struct {
		results []*Object
		err     error
	}
	done := make(chan getResult, 1)
	go func() {
		results, err := s.Get([]ObjectID{id}, 1, Infinite, nil, false)
		done <- getResult{results, err}
	}()

	// Give the reader time to register its waiter.
	time.Sleep(50 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("get returned before put")
	default:
	}

	s.Put(NewObject(data, nil, nil), id)

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("get failed: %v", r.err)
		}
		if r.results[0] == nil || !bytes.Equal(r.results[0].Data(), data) {
			t.Fatalf("unexpected result %v", r.results[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("lost wakeup: get never returned after put")
	}
}

// TestGetTimeout verifies the timeout budget is honoured, roughly.
func TestGetTimeout(t *testing.T) {
	s := newTestStore(t, Options{})
	id := NewObjectID()

	start := time.Now()
	_, err := s.Get([]ObjectID{id}, 1, 50*time.Millisecond, nil, false)
	elapsed := time.Since(start)

	if !IsTimedOut(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed < 50*time.Millisecond {
		t.Errorf("returned after %v, before the budget expired", elapsed)
	}
	if elapsed > time.Second {
		t.Errorf("returned after %v, far beyond the budget", elapsed)
	}
}

// TestGetZeroTimeoutPolls verifies a zero timeout never blocks.
func TestGetZeroTimeoutPolls(t *testing.T) {
	s := newTestStore(t, Options{})
	id := NewObjectID()

	start := time.Now()
	_, err := s.Get([]ObjectID{id}, 1, 0, nil, false)
	if !IsTimedOut(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("poll took %v", elapsed)
	}
}

// TestGetPartialSatisfaction verifies a read returns as soon as the
// requested count is met, leaving unfound slots nil.
func TestGetPartialSatisfaction(t *testing.T) {
	s := newTestStore(t, Options{})
	idA := NewObjectID()
	idB := NewObjectID()
	s.Put(NewObject([]byte("answer"), nil, nil), idA)

	start := time.Now()
	results, err := s.Get([]ObjectID{idA, idB}, 1, time.Second, nil, false)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("get should return immediately, one object already satisfies it")
	}
	if results[0] == nil || !bytes.Equal(results[0].Data(), []byte("answer")) {
		t.Fatalf("slot 0 should hold the resident object, got %v", results[0])
	}
	if results[1] != nil {
		t.Fatal("slot 1 should stay nil")
	}
}

// TestGetDuplicateIDsCountIndividually verifies duplicate input ids each
// resolve and each count toward the requested number.
func TestGetDuplicateIDsCountIndividually(t *testing.T) {
	s := newTestStore(t, Options{})
	id := NewObjectID()
	s.Put(NewObject([]byte("dup"), nil, nil), id)

	results, err := s.Get([]ObjectID{id, id}, 2, time.Second, nil, false)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	for i, obj := range results {
		if obj == nil || !bytes.Equal(obj.Data(), []byte("dup")) {
			t.Fatalf("slot %d not resolved", i)
		}
	}
}

// TestGetAbortsOnResidentError verifies a resident error object
// short-circuits the read without waiting for the other ids.
func TestGetAbortsOnResidentError(t *testing.T) {
	s := newTestStore(t, Options{})
	idErr := NewObjectID()
	idMissing := NewObjectID()
	s.Put(NewErrorObject(ErrTTaskExecutionFailed, []byte("boom")), idErr)

	start := time.Now()
	results, err := s.Get([]ObjectID{idErr, idMissing}, 2, 5*time.Second, nil, false)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("resident error must abort the wait immediately")
	}
	if results[0] == nil || results[0].ErrorType() != ErrTTaskExecutionFailed {
		t.Fatal("slot 0 should hold the error object")
	}
}

// TestGetAbortsOnDeliveredError verifies an error object delivered during
// the wait aborts it early, while the fallback sentinel does not.
func TestGetAbortsOnDeliveredError(t *testing.T) {
	s := newTestStore(t, Options{})
	idFallback := NewObjectID()
	idErr := NewObjectID()
	idNever := NewObjectID()

	done := make(chan error, 1)
	go func() {
		_, err := s.Get([]ObjectID{idFallback, idErr, idNever}, 3, 5*time.Second, nil, false)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	// The sentinel satisfies one slot but must not abort the request.
	s.Put(NewFallbackObject(), idFallback)
	select {
	case <-done:
		t.Fatal("fallback sentinel aborted the wait")
	case <-time.After(100 * time.Millisecond):
	}

	s.Put(NewErrorObject(ErrTWorkerDied, nil), idErr)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error delivery did not abort the wait")
	}
}

// --------------------------------------------------------------------------
// Cancellation
// --------------------------------------------------------------------------

// TestGetCancellation verifies the signal hook interrupts an infinite wait
// and its error is propagated verbatim.
func TestGetCancellation(t *testing.T) {
	cancelErr := errors.New("interrupted")
	var cancelled atomic.Bool
	s := newTestStore(t, Options{
		CheckSignals: func() error {
			if cancelled.Load() {
				return cancelErr
			}
			return nil
		},
		CheckSignalInterval: 10 * time.Millisecond,
	})
	id := NewObjectID()

	done := make(chan error, 1)
	go func() {
		_, err := s.Get([]ObjectID{id}, 1, Infinite, nil, false)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancelled.Store(true)

	select {
	case err := <-done:
		if !errors.Is(err, cancelErr) {
			t.Fatalf("expected the signal error verbatim, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not interrupt the wait")
	}
}

// TestBlockSignalerNotified verifies block/unblock notifications bracket a
// parked read when the context allows releasing resources.
func TestBlockSignalerNotified(t *testing.T) {
	sig := &countingSignaler{}
	s := newTestStore(t, Options{BlockSignaler: sig})
	id := NewObjectID()

	_, err := s.Get([]ObjectID{id}, 1, 20*time.Millisecond, releasingCtx{}, false)
	if !IsTimedOut(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if sig.blocked.Load() != 1 || sig.unblocked.Load() != 1 {
		t.Fatalf("expected 1 blocked/1 unblocked, got %d/%d",
			sig.blocked.Load(), sig.unblocked.Load())
	}

	// A resident object must not trigger notifications at all.
	s.Put(NewObject([]byte("x"), nil, nil), id)
	if _, err := s.Get([]ObjectID{id}, 1, Infinite, releasingCtx{}, false); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if sig.blocked.Load() != 1 {
		t.Fatal("non-blocking get must not signal")
	}
}

// --------------------------------------------------------------------------
// Wait
// --------------------------------------------------------------------------

// TestWaitPartial verifies Wait returns once enough ids are ready without
// blocking on the rest.
func TestWaitPartial(t *testing.T) {
	s := newTestStore(t, Options{})
	id1 := NewObjectID()
	id2 := NewObjectID()
	id3 := NewObjectID()
	s.Put(NewObject([]byte("1"), nil, nil), id1)
	s.Put(NewObject([]byte("2"), nil, nil), id2)

	ready, inFallback, err := s.Wait([]ObjectID{id1, id2, id3}, 2, Infinite, nil)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if len(inFallback) != 0 {
		t.Fatalf("unexpected fallback ids %v", inFallback)
	}
	if len(ready) != 2 {
		t.Fatalf("expected 2 ready ids, got %v", ready)
	}
	for _, id := range ready {
		if id != id1 && id != id2 {
			t.Fatalf("unexpected ready id %v", id)
		}
	}
}

// TestWaitTimeoutReturnsPartialSet verifies timeout expiry is not an error
// and the ids ready so far are reported.
func TestWaitTimeoutReturnsPartialSet(t *testing.T) {
	s := newTestStore(t, Options{})
	id1 := NewObjectID()
	id2 := NewObjectID()
	s.Put(NewObject([]byte("1"), nil, nil), id1)

	ready, _, err := s.Wait([]ObjectID{id1, id2}, 2, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("wait must swallow timeouts, got %v", err)
	}
	if len(ready) != 1 || ready[0] != id1 {
		t.Fatalf("expected ready=[id1], got %v", ready)
	}
}

// TestWaitSplitsFallbackIDs verifies sentinel entries are reported
// separately and do not consume the ready budget.
func TestWaitSplitsFallbackIDs(t *testing.T) {
	s := newTestStore(t, Options{})
	idLocal := NewObjectID()
	idRemote := NewObjectID()
	s.Put(NewObject([]byte("local"), nil, nil), idLocal)
	s.Put(NewFallbackObject(), idRemote)

	ready, inFallback, err := s.Wait([]ObjectID{idLocal, idRemote}, 2, Infinite, nil)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if len(ready) != 1 || ready[0] != idLocal {
		t.Fatalf("expected ready=[local], got %v", ready)
	}
	if len(inFallback) != 1 || inFallback[0] != idRemote {
		t.Fatalf("expected fallback=[remote], got %v", inFallback)
	}
}

// TestWaitDoesNotAbortOnError verifies Wait treats error objects as ready
// instead of aborting; availability is the question, not the value.
func TestWaitDoesNotAbortOnError(t *testing.T) {
	s := newTestStore(t, Options{})
	idErr := NewObjectID()
	idMissing := NewObjectID()
	s.Put(NewErrorObject(ErrTWorkerDied, nil), idErr)

	ready, _, err := s.Wait([]ObjectID{idErr, idMissing}, 2, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if len(ready) != 1 || ready[0] != idErr {
		t.Fatalf("expected the error object to be ready, got %v", ready)
	}
}

// --------------------------------------------------------------------------
// GetAll / GetAsync
// --------------------------------------------------------------------------

// TestGetAll verifies the set-based read reports the got-error flag for
// genuine errors only.
func TestGetAll(t *testing.T) {
	s := newTestStore(t, Options{})
	idOK := NewObjectID()
	idFallback := NewObjectID()
	s.Put(NewObject([]byte("fine"), nil, nil), idOK)
	s.Put(NewFallbackObject(), idFallback)

	found, gotError, err := s.GetAll([]ObjectID{idOK, idFallback}, Infinite, nil)
	if err != nil {
		t.Fatalf("getall failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(found))
	}
	if gotError {
		t.Fatal("fallback sentinel must not set the error flag")
	}

	idErr := NewObjectID()
	s.Put(NewErrorObject(ErrTTaskExecutionFailed, nil), idErr)
	_, gotError, err = s.GetAll([]ObjectID{idOK, idErr}, Infinite, nil)
	if err != nil {
		t.Fatalf("getall failed: %v", err)
	}
	if !gotError {
		t.Fatal("genuine error object must set the error flag")
	}
}

// TestGetAsyncResident verifies a callback for a resident object fires.
func TestGetAsyncResident(t *testing.T) {
	s := newTestStore(t, Options{})
	id := NewObjectID()
	s.Put(NewObject([]byte("here"), nil, nil), id)

	got := make(chan *Object, 1)
	s.GetAsync(id, func(obj *Object) { got <- obj })

	select {
	case obj := <-got:
		if !bytes.Equal(obj.Data(), []byte("here")) {
			t.Fatalf("unexpected payload %q", obj.Data())
		}
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}

// TestGetAsyncPending verifies queued callbacks are served by the write, in
// registration order, exactly once each.
func TestGetAsyncPending(t *testing.T) {
	s := newTestStore(t, Options{})
	id := NewObjectID()

	got := make(chan int, 2)
	s.GetAsync(id, func(*Object) { got <- 1 })
	s.GetAsync(id, func(*Object) { got <- 2 })

	s.Put(NewObject([]byte("now"), nil, nil), id)

	for want := 1; want <= 2; want++ {
		select {
		case n := <-got:
			if n != want {
				t.Fatalf("callback %d fired out of order", n)
			}
		case <-time.After(time.Second):
			t.Fatalf("callback %d never fired", want)
		}
	}

	select {
	case n := <-got:
		t.Fatalf("callback %d fired twice", n)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestGetAsyncCallbackMayReenter verifies a callback calling back into the
// store does not deadlock.
func TestGetAsyncCallbackMayReenter(t *testing.T) {
	s := newTestStore(t, Options{})
	id := NewObjectID()
	next := NewObjectID()

	done := make(chan struct{})
	s.GetAsync(id, func(*Object) {
		s.Put(NewObject([]byte("chained"), nil, nil), next)
		close(done)
	})
	s.Put(NewObject([]byte("x"), nil, nil), id)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("re-entrant callback deadlocked")
	}
	if exists, _ := s.Contains(next); !exists {
		t.Fatal("re-entrant put was lost")
	}
}

// --------------------------------------------------------------------------
// Retention and Removal
// --------------------------------------------------------------------------

// TestRefCountGatedRetention verifies an unreferenced object is dropped on
// Put and, if unhandled, reported exactly once.
func TestRefCountGatedRetention(t *testing.T) {
	var reports atomic.Int32
	id := NewObjectID()
	s := newTestStore(t, Options{
		RefCounter:            &staticRefCounter{refs: map[ObjectID]bool{}},
		UnhandledErrorHandler: func(*Object) { reports.Add(1) },
	})

	s.Put(NewErrorObject(ErrTWorkerDied, nil), id)

	if exists, _ := s.Contains(id); exists {
		t.Fatal("unreferenced object must not be retained")
	}
	if n := reports.Load(); n != 1 {
		t.Fatalf("expected exactly one unhandled-error report, got %d", n)
	}
}

// TestRemoveAfterGet verifies removal semantics with and without a
// reference-count oracle.
func TestRemoveAfterGet(t *testing.T) {
	// Without an oracle the read consumes the object.
	s := newTestStore(t, Options{})
	id := NewObjectID()
	s.Put(NewObject([]byte("once"), nil, nil), id)

	if _, err := s.Get([]ObjectID{id}, 1, Infinite, nil, true); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if exists, _ := s.Contains(id); exists {
		t.Fatal("object should be removed after a consuming read")
	}

	// With an oracle the removal request is overridden.
	id2 := NewObjectID()
	s2 := newTestStore(t, Options{
		RefCounter: &staticRefCounter{refs: map[ObjectID]bool{id2: true}},
	})
	s2.Put(NewObject([]byte("kept"), nil, nil), id2)

	if _, err := s2.Get([]ObjectID{id2}, 1, Infinite, nil, true); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if exists, _ := s2.Contains(id2); !exists {
		t.Fatal("oracle-managed object must stay resident")
	}
}

// TestRendezvousWithRemoval verifies a consuming read satisfied by a
// concurrent write suppresses the table insert entirely.
func TestRendezvousWithRemoval(t *testing.T) {
	s := newTestStore(t, Options{})
	id := NewObjectID()

	done := make(chan struct{})
	go func() {
		defer close(done)
		results, err := s.Get([]ObjectID{id}, 1, Infinite, nil, true)
		if err != nil || results[0] == nil {
			t.Errorf("get failed: %v", err)
		}
	}()

	time.Sleep(50 * time.Millisecond)
	s.Put(NewObject([]byte("consumed in flight"), nil, nil), id)
	<-done

	if exists, _ := s.Contains(id); exists {
		t.Fatal("object consumed by an in-flight read must not be inserted")
	}
}

// TestDeleteSplitsFallbackIDs verifies Delete keeps sentinels and returns
// their ids, while Erase removes unconditionally.
func TestDeleteSplitsFallbackIDs(t *testing.T) {
	s := newTestStore(t, Options{})
	idLocal := NewObjectID()
	idRemote := NewObjectID()
	s.Put(NewObject([]byte("local"), nil, nil), idLocal)
	s.Put(NewFallbackObject(), idRemote)

	fallbackIDs := s.Delete([]ObjectID{idLocal, idRemote, NewObjectID()})
	if len(fallbackIDs) != 1 || fallbackIDs[0] != idRemote {
		t.Fatalf("expected [remote], got %v", fallbackIDs)
	}
	if exists, _ := s.Contains(idLocal); exists {
		t.Fatal("local object should be gone")
	}
	if exists, inFallback := s.Contains(idRemote); !exists || !inFallback {
		t.Fatal("sentinel must survive Delete")
	}

	s.Erase([]ObjectID{idRemote})
	if exists, _ := s.Contains(idRemote); exists {
		t.Fatal("sentinel must not survive Erase")
	}
}

// TestStatsTracking verifies the counters across inserts and removals.
func TestStatsTracking(t *testing.T) {
	s := newTestStore(t, Options{})
	idA := NewObjectID()
	idB := NewObjectID()
	s.Put(NewObject(make([]byte, 100), make([]byte, 10), nil), idA)
	s.Put(NewFallbackObject(), idB)

	stats := s.Stats()
	if stats.NumLocalObjects != 1 || stats.NumInFallback != 1 || stats.NumLocalBytes != 110 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	s.Erase([]ObjectID{idA, idB})
	stats = s.Stats()
	if stats.NumLocalObjects != 0 || stats.NumInFallback != 0 || stats.NumLocalBytes != 0 {
		t.Fatalf("expected zeroed stats, got %+v", stats)
	}
}

// --------------------------------------------------------------------------
// Unhandled Errors
// --------------------------------------------------------------------------

// TestUnhandledErrorSweep verifies never-read failures are reported only
// after the grace period and at most once.
func TestUnhandledErrorSweep(t *testing.T) {
	var reports atomic.Int32
	s := newTestStore(t, Options{
		UnhandledErrorHandler:     func(*Object) { reports.Add(1) },
		UnhandledErrorGracePeriod: 50 * time.Millisecond,
	})
	id := NewObjectID()
	s.Put(NewErrorObject(ErrTTaskExecutionFailed, nil), id)

	s.NotifyUnhandledErrors()
	if n := reports.Load(); n != 0 {
		t.Fatalf("reported before the grace period, count %d", n)
	}

	time.Sleep(100 * time.Millisecond)
	s.NotifyUnhandledErrors()
	if n := reports.Load(); n != 1 {
		t.Fatalf("expected one report after the grace period, got %d", n)
	}

	s.NotifyUnhandledErrors()
	if n := reports.Load(); n != 1 {
		t.Fatalf("sweep must not double-report, got %d", n)
	}
}

// TestAccessedErrorNotReported verifies a failure that was read does not
// count as unhandled, neither on sweep nor on deletion.
func TestAccessedErrorNotReported(t *testing.T) {
	var reports atomic.Int32
	s := newTestStore(t, Options{
		UnhandledErrorHandler:     func(*Object) { reports.Add(1) },
		UnhandledErrorGracePeriod: time.Nanosecond,
	})
	id := NewObjectID()
	s.Put(NewErrorObject(ErrTWorkerDied, nil), id)

	if _, err := s.Get([]ObjectID{id}, 1, Infinite, nil, false); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)
	s.NotifyUnhandledErrors()
	s.Delete([]ObjectID{id})
	if n := reports.Load(); n != 0 {
		t.Fatalf("read failure reported as unhandled %d times", n)
	}
}

// TestDeleteReportsUnhandledError verifies deletion of a never-read failure
// notifies the handler.
func TestDeleteReportsUnhandledError(t *testing.T) {
	var reports atomic.Int32
	s := newTestStore(t, Options{
		UnhandledErrorHandler: func(*Object) { reports.Add(1) },
	})
	id := NewObjectID()
	s.Put(NewErrorObject(ErrTTaskExecutionFailed, nil), id)

	s.Delete([]ObjectID{id})
	if n := reports.Load(); n != 1 {
		t.Fatalf("expected one report on delete, got %d", n)
	}
}

// TestActorDeathNotUnhandled verifies only task failures are classified as
// unhandled.
func TestActorDeathNotUnhandled(t *testing.T) {
	var reports atomic.Int32
	s := newTestStore(t, Options{
		UnhandledErrorHandler: func(*Object) { reports.Add(1) },
	})
	id := NewObjectID()
	s.Put(NewErrorObject(ErrTActorDied, nil), id)

	s.Delete([]ObjectID{id})
	if n := reports.Load(); n != 0 {
		t.Fatalf("actor death must not be reported, got %d", n)
	}
}

// --------------------------------------------------------------------------
// Allocator Hook
// --------------------------------------------------------------------------

// TestAllocatorHook verifies a custom allocator decides the stored record.
func TestAllocatorHook(t *testing.T) {
	s := newTestStore(t, Options{
		Allocator: func(obj *Object, id ObjectID) *Object {
			return NewObject([]byte("replaced"), nil, nil)
		},
	})
	id := NewObjectID()
	s.Put(NewObject([]byte("original"), nil, nil), id)

	obj := s.GetIfExists(id)
	if obj == nil || !bytes.Equal(obj.Data(), []byte("replaced")) {
		t.Fatalf("allocator result not stored, got %v", obj)
	}
}
