package objstore

import (
	"fmt"
	"sync"
	"time"

	"github.com/taskforge/ostore/lib/executor"
)

// --------------------------------------------------------------------------
// Store Implementation
// --------------------------------------------------------------------------

// Store is the worker-local in-memory object store. One mutex guards the
// entity table, the pending-request registry and the async-callback queue
// together; per-request state lives behind the waiter's own lock and user
// callbacks always run outside both.
type Store struct {
	refCounter            IRefCounter
	executor              IExecutor
	ownsExecutor          bool
	blockSignaler         IBlockSignaler
	checkSignals          func() error
	unhandledErrorHandler func(*Object)
	allocator             func(*Object, ObjectID) *Object

	checkSignalInterval time.Duration
	gracePeriod         time.Duration
	maxScanItems        int

	mu        sync.Mutex
	objects   map[ObjectID]*Object
	waiters   map[ObjectID][]*waiter
	asyncGets map[ObjectID][]func(*Object)

	numLocalObjects int64
	numInFallback   int64
	numLocalBytes   int64
}

var _ IObjectStore = (*Store)(nil)

// New creates a store from the given options. The zero Options value is
// valid; see Options for the defaults. The returned store must be closed
// when no longer needed.
func New(opts Options) *Store {
	s := &Store{
		refCounter:            opts.RefCounter,
		executor:              opts.Executor,
		blockSignaler:         opts.BlockSignaler,
		checkSignals:          opts.CheckSignals,
		unhandledErrorHandler: opts.UnhandledErrorHandler,
		allocator:             opts.Allocator,
		checkSignalInterval:   opts.CheckSignalInterval,
		gracePeriod:           opts.UnhandledErrorGracePeriod,
		maxScanItems:          opts.MaxUnhandledErrorScanItems,
		objects:               make(map[ObjectID]*Object),
		waiters:               make(map[ObjectID][]*waiter),
		asyncGets:             make(map[ObjectID][]func(*Object)),
	}

	if s.executor == nil {
		s.executor = executor.NewSerialExecutor()
		s.ownsExecutor = true
	}
	if s.checkSignalInterval <= 0 {
		s.checkSignalInterval = DefaultCheckSignalInterval
	}
	if s.gracePeriod <= 0 {
		s.gracePeriod = DefaultUnhandledErrorGracePeriod
	}
	if s.maxScanItems <= 0 {
		s.maxScanItems = DefaultMaxUnhandledErrorScanItems
	}

	return s
}

// Close releases store-owned resources. Only an executor created by New is
// stopped; an injected executor stays under the caller's control.
func (s *Store) Close() error {
	if s.ownsExecutor {
		if c, ok := s.executor.(*executor.SerialExecutor); ok {
			return c.Close()
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Write Path
// --------------------------------------------------------------------------

// Put makes obj visible under id. A second Put for the same id is a no-op,
// so the first write wins and stored objects are effectively immutable.
//
// All pending async callbacks and blocking waiters for id are served from
// this call. The object is retained in the table only if someone can still
// read it: with a reference-count oracle attached, retention follows
// HasReference; without one, a satisfied waiter that asked for removal
// suppresses the insert.
func (s *Store) Put(obj *Object, id ObjectID) bool {
	var entry *Object
	if s.allocator != nil {
		entry = s.allocator(obj, id)
	} else {
		entry = obj.Copy()
	}

	var callbacks []func(*Object)

	s.mu.Lock()
	if _, ok := s.objects[id]; ok {
		s.mu.Unlock()
		return true
	}

	if cbs, ok := s.asyncGets[id]; ok {
		callbacks = cbs
		delete(s.asyncGets, id)
	}

	shouldAddEntry := true
	for _, w := range s.waiters[id] {
		w.set(id, entry)
		// Without a reference-count oracle the object is consumed by the
		// removing read and must not linger in the table.
		if s.refCounter == nil && w.shouldRemoveObjects() {
			shouldAddEntry = false
		}
	}

	// Without a deletion callback from the oracle the entry would leak, so
	// an unreferenced object is never added in the first place.
	if s.refCounter != nil && !s.refCounter.HasReference(id) {
		shouldAddEntry = false
	}

	if shouldAddEntry {
		s.emplaceAndUpdateStats(id, entry)
	} else {
		// Equivalent to adding the object and deleting it immediately.
		s.onDelete(entry)
	}

	if len(callbacks) > 0 {
		entry.SetAccessed()
	}
	s.mu.Unlock()

	// Callbacks run on the executor, never under the store lock.
	if len(callbacks) > 0 {
		s.executor.Post(func() {
			for _, cb := range callbacks {
				cb(entry)
			}
		})
	}

	return true
}

// --------------------------------------------------------------------------
// Read Path
// --------------------------------------------------------------------------

// Get implements IObjectStore. A genuine error object aborts the wait early
// so the caller can surface the failure instead of blocking on the rest.
func (s *Store) Get(
	ids []ObjectID,
	numObjects int,
	timeout time.Duration,
	ctx WorkerContext,
	removeAfterGet bool,
) ([]*Object, error) {
	return s.getImpl(ids, numObjects, timeout, ctx, removeAfterGet, true, true)
}

// GetAll implements IObjectStore.
func (s *Store) GetAll(
	ids []ObjectID,
	timeout time.Duration,
	ctx WorkerContext,
) (map[ObjectID]*Object, bool, error) {
	results, err := s.Get(ids, len(ids), timeout, ctx, false)
	if err != nil {
		return nil, false, err
	}

	gotError := false
	found := make(map[ObjectID]*Object, len(ids))
	for i, obj := range results {
		if obj == nil {
			continue
		}
		found[ids[i]] = obj
		if obj.IsError() && !obj.IsInFallback() {
			gotError = true
		}
	}
	return found, gotError, nil
}

// GetIfExists implements IObjectStore.
func (s *Store) GetIfExists(id ObjectID) *Object {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[id]
	if !ok {
		return nil
	}
	obj.SetAccessed()
	return obj
}

// GetAsync implements IObjectStore.
func (s *Store) GetAsync(id ObjectID, callback func(*Object)) {
	var obj *Object

	s.mu.Lock()
	if o, ok := s.objects[id]; ok {
		obj = o
		obj.SetAccessed()
	} else {
		s.asyncGets[id] = append(s.asyncGets[id], callback)
	}
	s.mu.Unlock()

	if obj != nil {
		s.executor.Post(func() { callback(obj) })
	}
}

// getImpl is the shared blocking-read core of Get, GetAll and Wait.
//
// The result slice is positional to ids; duplicate ids resolve per
// position, and each resolved position counts toward numObjects. If not
// enough objects are resident, a waiter is registered for the missing ids
// and the call parks on it in sub-waits of at most checkSignalInterval so
// the signal hook stays responsive. A signal error reported in the same
// iteration as timeout expiry wins over the timeout.
func (s *Store) getImpl(
	ids []ObjectID,
	numObjects int,
	timeout time.Duration,
	ctx WorkerContext,
	removeAfterGet bool,
	abortOnError bool,
	atMostNumObjects bool,
) ([]*Object, error) {
	results := make([]*Object, len(ids))

	var w *waiter
	numFound := 0

	s.mu.Lock()
	remainingIDs := make(map[ObjectID]struct{})
	idsToRemove := make(map[ObjectID]struct{})
	existingHasError := false

	// First pass over the resident table.
	for i := 0; i < len(ids); i++ {
		if obj, ok := s.objects[ids[i]]; ok {
			obj.SetAccessed()
			results[i] = obj
			if removeAfterGet {
				// Removal is deferred past the scan: ids may repeat and
				// every occurrence must resolve against the live entry.
				idsToRemove[ids[i]] = struct{}{}
			}
			numFound++
			if abortOnError && obj.IsError() && !obj.IsInFallback() {
				existingHasError = true
			}
		} else {
			remainingIDs[ids[i]] = struct{}{}
		}
		// Only a readiness probe keeps scanning past the requested count.
		if numFound >= numObjects && atMostNumObjects {
			break
		}
	}

	if s.refCounter == nil {
		for id := range idsToRemove {
			s.eraseAndUpdateStats(id)
		}
	}

	// Satisfied already, or a resident error object short-circuits the
	// whole request.
	if len(remainingIDs) == 0 || numFound >= numObjects || existingHasError {
		s.mu.Unlock()
		return results, nil
	}

	required := numObjects - numFound
	w = newWaiter(remainingIDs, required, removeAfterGet, abortOnError)
	for id := range w.ids {
		s.waiters[id] = append(s.waiters[id], w)
	}
	s.mu.Unlock()

	shouldSignalBlock := s.blockSignaler != nil && ctx != nil &&
		ctx.ShouldReleaseResourcesOnBlockingCalls()

	var blockErr error
	if shouldSignalBlock {
		blockErr = s.blockSignaler.TaskBlocked()
	}

	done := false
	timedOut := false
	var signalErr error
	remaining := timeout
	iteration := s.checkSignalInterval
	if timeout >= 0 && timeout < iteration {
		iteration = timeout
	}

	for !timedOut && signalErr == nil {
		if done = w.wait(iteration); done {
			break
		}
		if s.checkSignals != nil {
			signalErr = s.checkSignals()
		}
		if remaining >= 0 {
			remaining -= iteration
			if remaining < iteration {
				iteration = remaining
			}
			timedOut = remaining <= 0
		}
	}

	if shouldSignalBlock {
		if err := s.blockSignaler.TaskUnblocked(); err != nil && blockErr == nil {
			blockErr = err
		}
	}

	s.mu.Lock()
	for i, id := range ids {
		if results[i] == nil {
			results[i] = w.get(id)
		}
	}
	s.deregisterWaiter(w)
	s.mu.Unlock()

	switch {
	case signalErr != nil:
		return nil, signalErr
	case done:
		return results, nil
	case blockErr != nil:
		return nil, NewError(RetCInternalError,
			fmt.Sprintf("block notification failed: %v", blockErr))
	default:
		// Partial results stay available so Wait can report what arrived
		// before the deadline.
		return results, NewError(RetCTimedOut, "timed out waiting for objects")
	}
}

// deregisterWaiter removes w from the pending-request registry, dropping
// registry entries that become empty. Caller holds the store lock.
func (s *Store) deregisterWaiter(w *waiter) {
	for id := range w.ids {
		regs, ok := s.waiters[id]
		if !ok {
			continue
		}
		for i, reg := range regs {
			if reg == w {
				regs = append(regs[:i], regs[i+1:]...)
				break
			}
		}
		if len(regs) == 0 {
			delete(s.waiters, id)
		} else {
			s.waiters[id] = regs
		}
	}
}

// --------------------------------------------------------------------------
// Wait
// --------------------------------------------------------------------------

// Wait implements IObjectStore. Unlike Get, an error object does not abort
// the wait (availability is the question, not the value), nothing is
// removed, and timeout expiry is reported through the result sets rather
// than an error.
func (s *Store) Wait(
	ids []ObjectID,
	numObjects int,
	timeout time.Duration,
	ctx WorkerContext,
) ([]ObjectID, []ObjectID, error) {
	results, err := s.getImpl(ids, numObjects, timeout, ctx, false, false, false)
	if err != nil && !IsTimedOut(err) {
		return nil, nil, err
	}

	var ready, inFallback []ObjectID
	for i, obj := range results {
		if obj == nil {
			continue
		}
		if obj.IsInFallback() {
			inFallback = append(inFallback, ids[i])
		} else if len(ready) < numObjects {
			ready = append(ready, ids[i])
		}
	}
	return ready, inFallback, nil
}

// --------------------------------------------------------------------------
// Deletion
// --------------------------------------------------------------------------

// Delete implements IObjectStore.
func (s *Store) Delete(ids []ObjectID) []ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fallbackIDs []ObjectID
	for _, id := range ids {
		obj, ok := s.objects[id]
		if !ok {
			continue
		}
		if obj.IsInFallback() {
			// The payload lives elsewhere; the caller deletes it there and
			// erases the sentinel afterwards.
			fallbackIDs = append(fallbackIDs, id)
			continue
		}
		s.onDelete(obj)
		s.eraseAndUpdateStats(id)
	}
	return fallbackIDs
}

// Erase implements IObjectStore.
func (s *Store) Erase(ids []ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		obj, ok := s.objects[id]
		if !ok {
			continue
		}
		s.onDelete(obj)
		s.eraseAndUpdateStats(id)
	}
}

// --------------------------------------------------------------------------
// Inspection
// --------------------------------------------------------------------------

// Contains implements IObjectStore.
func (s *Store) Contains(id ObjectID) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[id]
	if !ok {
		return false, false
	}
	return true, obj.IsInFallback()
}

// Stats implements IObjectStore.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StoreStats{
		NumLocalObjects: s.numLocalObjects,
		NumInFallback:   s.numInFallback,
		NumLocalBytes:   s.numLocalBytes,
	}
}

// --------------------------------------------------------------------------
// Unhandled Errors
// --------------------------------------------------------------------------

// isUnhandledError reports whether obj is a task failure nobody ever read.
// The fallback sentinel and actor-death records are excluded; they have
// their own surfacing paths.
func isUnhandledError(obj *Object) bool {
	t := obj.ErrorType()
	return (t == ErrTWorkerDied || t == ErrTTaskExecutionFailed) && !obj.WasAccessed()
}

// onDelete reports obj to the unhandled-error handler if it is about to
// disappear without ever having been read. Caller holds the store lock; the
// handler must not call back into the store.
func (s *Store) onDelete(obj *Object) {
	if s.unhandledErrorHandler != nil && isUnhandledError(obj) {
		s.unhandledErrorHandler(obj)
	}
}

// NotifyUnhandledErrors implements IObjectStore. Objects younger than the
// grace period are skipped so a caller that is just about to read its
// result does not trigger a spurious report; reported objects are marked
// accessed so each failure is surfaced at most once.
func (s *Store) NotifyUnhandledErrors() {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := time.Now().Add(-s.gracePeriod).UnixNano()
	count := 0
	for _, obj := range s.objects {
		if count >= s.maxScanItems {
			break
		}
		count++
		if s.unhandledErrorHandler != nil && obj.CreatedAt() < threshold &&
			isUnhandledError(obj) {
			// Marked accessed so the next sweep skips it.
			obj.SetAccessed()
			s.unhandledErrorHandler(obj)
		}
	}
}

// --------------------------------------------------------------------------
// Table Bookkeeping
// --------------------------------------------------------------------------

// emplaceAndUpdateStats inserts the entry and maintains the counters.
// Caller holds the store lock.
func (s *Store) emplaceAndUpdateStats(id ObjectID, obj *Object) {
	if _, ok := s.objects[id]; ok {
		return
	}
	s.objects[id] = obj
	if obj.IsInFallback() {
		s.numInFallback++
	} else {
		s.numLocalObjects++
		s.numLocalBytes += obj.Size()
	}
}

// eraseAndUpdateStats removes the entry and maintains the counters. A
// counter dropping below zero means the table and the stats diverged,
// which is unrecoverable. Caller holds the store lock.
func (s *Store) eraseAndUpdateStats(id ObjectID) {
	obj, ok := s.objects[id]
	if !ok {
		return
	}
	if obj.IsInFallback() {
		s.numInFallback--
	} else {
		s.numLocalObjects--
		s.numLocalBytes -= obj.Size()
	}
	if s.numInFallback < 0 || s.numLocalObjects < 0 || s.numLocalBytes < 0 {
		panic(fmt.Sprintf(
			"objstore: stats corrupted (local=%d fallback=%d bytes=%d)",
			s.numLocalObjects, s.numInFallback, s.numLocalBytes,
		))
	}
	delete(s.objects, id)
}
