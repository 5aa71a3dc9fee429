// Package executor provides the work-queue collaborator consumed by the
// object store: closures posted from any goroutine run one after another on
// a single consumer goroutine.
//
// Features and Guarantees:
//
//   - Lock-Free enqueue: atomic operations for high throughput even when
//     many goroutines post concurrently
//   - Unbounded Size: the queue can grow as needed, limited only by memory
//   - Serial execution: tasks never run concurrently with each other, so
//     callbacks posted by the store need no synchronization among themselves
//   - No Strict FIFO Guarantee across producers: under concurrent Post()
//     calls the ordering is determined by which producer completes its
//     enqueue first. Tasks from a single producer run in post order.
package executor

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// IExecutor runs posted closures asynchronously.
type IExecutor interface {
	// Post enqueues fn for execution. It must not block on fn.
	Post(fn func())
}

// task is a single queued closure.
type task struct {
	fn   func()
	next atomic.Pointer[task]
}

// SerialExecutor is an unbounded multi-producer single-consumer task queue.
// Producers enqueue with atomic operations on a linked list; one consumer
// goroutine pops and runs the closures.
type SerialExecutor struct {
	head atomic.Pointer[task]
	tail atomic.Pointer[task]

	closed   atomic.Bool
	consumer sync.WaitGroup

	// Condition variable for efficient waiting when the queue runs dry
	mu   sync.Mutex
	cond *sync.Cond
}

var _ IExecutor = (*SerialExecutor)(nil)

// NewSerialExecutor creates a running executor.
func NewSerialExecutor() *SerialExecutor {
	// Sentinel node so producers never race on an empty list head
	sentinel := &task{}

	e := &SerialExecutor{}
	e.cond = sync.NewCond(&e.mu)
	e.head.Store(sentinel)
	e.tail.Store(sentinel)

	e.consumer.Add(1)
	go e.run()

	return e
}

// Post enqueues fn for execution. Posts after Close are dropped.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (e *SerialExecutor) Post(fn func()) {
	if fn == nil || e.closed.Load() {
		return
	}

	newTask := &task{fn: fn}

	var backoff uint8 = 0
	for {
		tailTask := e.tail.Load()

		next := tailTask.next.Load()
		if next == nil {
			// the tail has no next node yet, try to append our task
			if tailTask.next.CompareAndSwap(nil, newTask) {
				/*
				 Successfully appended, now try to update tail.
				 Note: CAS may fail if another producer helps update tail,
				 but that's okay - tail will still be updated eventually
				*/
				e.tail.CompareAndSwap(tailTask, newTask)

				/*
				 Signal the consumer that new work is available. The lock
				 pairs the signal with the consumer's empty-check: without
				 it the signal can fire between the consumer seeing an
				 empty queue and parking in Wait, and is then lost.
				*/
				e.mu.Lock()
				e.cond.Signal()
				e.mu.Unlock()
				return
			}
		} else {
			// help update the tail pointer if another producer has already
			// appended a task but hasn't updated the tail yet
			e.tail.CompareAndSwap(tailTask, next)
		}

		/*
		 Exponential backoff under contention:
		  - at low contention spin to avoid scheduling overhead
		  - at higher contention yield so other goroutines make progress
		*/
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

// run pops and executes tasks until the executor is closed and drained.
func (e *SerialExecutor) run() {
	defer e.consumer.Done()

	for {
		hasTasks := false

		for {
			head := e.head.Load()
			next := head.next.Load()

			if next == nil {
				break // queue is drained
			}

			hasTasks = true
			fn := next.fn

			// move head pointer (free up memory)
			e.head.Store(next)

			fn()

			// help go gc - safe to clear after execution
			next.fn = nil
		}

		// Exit if closed and no more tasks
		if !hasTasks && e.closed.Load() {
			return
		}

		if !hasTasks {
			e.mu.Lock()
			// Double-check condition after acquiring lock
			head := e.head.Load()
			if head.next.Load() == nil && !e.closed.Load() {
				// Wait for signal (releases lock while waiting)
				e.cond.Wait()
			}
			e.mu.Unlock()
		}
	}
}

// Close stops the executor, rejecting further posts. Tasks already enqueued
// still run; Close returns once the consumer has drained them all.
func (e *SerialExecutor) Close() error {
	e.closed.Store(true)

	// Wake up the consumer if it's waiting (locked for the same
	// check-to-wait window as in Post)
	e.mu.Lock()
	e.cond.Signal()
	e.mu.Unlock()

	e.consumer.Wait()
	return nil
}

// IsClosed returns true if the executor no longer accepts tasks.
func (e *SerialExecutor) IsClosed() bool {
	return e.closed.Load()
}

// Len returns an approximate count of the queued tasks.
// This is O(n) and should only be used for debugging.
func (e *SerialExecutor) Len() int {
	count := 0
	current := e.head.Load()

	for {
		next := current.next.Load()
		if next == nil {
			break
		}
		count++
		current = next
	}

	return count
}
