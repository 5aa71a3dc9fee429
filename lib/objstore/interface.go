package objstore

import (
	"errors"
	"fmt"
	"time"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IObjectStore is the interface of the worker-local in-memory object store.
// Objects are small, immutable and write-once; blocking reads rendezvous
// with concurrent writers. All blocking operations honour a timeout
// (Infinite blocks forever, 0 is a non-blocking poll) and the injected
// signal-check hook.
type IObjectStore interface {
	// Put makes the object visible under id exactly once. If the id is
	// already present the call is an idempotent no-op. Put never fails.
	Put(obj *Object, id ObjectID) bool

	// Get retrieves up to numObjects of the given ids, blocking until
	// enough are available or the timeout expires. The result slice is
	// positional: results[i] belongs to ids[i], nil if not retrieved.
	// Ids may contain duplicates; each position resolves independently.
	// If removeAfterGet is set and no reference-count oracle is attached,
	// retrieved objects are removed from the store.
	Get(ids []ObjectID, numObjects int, timeout time.Duration, ctx WorkerContext, removeAfterGet bool) ([]*Object, error)

	// GetAll retrieves all of the given (distinct) ids, blocking up to
	// timeout. It returns the found objects and whether any of them is a
	// genuine error object (the fallback sentinel does not count).
	GetAll(ids []ObjectID, timeout time.Duration, ctx WorkerContext) (map[ObjectID]*Object, bool, error)

	// GetIfExists returns the object for id if it is resident, else nil.
	// Never blocks.
	GetIfExists(id ObjectID) *Object

	// GetAsync invokes callback with the object for id exactly once: either
	// posted to the executor right away if the object is resident, or by
	// the future Put that stores it. The callback is never invoked while
	// the store lock is held.
	GetAsync(id ObjectID, callback func(*Object))

	// Wait blocks until numObjects of the given ids are available or the
	// timeout expires. A timeout is not an error: the call returns the ids
	// that became ready in time, and separately the ids whose payload
	// lives in the shared-memory fallback store.
	Wait(ids []ObjectID, numObjects int, timeout time.Duration, ctx WorkerContext) (ready []ObjectID, inFallback []ObjectID, err error)

	// Delete removes the given ids. Ids whose record is the fallback
	// sentinel are not removed but returned so the caller can delete them
	// from the fallback store. Missing ids are silently skipped.
	Delete(ids []ObjectID) (fallbackIDs []ObjectID)

	// Erase removes the given ids unconditionally, fallback sentinels
	// included. Missing ids are silently skipped.
	Erase(ids []ObjectID)

	// Contains reports whether id is present and whether the entry is the
	// fallback sentinel.
	Contains(id ObjectID) (exists bool, inFallback bool)

	// NotifyUnhandledErrors scans a bounded number of resident entries and
	// reports never-read task-failure objects older than the grace period
	// to the unhandled-error handler. Intended to be called periodically.
	NotifyUnhandledErrors()

	// Stats returns a snapshot of the store counters.
	Stats() StoreStats

	// Close releases store-owned resources.
	Close() error
}

// StoreStats is a snapshot of the store's bookkeeping counters.
type StoreStats struct {
	// Number of resident objects (fallback sentinels excluded)
	NumLocalObjects int64
	// Number of entries that are fallback sentinels
	NumInFallback int64
	// Total payload bytes of resident objects
	NumLocalBytes int64
}

// --------------------------------------------------------------------------
// Collaborator Interfaces (all consumed, injected via Options)
// --------------------------------------------------------------------------

// IRefCounter is the reference-count oracle. When attached, object retention
// and post-read removal are both gated on HasReference: an unreferenced
// object is dropped on Put, and removeAfterGet is ignored (the oracle's own
// release protocol decides deletion).
type IRefCounter interface {
	// HasReference reports whether any live handle still references id.
	HasReference(id ObjectID) bool
}

// IExecutor is the work queue used to run callbacks outside the store lock.
type IExecutor interface {
	// Post enqueues fn for asynchronous execution. It must not block on fn.
	Post(fn func())
}

// IBlockSignaler is notified around a blocking wait so an external
// scheduler can reclaim the caller's compute slot while it is parked.
type IBlockSignaler interface {
	// TaskBlocked signals that the calling task is about to block.
	TaskBlocked() error
	// TaskUnblocked signals that the calling task resumed.
	TaskUnblocked() error
}

// WorkerContext describes the execution context of a blocking caller.
// A nil WorkerContext never releases resources.
type WorkerContext interface {
	// ShouldReleaseResourcesOnBlockingCalls reports whether the caller's
	// compute slot may be handed back while it is parked.
	ShouldReleaseResourcesOnBlockingCalls() bool
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

const (
	// DefaultCheckSignalInterval bounds a single sub-wait so the signal
	// hook is polled at least this often during a blocking call.
	DefaultCheckSignalInterval = 100 * time.Millisecond

	// DefaultUnhandledErrorGracePeriod is how long an unread task-failure
	// object must be resident before the periodic sweep reports it.
	DefaultUnhandledErrorGracePeriod = 5 * time.Second

	// DefaultMaxUnhandledErrorScanItems caps the work of one sweep so a
	// store with many resident objects does not stall.
	DefaultMaxUnhandledErrorScanItems = 1000

	// Infinite disables the timeout budget of a blocking call.
	Infinite time.Duration = -1
)

// Options configures a store instance. The zero value is valid: no oracle,
// no signaler, no hooks, a default serial executor and default intervals.
type Options struct {
	// RefCounter is the optional reference-count oracle.
	RefCounter IRefCounter

	// Executor runs async callbacks. Nil means a store-owned serial
	// executor.
	Executor IExecutor

	// BlockSignaler is the optional blocking-notification collaborator.
	BlockSignaler IBlockSignaler

	// CheckSignals is polled between sub-waits of a blocking call. A
	// non-nil return aborts the wait and is propagated verbatim, taking
	// priority over a timeout in the same iteration.
	CheckSignals func() error

	// UnhandledErrorHandler is invoked with objects classified as
	// unhandled at deletion time or by the periodic sweep. Nil disables
	// the notification (a valid, silent configuration).
	UnhandledErrorHandler func(*Object)

	// Allocator constructs the record actually stored for a Put. Nil
	// means a deep copy of the input object.
	Allocator func(obj *Object, id ObjectID) *Object

	// CheckSignalInterval overrides DefaultCheckSignalInterval (0 = use
	// default).
	CheckSignalInterval time.Duration

	// UnhandledErrorGracePeriod overrides
	// DefaultUnhandledErrorGracePeriod (0 = use default).
	UnhandledErrorGracePeriod time.Duration

	// MaxUnhandledErrorScanItems overrides
	// DefaultMaxUnhandledErrorScanItems (0 = use default).
	MaxUnhandledErrorScanItems int
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCTimedOut:
		errorCode = "TimedOut"
	case RetCCancelled:
		errorCode = "Cancelled"
	case RetCInternalError:
		errorCode = "InternalError"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("ObjectStoreError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// IsTimedOut reports whether err is a store timeout.
func IsTimedOut(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == RetCTimedOut
}

// IsCancelled reports whether err is a store cancellation.
func IsCancelled(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == RetCCancelled
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess       RetCode = iota // 0: Operation completed successfully.
	RetCTimedOut                     // 1: Timeout budget exhausted before satisfaction.
	RetCCancelled                    // 2: External signal aborted the wait.
	RetCInternalError                // 3: Operation failed due to an internal error.
)
