// Package objstore implements the worker-local tier of the task runtime's
// object store: an in-memory table of small, immutable, write-once objects
// addressed by opaque ids, with blocking reads that rendezvous with
// concurrent writers.
//
// The package focuses on:
//   - A unified interface (IObjectStore) for the store operations, with
//     uniform timeout semantics (negative blocks forever, zero polls)
//   - Injectable collaborators for reference counting, blocking
//     notification, async callback execution and unhandled-error reporting
//
// Key Components:
//
//   - IObjectStore Interface: Put, blocking Get/GetAll/Wait, non-blocking
//     GetIfExists/Contains, GetAsync callbacks, Delete/Erase and counter
//     snapshots. All blocking operations poll an injected signal hook so
//     external cancellation interrupts a parked caller promptly.
//
//   - Object Record: the immutable stored value carrying data, metadata,
//     nested ids and an error classification. The special fallback
//     classification marks ids whose payload lives in the out-of-process
//     shared-memory store; such entries are sentinels, not failures.
//
//   - Error System: a structured error type with enumerated return codes
//     (TimedOut, Cancelled, InternalError) so callers can distinguish a
//     timeout from an external abort without string matching.
//
//   - Unhandled-Error Detection: task-failure objects that are deleted or
//     age past a grace period without ever being read are reported once to
//     a configurable handler, surfacing failures nobody awaited.
//
// Concurrency model: a single mutex guards the object table, the
// pending-request registry and the async-callback queue. Each in-flight
// blocking read synchronizes on its own lock, and user callbacks always run
// on the executor outside all store locks.
package objstore
