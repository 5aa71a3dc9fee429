package objstore

import (
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// Object Identifiers
// --------------------------------------------------------------------------

// ObjectIDSize is the fixed byte length of an ObjectID.
const ObjectIDSize = 16

// ObjectID is an opaque, globally unique identifier for a stored object.
// Equality and hashing are byte-wise, so ObjectID can be used directly
// as a map key.
type ObjectID [ObjectIDSize]byte

// NewObjectID generates a new random ObjectID.
//
// Thread-safety: This function is thread-safe and can be called concurrently.
func NewObjectID() ObjectID {
	return ObjectID(uuid.New())
}

// ObjectIDFromBytes converts a byte slice to an ObjectID.
// The slice must be exactly ObjectIDSize bytes long.
func ObjectIDFromBytes(b []byte) (ObjectID, error) {
	var id ObjectID
	if len(b) != ObjectIDSize {
		return id, fmt.Errorf("invalid object id length: %d (expected %d)", len(b), ObjectIDSize)
	}
	copy(id[:], b)
	return id, nil
}

// ObjectIDFromHex parses an ObjectID from its hex string representation.
func ObjectIDFromHex(s string) (ObjectID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return ObjectID{}, fmt.Errorf("invalid object id %q: %v", s, err)
	}
	return ObjectIDFromBytes(b)
}

// Bytes returns the id as a byte slice (a copy).
func (id ObjectID) Bytes() []byte {
	b := make([]byte, ObjectIDSize)
	copy(b, id[:])
	return b
}

// String returns the hex representation of the id.
func (id ObjectID) String() string {
	return hex.EncodeToString(id[:])
}

// --------------------------------------------------------------------------
// Error Classification
// --------------------------------------------------------------------------

// ErrorType classifies the payload of a stored object. Most objects carry
// ErrTNone. ErrTStoredInFallback is a sentinel meaning the real bytes live
// in the out-of-process shared-memory fallback store under the same id -
// it is not an application level failure.
type ErrorType uint8

const (
	ErrTNone              ErrorType = iota // Regular object, no error
	ErrTWorkerDied                         // The worker executing the task died
	ErrTTaskExecutionFailed                // The task raised during execution
	ErrTActorDied                          // The owning actor died
	ErrTStoredInFallback                   // Payload lives in the fallback store
)

func (t ErrorType) String() string {
	switch t {
	case ErrTNone:
		return "None"
	case ErrTWorkerDied:
		return "WorkerDied"
	case ErrTTaskExecutionFailed:
		return "TaskExecutionFailed"
	case ErrTActorDied:
		return "ActorDied"
	case ErrTStoredInFallback:
		return "StoredInFallback"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Object Record
// --------------------------------------------------------------------------

// Object is an immutable stored record. It is shared between the entity
// table, in-flight waiters and callers that retrieved it; the record is
// never mutated after construction except for the accessed flag, which may
// be set concurrently by any reader (idempotent atomic write).
type Object struct {
	data      []byte
	metadata  []byte
	nestedIDs []ObjectID
	errType   ErrorType
	transport string
	createdAt int64 // unix nanos, monotonic enough for the sweep grace period
	accessed  atomic.Bool
}

// NewObject creates a regular object record. The byte slices are NOT copied;
// use the store's default allocator (or Copy) when the caller retains the
// buffers.
func NewObject(data, metadata []byte, nestedIDs []ObjectID) *Object {
	return &Object{
		data:      data,
		metadata:  metadata,
		nestedIDs: nestedIDs,
		createdAt: time.Now().UnixNano(),
	}
}

// NewErrorObject creates an object record carrying an error classification.
// The data payload typically holds the serialized failure information.
func NewErrorObject(errType ErrorType, data []byte) *Object {
	return &Object{
		data:      data,
		errType:   errType,
		createdAt: time.Now().UnixNano(),
	}
}

// NewFallbackObject creates the "stored elsewhere" sentinel record: the real
// bytes live in the shared-memory fallback store under the same id.
func NewFallbackObject() *Object {
	return NewErrorObject(ErrTStoredInFallback, nil)
}

// Copy creates a deep copy of the record (fresh accessed flag and creation
// timestamp). This is the store's default allocator behaviour.
func (o *Object) Copy() *Object {
	data := make([]byte, len(o.data))
	copy(data, o.data)
	metadata := make([]byte, len(o.metadata))
	copy(metadata, o.metadata)
	nested := make([]ObjectID, len(o.nestedIDs))
	copy(nested, o.nestedIDs)

	return &Object{
		data:      data,
		metadata:  metadata,
		nestedIDs: nested,
		errType:   o.errType,
		transport: o.transport,
		createdAt: time.Now().UnixNano(),
	}
}

// WithTransport returns a shallow derivative of the record tagged with a
// device/tensor transport hint.
func (o *Object) WithTransport(transport string) *Object {
	// Built field by field: the accessed flag is an atomic and must not be
	// duplicated by a struct copy.
	c := &Object{
		data:      o.data,
		metadata:  o.metadata,
		nestedIDs: o.nestedIDs,
		errType:   o.errType,
		transport: transport,
		createdAt: o.createdAt,
	}
	if o.accessed.Load() {
		c.accessed.Store(true)
	}
	return c
}

// Data returns the data payload. Callers must not modify the returned slice.
func (o *Object) Data() []byte { return o.data }

// Metadata returns the metadata payload. Callers must not modify the
// returned slice.
func (o *Object) Metadata() []byte { return o.metadata }

// NestedIDs returns the ids of objects nested inside this one.
func (o *Object) NestedIDs() []ObjectID { return o.nestedIDs }

// Transport returns the optional device/tensor transport tag.
func (o *Object) Transport() string { return o.transport }

// ErrorType returns the error classification of the record.
func (o *Object) ErrorType() ErrorType { return o.errType }

// IsError reports whether the record carries any error classification,
// including the fallback sentinel.
func (o *Object) IsError() bool { return o.errType != ErrTNone }

// IsInFallback reports whether the record is the "stored elsewhere"
// sentinel.
func (o *Object) IsInFallback() bool { return o.errType == ErrTStoredInFallback }

// Size returns the byte size of the record's payloads.
func (o *Object) Size() int64 { return int64(len(o.data) + len(o.metadata)) }

// CreatedAt returns the creation timestamp in unix nanos.
func (o *Object) CreatedAt() int64 { return o.createdAt }

// SetAccessed marks the record as read at least once.
//
// Thread-safety: This method is thread-safe; concurrent writes are benign
// since the flag only ever transitions to true.
func (o *Object) SetAccessed() { o.accessed.Store(true) }

// WasAccessed reports whether the record was ever read.
func (o *Object) WasAccessed() bool { return o.accessed.Load() }
