package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	IDs        []ObjectRef `json:"ids,omitempty"`         // Used for: Put, Get, Wait, Delete, Erase, Contains
	NumObjects uint32      `json:"num_objects,omitempty"` // Used for: Get, Wait requests
	TimeoutMs  int64       `json:"timeout_ms,omitempty"`  // Used for: Get, Wait requests (-1 = infinite, 0 = poll)
	Remove     bool        `json:"remove,omitempty"`      // Used for: Get requests

	// Object payloads
	Objects []WireObject `json:"objects,omitempty"` // Used for: Put (request), Get (response)

	// Response only fields
	Ok          bool        `json:"ok,omitempty"`           // Used for: Put, Contains responses
	InFallback  bool        `json:"in_fallback,omitempty"`  // Used for: Contains responses
	ReadyIDs    []ObjectRef `json:"ready_ids,omitempty"`    // Used for: Wait, Delete responses
	FallbackIDs []ObjectRef `json:"fallback_ids,omitempty"` // Used for: Wait responses
	NumLocal    int64       `json:"num_local,omitempty"`    // Used for: Stats responses
	NumFallback int64       `json:"num_fallback,omitempty"` // Used for: Stats responses
	NumBytes    int64       `json:"num_bytes,omitempty"`    // Used for: Stats responses
	RetCode     uint8       `json:"ret_code,omitempty"`     // Store return code for Err (0 = not a store error)
	Err         string      `json:"err,omitempty"`          // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional Adapters
}

// ObjectRef is a raw object id on the wire (16 bytes, see lib/objstore).
type ObjectRef []byte

// WireObject is the serialized form of a stored object. A Get response
// carries one WireObject per requested id, in request order; ids the shard
// could not resolve before the timeout are marked absent via Present.
type WireObject struct {
	Present   bool        `json:"present,omitempty"`
	ErrType   uint8       `json:"err_type,omitempty"`
	Data      []byte      `json:"data,omitempty"`
	Metadata  []byte      `json:"metadata,omitempty"`
	NestedIDs []ObjectRef `json:"nested_ids,omitempty"`
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewPutRequest creates a new Put request
func NewPutRequest(id ObjectRef, obj WireObject) *Message {
	return &Message{
		MsgType: MsgTObjPut,
		IDs:     []ObjectRef{id},
		Objects: []WireObject{obj},
	}
}

// NewPutResponse creates a new Put response
func NewPutResponse(stored bool, err error) *Message {
	msg := &Message{
		MsgType: MsgTObjPut,
		Ok:      stored,
	}
	if err != nil {
		msg.Err = err.Error()
		msg.RetCode = RetCodeFromError(err)
	}
	return msg
}

// NewGetRequest creates a new Get request
func NewGetRequest(ids []ObjectRef, numObjects uint32, timeoutMs int64, remove bool) *Message {
	return &Message{
		MsgType:    MsgTObjGet,
		IDs:        ids,
		NumObjects: numObjects,
		TimeoutMs:  timeoutMs,
		Remove:     remove,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(objects []WireObject, err error) *Message {
	msg := &Message{
		MsgType: MsgTObjGet,
		Objects: objects,
	}
	if err != nil {
		msg.Err = err.Error()
		msg.RetCode = RetCodeFromError(err)
	}
	return msg
}

// NewWaitRequest creates a new Wait request
func NewWaitRequest(ids []ObjectRef, numObjects uint32, timeoutMs int64) *Message {
	return &Message{
		MsgType:    MsgTObjWait,
		IDs:        ids,
		NumObjects: numObjects,
		TimeoutMs:  timeoutMs,
	}
}

// NewWaitResponse creates a new Wait response
func NewWaitResponse(ready, inFallback []ObjectRef, err error) *Message {
	msg := &Message{
		MsgType:     MsgTObjWait,
		ReadyIDs:    ready,
		FallbackIDs: inFallback,
	}
	if err != nil {
		msg.Err = err.Error()
		msg.RetCode = RetCodeFromError(err)
	}
	return msg
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(ids []ObjectRef) *Message {
	return &Message{
		MsgType: MsgTObjDelete,
		IDs:     ids,
	}
}

// NewDeleteResponse creates a new Delete response. The returned ids are
// those the shard skipped because their payload lives in the fallback tier.
func NewDeleteResponse(fallbackIDs []ObjectRef, err error) *Message {
	msg := &Message{
		MsgType:     MsgTObjDelete,
		FallbackIDs: fallbackIDs,
	}
	if err != nil {
		msg.Err = err.Error()
		msg.RetCode = RetCodeFromError(err)
	}
	return msg
}

// NewEraseRequest creates a new Erase request
func NewEraseRequest(ids []ObjectRef) *Message {
	return &Message{
		MsgType: MsgTObjErase,
		IDs:     ids,
	}
}

// NewEraseResponse creates a new Erase response
func NewEraseResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTObjErase,
	}
	if err != nil {
		msg.Err = err.Error()
		msg.RetCode = RetCodeFromError(err)
	}
	return msg
}

// NewContainsRequest creates a new Contains request
func NewContainsRequest(id ObjectRef) *Message {
	return &Message{
		MsgType: MsgTObjContains,
		IDs:     []ObjectRef{id},
	}
}

// NewContainsResponse creates a new Contains response
func NewContainsResponse(exists, inFallback bool, err error) *Message {
	msg := &Message{
		MsgType:    MsgTObjContains,
		Ok:         exists,
		InFallback: inFallback,
	}
	if err != nil {
		msg.Err = err.Error()
		msg.RetCode = RetCodeFromError(err)
	}
	return msg
}

// NewStatsRequest creates a new Stats request
func NewStatsRequest() *Message {
	return &Message{
		MsgType: MsgTObjStats,
	}
}

// NewStatsResponse creates a new Stats response
func NewStatsResponse(numLocal, numFallback, numBytes int64, err error) *Message {
	msg := &Message{
		MsgType:     MsgTObjStats,
		NumLocal:    numLocal,
		NumFallback: numFallback,
		NumBytes:    numBytes,
	}
	if err != nil {
		msg.Err = err.Error()
		msg.RetCode = RetCodeFromError(err)
	}
	return msg
}

// NewCustomRequest creates a new Custom request
func NewCustomRequest(meta []byte) *Message {
	return &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
}

// NewCustomResponse creates a new Custom response
func NewCustomResponse(meta []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTCustom,
		Meta:    meta,
	}
	if err != nil {
		msg.Err = err.Error()
		msg.RetCode = RetCodeFromError(err)
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTObjPut:
		return "put"
	case MsgTObjGet:
		return "get"
	case MsgTObjWait:
		return "wait"
	case MsgTObjDelete:
		return "delete"
	case MsgTObjErase:
		return "erase"
	case MsgTObjContains:
		return "contains"
	case MsgTObjStats:
		return "stats"
	case MsgTCustom:
		return "custom"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "put":
		*t = MsgTObjPut
	case "get":
		*t = MsgTObjGet
	case "wait":
		*t = MsgTObjWait
	case "delete":
		*t = MsgTObjDelete
	case "erase":
		*t = MsgTObjErase
	case "contains":
		*t = MsgTObjContains
	case "stats":
		*t = MsgTObjStats
	case "custom":
		*t = MsgTCustom
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IObjectStore operations

	MsgTObjPut      // Store an object under an id
	MsgTObjGet      // Get objects by id, blocking until enough are present
	MsgTObjWait     // Wait for objects to become present without fetching
	MsgTObjDelete   // Delete objects, skipping fallback-tier entries
	MsgTObjErase    // Erase objects unconditionally
	MsgTObjContains // Check if an object is present
	MsgTObjStats    // Snapshot the shard's object counters

	// Custom operations

	MsgTCustom // Custom operation type
)
