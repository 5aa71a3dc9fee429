package common

import (
	"errors"
	"time"

	"github.com/taskforge/ostore/lib/objstore"
)

// --------------------------------------------------------------------------
// Wire Conversion Helpers
// --------------------------------------------------------------------------

// TimeoutFromMs maps a wire timeout (-1 infinite, 0 poll) to a duration
func TimeoutFromMs(ms int64) time.Duration {
	if ms < 0 {
		return objstore.Infinite
	}
	return time.Duration(ms) * time.Millisecond
}

// TimeoutToMs maps a duration to its wire form (-1 infinite, 0 poll)
func TimeoutToMs(timeout time.Duration) int64 {
	if timeout < 0 {
		return -1
	}
	return timeout.Milliseconds()
}

// RetCodeFromError maps a store error to its wire return code. Errors that
// are not store errors map to 0 so the client reports them verbatim.
func RetCodeFromError(err error) uint8 {
	var e *objstore.Error
	if errors.As(err, &e) {
		return uint8(e.Code)
	}
	return 0
}

// ErrorFromWire rebuilds the error carried by a response. A non-zero return
// code restores the store error type, so IsTimedOut and IsCancelled keep
// working across the wire.
func ErrorFromWire(retCode uint8, msg string) error {
	if retCode != 0 {
		return objstore.NewError(objstore.RetCode(retCode), msg)
	}
	return errors.New(msg)
}

// IDsFromRefs converts raw wire ids into ObjectIDs
func IDsFromRefs(refs []ObjectRef) ([]objstore.ObjectID, error) {
	ids := make([]objstore.ObjectID, len(refs))
	for i, ref := range refs {
		id, err := objstore.ObjectIDFromBytes(ref)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// RefsFromIDs converts ObjectIDs into raw wire ids
func RefsFromIDs(ids []objstore.ObjectID) []ObjectRef {
	refs := make([]ObjectRef, len(ids))
	for i, id := range ids {
		refs[i] = id.Bytes()
	}
	return refs
}

// FromWireObject builds a store record from its wire form
func FromWireObject(wire *WireObject) (*objstore.Object, error) {
	if wire.ErrType != 0 {
		return objstore.NewErrorObject(objstore.ErrorType(wire.ErrType), wire.Data), nil
	}
	nested, err := IDsFromRefs(wire.NestedIDs)
	if err != nil {
		return nil, err
	}
	return objstore.NewObject(wire.Data, wire.Metadata, nested), nil
}

// ToWireObject converts a store record to its wire form. A nil record maps
// to an absent slot.
func ToWireObject(obj *objstore.Object) WireObject {
	if obj == nil {
		return WireObject{}
	}
	return WireObject{
		Present:   true,
		ErrType:   uint8(obj.ErrorType()),
		Data:      obj.Data(),
		Metadata:  obj.Metadata(),
		NestedIDs: RefsFromIDs(obj.NestedIDs()),
	}
}
