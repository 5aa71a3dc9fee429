package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/taskforge/ostore/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasIDs         uint16 = 1 << 0
	hasNumObjects  uint16 = 1 << 1
	hasTimeout     uint16 = 1 << 2
	hasRemove      uint16 = 1 << 3
	hasObjects     uint16 = 1 << 4
	hasOk          uint16 = 1 << 5
	hasInFallback  uint16 = 1 << 6
	hasReadyIDs    uint16 = 1 << 7
	hasFallbackIDs uint16 = 1 << 8
	hasStats       uint16 = 1 << 9
	hasErr         uint16 = 1 << 10
	hasMeta        uint16 = 1 << 11
	hasRetCode     uint16 = 1 << 12
)

// Per-object bit flags
const (
	objPresent     byte = 1 << 0
	objHasData     byte = 1 << 1
	objHasMetadata byte = 1 << 2
	objHasNested   byte = 1 << 3
)

// Header is 1 byte MsgType + 2 bytes flags
const headerSize = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	totalSize := b.sizeBytes(msg)
	result := make([]byte, totalSize)

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags
	var flags uint16 = 0

	// Set position for writing
	pos := headerSize

	// Handle IDs
	if msg.IDs != nil {
		flags |= hasIDs
		pos = writeRefList(result, pos, msg.IDs)
	}

	// Handle NumObjects
	if msg.NumObjects > 0 {
		flags |= hasNumObjects
		binary.BigEndian.PutUint32(result[pos:pos+4], msg.NumObjects)
		pos += 4
	}

	// Handle TimeoutMs (may be negative, so presence keys off non-zero)
	if msg.TimeoutMs != 0 {
		flags |= hasTimeout
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(msg.TimeoutMs))
		pos += 8
	}

	// Handle Remove
	if msg.Remove {
		flags |= hasRemove
		result[pos] = 1
		pos += 1
	}

	// Handle Objects
	if msg.Objects != nil {
		flags |= hasObjects
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Objects)))
		pos += 4
		for i := range msg.Objects {
			pos = writeObject(result, pos, &msg.Objects[i])
		}
	}

	// Handle Ok
	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}

	// Handle InFallback
	if msg.InFallback {
		flags |= hasInFallback
		result[pos] = 1
		pos += 1
	}

	// Handle ReadyIDs
	if msg.ReadyIDs != nil {
		flags |= hasReadyIDs
		pos = writeRefList(result, pos, msg.ReadyIDs)
	}

	// Handle FallbackIDs
	if msg.FallbackIDs != nil {
		flags |= hasFallbackIDs
		pos = writeRefList(result, pos, msg.FallbackIDs)
	}

	// Handle Stats counters
	if msg.NumLocal != 0 || msg.NumFallback != 0 || msg.NumBytes != 0 {
		flags |= hasStats
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(msg.NumLocal))
		pos += 8
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(msg.NumFallback))
		pos += 8
		binary.BigEndian.PutUint64(result[pos:pos+8], uint64(msg.NumBytes))
		pos += 8
	}

	// Handle RetCode
	if msg.RetCode != 0 {
		flags |= hasRetCode
		result[pos] = msg.RetCode
		pos += 1
	}

	// Handle Err
	if msg.Err != "" {
		flags |= hasErr
		errBytes := []byte(msg.Err)
		errLen := len(errBytes)

		// Write error length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(errLen))
		pos += 4

		// Write error data
		copy(result[pos:pos+errLen], errBytes)
		pos += errLen
	}

	// Handle Meta
	if msg.Meta != nil {
		flags |= hasMeta
		metaLen := len(msg.Meta)

		// Write meta length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(metaLen))
		pos += 4

		// Write meta data
		if metaLen > 0 {
			copy(result[pos:pos+metaLen], msg.Meta)
			pos += metaLen
		}
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:3], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type
	msg.MsgType = common.MessageType(data[0])

	// Read flags
	flags := binary.BigEndian.Uint16(data[1:3])

	// Initialize read position
	pos := headerSize
	var err error

	// Read IDs if present
	if flags&hasIDs != 0 {
		if msg.IDs, pos, err = readRefList(data, pos, "ids"); err != nil {
			return err
		}
	} else {
		msg.IDs = nil
	}

	// Read NumObjects if present
	if flags&hasNumObjects != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for NumObjects")
		}
		msg.NumObjects = binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4
	} else {
		msg.NumObjects = 0
	}

	// Read TimeoutMs if present
	if flags&hasTimeout != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for TimeoutMs")
		}
		msg.TimeoutMs = int64(binary.BigEndian.Uint64(data[pos : pos+8]))
		pos += 8
	} else {
		msg.TimeoutMs = 0
	}

	// Read Remove if present
	if flags&hasRemove != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Remove flag")
		}
		msg.Remove = data[pos] != 0
		pos += 1
	} else {
		msg.Remove = false
	}

	// Read Objects if present
	if flags&hasObjects != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for object count")
		}
		count := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		msg.Objects = make([]common.WireObject, count)
		for i := uint32(0); i < count; i++ {
			if pos, err = readObject(data, pos, &msg.Objects[i]); err != nil {
				return err
			}
		}
	} else {
		msg.Objects = nil
	}

	// Read Ok if present
	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Ok flag")
		}
		msg.Ok = data[pos] != 0
		pos += 1
	} else {
		msg.Ok = false
	}

	// Read InFallback if present
	if flags&hasInFallback != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for InFallback flag")
		}
		msg.InFallback = data[pos] != 0
		pos += 1
	} else {
		msg.InFallback = false
	}

	// Read ReadyIDs if present
	if flags&hasReadyIDs != 0 {
		if msg.ReadyIDs, pos, err = readRefList(data, pos, "ready ids"); err != nil {
			return err
		}
	} else {
		msg.ReadyIDs = nil
	}

	// Read FallbackIDs if present
	if flags&hasFallbackIDs != 0 {
		if msg.FallbackIDs, pos, err = readRefList(data, pos, "fallback ids"); err != nil {
			return err
		}
	} else {
		msg.FallbackIDs = nil
	}

	// Read Stats counters if present
	if flags&hasStats != 0 {
		if pos+24 > len(data) {
			return fmt.Errorf("data too short for stats counters")
		}
		msg.NumLocal = int64(binary.BigEndian.Uint64(data[pos : pos+8]))
		msg.NumFallback = int64(binary.BigEndian.Uint64(data[pos+8 : pos+16]))
		msg.NumBytes = int64(binary.BigEndian.Uint64(data[pos+16 : pos+24]))
		pos += 24
	} else {
		msg.NumLocal = 0
		msg.NumFallback = 0
		msg.NumBytes = 0
	}

	// Read RetCode if present
	if flags&hasRetCode != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for RetCode")
		}
		msg.RetCode = data[pos]
		pos += 1
	} else {
		msg.RetCode = 0
	}

	// Read Err if present
	if flags&hasErr != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for error length")
		}

		// Read error length
		errLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(errLen) > len(data) {
			return fmt.Errorf("data too short for error data")
		}

		// Read error data
		msg.Err = string(data[pos : pos+int(errLen)])
		pos += int(errLen)
	} else {
		msg.Err = ""
	}

	// Read Meta if present
	if flags&hasMeta != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for meta length")
		}

		// Read meta length
		metaLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(metaLen) > len(data) {
			return fmt.Errorf("data too short for meta data")
		}

		// Read metadata - create an empty slice (not nil) if length is 0
		// Allocate only if needed
		if msg.Meta == nil || cap(msg.Meta) < int(metaLen) {
			msg.Meta = make([]byte, metaLen)
		} else {
			msg.Meta = msg.Meta[:metaLen]
		}

		if metaLen > 0 {
			copy(msg.Meta, data[pos:pos+int(metaLen)])
		}
		pos += int(metaLen)
	} else {
		msg.Meta = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	// Add sizes for fields that require length encoding
	if msg.IDs != nil {
		size += refListSize(msg.IDs)
	}
	if msg.NumObjects > 0 {
		size += 4 // uint32
	}
	if msg.TimeoutMs != 0 {
		size += 8 // int64
	}
	if msg.Remove {
		size += 1 // 1 byte for boolean
	}
	if msg.Objects != nil {
		size += 4 // 4 bytes for object count
		for i := range msg.Objects {
			size += objectSize(&msg.Objects[i])
		}
	}
	if msg.Ok {
		size += 1 // 1 byte for boolean
	}
	if msg.InFallback {
		size += 1 // 1 byte for boolean
	}
	if msg.ReadyIDs != nil {
		size += refListSize(msg.ReadyIDs)
	}
	if msg.FallbackIDs != nil {
		size += refListSize(msg.FallbackIDs)
	}
	if msg.NumLocal != 0 || msg.NumFallback != 0 || msg.NumBytes != 0 {
		size += 24 // three int64 counters
	}
	if msg.RetCode != 0 {
		size += 1 // 1 byte return code
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err) // 4 bytes for length + error string
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta) // 4 bytes for length + meta bytes
	}

	return size
}

// refListSize returns the encoded size of an id list
func refListSize(refs []common.ObjectRef) int {
	size := 4 // 4 bytes for count
	for _, ref := range refs {
		size += 4 + len(ref) // 4 bytes for length + ref bytes
	}
	return size
}

// writeRefList encodes an id list at pos and returns the new position
func writeRefList(buf []byte, pos int, refs []common.ObjectRef) int {
	binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(refs)))
	pos += 4
	for _, ref := range refs {
		binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(ref)))
		pos += 4
		copy(buf[pos:pos+len(ref)], ref)
		pos += len(ref)
	}
	return pos
}

// readRefList decodes an id list at pos and returns it with the new position
func readRefList(data []byte, pos int, what string) ([]common.ObjectRef, int, error) {
	if pos+4 > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s count", what)
	}
	count := binary.BigEndian.Uint32(data[pos : pos+4])
	pos += 4

	refs := make([]common.ObjectRef, count)
	for i := uint32(0); i < count; i++ {
		if pos+4 > len(data) {
			return nil, pos, fmt.Errorf("data too short for %s length", what)
		}
		refLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(refLen) > len(data) {
			return nil, pos, fmt.Errorf("data too short for %s data", what)
		}
		refs[i] = make(common.ObjectRef, refLen)
		copy(refs[i], data[pos:pos+int(refLen)])
		pos += int(refLen)
	}
	return refs, pos, nil
}

// objectSize returns the encoded size of a single object payload
func objectSize(obj *common.WireObject) int {
	size := 2 // 1 byte object flags + 1 byte error type
	if obj.Data != nil {
		size += 4 + len(obj.Data)
	}
	if obj.Metadata != nil {
		size += 4 + len(obj.Metadata)
	}
	if obj.NestedIDs != nil {
		size += refListSize(obj.NestedIDs)
	}
	return size
}

// writeObject encodes a single object payload at pos and returns the new position
func writeObject(buf []byte, pos int, obj *common.WireObject) int {
	var flags byte = 0
	if obj.Present {
		flags |= objPresent
	}
	if obj.Data != nil {
		flags |= objHasData
	}
	if obj.Metadata != nil {
		flags |= objHasMetadata
	}
	if obj.NestedIDs != nil {
		flags |= objHasNested
	}
	buf[pos] = flags
	buf[pos+1] = obj.ErrType
	pos += 2

	if obj.Data != nil {
		binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(obj.Data)))
		pos += 4
		copy(buf[pos:pos+len(obj.Data)], obj.Data)
		pos += len(obj.Data)
	}
	if obj.Metadata != nil {
		binary.BigEndian.PutUint32(buf[pos:pos+4], uint32(len(obj.Metadata)))
		pos += 4
		copy(buf[pos:pos+len(obj.Metadata)], obj.Metadata)
		pos += len(obj.Metadata)
	}
	if obj.NestedIDs != nil {
		pos = writeRefList(buf, pos, obj.NestedIDs)
	}
	return pos
}

// readObject decodes a single object payload at pos and returns the new position
func readObject(data []byte, pos int, obj *common.WireObject) (int, error) {
	if pos+2 > len(data) {
		return pos, fmt.Errorf("data too short for object header")
	}
	flags := data[pos]
	obj.Present = flags&objPresent != 0
	obj.ErrType = data[pos+1]
	pos += 2

	if flags&objHasData != 0 {
		if pos+4 > len(data) {
			return pos, fmt.Errorf("data too short for object data length")
		}
		dataLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(dataLen) > len(data) {
			return pos, fmt.Errorf("data too short for object data")
		}
		obj.Data = make([]byte, dataLen)
		copy(obj.Data, data[pos:pos+int(dataLen)])
		pos += int(dataLen)
	} else {
		obj.Data = nil
	}

	if flags&objHasMetadata != 0 {
		if pos+4 > len(data) {
			return pos, fmt.Errorf("data too short for object metadata length")
		}
		metaLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(metaLen) > len(data) {
			return pos, fmt.Errorf("data too short for object metadata")
		}
		obj.Metadata = make([]byte, metaLen)
		copy(obj.Metadata, data[pos:pos+int(metaLen)])
		pos += int(metaLen)
	} else {
		obj.Metadata = nil
	}

	if flags&objHasNested != 0 {
		var err error
		if obj.NestedIDs, pos, err = readRefList(data, pos, "nested ids"); err != nil {
			return pos, err
		}
	} else {
		obj.NestedIDs = nil
	}

	return pos, nil
}
