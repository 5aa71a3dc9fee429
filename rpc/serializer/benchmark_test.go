package serializer

import (
	"testing"

	"github.com/taskforge/ostore/rpc/common"
)

// benchmarkMessages returns a set of messages for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	return map[string]common.Message{
		"Empty": {
			MsgType: common.MsgTSuccess,
		},
		"SingleIDGet": {
			MsgType:    common.MsgTObjGet,
			IDs:        []common.ObjectRef{testID(1)},
			NumObjects: 1,
			TimeoutMs:  1000,
		},
		"ManyIDWait": {
			MsgType: common.MsgTObjWait,
			IDs: []common.ObjectRef{
				testID(1), testID(2), testID(3), testID(4),
				testID(5), testID(6), testID(7), testID(8),
			},
			NumObjects: 4,
			TimeoutMs:  -1,
		},
		"SmallObject": {
			MsgType: common.MsgTObjPut,
			IDs:     []common.ObjectRef{testID(1)},
			Objects: []common.WireObject{
				{Present: true, Data: []byte("v")},
			},
		},
		"MediumObject": {
			MsgType: common.MsgTObjPut,
			IDs:     []common.ObjectRef{testID(1)},
			Objects: []common.WireObject{
				{
					Present:  true,
					Data:     []byte("medium length value for testing serialization"),
					Metadata: []byte("metadata"),
				},
			},
		},
		"LargeObject": {
			MsgType: common.MsgTObjPut,
			IDs:     []common.ObjectRef{testID(1)},
			Objects: []common.WireObject{
				{Present: true, Data: make([]byte, 1024)}, // 1KB of data
			},
		},
		"VeryLargeObject": {
			MsgType: common.MsgTObjPut,
			IDs:     []common.ObjectRef{testID(1)},
			Objects: []common.WireObject{
				{Present: true, Data: make([]byte, 1024*16)}, // 16KB of data
			},
		},
		"NestedObject": {
			MsgType: common.MsgTObjPut,
			IDs:     []common.ObjectRef{testID(1)},
			Objects: []common.WireObject{
				{
					Present:   true,
					Data:      []byte("task return value"),
					NestedIDs: []common.ObjectRef{testID(2), testID(3), testID(4)},
				},
			},
		},
		"StatsResponse": {
			MsgType:     common.MsgTObjStats,
			NumLocal:    100000,
			NumFallback: 250,
			NumBytes:    1 << 30,
		},
		"ErrorMessage": {
			MsgType: common.MsgTError,
			Err:     "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := serializer.Serialize(msg)
					if err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()
	serializedData := make(map[string]map[string][]byte)

	// Pre-serialize all messages with all serializers
	for name, factory := range testSerializers {
		serializer := factory()
		serializedData[name] = make(map[string][]byte)

		for msgName, msg := range messages {
			data, err := serializer.Serialize(msg)
			if err != nil {
				b.Fatalf("Failed to serialize %s with %s: %v", msgName, name, err)
			}
			serializedData[name][msgName] = data
		}
	}

	// Benchmark deserialization
	for name, factory := range testSerializers {
		for msgName := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data := serializedData[name][msgName]
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var msg common.Message
					err := serializer.Deserialize(data, &msg)
					if err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each message type
func BenchmarkSize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		serializer := factory()

		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				// Minimal loop to satisfy benchmark requirements
				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
