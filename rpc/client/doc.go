// Package client implements the RPC client for the object store system.
// It provides an implementation of the IRemoteObjectStore interface that
// communicates with remote object store shards via RPC.
//
// The package focuses on:
//   - Transparent RPC access to object store shards
//   - Integration with the transport and serialization layers
//   - Error handling and conversion between wire and store records
//
// Key Components:
//
//   - NewRPCObjectStore: Factory function that creates a client implementing the
//     IRemoteObjectStore interface. This client forwards all operations to remote
//     servers via the configured transport layer. Blocking semantics (Get, Wait)
//     are evaluated server-side; the wire message carries the timeout.
//
//   - IRemoteObjectStore: The client side view of one shard. Callback based
//     operations (GetAsync) are local-only and not part of the remote surface.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  TimeoutSecond: 5,
//	  Transport: common.ClientTransportConfig{
//	    Endpoints:              []string{"localhost:5000"},
//	    RetryCount:             3,
//	    ConnectionsPerEndpoint: 1,
//	  },
//	}
//
//	// Create a serializer
//	serializer := serializer.NewBinarySerializer()
//
//	// Create the store client
//	store, _ := client.NewRPCObjectStore(1, config, tcp.NewTCPClientTransport(), serializer)
//
//	// Use the store
//	id := objstore.NewObjectID()
//	store.Put(objstore.NewObject([]byte("value"), nil, nil), id)
//	objs, _ := store.Get([]objstore.ObjectID{id}, 1, time.Second, false)
//
// Performance Considerations:
//
//   - For applications that frequently send large payloads, increasing ConnectionsPerEndpoint
//     can improve throughput by allowing parallel requests.
//
//   - For small messages, a single connection per endpoint is often more efficient due to
//     reduced connection overhead.
//
//   - The choice of serializer significantly affects performance. The binary serializer
//     provides the best performance and smallest payload size.
//
//   - The wire timeout of a Get or Wait bounds the server side rendezvous; the client
//     transport timeout (TimeoutSecond) must be larger or the connection gives up first.
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
