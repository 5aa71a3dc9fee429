// Package server implements the RPC server for the object store system.
// It provides the adapter that maps wire messages onto object store operations,
// along with the core server implementation that manages shards and request routing.
//
// The package focuses on:
//   - Server-side RPC request handling for object store operations
//   - Adapter pattern to decouple application logic from RPC mechanisms
//   - One independent in-memory store per configured shard
//   - Background maintenance (unhandled error sweeps) and metrics export
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters,
//     with the Handle method that processes incoming requests against an
//     objstore.IObjectStore.
//
//   - NewObjectStoreServerAdapter: Factory function creating an adapter for
//     object store operations, translating RPC requests to store method calls.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	// Create server configuration
//	config := common.ServerConfig{
//	  Shards: []uint64{100, 200},
//	  TimeoutSecond: 5,
//	  LogLevel: "info",
//	  Transport: common.ServerTransportConfig{
//	    Endpoint: "0.0.0.0:8080",
//	  },
//	}
//
//	// Create and start the server
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Start the server
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Each shard is a fully independent store: ids live in exactly one shard and
// the client decides which shard a request is routed to. Blocking operations
// (get, wait) occupy a transport worker for the duration of the wait, so the
// wire level timeout of the transport must be larger than any store level
// timeout a client sends.
//
// Thread Safety:
//
//	The server implementation is thread-safe and can handle concurrent requests
//	across multiple connections. Each request is processed independently.
//	The Serve method is not thread-safe and should be called only once.
package server
