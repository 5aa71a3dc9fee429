// Package common provides core data structures and utilities shared across
// the object store system. It defines fundamental types, configuration
// structures, and protocol elements used by other packages.
//
// The package focuses on:
//   - Message protocol definition for inter-component communication
//   - Configuration structures for client and server components
//   - Conversions between wire types and object store types
//   - Custom logging implementation
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication between components,
//     with a flexible structure that adapts to different operation types.
//     Includes factory methods for creating various request and response messages.
//
//   - MessageType: Enumeration defining all supported operation types in the
//     system, covering object operations and control messages.
//
//   - ServerConfig: Comprehensive configuration for server nodes, including
//     shard layout, transport settings and store maintenance parameters.
//
//   - ClientConfig: Configuration for client components, controlling connection
//     parameters, timeouts, and retry behavior.
//
//   - Logger: Custom logging implementation providing consistent formatting
//     across the application.
package common
