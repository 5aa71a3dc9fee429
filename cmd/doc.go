// Package cmd implements the command-line interface for the ostore
// object store. It provides a hierarchical command structure with operations
// for running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - obj: Commands for object store operations (put, get, wait, del, etc.)
//   - serve: Commands for starting and configuring the ostore server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See ostore -help for a list of all commands.
package cmd
