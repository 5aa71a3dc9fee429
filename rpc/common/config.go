package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerTransportConfig holds the listener side socket parameters shared by
// all stream transports. The TCP tuning fields are ignored by the unix and
// http transports.
type ServerTransportConfig struct {
	// Endpoint is the address to listen on (host:port for tcp and http,
	// a socket path for unix)
	Endpoint string

	// WorkersPerConn is the number of request workers per accepted
	// connection. Values below 1 are treated as 1.
	WorkersPerConn int

	// Socket buffer sizes in bytes, 0 keeps the OS default
	ReadBufferSize  int
	WriteBufferSize int

	// TCP tuning
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// StoreConfig holds the per-shard object store parameters.
type StoreConfig struct {
	// SweepIntervalSec is how often each shard scans for unhandled error
	// objects, 0 disables the sweep
	SweepIntervalSec int64

	// GracePeriodSec is how long an error object may sit unread before a
	// sweep reports it
	GracePeriodSec int64

	// MetricsEndpoint is the address of the Prometheus metrics listener,
	// empty disables it
	MetricsEndpoint string
}

// ServerConfig holds all configuration parameters for the object store server.
type ServerConfig struct {
	// Shards is the list of shard ids this server hosts, each backed by
	// its own in-memory object store
	Shards []uint64

	// TimeoutSecond bounds a single request/response exchange on the wire
	TimeoutSecond int64

	// Transport settings
	Transport ServerTransportConfig

	// Store settings
	Store StoreConfig

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(int(math.Max(1, float64(c.Transport.WorkersPerConn)))))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Transport.ReadBufferSize))
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Transport.WriteBufferSize))

	// Store settings
	addSection("Object Store")
	addField("Sweep Interval", fmt.Sprintf("%d sec", c.Store.SweepIntervalSec))
	addField("Grace Period", fmt.Sprintf("%d sec", c.Store.GracePeriodSec))
	if c.Store.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.Store.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Shards
	addSection("Shards")
	for _, shard := range c.Shards {
		addField(strconv.FormatUint(shard, 10), "local object store")
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConfig holds the dialing side socket parameters shared by
// all stream transports.
type ClientTransportConfig struct {
	// Endpoints is the list of server addresses to connect to
	Endpoints []string

	// RetryCount is the number of attempts per request before giving up
	RetryCount int

	// ConnectionsPerEndpoint is the number of multiplexed connections
	// opened to every endpoint. Values below 1 are treated as 1.
	ConnectionsPerEndpoint int

	// Socket buffer sizes in bytes, 0 keeps the OS default
	ReadBufferSize  int
	WriteBufferSize int

	// TCP tuning
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// ClientConfig holds all configuration parameters for the RPC client.
type ClientConfig struct {
	// TimeoutSecond bounds a single request/response exchange on the wire.
	// It is independent of the store level timeout carried inside Get and
	// Wait messages.
	TimeoutSecond int

	// Transport settings
	Transport ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.Transport.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
