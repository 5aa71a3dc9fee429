package serve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cmdUtil "github.com/taskforge/ostore/cmd/util"
	"github.com/taskforge/ostore/rpc/common"
	"github.com/taskforge/ostore/rpc/serializer"
	"github.com/taskforge/ostore/rpc/server"
	"github.com/taskforge/ostore/rpc/transport"
	"github.com/taskforge/ostore/rpc/transport/http"
	"github.com/taskforge/ostore/rpc/transport/tcp"
	"github.com/taskforge/ostore/rpc/transport/unix"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the ostore server",
		Long:    `Start the ostore server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is OSTORE_<flag> (e.g. OSTORE_TIMEOUT=15)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "shards"
	ServeCmd.PersistentFlags().String(key, "100", cmdUtil.WrapString("Comma-separated list of shard IDs to serve. Each shard is an independent in-memory object store"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds for a single request/response exchange on the wire"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/ostore.sock, ...)"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("Number of request workers per accepted connection. Blocking reads occupy a worker for their full wait, so this bounds the concurrent blocking reads per connection"))

	key = "write-buffer"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("The size of the write buffer for the transport (in KB, ignored for http)"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, 512, cmdUtil.WrapString("The size of the read buffer for the transport (in KB, ignored for http)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval (in seconds, only for tcp)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The linger time (in seconds, only for tcp)"))

	key = "sweep-interval"
	ServeCmd.PersistentFlags().Int64(key, 30, cmdUtil.WrapString("How often each shard scans for unhandled error objects (in seconds, 0 disables the sweep)"))

	key = "grace-period"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("How long an error object may sit unread before a sweep reports it (in seconds)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address of the Prometheus metrics listener (e.g. localhost:9090, empty disables it)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse shards
	shardsConfig := viper.GetString("shards")
	serveCmdConfig.Shards = []uint64{}
	for _, shardConfig := range strings.Split(shardsConfig, ",") {
		shardID, err := strconv.ParseUint(strings.TrimSpace(shardConfig), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid shard ID %s: %v", shardConfig, err)
		}
		serveCmdConfig.Shards = append(serveCmdConfig.Shards, shardID)
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint:        viper.GetString("endpoint"),
		WorkersPerConn:  viper.GetInt("workers-per-conn"),
		WriteBufferSize: viper.GetInt("write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
		TCPNoDelay:      viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("tcp-linger"),
	}
	serveCmdConfig.Store = common.StoreConfig{
		SweepIntervalSec: viper.GetInt64("sweep-interval"),
		GracePeriodSec:   viper.GetInt64("grace-period"),
		MetricsEndpoint:  viper.GetString("metrics-endpoint"),
	}

	return nil
}

// run starts the ostore server
func run(_ *cobra.Command, _ []string) error {

	// parse the serializer
	var s serializer.IRPCSerializer
	switch viper.GetString("serializer") {
	case "json":
		s = serializer.NewJSONSerializer()
	case "gob":
		s = serializer.NewGOBSerializer()
	case "binary":
		s = serializer.NewBinarySerializer()
	default:
		return fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}

	// Parse the transport
	var t transport.IRPCServerTransport
	switch viper.GetString("transport") {
	case "http":
		t = http.NewHttpServerTransport()
	case "tcp":
		t = tcp.NewTCPServerTransport()
	case "unix":
		t = unix.NewUnixServerTransport()
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	return serv.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("ostore")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
