package server

import (
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/taskforge/ostore/lib/objstore"
	"github.com/taskforge/ostore/rpc/common"
	"github.com/taskforge/ostore/rpc/serializer"
	"github.com/taskforge/ostore/rpc/transport"
)

var Logger = logger.GetLogger("rpc")

// serverShard is a struct that represents a shard in the RPC server
// It contains the object store it encapsulates and the adapter
// that handles requests for the store
type serverShard struct {
	Store   *objstore.Store
	Adapter IRPCServerAdapter
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := rpc.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	// Create shards map
	shardMap := xsync.NewMapOf[uint64, serverShard]()

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	// Create the RPC server
	return rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		shards:     shardMap,
		metricSets: make(map[uint64]*metrics.Set),
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	shards     *xsync.MapOf[uint64, serverShard]
	metricSets map[uint64]*metrics.Set
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(shardId uint64, req []byte) []byte {
		var msg common.Message
		var respMsg common.Message

		// Get appropriate shard
		shard, ok := s.shards.Load(shardId)

		// Case shard does not exist -> error
		if !ok {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     "shard not found",
			}
		} else {
			// Decode the request
			err := s.serializer.Deserialize(req, &msg)

			if err != nil {
				respMsg = common.Message{
					MsgType: common.MsgTError,
					Err:     fmt.Sprintf("failed to deserialize request: %s", err),
				}
			} else {
				// Let the adapter handle the request
				respMsg = *shard.Adapter.Handle(&msg, shard.Store)
			}
		}

		// Return result
		val, err := s.serializer.Serialize(respMsg)
		if err != nil {
			respMsg = common.Message{
				MsgType: common.MsgTError,
				Err:     fmt.Sprintf("failed to serialize response: %s", err),
			}
			// Encode the error message itself so the client never
			// receives an empty frame
			val, err = s.serializer.Serialize(respMsg)
			if err != nil {
				Logger.Errorf("failed to serialize error response: %s", err)
				return nil
			}
		}
		return val
	})
}

func (s *rpcServer) init() error {

	// Init logger
	common.InitLoggers(s.config)

	// CREATE SHARDS

	/*
		Note: A single RPC Server can host any number of shards. Each shard
		is an independent in-memory object store with its own metrics set,
		addressed by the shard id carried in every request frame.
	*/

	for _, shardID := range s.config.Shards {
		opts := objstore.Options{
			UnhandledErrorHandler: func(obj *objstore.Object) {
				Logger.Warningf("unhandled error object (%s) aged past grace period", obj.ErrorType())
			},
		}
		if s.config.Store.GracePeriodSec > 0 {
			opts.UnhandledErrorGracePeriod = time.Duration(s.config.Store.GracePeriodSec) * time.Second
		}

		store := objstore.New(opts)
		s.shards.Store(shardID, serverShard{
			Store:   store,
			Adapter: NewObjectStoreServerAdapter(),
		})

		// Per-shard gauges, labeled so one scrape covers all shards
		set := metrics.NewSet()
		store.RegisterMetrics(set, fmt.Sprintf(`shard="%d"`, shardID))
		s.metricSets[shardID] = set

		Logger.Infof("created local object store for shard %d", shardID)
	}

	// Start the background sweep for unhandled error objects
	if s.config.Store.SweepIntervalSec > 0 {
		interval := time.Duration(s.config.Store.SweepIntervalSec) * time.Second
		go s.runSweeper(interval)
	}

	// Start the metrics endpoint
	if s.config.Store.MetricsEndpoint != "" {
		go s.serveMetrics(s.config.Store.MetricsEndpoint)
	}

	Logger.Infof("object store setup completed successfully")

	// Configure the transport layer
	s.registerTransportHandler()

	return nil
}

// Serve starts the RPC server
// This function will also initialize the server plus the shards and start the transport layer
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// runSweeper periodically scans every shard for error objects nobody read
func (s *rpcServer) runSweeper(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		s.shards.Range(func(shardID uint64, shard serverShard) bool {
			shard.Store.NotifyUnhandledErrors()
			return true
		})
	}
}

// serveMetrics exposes the per-shard gauges in Prometheus text format
func (s *rpcServer) serveMetrics(endpoint string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		for _, set := range s.metricSets {
			set.WritePrometheus(w)
		}
	})

	Logger.Infof("Starting metrics server on %s", endpoint)
	if err := http.ListenAndServe(endpoint, mux); err != nil {
		Logger.Errorf("Metrics server failed: %v", err)
	}
}
