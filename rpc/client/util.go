package client

import (
	"fmt"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/taskforge/ostore/rpc/common"
	"github.com/taskforge/ostore/rpc/serializer"
	"github.com/taskforge/ostore/rpc/transport"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
// Used by the RPCObjectStore with composition pattern
type rpcClientAdapter struct {
	shardId    uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It takes a shard ID, a request message, a transport layer and a serializer as parameters
// It returns a response message and an error if any occurs
// This method also checks if the response is an error response and if the type of the response is the expected type
func invokeRPCRequest(shardId uint64, req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	// Send the request
	respBytes, err := transport.Send(shardId, reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Message{}
	err = serializer.Deserialize(respBytes, resp)
	if err != nil {
		return nil, fmt.Errorf("RPC ObjectStoreClient - Error: %s", err)
	}

	// Check if the response is an error response. Store errors are rebuilt
	// from the wire return code so IsTimedOut/IsCancelled keep working; the
	// response travels along since it may carry partial results.
	if resp.MsgType == common.MsgTError || resp.Err != "" {
		if resp.RetCode != 0 {
			return resp, common.ErrorFromWire(resp.RetCode, resp.Err)
		}
		return resp, fmt.Errorf("RPC ObjectStoreClient - Error: %s", resp.Err)
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("RPC ObjectStoreClient - Unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	// Return the response
	return resp, nil
}
