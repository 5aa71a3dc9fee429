package client

import (
	"time"

	"github.com/taskforge/ostore/lib/objstore"
	"github.com/taskforge/ostore/rpc/common"
	"github.com/taskforge/ostore/rpc/serializer"
	"github.com/taskforge/ostore/rpc/transport"
)

// IRemoteObjectStore is the client side view of one object store shard.
// It mirrors the store operations but reports transport failures explicitly;
// callback based operations (GetAsync) are local-only and deliberately absent.
type IRemoteObjectStore interface {
	// Put stores an object under the given id and reports whether a new
	// entry was created (false means the id was already present)
	Put(obj *objstore.Object, id objstore.ObjectID) (bool, error)
	// Get blocks server-side until numObjects of the requested ids are
	// present or the timeout expires. The result is positional: slot i
	// holds the object for ids[i] or nil
	Get(ids []objstore.ObjectID, numObjects int, timeout time.Duration, remove bool) ([]*objstore.Object, error)
	// GetAll fetches every id and reports whether any returned object is a
	// genuine error object
	GetAll(ids []objstore.ObjectID, timeout time.Duration) (map[objstore.ObjectID]*objstore.Object, bool, error)
	// Wait blocks server-side until numObjects ids are present and returns
	// the ready and fallback-resident id sets without fetching payloads
	Wait(ids []objstore.ObjectID, numObjects int, timeout time.Duration) (ready, inFallback []objstore.ObjectID, err error)
	// Delete removes the given ids, skipping entries whose payload lives in
	// the fallback tier; those ids are returned
	Delete(ids []objstore.ObjectID) ([]objstore.ObjectID, error)
	// Erase removes the given ids unconditionally
	Erase(ids []objstore.ObjectID) error
	// Contains reports whether the id is present and whether its payload
	// lives in the fallback tier
	Contains(id objstore.ObjectID) (exists, inFallback bool, err error)
	// Stats returns the shard's object counters
	Stats() (objstore.StoreStats, error)
	// Close shuts down the underlying transport
	Close() error
}

// NewRPCObjectStore creates a new RPC object store client
// The function takes a shard ID, a config, a transport and a serializer as parameters
// It returns an IRemoteObjectStore and an error
func NewRPCObjectStore(
	shardId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (IRemoteObjectStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC object store
	s := rpcObjectStore{
		rpcClientAdapter{
			shardId:    shardId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC object store
	return &s, nil
}

type rpcObjectStore struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IRemoteObjectStore)
// --------------------------------------------------------------------------

func (i *rpcObjectStore) Put(obj *objstore.Object, id objstore.ObjectID) (bool, error) {
	req := common.NewPutRequest(id.Bytes(), common.ToWireObject(obj))
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcObjectStore) Get(ids []objstore.ObjectID, numObjects int, timeout time.Duration, remove bool) ([]*objstore.Object, error) {
	req := common.NewGetRequest(common.RefsFromIDs(ids), uint32(numObjects), common.TimeoutToMs(timeout), remove)
	resp, reqErr := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if reqErr != nil && !objstore.IsTimedOut(reqErr) {
		return nil, reqErr
	}

	// A timeout still carries the positional results gathered so far, like
	// the local store's Get
	results := make([]*objstore.Object, len(resp.Objects))
	for idx := range resp.Objects {
		if !resp.Objects[idx].Present {
			continue
		}
		obj, err := common.FromWireObject(&resp.Objects[idx])
		if err != nil {
			return nil, err
		}
		results[idx] = obj
	}
	return results, reqErr
}

func (i *rpcObjectStore) GetAll(ids []objstore.ObjectID, timeout time.Duration) (map[objstore.ObjectID]*objstore.Object, bool, error) {
	results, err := i.Get(ids, len(ids), timeout, false)
	if err != nil {
		return nil, false, err
	}

	gotError := false
	found := make(map[objstore.ObjectID]*objstore.Object, len(ids))
	for idx, obj := range results {
		if obj == nil || idx >= len(ids) {
			continue
		}
		found[ids[idx]] = obj
		if obj.IsError() && !obj.IsInFallback() {
			gotError = true
		}
	}
	return found, gotError, nil
}

func (i *rpcObjectStore) Wait(ids []objstore.ObjectID, numObjects int, timeout time.Duration) ([]objstore.ObjectID, []objstore.ObjectID, error) {
	req := common.NewWaitRequest(common.RefsFromIDs(ids), uint32(numObjects), common.TimeoutToMs(timeout))
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return nil, nil, err
	}

	ready, err := common.IDsFromRefs(resp.ReadyIDs)
	if err != nil {
		return nil, nil, err
	}
	inFallback, err := common.IDsFromRefs(resp.FallbackIDs)
	if err != nil {
		return nil, nil, err
	}
	return ready, inFallback, nil
}

func (i *rpcObjectStore) Delete(ids []objstore.ObjectID) ([]objstore.ObjectID, error) {
	req := common.NewDeleteRequest(common.RefsFromIDs(ids))
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return nil, err
	}
	return common.IDsFromRefs(resp.FallbackIDs)
}

func (i *rpcObjectStore) Erase(ids []objstore.ObjectID) error {
	req := common.NewEraseRequest(common.RefsFromIDs(ids))
	_, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	return err
}

func (i *rpcObjectStore) Contains(id objstore.ObjectID) (bool, bool, error) {
	req := common.NewContainsRequest(id.Bytes())
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return false, false, err
	}
	return resp.Ok, resp.InFallback, nil
}

func (i *rpcObjectStore) Stats() (objstore.StoreStats, error) {
	req := common.NewStatsRequest()
	resp, err := invokeRPCRequest(i.shardId, req, i.transport, i.serializer)
	if err != nil {
		return objstore.StoreStats{}, err
	}
	return objstore.StoreStats{
		NumLocalObjects: resp.NumLocal,
		NumInFallback:   resp.NumFallback,
		NumLocalBytes:   resp.NumBytes,
	}, nil
}

func (i *rpcObjectStore) Close() error {
	return i.transport.Close()
}
