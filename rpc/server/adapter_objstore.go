package server

import (
	"fmt"

	"github.com/taskforge/ostore/lib/objstore"
	"github.com/taskforge/ostore/rpc/common"
)

func NewObjectStoreServerAdapter() IRPCServerAdapter {
	return &objStoreServerAdapterImpl{}
}

type objStoreServerAdapterImpl struct{}

func (adapter *objStoreServerAdapterImpl) Handle(req *common.Message, store objstore.IObjectStore) *common.Message {
	// Check for nil store
	if store == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTObjPut:
		if len(req.IDs) != 1 || len(req.Objects) != 1 {
			return common.NewErrorResponse("put requires exactly one id and one object")
		}
		id, err := objstore.ObjectIDFromBytes(req.IDs[0])
		if err != nil {
			return common.NewErrorResponse(err.Error())
		}
		obj, err := common.FromWireObject(&req.Objects[0])
		if err != nil {
			return common.NewErrorResponse(err.Error())
		}
		stored := store.Put(obj, id)
		return common.NewPutResponse(stored, nil)

	case common.MsgTObjGet:
		ids, err := common.IDsFromRefs(req.IDs)
		if err != nil {
			return common.NewErrorResponse(err.Error())
		}
		numObjects := int(req.NumObjects)
		if numObjects == 0 {
			numObjects = len(ids)
		}
		results, err := store.Get(ids, numObjects, common.TimeoutFromMs(req.TimeoutMs), nil, req.Remove)
		objects := make([]common.WireObject, len(results))
		for i, obj := range results {
			objects[i] = common.ToWireObject(obj)
		}
		return common.NewGetResponse(objects, err)

	case common.MsgTObjWait:
		ids, err := common.IDsFromRefs(req.IDs)
		if err != nil {
			return common.NewErrorResponse(err.Error())
		}
		ready, inFallback, err := store.Wait(ids, int(req.NumObjects), common.TimeoutFromMs(req.TimeoutMs), nil)
		return common.NewWaitResponse(common.RefsFromIDs(ready), common.RefsFromIDs(inFallback), err)

	case common.MsgTObjDelete:
		ids, err := common.IDsFromRefs(req.IDs)
		if err != nil {
			return common.NewErrorResponse(err.Error())
		}
		fallbackIDs := store.Delete(ids)
		return common.NewDeleteResponse(common.RefsFromIDs(fallbackIDs), nil)

	case common.MsgTObjErase:
		ids, err := common.IDsFromRefs(req.IDs)
		if err != nil {
			return common.NewErrorResponse(err.Error())
		}
		store.Erase(ids)
		return common.NewEraseResponse(nil)

	case common.MsgTObjContains:
		if len(req.IDs) != 1 {
			return common.NewErrorResponse("contains requires exactly one id")
		}
		id, err := objstore.ObjectIDFromBytes(req.IDs[0])
		if err != nil {
			return common.NewErrorResponse(err.Error())
		}
		exists, inFallback := store.Contains(id)
		return common.NewContainsResponse(exists, inFallback, nil)

	case common.MsgTObjStats:
		stats := store.Stats()
		return common.NewStatsResponse(stats.NumLocalObjects, stats.NumInFallback, stats.NumLocalBytes, nil)

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC ObjectStoreAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}
