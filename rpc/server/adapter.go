package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kolbkit/ckv/facade"
	"github.com/kolbkit/ckv/rpc/common"
)

// NewFacadeServerAdapter creates an IRPCServerAdapter that dispatches
// each Message to the matching facade.Facade operation. Set/Remove/SetSub
// wait for the write-completed signal before responding: an RPC caller
// has no way to observe a channel, so "the response arrived" must mean
// "the write reached the backend".
func NewFacadeServerAdapter() IRPCServerAdapter {
	return &facadeServerAdapterImpl{}
}

type facadeServerAdapterImpl struct{}

func (adapter *facadeServerAdapterImpl) Handle(req *common.Message, f *facade.Facade) *common.Message {
	if f == nil {
		return common.NewErrorResponse("handler: facade is nil")
	}

	ctx := context.Background()

	switch req.MsgType {
	case common.MsgTGet:
		value, err := f.Get(ctx, req.Key)
		if err != nil {
			return common.NewGetResponse(nil, false, err)
		}
		if value == nil {
			return common.NewGetResponse(nil, false, nil)
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return common.NewGetResponse(nil, false, err)
		}
		return common.NewGetResponse(encoded, true, nil)

	case common.MsgTSet:
		value, err := decodeValue(req.Value)
		if err != nil {
			return common.NewSetResponse(err)
		}
		bufferErr, writeAck := f.Set(ctx, req.Key, value)
		if bufferErr != nil {
			return common.NewSetResponse(bufferErr)
		}
		return common.NewSetResponse(<-writeAck)

	case common.MsgTRemove:
		bufferErr, writeAck := f.Remove(ctx, req.Key)
		if bufferErr != nil {
			return common.NewRemoveResponse(bufferErr)
		}
		return common.NewRemoveResponse(<-writeAck)

	case common.MsgTFindKeys:
		keys, err := f.FindKeys(ctx, req.Pattern, req.NotPattern)
		return common.NewFindKeysResponse(keys, err)

	case common.MsgTGetSub:
		value, err := f.GetSub(ctx, req.Key, req.Path)
		if err != nil {
			return common.NewGetSubResponse(nil, false, err)
		}
		if value == nil {
			return common.NewGetSubResponse(nil, false, nil)
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return common.NewGetSubResponse(nil, false, err)
		}
		return common.NewGetSubResponse(encoded, true, nil)

	case common.MsgTSetSub:
		leaf, err := decodeValue(req.Value)
		if err != nil {
			return common.NewSetSubResponse(err)
		}
		bufferErr, writeAck := f.SetSub(ctx, req.Key, req.Path, leaf)
		if bufferErr != nil {
			return common.NewSetSubResponse(bufferErr)
		}
		return common.NewSetSubResponse(<-writeAck)

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC FacadeAdapter - unsupported message type: %s", req.MsgType),
		)
	}
}

// decodeValue unmarshals the JSON payload carried in a Message's Value
// field. A nil/empty payload decodes to a nil value, which both Set and
// SetSub accept as a literal JSON null.
func decodeValue(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return v, nil
}

type MessageHandler func(req *common.Message) (resp *common.Message)

type RegisterMessageHandler func(handler MessageHandler)
