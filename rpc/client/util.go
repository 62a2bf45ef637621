package client

import (
	"fmt"

	"github.com/kolbkit/ckv/internal/clog"
	"github.com/kolbkit/ckv/rpc/common"
	"github.com/kolbkit/ckv/rpc/serializer"
	"github.com/kolbkit/ckv/rpc/transport"
)

var Logger = clog.New("rpc/client", clog.ParseLevel("info"), nil)

// rpcClientAdapter stores everything a Client implementation needs to
// talk to a remote server: the transport it sends frames over and the
// serializer that turns Messages into bytes and back.
type rpcClientAdapter struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest serializes req, sends it over transport (shardId is
// always 0: a server now fronts exactly one facade), deserializes the
// response, and checks it for an error or an unexpected message type.
func invokeRPCRequest(req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	respBytes, err := transport.Send(0, reqBytes)
	if err != nil {
		return nil, err
	}

	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("rpc client: %w", err)
	}

	if resp.MsgType == common.MsgTError || resp.Err != "" {
		return nil, fmt.Errorf("rpc client: %s", resp.Err)
	}

	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("rpc client: unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	return resp, nil
}
