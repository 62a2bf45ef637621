package client

import (
	"encoding/json"
	"fmt"

	"github.com/kolbkit/ckv/rpc/common"
	"github.com/kolbkit/ckv/rpc/serializer"
	"github.com/kolbkit/ckv/rpc/transport"
)

// Client is a remote facade.Facade reached over an IRPCClientTransport.
// It exposes the same six operations the in-process facade does, with
// Set/Remove/SetSub blocking until the server reports the write as
// completed (the RPC layer has no channel to hand back to the caller).
type Client interface {
	Get(key string) (value any, found bool, err error)
	Set(key string, value any) error
	Remove(key string) error
	FindKeys(pattern, notPattern string) ([]string, error)
	GetSub(key string, path []string) (value any, found bool, err error)
	SetSub(key string, path []string, leaf any) error
	Close() error
}

// NewRPCClient connects transport using config and returns a Client that
// sends every request through serializer.
func NewRPCClient(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (Client, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &rpcClient{
		adapter: rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

type rpcClient struct {
	adapter rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see Client)
// --------------------------------------------------------------------------

func (c *rpcClient) Get(key string) (any, bool, error) {
	resp, err := invokeRPCRequest(common.NewGetRequest(key), c.adapter.transport, c.adapter.serializer)
	if err != nil {
		return nil, false, err
	}
	if !resp.Ok {
		return nil, false, nil
	}
	value, err := decodeValue(resp.Value)
	return value, true, err
}

func (c *rpcClient) Set(key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	_, err = invokeRPCRequest(common.NewSetRequest(key, encoded), c.adapter.transport, c.adapter.serializer)
	return err
}

func (c *rpcClient) Remove(key string) error {
	_, err := invokeRPCRequest(common.NewRemoveRequest(key), c.adapter.transport, c.adapter.serializer)
	return err
}

func (c *rpcClient) FindKeys(pattern, notPattern string) ([]string, error) {
	resp, err := invokeRPCRequest(common.NewFindKeysRequest(pattern, notPattern), c.adapter.transport, c.adapter.serializer)
	if err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

func (c *rpcClient) GetSub(key string, path []string) (any, bool, error) {
	resp, err := invokeRPCRequest(common.NewGetSubRequest(key, path), c.adapter.transport, c.adapter.serializer)
	if err != nil {
		return nil, false, err
	}
	if !resp.Ok {
		return nil, false, nil
	}
	value, err := decodeValue(resp.Value)
	return value, true, err
}

func (c *rpcClient) SetSub(key string, path []string, leaf any) error {
	encoded, err := json.Marshal(leaf)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	_, err = invokeRPCRequest(common.NewSetSubRequest(key, path, encoded), c.adapter.transport, c.adapter.serializer)
	return err
}

func (c *rpcClient) Close() error {
	return c.adapter.transport.Close()
}

// decodeValue unmarshals a JSON payload carried in a Message's Value field.
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
