package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolbkit/ckv/backend/engines/memmap"
	"github.com/kolbkit/ckv/cbl"
	"github.com/kolbkit/ckv/facade"
	"github.com/kolbkit/ckv/rpc/common"
	"github.com/kolbkit/ckv/rpc/serializer"
	"github.com/kolbkit/ckv/rpc/server"
)

// loopbackTransport drives every Send call straight into an in-process
// rpc/server.IRPCServerAdapter, skipping sockets entirely. It lets this
// package's tests exercise the real Client/adapter/serializer wiring
// end to end without standing up a listener that the transport
// interface gives no way to tear back down.
type loopbackTransport struct {
	adapter    server.IRPCServerAdapter
	facade     *facade.Facade
	serializer serializer.IRPCSerializer
}

func (l *loopbackTransport) Connect(common.ClientConfig) error { return nil }

func (l *loopbackTransport) Send(_ uint64, req []byte) ([]byte, error) {
	var msg common.Message
	if err := l.serializer.Deserialize(req, &msg); err != nil {
		return nil, err
	}
	resp := l.adapter.Handle(&msg, l.facade)
	return l.serializer.Serialize(*resp)
}

func (l *loopbackTransport) Close() error { return nil }

func newTestClient(t *testing.T) Client {
	t.Helper()
	b := memmap.New(&memmap.Options{NumShards: 1})
	f := facade.New(cbl.New(b, cbl.Options{WriteInterval: 0}))
	require.NoError(t, f.Init(context.Background()))
	t.Cleanup(func() { _ = f.Close(context.Background()) })

	lt := &loopbackTransport{
		adapter:    server.NewFacadeServerAdapter(),
		facade:     f,
		serializer: serializer.NewJSONSerializer(),
	}

	c, err := NewRPCClient(common.ClientConfig{}, lt, serializer.NewJSONSerializer())
	require.NoError(t, err)
	return c
}

func TestClientSetAndGet(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.Set("k1", "hello"))

	value, found, err := c.Get("k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", value)
}

func TestClientGetMissing(t *testing.T) {
	c := newTestClient(t)

	value, found, err := c.Get("missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestClientRemove(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.Set("k2", float64(7)))
	require.NoError(t, c.Remove("k2"))

	_, found, err := c.Get("k2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClientFindKeys(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.Set("a/1", "x"))
	require.NoError(t, c.Set("a/2", "x"))
	require.NoError(t, c.Set("b/1", "x"))

	keys, err := c.FindKeys("a/*", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a/1", "a/2"}, keys)
}

func TestClientSetSubAndGetSub(t *testing.T) {
	c := newTestClient(t)

	require.NoError(t, c.SetSub("profile/1", []string{"name"}, "ada"))

	value, found, err := c.GetSub("profile/1", []string{"name"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "ada", value)
}
