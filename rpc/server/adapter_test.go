package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolbkit/ckv/backend/engines/memmap"
	"github.com/kolbkit/ckv/cbl"
	"github.com/kolbkit/ckv/facade"
	"github.com/kolbkit/ckv/rpc/common"
)

// newTestFacade builds a facade fronting a fresh in-memory memmap
// backend, flushing every write immediately so the adapter's tests
// never have to wait on the periodic flusher.
func newTestFacade(t *testing.T) *facade.Facade {
	t.Helper()
	b := memmap.New(&memmap.Options{NumShards: 1})
	f := facade.New(cbl.New(b, cbl.Options{WriteInterval: 0}))
	require.NoError(t, f.Init(context.Background()))
	t.Cleanup(func() { _ = f.Close(context.Background()) })
	return f
}

func TestAdapterSetThenGet(t *testing.T) {
	f := newTestFacade(t)
	adapter := NewFacadeServerAdapter()

	value, err := json.Marshal("hello")
	require.NoError(t, err)

	setResp := adapter.Handle(common.NewSetRequest("k1", value), f)
	assert.Equal(t, common.MsgTSet, setResp.MsgType)
	assert.Empty(t, setResp.Err)

	getResp := adapter.Handle(common.NewGetRequest("k1"), f)
	assert.Equal(t, common.MsgTGet, getResp.MsgType)
	assert.True(t, getResp.Ok)

	var got string
	require.NoError(t, json.Unmarshal(getResp.Value, &got))
	assert.Equal(t, "hello", got)
}

func TestAdapterGetMissing(t *testing.T) {
	f := newTestFacade(t)
	adapter := NewFacadeServerAdapter()

	resp := adapter.Handle(common.NewGetRequest("missing"), f)
	assert.Equal(t, common.MsgTGet, resp.MsgType)
	assert.False(t, resp.Ok)
	assert.Empty(t, resp.Err)
}

func TestAdapterRemove(t *testing.T) {
	f := newTestFacade(t)
	adapter := NewFacadeServerAdapter()

	value, _ := json.Marshal(42.0)
	adapter.Handle(common.NewSetRequest("k2", value), f)

	removeResp := adapter.Handle(common.NewRemoveRequest("k2"), f)
	assert.Equal(t, common.MsgTRemove, removeResp.MsgType)
	assert.Empty(t, removeResp.Err)

	getResp := adapter.Handle(common.NewGetRequest("k2"), f)
	assert.False(t, getResp.Ok)
}

func TestAdapterFindKeys(t *testing.T) {
	f := newTestFacade(t)
	adapter := NewFacadeServerAdapter()

	value, _ := json.Marshal("v")
	adapter.Handle(common.NewSetRequest("user/1", value), f)
	adapter.Handle(common.NewSetRequest("user/2", value), f)
	adapter.Handle(common.NewSetRequest("session/1", value), f)

	resp := adapter.Handle(common.NewFindKeysRequest("user/*", ""), f)
	assert.Equal(t, common.MsgTFindKeys, resp.MsgType)
	assert.ElementsMatch(t, []string{"user/1", "user/2"}, resp.Keys)
}

func TestAdapterSetSubAndGetSub(t *testing.T) {
	f := newTestFacade(t)
	adapter := NewFacadeServerAdapter()

	leaf, _ := json.Marshal("bob")
	setSubResp := adapter.Handle(common.NewSetSubRequest("profile/1", []string{"name"}, leaf), f)
	assert.Equal(t, common.MsgTSetSub, setSubResp.MsgType)
	assert.Empty(t, setSubResp.Err)

	getSubResp := adapter.Handle(common.NewGetSubRequest("profile/1", []string{"name"}), f)
	assert.True(t, getSubResp.Ok)

	var got string
	require.NoError(t, json.Unmarshal(getSubResp.Value, &got))
	assert.Equal(t, "bob", got)
}

func TestAdapterNilFacade(t *testing.T) {
	adapter := NewFacadeServerAdapter()
	resp := adapter.Handle(common.NewGetRequest("k"), nil)
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.NotEmpty(t, resp.Err)
}

func TestAdapterUnsupportedMessageType(t *testing.T) {
	f := newTestFacade(t)
	adapter := NewFacadeServerAdapter()
	resp := adapter.Handle(&common.Message{MsgType: common.MsgTUnknown}, f)
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.NotEmpty(t, resp.Err)
}

// TestAdapterSetBlocksUntilFlushed pins down the write-completed
// contract the doc comment on NewFacadeServerAdapter describes: the
// adapter does not return from a Set until the value has reached the
// backend, not merely been buffer-accepted.
func TestAdapterSetBlocksUntilFlushed(t *testing.T) {
	b := memmap.New(&memmap.Options{NumShards: 1})
	f := facade.New(cbl.New(b, cbl.Options{WriteInterval: 50 * time.Millisecond}))
	require.NoError(t, f.Init(context.Background()))
	t.Cleanup(func() { _ = f.Close(context.Background()) })

	adapter := NewFacadeServerAdapter()
	value, _ := json.Marshal("delayed")

	resp := adapter.Handle(common.NewSetRequest("k3", value), f)
	require.Empty(t, resp.Err)

	_, found, err := b.Get(context.Background(), "k3")
	require.NoError(t, err)
	assert.True(t, found, "Set returned before the write reached the backend")

	raw, err := f.Get(context.Background(), "k3")
	require.NoError(t, err)
	assert.Equal(t, "delayed", raw)
}
