// Package memmap implements an embedded, in-process backend.KVBackend
// backed by a sharded set of concurrent maps.
//
// Keys are hashed and routed to one of N shards so that unrelated keys
// never contend on the same map. There is no TTL/expiry bookkeeping or
// garbage collector here, since backend.KVBackend has no notion of
// expiration — that concern lives one layer up, in the cache-and-buffer
// layer, if it is ever needed at all.
package memmap

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/kolbkit/ckv/backend"
	"github.com/kolbkit/ckv/backend/engines/memmap/internal"
	"github.com/kolbkit/ckv/backend/util"
	"github.com/kolbkit/ckv/ckverr"
)

// Options configures a memmap backend.
type Options struct {
	// NumShards is the number of concurrent-map shards. 0 = runtime.NumCPU().
	NumShards int
	// MaxKeyLen bounds key size in bytes. 0 = unbounded.
	MaxKeyLen int
}

// DefaultOptions returns the default memmap options.
func DefaultOptions() *Options {
	return &Options{
		NumShards: runtime.NumCPU(),
		MaxKeyLen: 0,
	}
}

type memmapImpl struct {
	seed      uint64
	shards    []*internal.Shard
	maxKeyLen int
	seq       atomic.Uint64
	closed    atomic.Bool
}

// New creates a new in-process memmap backend with the given options
// (nil selects DefaultOptions).
func New(opts *Options) backend.KVBackend {
	if opts == nil {
		opts = DefaultOptions()
	}
	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = runtime.NumCPU()
	}

	seed := util.GenerateSeed()
	hasher := func(key util.UintKey, mapSeed uint64) uint64 {
		return uint64(key) ^ mapSeed
	}

	shards := make([]*internal.Shard, numShards)
	for i := range shards {
		shards[i] = internal.NewShard(hasher)
	}

	return &memmapImpl{
		seed:      seed,
		shards:    shards,
		maxKeyLen: opts.MaxKeyLen,
	}
}

func (m *memmapImpl) shardFor(key string) *internal.Shard {
	intKey := util.HashString(key, m.seed)
	return internal.GetShard(intKey, m.shards)
}

func (m *memmapImpl) Init(_ context.Context) error {
	return nil
}

func (m *memmapImpl) Get(_ context.Context, key string) ([]byte, bool, error) {
	shard := m.shardFor(key)
	entry, ok := shard.Data.Load(util.HashString(key, m.seed))
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(entry.Value))
	copy(out, entry.Value)
	return out, true, nil
}

func (m *memmapImpl) Set(_ context.Context, key string, value []byte) error {
	m.setOne(key, value)
	return nil
}

func (m *memmapImpl) setOne(key string, value []byte) {
	shard := m.shardFor(key)
	intKey := util.HashString(key, m.seed)
	seq := m.seq.Add(1)

	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	shard.Data.Compute(intKey, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if loaded && old.Seq > seq {
			return old, false
		}
		return internal.Entry{Key: key, Value: valueCopy, Seq: seq}, false
	})
}

func (m *memmapImpl) Remove(_ context.Context, key string) error {
	m.removeOne(key)
	return nil
}

func (m *memmapImpl) removeOne(key string) {
	shard := m.shardFor(key)
	intKey := util.HashString(key, m.seed)
	shard.Data.Delete(intKey)
}

func (m *memmapImpl) FindKeys(_ context.Context, pattern string, notPattern string) ([]string, error) {
	var keys []string
	for _, shard := range m.shards {
		shard.Data.Range(func(_ util.UintKey, entry internal.Entry) bool {
			if util.MatchGlob(pattern, entry.Key) && (notPattern == "" || !util.MatchGlob(notPattern, entry.Key)) {
				keys = append(keys, entry.Key)
			}
			return true
		})
	}
	return keys, nil
}

func (m *memmapImpl) DoBulk(ctx context.Context, ops []backend.Op) error {
	for _, op := range ops {
		if ctx.Err() != nil {
			return ckverr.Wrap(ckverr.CodeBackendIO, "doBulk canceled", ctx.Err())
		}
		switch op.Type {
		case backend.OpSet:
			m.setOne(op.Key, op.Value)
		case backend.OpRemove:
			m.removeOne(op.Key)
		}
	}
	return nil
}

func (m *memmapImpl) Close(_ context.Context) error {
	m.closed.Store(true)
	return nil
}

func (m *memmapImpl) MaxKeyLen() int {
	return m.maxKeyLen
}

func (m *memmapImpl) Info() backend.Info {
	return backend.Info{Name: "memmap", MaxKeyLen: m.maxKeyLen}
}
