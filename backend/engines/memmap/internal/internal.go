package internal

import (
	"github.com/kolbkit/ckv/backend/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// Entry stores a single value along with its original string key (the
// map itself is indexed by hash, so the key is kept here for
// enumeration) and the sequence number of the write that produced it,
// so that concurrent writers to the same key within one DoBulk batch
// can be resolved deterministically.
type Entry struct {
	Key   string
	Value []byte
	Seq   uint64
}

// Shard represents a partition of the memmap backend. Each shard owns
// an independent concurrent map, so unrelated keys never contend.
type Shard struct {
	Data *xsync.MapOf[util.UintKey, Entry]
}

// NewShard creates a new, empty shard using the given hasher.
func NewShard(hasher func(util.UintKey, uint64) uint64) *Shard {
	return &Shard{
		Data: xsync.NewMapOfWithHasher[util.UintKey, Entry](hasher),
	}
}

// GetShard returns the shard responsible for key: the (already seeded)
// hash with its lowest 7 bits dropped, modulo the shard count.
//
// Thread-safety: this function is thread-safe and can be called concurrently.
func GetShard[T any](key util.UintKey, shards []*T) *T {
	shiftedKey := uint64(key) >> 7
	shardPos := shiftedKey % uint64(len(shards))
	return shards[shardPos]
}
