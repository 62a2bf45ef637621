// Package backend defines the contract every storage driver must satisfy
// to sit behind the cache-and-buffer layer (package cbl).
//
// A backend is the "external collaborator" of this system: the concrete
// SQL dialect, document store, or embedded KV library is entirely its
// own business. ckv only ever calls the methods of KVBackend.
package backend

import "context"

// OpType identifies the kind of mutation carried by an Op.
type OpType int

const (
	// OpSet inserts or replaces the value for Op.Key.
	OpSet OpType = iota
	// OpRemove deletes Op.Key; absence is not an error.
	OpRemove
)

func (t OpType) String() string {
	if t == OpRemove {
		return "remove"
	}
	return "set"
}

// Op is a single buffered mutation, as flushed via DoBulk.
type Op struct {
	Type  OpType
	Key   string
	Value []byte // nil for OpRemove
}

// KVBackend is the interface every storage driver must implement.
//
// Implementations must be safe for concurrent use: the cache-and-buffer
// layer may call Get for one key while DoBulk is flushing a batch that
// touches different keys, and a backend must not serialize unrelated
// keys against each other any more than it has to for its own
// atomicity guarantees.
type KVBackend interface {
	// Init prepares the backend for use. Idempotent if already initialized.
	Init(ctx context.Context) error

	// Get returns the raw stored value for key, or found=false if absent.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set inserts or replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Absence of the key is not an error.
	Remove(ctx context.Context, key string) error

	// FindKeys returns all keys matching the glob pattern (where '*'
	// matches any run of characters) and, if notPattern is non-empty,
	// not matching notPattern.
	FindKeys(ctx context.Context, pattern string, notPattern string) ([]string, error)

	// DoBulk applies ops in submission order. The overall batch need not
	// be transactional across keys, but per-key application order must
	// be preserved and the backend's own atomicity guarantees determine
	// crash-recovery behavior.
	DoBulk(ctx context.Context, ops []Op) error

	// Close releases any resources held by the backend.
	Close(ctx context.Context) error

	// MaxKeyLen returns the maximum key length in bytes this backend
	// accepts, or 0 if the backend imposes no limit.
	MaxKeyLen() int
}

// Info describes a backend for diagnostic and capability-query purposes.
type Info struct {
	Name      string `json:"name"`
	MaxKeyLen int    `json:"max_key_len"`
}

// Describable is implemented by backends that can report an Info. Not
// every KVBackend needs to: facade.Facade.BackendInfo falls back to a
// minimal Info (MaxKeyLen only) for ones that don't.
type Describable interface {
	Info() Info
}
