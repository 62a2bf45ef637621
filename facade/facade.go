// Package facade provides the public, backend-agnostic key/value
// surface: get, set, remove, findKeys, getSub, setSub. It is a thin
// dispatcher over cbl.Layer and pks.Serializer that adds exactly two
// things neither of those layers provides on its own: per-key
// submission-order routing through pks, and the deep-clone boundary on
// every value that crosses in or out.
package facade

import (
	"context"

	"github.com/kolbkit/ckv/backend"
	"github.com/kolbkit/ckv/cbl"
	"github.com/kolbkit/ckv/clone"
	"github.com/kolbkit/ckv/internal/metrics"
	"github.com/kolbkit/ckv/pks"
)

// Facade is the entry point client code uses. One Facade owns exactly
// one cbl.Layer (and therefore exactly one backend).
type Facade struct {
	cbl *cbl.Layer
	pks *pks.Serializer
}

// New wraps layer in a Facade. Call Init before issuing any operation.
func New(layer *cbl.Layer) *Facade {
	return &Facade{cbl: layer, pks: pks.New()}
}

// Init forwards to the underlying layer (and, through it, the backend).
func (f *Facade) Init(ctx context.Context) error {
	return f.cbl.Init(ctx)
}

// run submits fn to key's queue and blocks until fn has run, returning
// fn's error. Unlike pks.Op, fn reports its outcome by assignment
// rather than by return value, since callers here need to stash more
// than one result (a value, a channel) out of the closure.
func (f *Facade) run(key string, fn func() error) error {
	return <-f.pks.Run(key, fn)
}

// Get returns a caller-owned deep copy of the value stored at key, or
// nil if key is absent.
func (f *Facade) Get(ctx context.Context, key string) (any, error) {
	metrics.FacadeGetTotal.Inc()
	var result any
	err := f.run(key, func() error {
		v, err := f.cbl.Get(ctx, key)
		if err != nil {
			return err
		}
		result, err = clone.Clone(v)
		return err
	})
	if err != nil {
		metrics.FacadeErrorsTotal.Inc()
		return nil, err
	}
	return result, nil
}

// Set deep-clones value, buffers it for key, and returns immediately
// with the buffer-accepted outcome. The returned channel receives
// exactly one write-completed signal once the write has reached the
// backend (or failed to).
func (f *Facade) Set(ctx context.Context, key string, value any) (error, <-chan error) {
	metrics.FacadeSetTotal.Inc()
	writeAck := make(chan error, 1)

	cloned, err := clone.Clone(value)
	if err != nil {
		metrics.FacadeErrorsTotal.Inc()
		writeAck <- err
		return err, writeAck
	}

	bufferErr := f.run(key, func() error {
		cblAck, err := f.cbl.Set(ctx, key, cloned)
		if err != nil {
			writeAck <- err
			return err
		}
		go func() { writeAck <- <-cblAck }()
		return nil
	})
	if bufferErr != nil {
		metrics.FacadeErrorsTotal.Inc()
	}
	return bufferErr, writeAck
}

// Remove buffers a removal of key and returns immediately with the
// buffer-accepted outcome, following the same two-phase contract as Set.
func (f *Facade) Remove(ctx context.Context, key string) (error, <-chan error) {
	metrics.FacadeRemoveTotal.Inc()
	writeAck := make(chan error, 1)

	bufferErr := f.run(key, func() error {
		cblAck, err := f.cbl.Remove(ctx, key)
		if err != nil {
			writeAck <- err
			return err
		}
		go func() { writeAck <- <-cblAck }()
		return nil
	})
	return bufferErr, writeAck
}

// FindKeys returns all keys matching pattern (and, if notPattern is
// non-empty, not matching it). It is not routed through any per-key
// queue: findKeys is not ordered with respect to concurrent set/remove
// on matching keys, by design.
func (f *Facade) FindKeys(ctx context.Context, pattern string, notPattern string) ([]string, error) {
	return f.cbl.FindKeys(ctx, pattern, notPattern)
}

// GetSub returns a caller-owned deep copy of the value at path within
// the value stored at key, or nil if key is absent or any intermediate
// path component is missing.
func (f *Facade) GetSub(ctx context.Context, key string, path []string) (any, error) {
	var result any
	err := f.run(key, func() error {
		v, err := f.cbl.GetSub(ctx, key, path)
		if err != nil {
			return err
		}
		result, err = clone.Clone(v)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetSub deep-clones leaf, then performs the read-modify-write
// described by cbl.Layer.SetSub as a single slot on key's queue, so
// that no other operation on key can observe an intermediate state.
func (f *Facade) SetSub(ctx context.Context, key string, path []string, leaf any) (error, <-chan error) {
	writeAck := make(chan error, 1)

	clonedLeaf, err := clone.Clone(leaf)
	if err != nil {
		writeAck <- err
		return err, writeAck
	}

	bufferErr := f.run(key, func() error {
		cblAck, err := f.cbl.SetSub(ctx, key, path, clonedLeaf)
		if err != nil {
			writeAck <- err
			return err
		}
		go func() { writeAck <- <-cblAck }()
		return nil
	})
	return bufferErr, writeAck
}

// BackendInfo reports the name and key-length limit of the backend
// sitting behind this Facade, for diagnostics and capability queries.
func (f *Facade) BackendInfo() backend.Info {
	b := f.cbl.Backend()
	if d, ok := b.(backend.Describable); ok {
		return d.Info()
	}
	return backend.Info{MaxKeyLen: b.MaxKeyLen()}
}

// Shutdown stops accepting new operations, then flushes every buffered
// write to completion.
func (f *Facade) Shutdown(ctx context.Context) error {
	f.pks.Shutdown()
	return f.cbl.Shutdown(ctx)
}

// Close stops accepting new operations without flushing, then closes
// the backend.
func (f *Facade) Close(ctx context.Context) error {
	f.pks.Shutdown()
	return f.cbl.Close(ctx)
}
