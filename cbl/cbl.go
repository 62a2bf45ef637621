// Package cbl implements the cache-and-buffer layer: an LRU value
// cache, a dirty write buffer that coalesces writes per key, a
// pending-read deduper, and a periodic flusher that drains the buffer
// through a backend.KVBackend's bulk path.
//
// The sharded-map technique used elsewhere in this module for the
// embedded backend does not apply here: the cache is a single LRU
// keyed by the full string key, because eviction order (not shard
// parallelism) is the thing this layer needs to get right. LRU
// bookkeeping is delegated to hashicorp/golang-lru; eviction policy
// itself (skip dirty and in-flight-write entries, batch by
// CacheMinGap) is layered on top since the library's own automatic
// eviction knows nothing about those bits.
package cbl

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/kolbkit/ckv/backend"
	"github.com/kolbkit/ckv/backend/util"
	"github.com/kolbkit/ckv/ckverr"
	"github.com/kolbkit/ckv/internal/clog"
	"github.com/kolbkit/ckv/internal/metrics"
)

var Logger = clog.New("cbl", clog.ParseLevel("info"), nil)

type opKind int

const (
	opSet opKind = iota
	opRemove
)

type cacheEntry struct {
	value         any
	tombstone     bool
	dirty         bool
	inFlightWrite bool
}

type pendingOp struct {
	kind        opKind
	value       any
	completions []chan error
}

// Layer is the cache-and-buffer layer fronting a single backend.KVBackend.
type Layer struct {
	backend backend.KVBackend
	opts    Options

	mu          sync.Mutex
	cache       *lru.Cache
	cleanCount  int
	buffer      map[string]*pendingOp
	bufferOrder []string
	reads       map[string][]chan readResult

	ticker   *time.Ticker
	tickDone chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	closed   bool
}

type readResult struct {
	value any
	err   error
}

// cacheCeiling bounds the underlying LRU's own automatic eviction so it
// essentially never fires; this layer's own eviction pass (which can
// skip dirty/in-flight entries, unlike the library's) is what actually
// enforces Options.Cache.
const cacheCeiling = 1 << 20

// New creates a Layer fronting backend b. opts.withDefaults is applied;
// call Init before issuing any operation.
func New(b backend.KVBackend, opts Options) *Layer {
	opts = opts.withDefaults()
	c, err := lru.New(cacheCeiling)
	if err != nil {
		// only possible if cacheCeiling <= 0, which it never is.
		panic(err)
	}
	return &Layer{
		backend: b,
		opts:    opts,
		cache:   c,
		buffer:  make(map[string]*pendingOp),
		reads:   make(map[string][]chan readResult),
	}
}

// Backend returns the backend this Layer sits on top of.
func (l *Layer) Backend() backend.KVBackend {
	return l.backend
}

// Init forwards to the backend and starts the periodic flusher if
// WriteInterval > 0.
func (l *Layer) Init(ctx context.Context) error {
	if err := l.backend.Init(ctx); err != nil {
		return err
	}
	if l.opts.WriteInterval > 0 {
		l.ticker = time.NewTicker(l.opts.WriteInterval)
		l.tickDone = make(chan struct{})
		l.wg.Add(1)
		go l.runFlusher()
	}
	return nil
}

func (l *Layer) runFlusher() {
	defer l.wg.Done()
	for {
		select {
		case <-l.ticker.C:
			l.flush(context.Background())
		case <-l.tickDone:
			return
		}
	}
}

func (l *Layer) checkKeyLen(key string) error {
	if max := l.backend.MaxKeyLen(); max > 0 && len(key) > max {
		return ckverr.New(ckverr.CodeKeyTooLong, "key exceeds backend maximum length")
	}
	return nil
}

// Get returns a deep-shared (not yet caller-isolated; isolation is the
// facade's job) copy of the value stored at key, or nil if absent.
func (l *Layer) Get(ctx context.Context, key string) (any, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ckverr.New(ckverr.CodeShutdown, "cbl: get after shutdown")
	}
	if raw, ok := l.cache.Get(key); ok {
		entry := raw.(*cacheEntry)
		l.mu.Unlock()
		metrics.CacheHitTotal.Inc()
		if entry.tombstone {
			return nil, nil
		}
		return entry.value, nil
	}
	if op, ok := l.buffer[key]; ok {
		l.mu.Unlock()
		metrics.CacheHitTotal.Inc()
		if op.kind == opRemove {
			return nil, nil
		}
		return op.value, nil
	}
	if waiters, ok := l.reads[key]; ok {
		ch := make(chan readResult, 1)
		l.reads[key] = append(waiters, ch)
		l.mu.Unlock()
		res := <-ch
		return res.value, res.err
	}
	self := make(chan readResult, 1)
	l.reads[key] = []chan readResult{self}
	l.mu.Unlock()

	metrics.CacheMissTotal.Inc()
	raw, found, err := l.backend.Get(ctx, key)
	var decoded any
	if err == nil && found {
		decoded, err = decodeValue(raw, l.opts.JSON)
	}

	l.mu.Lock()
	waiters := l.reads[key]
	delete(l.reads, key)
	cached := err == nil && found
	if cached {
		l.cachePutLocked(key, decoded, false, false)
	}
	l.mu.Unlock()

	if cached {
		l.evict()
	}

	for _, w := range waiters {
		if err != nil {
			w <- readResult{err: err}
		} else if !found {
			w <- readResult{value: nil}
		} else {
			w <- readResult{value: decoded}
		}
	}
	res := <-self
	return res.value, res.err
}

// Set buffers key=value for the next flush. The returned error is the
// buffer-accepted signal (nil on success); the returned channel
// receives exactly one write-completed signal once the value has been
// flushed to the backend (or has failed to).
func (l *Layer) Set(ctx context.Context, key string, value any) (<-chan error, error) {
	if err := l.checkKeyLen(key); err != nil {
		return nil, err
	}

	writeAck := make(chan error, 1)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ckverr.New(ckverr.CodeShutdown, "cbl: set after shutdown")
	}
	l.cachePutLocked(key, value, true, false)
	l.enqueueLocked(key, opSet, value, writeAck)
	immediate := l.opts.WriteInterval == 0
	l.mu.Unlock()

	l.evict()

	if immediate {
		go l.flush(ctx)
	}
	return writeAck, nil
}

// Remove buffers a removal of key for the next flush, following the
// same buffer-accepted/write-completed contract as Set.
func (l *Layer) Remove(ctx context.Context, key string) (<-chan error, error) {
	writeAck := make(chan error, 1)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ckverr.New(ckverr.CodeShutdown, "cbl: remove after shutdown")
	}
	l.cachePutLocked(key, nil, true, true)
	l.enqueueLocked(key, opRemove, nil, writeAck)
	immediate := l.opts.WriteInterval == 0
	l.mu.Unlock()

	if immediate {
		go l.flush(ctx)
	}
	return writeAck, nil
}

// enqueueLocked must be called with l.mu held.
func (l *Layer) enqueueLocked(key string, kind opKind, value any, ack chan error) {
	op, ok := l.buffer[key]
	if !ok {
		op = &pendingOp{}
		l.buffer[key] = op
		l.bufferOrder = append(l.bufferOrder, key)
	}
	op.kind = kind
	op.value = value
	op.completions = append(op.completions, ack)
}

// cachePutLocked must be called with l.mu held.
func (l *Layer) cachePutLocked(key string, value any, dirty bool, tombstone bool) {
	if raw, ok := l.cache.Peek(key); ok {
		old := raw.(*cacheEntry)
		if !old.dirty && dirty {
			l.cleanCount--
		} else if old.dirty && !dirty {
			l.cleanCount++
		}
	} else if !dirty {
		l.cleanCount++
	}
	l.cache.Add(key, &cacheEntry{value: value, dirty: dirty, tombstone: tombstone})
}

// FindKeys queries the backend for keys matching pattern (and not
// matching notPattern, if non-empty), then overlays the in-memory write
// buffer: dirty sets are added, dirty removes are subtracted.
func (l *Layer) FindKeys(ctx context.Context, pattern string, notPattern string) ([]string, error) {
	keys, err := l.backend.FindKeys(ctx, pattern, notPattern)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}

	l.mu.Lock()
	for key, op := range l.buffer {
		matches := util.MatchGlob(pattern, key) && (notPattern == "" || !util.MatchGlob(notPattern, key))
		if !matches {
			continue
		}
		if op.kind == opSet {
			set[key] = true
		} else {
			delete(set, key)
		}
	}
	l.mu.Unlock()

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out, nil
}

// GetSub returns the value at path within the value stored at key, or
// nil if key is absent or any intermediate component is missing.
func (l *Layer) GetSub(ctx context.Context, key string, path []string) (any, error) {
	value, err := l.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return pathGet(value, path), nil
}

// SetSub reads the value at key, assigns leaf at path (creating
// intermediate mappings as needed), and writes the result back with
// Set. Callers that need this to be atomic with respect to other
// operations on the same key must run it through a single per-key
// serializer slot (see package pks); SetSub itself only guarantees
// atomicity of the read-modify-write against Layer's own internal
// bookkeeping, not against a concurrent caller bypassing that slot.
func (l *Layer) SetSub(ctx context.Context, key string, path []string, leaf any) (<-chan error, error) {
	current, err := l.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	updated, err := pathSet(current, path, leaf)
	if err != nil {
		return nil, err
	}
	return l.Set(ctx, key, updated)
}

// flush drains the write buffer through the backend's bulk path and
// returns the bulk call's error, if any.
func (l *Layer) flush(ctx context.Context) error {
	l.mu.Lock()
	if len(l.buffer) == 0 {
		l.mu.Unlock()
		return nil
	}
	detached := l.buffer
	order := l.bufferOrder
	l.buffer = make(map[string]*pendingOp)
	l.bufferOrder = nil

	for _, key := range order {
		if raw, ok := l.cache.Peek(key); ok {
			raw.(*cacheEntry).inFlightWrite = true
		}
	}
	l.mu.Unlock()

	flushID := uuid.NewString()
	Logger.Debug("flush starting", "flush_id", flushID, "keys", len(order))

	ops := make([]backend.Op, 0, len(order))
	for _, key := range order {
		op := detached[key]
		switch op.kind {
		case opSet:
			encoded, err := encodeValue(op.value, l.opts.JSON)
			if err != nil {
				l.failOne(key, op, err)
				delete(detached, key)
				continue
			}
			ops = append(ops, backend.Op{Type: backend.OpSet, Key: key, Value: encoded})
		case opRemove:
			ops = append(ops, backend.Op{Type: backend.OpRemove, Key: key})
		}
	}

	var err error
	if len(ops) > 0 {
		start := time.Now()
		err = l.backend.DoBulk(ctx, ops)
		metrics.FlushDuration.UpdateDuration(start)
		metrics.FlushTotal.Inc()
		metrics.FlushKeysTotal.Add(len(ops))
		if err != nil {
			metrics.FlushFailTotal.Inc()
		}
	}

	if err != nil {
		Logger.Warn("flush failed", "flush_id", flushID, "keys", len(ops), "err", err)
	} else {
		Logger.Debug("flush completed", "flush_id", flushID, "keys", len(ops))
	}

	l.mu.Lock()
	var restored []string
	for _, key := range order {
		op, ok := detached[key]
		if !ok {
			continue
		}
		_, stillBuffered := l.buffer[key]
		if raw, ok := l.cache.Peek(key); ok {
			entry := raw.(*cacheEntry)
			entry.inFlightWrite = false
			if err == nil && !stillBuffered && entry.dirty {
				entry.dirty = false
				l.cleanCount++
			}
		}
		for _, ch := range op.completions {
			ch <- err
		}
		// On failure, a key with no fresher write queued behind it must go
		// back into the buffer: it is still dirty and must stay findable
		// there, per the CacheEntry invariant. A fresher write already
		// queued for this key wins and the failed op is dropped.
		if err != nil && !stillBuffered {
			l.buffer[key] = &pendingOp{kind: op.kind, value: op.value}
			restored = append(restored, key)
		}
	}
	if len(restored) > 0 {
		l.bufferOrder = append(restored, l.bufferOrder...)
	}
	l.mu.Unlock()

	l.evict()
	return err
}

func (l *Layer) failOne(key string, op *pendingOp, err error) {
	for _, ch := range op.completions {
		ch <- err
	}
}

// evict runs an eviction pass: while the clean population exceeds
// Options.Cache, remove clean, non-in-flight entries from the LRU tail
// until the population is back at or below Cache-CacheMinGap, or no
// eligible victim remains.
func (l *Layer) evict() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cleanCount <= l.opts.Cache {
		return
	}
	target := l.opts.Cache - l.opts.CacheMinGap
	if target < 0 {
		target = 0
	}

	for _, key := range l.cache.Keys() {
		if l.cleanCount <= target {
			break
		}
		raw, ok := l.cache.Peek(key)
		if !ok {
			continue
		}
		entry := raw.(*cacheEntry)
		if entry.dirty || entry.inFlightWrite {
			continue
		}
		l.cache.Remove(key)
		l.cleanCount--
		metrics.CacheEvictTotal.Inc()
	}
}

// Shutdown flushes the write buffer synchronously to completion, then
// stops the flusher. Errors from the final flush are returned.
func (l *Layer) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	err := l.flush(ctx)

	l.mu.Lock()
	l.closed = true
	hadPending := len(l.buffer) > 0
	l.mu.Unlock()

	if hadPending {
		// a write arrived mid-flush via a racing caller that slipped in
		// before closed was set, or the flush above failed and put its
		// ops back; drain it too.
		err = l.flush(ctx)
	}

	l.stopFlusher()
	return err
}

// Close stops the flusher without flushing, then closes the backend.
func (l *Layer) Close(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	l.stopFlusher()
	return l.backend.Close(ctx)
}

func (l *Layer) stopFlusher() {
	if l.ticker == nil {
		return
	}
	l.stopOnce.Do(func() {
		close(l.tickDone)
		l.ticker.Stop()
		l.wg.Wait()
	})
}
