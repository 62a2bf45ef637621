// Package pks implements the Per-Key Serializer: a mapping from logical
// key to a FIFO queue of pending operations. Operations submitted for
// the same key run strictly in submission order; operations on distinct
// keys run concurrently and share only a short critical section on the
// queue table, never a lock held while an operation runs.
//
// Each key gets a short-lived queue: a single goroutine drains it while
// work is pending and the entry is garbage collected once drained, so
// idle keys cost nothing but a map lookup.
package pks

import (
	"sync"

	"github.com/kolbkit/ckv/ckverr"
)

// Op is a unit of work submitted to the serializer. It runs with no
// other Op for the same key running concurrently.
type Op func() error

type keyQueue struct {
	mu      sync.Mutex
	pending []Op
	running bool
}

// Serializer owns the Key → FIFO queue table. The zero value is not
// usable; construct with New.
type Serializer struct {
	mu       sync.Mutex
	queues   map[string]*keyQueue
	shutdown bool
}

// New creates an empty Serializer.
func New() *Serializer {
	return &Serializer{queues: make(map[string]*keyQueue)}
}

// Run submits op for execution under key's FIFO queue and returns a
// channel that receives op's result exactly once, after op has run (or
// been rejected because the serializer is shut down).
//
// Thread-safety: Run is safe to call concurrently from any number of
// goroutines, for any number of distinct or identical keys.
func (s *Serializer) Run(key string, op Op) <-chan error {
	done := make(chan error, 1)

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		done <- ckverr.New(ckverr.CodeShutdown, "pks: serializer is shut down")
		return done
	}
	q, ok := s.queues[key]
	if !ok {
		q = &keyQueue{}
		s.queues[key] = q
	}
	s.mu.Unlock()

	wrapped := func() error {
		err := op()
		done <- err
		return err
	}

	q.mu.Lock()
	if q.running {
		q.pending = append(q.pending, wrapped)
		q.mu.Unlock()
		return done
	}
	q.running = true
	q.mu.Unlock()

	go s.runLoop(key, q, wrapped)
	return done
}

// runLoop executes first and then drains q.pending in order, garbage
// collecting the queue's entry in the table once it is empty.
func (s *Serializer) runLoop(key string, q *keyQueue, first Op) {
	current := first
	for {
		current()

		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			s.gc(key, q)
			return
		}
		current = q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()
	}
}

// gc removes key's queue from the table iff it is still empty and not
// running, avoiding a race with a new Run call that arrived between
// runLoop's unlock and this call.
func (s *Serializer) gc(key string, q *keyQueue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running && len(q.pending) == 0 && s.queues[key] == q {
		delete(s.queues, key)
	}
}

// Shutdown marks the serializer closed; subsequent Run calls fail
// immediately with a shutdown error. Operations already queued or
// running are not affected and continue to completion.
func (s *Serializer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
}
