package pks

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kolbkit/ckv/ckverr"
)

func drain(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("op did not complete in time")
		return nil
	}
}

func TestRunSingleOp(t *testing.T) {
	s := New()
	ran := false
	err := drain(t, s.Run("k", func() error {
		ran = true
		return nil
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("op did not run")
	}
}

func TestPerKeyOrder(t *testing.T) {
	s := New()
	var mu sync.Mutex
	var order []int

	var chans []<-chan error
	for i := 0; i < 50; i++ {
		i := i
		chans = append(chans, s.Run("k", func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}
	for _, ch := range chans {
		drain(t, ch)
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d: ops for one key ran out of submission order", i, v, i)
		}
	}
}

func TestCrossKeyParallelism(t *testing.T) {
	s := New()
	start := make(chan struct{})
	var wg sync.WaitGroup
	var running atomic.Int32
	var sawBoth atomic.Bool

	wg.Add(2)
	for _, key := range []string{"x", "y"} {
		key := key
		go func() {
			defer wg.Done()
			<-start
			drain(t, s.Run(key, func() error {
				n := running.Add(1)
				if n == 2 {
					sawBoth.Store(true)
				}
				time.Sleep(50 * time.Millisecond)
				running.Add(-1)
				return nil
			}))
		}()
	}
	close(start)
	wg.Wait()

	if !sawBoth.Load() {
		t.Fatal("operations on distinct keys did not run concurrently")
	}
}

func TestQueueDrainsInOrderAfterBusyHead(t *testing.T) {
	s := New()
	block := make(chan struct{})
	first := s.Run("k", func() error {
		<-block
		return nil
	})

	var mu sync.Mutex
	var order []int
	var chans []<-chan error
	for i := 0; i < 5; i++ {
		i := i
		chans = append(chans, s.Run("k", func() error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}

	close(block)
	drain(t, first)
	for _, ch := range chans {
		drain(t, ch)
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestShutdownRejectsNewOps(t *testing.T) {
	s := New()
	s.Shutdown()

	err := drain(t, s.Run("k", func() error {
		t.Fatal("op should not run after shutdown")
		return nil
	}))
	if !ckverr.Is(err, ckverr.CodeShutdown) {
		t.Fatalf("expected shutdown error, got %v", err)
	}
}

func TestPropagatesOpError(t *testing.T) {
	s := New()
	wantErr := ckverr.New(ckverr.CodeBackendIO, "boom")
	err := drain(t, s.Run("k", func() error {
		return wantErr
	}))
	if err != wantErr {
		t.Fatalf("error not propagated: got %v want %v", err, wantErr)
	}
}
