package facade

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kolbkit/ckv/backend"
	"github.com/kolbkit/ckv/backend/util"
	"github.com/kolbkit/ckv/cbl"
)

type fakeBackend struct {
	mu        sync.Mutex
	data      map[string][]byte
	bulkCalls atomic.Int64
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: make(map[string][]byte)}
}

func (f *fakeBackend) Init(context.Context) error { return nil }

func (f *fakeBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeBackend) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func (f *fakeBackend) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeBackend) FindKeys(_ context.Context, pattern, notPattern string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.data {
		if util.MatchGlob(pattern, k) && (notPattern == "" || !util.MatchGlob(notPattern, k)) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeBackend) DoBulk(_ context.Context, ops []backend.Op) error {
	f.bulkCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, op := range ops {
		switch op.Type {
		case backend.OpSet:
			f.data[op.Key] = op.Value
		case backend.OpRemove:
			delete(f.data, op.Key)
		}
	}
	return nil
}

func (f *fakeBackend) Close(context.Context) error { return nil }

func (f *fakeBackend) MaxKeyLen() int { return 0 }

func newFacade(t *testing.T, writeInterval time.Duration) (*Facade, *fakeBackend) {
	t.Helper()
	b := newFakeBackend()
	layer := cbl.New(b, cbl.Options{Cache: 1000, WriteInterval: writeInterval, JSON: true})
	f := New(layer)
	if err := f.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return f, b
}

func mustWriteAck(t *testing.T, ch <-chan error) {
	t.Helper()
	select {
	case err := <-ch:
		if err != nil {
			t.Fatalf("write-completed error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("write-completed never fired")
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, 50*time.Millisecond)
	defer f.Close(ctx)

	bufferErr, writeAck := f.Set(ctx, "k", map[string]any{"a": 1})
	if bufferErr != nil {
		t.Fatalf("buffer-accepted error: %v", bufferErr)
	}
	mustWriteAck(t, writeAck)

	v, err := f.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok || m["a"] != 1 {
		t.Fatalf("Get = %v, want {a:1}", v)
	}
}

func TestSetRemoveRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, 0)
	defer f.Close(ctx)

	_, writeAck := f.Set(ctx, "k", "v")
	mustWriteAck(t, writeAck)

	_, removeAck := f.Remove(ctx, "k")
	mustWriteAck(t, removeAck)

	v, err := f.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != nil {
		t.Fatalf("Get after Remove = %v, want nil", v)
	}
}

// TestIngressMutationDoesNotLeak is invariant 4: mutating a value
// passed to Set after the call must not change what a later Get sees.
func TestIngressMutationDoesNotLeak(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, 0)
	defer f.Close(ctx)

	m := map[string]any{"a": 1}
	_, writeAck := f.Set(ctx, "k", m)
	mustWriteAck(t, writeAck)
	m["a"] = 999

	v, err := f.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.(map[string]any)["a"] != 1 {
		t.Fatalf("Get(k) = %v, ingress mutation leaked into stored value", v)
	}
}

// TestEgressMutationDoesNotLeak is invariant 5: mutating a value
// returned from Get must not change any future Get's result.
func TestEgressMutationDoesNotLeak(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, 0)
	defer f.Close(ctx)

	_, writeAck := f.Set(ctx, "k", map[string]any{"a": 1})
	mustWriteAck(t, writeAck)

	v1, err := f.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	v1.(map[string]any)["a"] = 999

	v2, err := f.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v2.(map[string]any)["a"] != 1 {
		t.Fatalf("Get(k) second call = %v, egress mutation leaked", v2)
	}
}

// TestCoalescing is scenario 1: back-to-back sets on one key collapse
// into a single backend DoBulk call carrying only the final value.
func TestCoalescing(t *testing.T) {
	ctx := context.Background()
	f, b := newFacade(t, 50*time.Millisecond)
	defer f.Close(ctx)

	var acks []<-chan error
	for _, v := range []int{1, 2, 3} {
		_, ack := f.Set(ctx, "x", v)
		acks = append(acks, ack)
	}
	for _, ack := range acks {
		mustWriteAck(t, ack)
	}

	if n := b.bulkCalls.Load(); n != 1 {
		t.Fatalf("DoBulk called %d times, want 1", n)
	}
	v, err := f.Get(ctx, "x")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.(int) != 3 {
		t.Fatalf("Get(x) = %v, want 3", v)
	}
}

// TestPerKeyOrdering is scenario 2: set(a); get; set(b); get must
// observe "a" then "b" regardless of backend latency.
func TestPerKeyOrdering(t *testing.T) {
	ctx := context.Background()
	// WriteInterval is deliberately long: the buffered write must be
	// visible to Get long before any backend round trip happens.
	f, _ := newFacade(t, time.Hour)
	defer f.Close(ctx)

	if bufferErr, _ := f.Set(ctx, "x", "a"); bufferErr != nil {
		t.Fatalf("Set: %v", bufferErr)
	}
	v1, err := f.Get(ctx, "x")
	if err != nil || v1 != "a" {
		t.Fatalf("first Get = %v, err %v, want a", v1, err)
	}

	if bufferErr, _ := f.Set(ctx, "x", "b"); bufferErr != nil {
		t.Fatalf("Set: %v", bufferErr)
	}
	v2, err := f.Get(ctx, "x")
	if err != nil || v2 != "b" {
		t.Fatalf("second Get = %v, err %v, want b", v2, err)
	}
}

// TestFindKeysOverlay is scenario 5.
func TestFindKeysOverlay(t *testing.T) {
	ctx := context.Background()
	f, b := newFacade(t, time.Hour)
	defer f.Close(ctx)

	b.data["pad:1"], _ = json.Marshal("v")
	b.data["pad:2"], _ = json.Marshal("v")

	if bufferErr, _ := f.Remove(ctx, "pad:1"); bufferErr != nil {
		t.Fatalf("Remove: %v", bufferErr)
	}
	if bufferErr, _ := f.Set(ctx, "pad:3", "v"); bufferErr != nil {
		t.Fatalf("Set: %v", bufferErr)
	}

	got, err := f.FindKeys(ctx, "pad:*", "")
	if err != nil {
		t.Fatalf("FindKeys: %v", err)
	}
	sort.Strings(got)
	want := []string{"pad:2", "pad:3"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("FindKeys(pad:*) = %v, want %v", got, want)
	}
}

func TestSetSubRoundTrip(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t, 0)
	defer f.Close(ctx)

	_, ack := f.SetSub(ctx, "k", []string{"a", "b"}, 1)
	mustWriteAck(t, ack)

	got, err := f.GetSub(ctx, "k", []string{"a", "b"})
	if err != nil {
		t.Fatalf("GetSub: %v", err)
	}
	if got.(int) != 1 {
		t.Fatalf("GetSub = %v, want 1", got)
	}

	whole, err := f.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	m := whole.(map[string]any)
	if m["a"].(map[string]any)["b"] != 1 {
		t.Fatalf("Get(k) = %v, want deep-includes {a:{b:1}}", whole)
	}
}

func TestShutdownDurability(t *testing.T) {
	ctx := context.Background()
	f, b := newFacade(t, time.Hour)

	var acks []<-chan error
	for i := 0; i < 1000; i++ {
		_, ack := f.Set(ctx, fmt.Sprintf("k%d", i), i)
		acks = append(acks, ack)
	}
	if err := f.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	for _, ack := range acks {
		mustWriteAck(t, ack)
	}

	b.mu.Lock()
	n := len(b.data)
	b.mu.Unlock()
	if n != 1000 {
		t.Fatalf("backend holds %d keys after Shutdown, want 1000", n)
	}
}
