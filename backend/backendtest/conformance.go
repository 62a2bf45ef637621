// Package backendtest provides a conformance test suite that any
// backend.KVBackend implementation must pass: Init/Get/Set/Remove/
// FindKeys/DoBulk/Close and MaxKeyLen. No TTL, no Save/Load — those
// concerns live in the cache-and-buffer layer, not the backend.
package backendtest

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/kolbkit/ckv/backend"
)

// Factory creates a fresh, empty backend instance for one subtest.
type Factory func(t *testing.T) backend.KVBackend

// Run executes the full conformance suite against backends produced by factory.
func Run(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("SetGet", func(t *testing.T) { testSetGet(t, factory(t)) })
		t.Run("Remove", func(t *testing.T) { testRemove(t, factory(t)) })
		t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, factory(t)) })
		t.Run("FindKeys", func(t *testing.T) { testFindKeys(t, factory(t)) })
		t.Run("DoBulk", func(t *testing.T) { testDoBulk(t, factory(t)) })
		t.Run("DoBulkOrderPerKey", func(t *testing.T) { testDoBulkOrderPerKey(t, factory(t)) })
		t.Run("EdgeCases", func(t *testing.T) { testEdgeCases(t, factory(t)) })
		t.Run("MaxKeyLen", func(t *testing.T) { testMaxKeyLen(t, factory(t)) })
	})
}

func initOrFail(t *testing.T, b backend.KVBackend) {
	t.Helper()
	if err := b.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func testSetGet(t *testing.T, b backend.KVBackend) {
	ctx := context.Background()
	initOrFail(t, b)
	defer b.Close(ctx)

	if err := b.Set(ctx, "k1", []byte("v1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, found, err := b.Get(ctx, "k1")
	if err != nil || !found {
		t.Fatalf("Get after Set: found=%v err=%v", found, err)
	}
	if !bytes.Equal(val, []byte("v1")) {
		t.Fatalf("Get returned %q, want %q", val, "v1")
	}

	if err := b.Set(ctx, "k1", []byte("v2")); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	val, found, err = b.Get(ctx, "k1")
	if err != nil || !found || !bytes.Equal(val, []byte("v2")) {
		t.Fatalf("Get after overwrite: val=%q found=%v err=%v", val, found, err)
	}
}

func testRemove(t *testing.T, b backend.KVBackend) {
	ctx := context.Background()
	initOrFail(t, b)
	defer b.Close(ctx)

	_ = b.Set(ctx, "k1", []byte("v1"))
	if err := b.Remove(ctx, "k1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	_, found, err := b.Get(ctx, "k1")
	if err != nil || found {
		t.Fatalf("Get after Remove: found=%v err=%v", found, err)
	}

	// removing an absent key is not an error
	if err := b.Remove(ctx, "nonexistent"); err != nil {
		t.Fatalf("Remove of absent key returned error: %v", err)
	}
}

func testGetMissing(t *testing.T, b backend.KVBackend) {
	ctx := context.Background()
	initOrFail(t, b)
	defer b.Close(ctx)

	_, found, err := b.Get(ctx, "never-set")
	if err != nil || found {
		t.Fatalf("Get of never-set key: found=%v err=%v", found, err)
	}
}

func testFindKeys(t *testing.T, b backend.KVBackend) {
	ctx := context.Background()
	initOrFail(t, b)
	defer b.Close(ctx)

	for _, k := range []string{"pad:1", "pad:2", "pad:3", "other:1"} {
		if err := b.Set(ctx, k, []byte("v")); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	got, err := b.FindKeys(ctx, "pad:*", "")
	if err != nil {
		t.Fatalf("FindKeys: %v", err)
	}
	sort.Strings(got)
	want := []string{"pad:1", "pad:2", "pad:3"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("FindKeys(pad:*) = %v, want %v", got, want)
	}

	got, err = b.FindKeys(ctx, "pad:*", "pad:2")
	if err != nil {
		t.Fatalf("FindKeys with notPattern: %v", err)
	}
	sort.Strings(got)
	want = []string{"pad:1", "pad:3"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("FindKeys(pad:*, !pad:2) = %v, want %v", got, want)
	}
}

func testDoBulk(t *testing.T, b backend.KVBackend) {
	ctx := context.Background()
	initOrFail(t, b)
	defer b.Close(ctx)

	ops := []backend.Op{
		{Type: backend.OpSet, Key: "a", Value: []byte("1")},
		{Type: backend.OpSet, Key: "b", Value: []byte("2")},
		{Type: backend.OpRemove, Key: "c"},
	}
	_ = b.Set(ctx, "c", []byte("to-remove"))

	if err := b.DoBulk(ctx, ops); err != nil {
		t.Fatalf("DoBulk: %v", err)
	}

	for _, tc := range []struct {
		key   string
		want  string
		found bool
	}{
		{"a", "1", true},
		{"b", "2", true},
		{"c", "", false},
	} {
		val, found, err := b.Get(ctx, tc.key)
		if err != nil {
			t.Fatalf("Get(%s): %v", tc.key, err)
		}
		if found != tc.found {
			t.Fatalf("Get(%s) found=%v want %v", tc.key, found, tc.found)
		}
		if found && !bytes.Equal(val, []byte(tc.want)) {
			t.Fatalf("Get(%s) = %q want %q", tc.key, val, tc.want)
		}
	}
}

// testDoBulkOrderPerKey verifies that when a batch contains more than
// one operation for the same key, the later operation wins (the CBL
// never actually produces such a batch since it collapses same-key
// writes before flush, but the backend contract requires it anyway).
func testDoBulkOrderPerKey(t *testing.T, b backend.KVBackend) {
	ctx := context.Background()
	initOrFail(t, b)
	defer b.Close(ctx)

	ops := []backend.Op{
		{Type: backend.OpSet, Key: "x", Value: []byte("first")},
		{Type: backend.OpSet, Key: "x", Value: []byte("second")},
	}
	if err := b.DoBulk(ctx, ops); err != nil {
		t.Fatalf("DoBulk: %v", err)
	}
	val, found, err := b.Get(ctx, "x")
	if err != nil || !found {
		t.Fatalf("Get(x): found=%v err=%v", found, err)
	}
	if !bytes.Equal(val, []byte("second")) {
		t.Fatalf("Get(x) = %q, want %q (later op must win)", val, "second")
	}
}

func testEdgeCases(t *testing.T, b backend.KVBackend) {
	ctx := context.Background()
	initOrFail(t, b)
	defer b.Close(ctx)

	if err := b.Set(ctx, "empty-value", []byte{}); err != nil {
		t.Fatalf("Set empty value: %v", err)
	}
	val, found, err := b.Get(ctx, "empty-value")
	if err != nil || !found {
		t.Fatalf("Get empty-value: found=%v err=%v", found, err)
	}
	if len(val) != 0 {
		t.Fatalf("Get empty-value returned %v, want empty", val)
	}
}

func testMaxKeyLen(t *testing.T, b backend.KVBackend) {
	if b.MaxKeyLen() == 0 {
		t.Skip("backend imposes no key length limit")
	}
	// MaxKeyLen is advisory metadata consulted by the façade before
	// buffering (spec §6); the backend itself is not required to
	// enforce it, so this test only checks the reported value is sane.
	if b.MaxKeyLen() < 0 {
		t.Fatalf("MaxKeyLen() = %d, want >= 0", b.MaxKeyLen())
	}
}
