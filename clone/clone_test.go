package clone

import (
	"reflect"
	"testing"

	"github.com/kolbkit/ckv/ckverr"
)

func TestCloneScalars(t *testing.T) {
	for _, v := range []any{nil, true, "s", 42, 3.14} {
		got, err := Clone(v)
		if err != nil {
			t.Fatalf("Clone(%v): %v", v, err)
		}
		if got != v {
			t.Fatalf("Clone(%v) = %v", v, got)
		}
	}
}

func TestCloneNestedIsIndependent(t *testing.T) {
	inner := map[string]any{"b": 1}
	v := map[string]any{"a": inner, "list": []any{1, 2, map[string]any{"x": "y"}}}

	got, err := Clone(v)
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if !reflect.DeepEqual(got, v) {
		t.Fatalf("Clone(%v) = %v, want deep-equal copy", v, got)
	}

	// mutate the original after cloning; the clone must not see it
	inner["b"] = 999
	v["list"].([]any)[0] = "changed"

	gotMap := got.(map[string]any)
	if gotMap["a"].(map[string]any)["b"] != 1 {
		t.Fatal("clone aliased a nested map")
	}
	if gotMap["list"].([]any)[0] != 1 {
		t.Fatal("clone aliased a nested list")
	}
}

func TestCloneRejectsUnsupportedType(t *testing.T) {
	type notJSON struct{ X int }
	_, err := Clone(notJSON{X: 1})
	if !ckverr.Is(err, ckverr.CodeTypeMismatch) {
		t.Fatalf("expected type-mismatch error, got %v", err)
	}
}

func TestCloneDetectsCycle(t *testing.T) {
	m := map[string]any{}
	m["self"] = m
	_, err := Clone(m)
	if !ckverr.Is(err, ckverr.CodeCycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}
