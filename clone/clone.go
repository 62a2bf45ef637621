// Package clone implements the deep-clone boundary used at every
// ingress and egress point of the key/value facade: values are
// JSON-shaped (nil, bool, numeric, string, []any, map[string]any,
// time.Time) and are never shared between a caller and cached state.
package clone

import (
	"fmt"
	"reflect"
	"time"

	"github.com/kolbkit/ckv/ckverr"
)

// Clone returns a deep copy of v. v must be built exclusively from nil,
// bool, numeric types, string, time.Time, []any, and map[string]any;
// any other concrete type is rejected with a type-mismatch error so
// that unsupported shapes fail loudly instead of aliasing silently.
func Clone(v any) (any, error) {
	return cloneSeen(v, make(map[uintptr]bool))
}

// MustClone is a convenience wrapper for call sites that have already
// validated v (e.g. round-tripped it through JSON) and want to treat a
// clone failure as a programming error.
func MustClone(v any) any {
	out, err := Clone(v)
	if err != nil {
		panic(err)
	}
	return out
}

func cloneSeen(v any, seen map[uintptr]bool) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return x, nil
	case time.Time:
		return x, nil
	case []any:
		ptr := reflect.ValueOf(x).Pointer()
		if len(x) > 0 {
			if seen[ptr] {
				return nil, ckverr.New(ckverr.CodeCycle, "clone: cyclic list")
			}
			seen = markSeen(seen, ptr)
		}
		out := make([]any, len(x))
		for i, elem := range x {
			cloned, err := cloneSeen(elem, seen)
			if err != nil {
				return nil, err
			}
			out[i] = cloned
		}
		return out, nil
	case map[string]any:
		ptr := reflect.ValueOf(x).Pointer()
		if seen[ptr] {
			return nil, ckverr.New(ckverr.CodeCycle, "clone: cyclic mapping")
		}
		seen = markSeen(seen, ptr)
		out := make(map[string]any, len(x))
		for k, elem := range x {
			cloned, err := cloneSeen(elem, seen)
			if err != nil {
				return nil, err
			}
			out[k] = cloned
		}
		return out, nil
	default:
		return nil, ckverr.New(ckverr.CodeTypeMismatch, fmt.Sprintf("clone: unsupported value type %T", v))
	}
}

// markSeen returns a copy of seen with ptr added, so that sibling
// branches of the value tree do not see each other's identities as
// cycles.
func markSeen(seen map[uintptr]bool, ptr uintptr) map[uintptr]bool {
	out := make(map[uintptr]bool, len(seen)+1)
	for k := range seen {
		out[k] = true
	}
	out[ptr] = true
	return out
}
