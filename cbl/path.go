package cbl

import (
	"fmt"

	"github.com/kolbkit/ckv/ckverr"
)

// pathGet walks value by the ordered path components, returning nil as
// soon as any intermediate is absent or is not a mapping.
func pathGet(value any, path []string) any {
	cur := value
	for _, comp := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		next, ok := m[comp]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// pathSet returns a new value equal to value but with leaf assigned at
// path, creating intermediate mappings for any missing component. It
// never mutates value or any of its nested mappings in place: every
// mapping on the path to the leaf is shallow-copied first.
func pathSet(value any, path []string, leaf any) (any, error) {
	if len(path) == 0 {
		return nil, ckverr.New(ckverr.CodeInvalid, "setSub: empty path")
	}

	var root map[string]any
	switch v := value.(type) {
	case nil:
		root = make(map[string]any)
	case map[string]any:
		root = shallowCopy(v)
	default:
		return nil, ckverr.New(ckverr.CodeTypeMismatch, "setSub: value at key is not a mapping")
	}

	if err := setInto(root, path, leaf); err != nil {
		return nil, err
	}
	return root, nil
}

func setInto(m map[string]any, path []string, leaf any) error {
	comp := path[0]
	if len(path) == 1 {
		m[comp] = leaf
		return nil
	}

	var child map[string]any
	switch v := m[comp].(type) {
	case nil:
		child = make(map[string]any)
	case map[string]any:
		child = shallowCopy(v)
	default:
		return ckverr.New(ckverr.CodeTypeMismatch, fmt.Sprintf("setSub: %q is not a mapping", comp))
	}

	m[comp] = child
	return setInto(child, path[1:], leaf)
}

func shallowCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
