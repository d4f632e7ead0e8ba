package formstate

import "github.com/reoring/formstate/internal/tree"

// Path renders string keys and int indices into a path such as
// "items[2].name".
func Path(parts ...any) string { return tree.ToPath(parts...) }

// ParsePath reports whether path is well formed and returns its parts as
// string keys and int indices.
func ParsePath(path string) ([]any, error) {
	segs, err := tree.Parse(path)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(segs))
	for i, s := range segs {
		out[i] = s.Value()
	}
	return out, nil
}

// GetPath reads the value at path in a values tree.
func GetPath(values any, path string) (any, bool) { return tree.Get(values, path) }

// SetPath returns a copy of values with v stored at path. Containers off
// the path are shared with values.
func SetPath(values any, path string, v any) any { return tree.Set(values, path, v) }

// Equal is deep value equality over values trees. Numbers compare by value,
// so 1 and 1.0 are equal.
func Equal(a, b any) bool { return tree.Equal(a, b) }
