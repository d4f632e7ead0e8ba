// Package dirty tracks which paths of a values tree differ from its initial
// tree, recomputing only the subtree that changed.
package dirty

import (
	"maps"
	"slices"

	"github.com/reoring/formstate/internal/tree"
)

// Set is an immutable set of paths. Operations return new sets.
type Set map[string]struct{}

// Of builds a set from paths.
func Of(paths ...string) Set {
	s := make(Set, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Len returns the number of paths.
func (s Set) Len() int { return len(s) }

// Sorted returns the paths in lexical order.
func (s Set) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}

// HasAncestorOrSelf reports whether path or one of its ancestors is in s.
func (s Set) HasAncestorOrSelf(path string) bool {
	for p := range s {
		if tree.IsAncestorOrSelf(p, path) {
			return true
		}
	}
	return false
}

// Recompute returns set with every entry at or below root replaced by the
// paths under root where current differs from initial.
func Recompute(set Set, initial, current any, root string) Set {
	out := make(Set, len(set))
	for p := range set {
		if !tree.IsAncestorOrSelf(root, p) {
			out[p] = struct{}{}
		}
	}
	segs, err := tree.Parse(root)
	if err != nil {
		return out
	}
	a, aok := tree.GetSegments(initial, segs)
	b, bok := tree.GetSegments(current, segs)
	if aok != bok {
		out[root] = struct{}{}
		return out
	}
	diff(out, a, b, root)
	return out
}

func diff(out Set, a, b any, path string) {
	if tree.Same(a, b) {
		return
	}
	switch x := a.(type) {
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok {
			out[path] = struct{}{}
			return
		}
		for k, xv := range x {
			p := tree.Join(path, tree.Key(k))
			yv, ok := y[k]
			if !ok {
				out[p] = struct{}{}
				continue
			}
			diff(out, xv, yv, p)
		}
		for k := range y {
			if _, ok := x[k]; !ok {
				out[tree.Join(path, tree.Key(k))] = struct{}{}
			}
		}
	case []any:
		y, ok := b.([]any)
		if !ok {
			out[path] = struct{}{}
			return
		}
		if len(x) != len(y) {
			out[path] = struct{}{}
		}
		for i := range max(len(x), len(y)) {
			p := tree.Join(path, tree.Index(i))
			if i >= len(x) || i >= len(y) {
				out[p] = struct{}{}
				continue
			}
			diff(out, x[i], y[i], p)
		}
	default:
		if tree.IsContainer(b) || !tree.Equal(a, b) {
			out[path] = struct{}{}
		}
	}
}
