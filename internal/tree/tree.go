package tree

import (
	"encoding/json"
	"maps"
	"math"
	"reflect"
	"strconv"
)

// Get returns the value at path. Traversal stops with (nil, false) at a
// missing member, an out-of-range index, nil, or a leaf.
func Get(t any, path string) (any, bool) {
	segs, err := Parse(path)
	if err != nil {
		return nil, false
	}
	return GetSegments(t, segs)
}

// GetSegments is Get over pre-parsed segments.
func GetSegments(t any, segs []Segment) (any, bool) {
	cur := t
	for _, s := range segs {
		switch c := cur.(type) {
		case map[string]any:
			if s.IsIndex {
				return nil, false
			}
			v, ok := c[s.Key]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			if !s.IsIndex || s.Index >= len(c) {
				return nil, false
			}
			cur = c[s.Index]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set returns a copy of t with v stored at path. Only containers on the way
// to path are copied; everything else is shared with t. Missing or leaf
// steps are replaced by fresh containers.
func Set(t any, path string, v any) any {
	segs, err := Parse(path)
	if err != nil {
		return t
	}
	return SetSegments(t, segs, v)
}

// SetSegments is Set over pre-parsed segments.
func SetSegments(t any, segs []Segment, v any) any {
	if len(segs) == 0 {
		return v
	}
	s := segs[0]
	if s.IsIndex {
		src, _ := t.([]any)
		n := len(src)
		if s.Index >= n {
			n = s.Index + 1
		}
		out := make([]any, n)
		copy(out, src)
		var child any
		if s.Index < len(src) {
			child = src[s.Index]
		}
		out[s.Index] = SetSegments(child, segs[1:], v)
		return out
	}
	src, _ := t.(map[string]any)
	out := make(map[string]any, len(src)+1)
	maps.Copy(out, src)
	out[s.Key] = SetSegments(src[s.Key], segs[1:], v)
	return out
}

// IsContainer reports whether v is a map[string]any or a []any.
func IsContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	}
	return false
}

// Same reports reference identity: containers are the same when they share
// the same backing storage (and length for slices); comparable leaves use ==.
func Same(a, b any) bool {
	switch x := a.(type) {
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok {
			return false
		}
		if x == nil || y == nil {
			return x == nil && y == nil
		}
		return reflect.ValueOf(x).UnsafePointer() == reflect.ValueOf(y).UnsafePointer()
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		if len(x) == 0 {
			return (x == nil) == (y == nil) && reflect.ValueOf(x).UnsafePointer() == reflect.ValueOf(y).UnsafePointer()
		}
		return &x[0] == &y[0]
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// Equal is deep value equality over values trees. Numeric leaves compare by
// value regardless of their Go type.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	if _, ok := b.(map[string]any); ok {
		return false
	}
	if _, ok := b.([]any); ok {
		return false
	}
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && (fa == fb || (math.IsNaN(fa) && math.IsNaN(fb)))
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == tb && ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	}
	return 0, false
}

// Fill returns a tree shaped like shape whose leaves are all b. Empty
// containers and leaves collapse to b itself.
func Fill(shape any, b bool) any {
	switch c := shape.(type) {
	case map[string]any:
		if len(c) == 0 {
			return b
		}
		out := make(map[string]any, len(c))
		for k, v := range c {
			out[k] = Fill(v, b)
		}
		return out
	case []any:
		if len(c) == 0 {
			return b
		}
		out := make([]any, len(c))
		for i, v := range c {
			out[i] = Fill(v, b)
		}
		return out
	}
	return b
}

// AnyTrue reports whether any bool leaf in t is true.
func AnyTrue(t any) bool {
	switch c := t.(type) {
	case bool:
		return c
	case map[string]any:
		for _, v := range c {
			if AnyTrue(v) {
				return true
			}
		}
	case []any:
		for _, v := range c {
			if AnyTrue(v) {
				return true
			}
		}
	}
	return false
}
