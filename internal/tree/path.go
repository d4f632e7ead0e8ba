// Package tree implements path addressing over values trees built from
// map[string]any, []any and leaf values.
//
// Paths use `.` between object members and `[i]` for array indices, e.g.
// "items[2].name". The empty path addresses the root.
package tree

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedPath is returned by Parse for paths that cannot be decoded.
var ErrMalformedPath = errors.New("tree: malformed path")

// Segment is one step of a path: either an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key returns an object member segment.
func Key(k string) Segment { return Segment{Key: k} }

// Index returns an array index segment.
func Index(i int) Segment { return Segment{Index: i, IsIndex: true} }

// Value returns the segment as a string key or an int index.
func (s Segment) Value() any {
	if s.IsIndex {
		return s.Index
	}
	return s.Key
}

func (s Segment) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// ToPath renders parts (string keys, int indices or Segments) into a path.
// Unsupported part types are rendered with fmt.Sprint as keys.
func ToPath(parts ...any) string {
	b := &strings.Builder{}
	for _, p := range parts {
		switch v := p.(type) {
		case Segment:
			writeSegment(b, v)
		case int:
			writeSegment(b, Index(v))
		case string:
			writeSegment(b, Key(v))
		default:
			writeSegment(b, Key(fmt.Sprint(v)))
		}
	}
	return b.String()
}

// Join appends segments to an existing path.
func Join(base string, segs ...Segment) string {
	b := &strings.Builder{}
	b.WriteString(base)
	for _, s := range segs {
		writeSegment(b, s)
	}
	return b.String()
}

func writeSegment(b *strings.Builder, s Segment) {
	if s.IsIndex {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(s.Index))
		b.WriteByte(']')
		return
	}
	if b.Len() > 0 {
		b.WriteByte('.')
	}
	b.WriteString(s.Key)
}

// Parse decodes a path into segments.
func Parse(path string) ([]Segment, error) {
	if path == "" {
		return nil, nil
	}
	segs := make([]Segment, 0, 4)
	i := 0
	expectKey := true
	for i < len(path) {
		switch c := path[i]; {
		case c == '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: %q: unterminated index", ErrMalformedPath, path)
			}
			n, err := strconv.Atoi(path[i+1 : i+end])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %q: bad index %q", ErrMalformedPath, path, path[i+1:i+end])
			}
			segs = append(segs, Index(n))
			i += end + 1
			expectKey = false
		case c == '.':
			if expectKey {
				return nil, fmt.Errorf("%w: %q: empty key", ErrMalformedPath, path)
			}
			i++
			expectKey = true
			if i == len(path) {
				return nil, fmt.Errorf("%w: %q: trailing dot", ErrMalformedPath, path)
			}
		default:
			if !expectKey {
				return nil, fmt.Errorf("%w: %q: missing dot before key", ErrMalformedPath, path)
			}
			j := i
			for j < len(path) && path[j] != '.' && path[j] != '[' {
				j++
			}
			segs = append(segs, Key(path[i:j]))
			i = j
			expectKey = false
		}
	}
	return segs, nil
}

// IsAncestorOrSelf reports whether path equals anc or lies below it.
func IsAncestorOrSelf(anc, path string) bool {
	if anc == "" {
		return true
	}
	if !strings.HasPrefix(path, anc) {
		return false
	}
	if len(path) == len(anc) {
		return true
	}
	next := path[len(anc)]
	return next == '.' || next == '['
}

// Parent returns the path without its last segment.
func Parent(path string) string {
	segs, err := Parse(path)
	if err != nil || len(segs) == 0 {
		return ""
	}
	return ToPath(segmentsAsAny(segs[:len(segs)-1])...)
}

func segmentsAsAny(segs []Segment) []any {
	out := make([]any, len(segs))
	for i, s := range segs {
		out[i] = s
	}
	return out
}
