// Package state holds the form state snapshot and its pure transitions.
//
// Every transition takes a snapshot and returns a snapshot; inputs are never
// mutated. Transitions that do nothing return the same pointer so callers
// can detect no-ops by identity.
package state

import (
	"maps"
	"slices"

	"github.com/reoring/formstate/internal/dirty"
	"github.com/reoring/formstate/internal/tree"
)

// Submitted is the pair captured by a successful submission.
type Submitted struct {
	Encoded any
	Decoded any
}

// State is one immutable snapshot of a form.
type State struct {
	Values        any
	InitialValues any
	LastSubmitted *Submitted
	Touched       any
	SubmitCount   int
	Dirty         dirty.Set
}

// Defaulter produces a default value for a new array item.
type Defaulter interface {
	Default() any
}

// Initial builds the state for freshly initialized defaults.
func Initial(defaults any) *State {
	return &State{
		Values:        defaults,
		InitialValues: defaults,
		Touched:       flatTouched(defaults, false),
		Dirty:         dirty.Set{},
	}
}

// Reset restores the initial values and clears submission history.
func Reset(s *State) *State {
	return &State{
		Values:        s.InitialValues,
		InitialValues: s.InitialValues,
		Touched:       flatTouched(s.InitialValues, false),
		Dirty:         dirty.Set{},
	}
}

// Submit records a submission attempt: every field becomes touched and the
// submit count grows. LastSubmitted is left alone; see Commit.
func Submit(s *State) *State {
	n := *s
	n.Touched = flatTouched(s.Values, true)
	n.SubmitCount = s.SubmitCount + 1
	return &n
}

// Commit stores the values that were successfully decoded.
func Commit(s *State, encoded, decoded any) *State {
	n := *s
	n.LastSubmitted = &Submitted{Encoded: encoded, Decoded: decoded}
	return &n
}

// SetFieldValue stores v at path and recomputes dirtiness below path.
func SetFieldValue(s *State, path string, v any) *State {
	n := *s
	n.Values = tree.Set(s.Values, path, v)
	n.Dirty = dirty.Recompute(s.Dirty, s.InitialValues, n.Values, path)
	return &n
}

// SetFormValues replaces the whole values tree.
func SetFormValues(s *State, values any) *State {
	n := *s
	n.Values = values
	n.Dirty = dirty.Recompute(s.Dirty, s.InitialValues, values, "")
	return &n
}

// SetFieldTouched marks path touched or untouched. A bool found on the way
// to path is expanded into a nested tree mirroring the values at that point.
func SetFieldTouched(s *State, path string, touched bool) *State {
	segs, err := tree.Parse(path)
	if err != nil {
		return s
	}
	n := *s
	n.Touched = setTouched(s.Touched, s.Values, segs, touched)
	return &n
}

func setTouched(t, values any, segs []tree.Segment, b bool) any {
	if len(segs) == 0 {
		return b
	}
	if flag, ok := t.(bool); ok {
		t = tree.Fill(values, flag)
		if _, still := t.(bool); still {
			t = nil
		}
	}
	child, _ := tree.GetSegments(t, segs[:1])
	childValues, _ := tree.GetSegments(values, segs[:1])
	return tree.SetSegments(t, segs[:1], setTouched(child, childValues, segs[1:], b))
}

// IsTouched reads the touched flag at path. The nearest bool on the way down
// answers for its whole subtree; a nested container is touched when any of
// its leaves is.
func IsTouched(s *State, path string) bool {
	segs, err := tree.Parse(path)
	if err != nil {
		return false
	}
	cur := s.Touched
	for _, seg := range segs {
		if b, ok := cur.(bool); ok {
			return b
		}
		next, ok := tree.GetSegments(cur, []tree.Segment{seg})
		if !ok {
			return false
		}
		cur = next
	}
	return tree.AnyTrue(cur)
}

// AppendArrayItem appends value, or the item default when value is omitted.
// An absent or nil value at arrayPath starts a new array; any other
// non-array value is left alone.
func AppendArrayItem(s *State, arrayPath string, item Defaulter, value ...any) *State {
	cur, ok := arrayAt(s, arrayPath)
	if !ok {
		return s
	}
	var v any
	if len(value) > 0 {
		v = value[0]
	} else if item != nil {
		v = item.Default()
	}
	next := make([]any, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, v)
	return setArray(s, arrayPath, len(cur), next, func(t []any) []any { return append(t, false) })
}

// RemoveArrayItem drops the item at index. Out-of-range indices and
// non-array values return s.
func RemoveArrayItem(s *State, arrayPath string, index int) *State {
	cur, ok := arrayAt(s, arrayPath)
	if !ok || index < 0 || index >= len(cur) {
		return s
	}
	remove := func(a []any) []any { return slices.Delete(a, index, index+1) }
	return setArray(s, arrayPath, len(cur), remove(slices.Clone(cur)), remove)
}

// SwapArrayItems exchanges two items. Out-of-range or equal indices return s.
func SwapArrayItems(s *State, arrayPath string, i, j int) *State {
	cur, ok := arrayAt(s, arrayPath)
	if !ok || i == j || i < 0 || j < 0 || i >= len(cur) || j >= len(cur) {
		return s
	}
	swap := func(a []any) []any {
		a[i], a[j] = a[j], a[i]
		return a
	}
	return setArray(s, arrayPath, len(cur), swap(slices.Clone(cur)), swap)
}

// MoveArrayItem moves the item at from so that it lands at to. to may equal
// the length of the array, which moves the item to the end.
func MoveArrayItem(s *State, arrayPath string, from, to int) *State {
	cur, ok := arrayAt(s, arrayPath)
	if !ok || from == to || from < 0 || to < 0 || from >= len(cur) || to > len(cur) {
		return s
	}
	move := func(a []any) []any {
		v := a[from]
		a = slices.Delete(a, from, from+1)
		return slices.Insert(a, min(to, len(a)), v)
	}
	return setArray(s, arrayPath, len(cur), move(slices.Clone(cur)), move)
}

// setArray stores next at arrayPath and applies the same reordering to a
// per-item touched array, so flags follow their items. n is the length of
// the array before the change.
func setArray(s *State, arrayPath string, n int, next []any, reorder func([]any) []any) *State {
	out := SetFieldValue(s, arrayPath, next)
	segs, err := tree.Parse(arrayPath)
	if err != nil {
		return out
	}
	node, ok := tree.GetSegments(s.Touched, segs)
	flags, isArr := node.([]any)
	if !ok || !isArr {
		return out
	}
	padded := make([]any, max(n, len(flags)))
	for i := range padded {
		padded[i] = false
	}
	copy(padded, flags)
	out.Touched = tree.SetSegments(s.Touched, segs, reorder(padded))
	return out
}

// RevertToLastSubmit restores the last successfully submitted values.
func RevertToLastSubmit(s *State) *State {
	if s.LastSubmitted == nil || tree.Same(s.Values, s.LastSubmitted.Encoded) {
		return s
	}
	return SetFormValues(s, s.LastSubmitted.Encoded)
}

// IsDirty reports whether any path differs from the initial values.
func IsDirty(s *State) bool { return s.Dirty.Len() > 0 }

// ChangedSinceSubmit returns the paths that differ from the last submitted
// values, or an empty set when nothing was submitted yet.
func ChangedSinceSubmit(s *State) dirty.Set {
	if s.LastSubmitted == nil || tree.Same(s.Values, s.LastSubmitted.Encoded) {
		return dirty.Set{}
	}
	return dirty.Recompute(nil, s.LastSubmitted.Encoded, s.Values, "")
}

// HasChangedSinceSubmit reports whether values moved away from the last
// submitted values.
func HasChangedSinceSubmit(s *State) bool {
	return ChangedSinceSubmit(s).Len() > 0
}

// arrayAt returns the array stored at arrayPath. ok is false when a value
// other than an array or nil is stored there.
func arrayAt(s *State, arrayPath string) (arr []any, ok bool) {
	v, _ := tree.Get(s.Values, arrayPath)
	if v == nil {
		return nil, true
	}
	arr, ok = v.([]any)
	return arr, ok
}

func flatTouched(values any, b bool) any {
	m, ok := values.(map[string]any)
	if !ok {
		return b
	}
	out := make(map[string]any, len(m))
	for k := range maps.Keys(m) {
		out[k] = b
	}
	return out
}
