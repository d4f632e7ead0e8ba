package formstate

import (
	"slices"

	"github.com/reoring/formstate/internal/state"
	"github.com/reoring/formstate/internal/tree"
)

// FieldAccessor binds one path of a form. Form.Field returns the same
// pointer for the same path while the accessor is referenced.
type FieldAccessor struct {
	form *Form
	path string
}

// Field returns the accessor for path.
func (f *Form) Field(path string) *FieldAccessor {
	return f.fields.GetOrCreate(path, func() *FieldAccessor {
		return &FieldAccessor{form: f, path: path}
	})
}

// Path returns the bound path.
func (a *FieldAccessor) Path() string { return a.path }

// Value returns the current value.
func (a *FieldAccessor) Value() any { return a.form.Value(a.path) }

// InitialValue returns the initial value.
func (a *FieldAccessor) InitialValue() any { return a.form.InitialValue(a.path) }

// Error returns the visible error message.
func (a *FieldAccessor) Error() string { return a.form.Error(a.path) }

func (a *FieldAccessor) Touched() bool { return a.form.Touched(a.path) }

func (a *FieldAccessor) Dirty() bool { return a.form.Dirty(a.path) }

// Validating reports whether a validation of the field is scheduled or running.
func (a *FieldAccessor) Validating() bool { return a.form.Validating(a.path) }

// Form returns the owning form.
func (a *FieldAccessor) Form() *Form { return a.form }

// SetValue stores v. A func(any) any is applied to the previous value.
// No validation or auto-submit is triggered; see OnChange.
func (a *FieldAccessor) SetValue(v any) error {
	if fn, ok := v.(func(any) any); ok {
		return a.form.UpdateValue(a.path, fn)
	}
	return a.form.SetValue(a.path, v)
}

// Update replaces the value with fn(previous).
func (a *FieldAccessor) Update(fn func(prev any) any) error {
	return a.form.UpdateValue(a.path, fn)
}

// OnChange stores v like SetValue and then runs the mode-gated validation
// and auto-submit triggers.
func (a *FieldAccessor) OnChange(v any) error {
	fn, isUpdater := v.(func(any) any)
	return a.form.handleChange(a.path, func(s *state.State) *state.State {
		next := v
		if isUpdater {
			prev, _ := tree.Get(s.Values, a.path)
			next = fn(prev)
		}
		return state.SetFieldValue(s, a.path, next)
	})
}

// OnBlur marks the field touched and runs the mode-gated validation and
// auto-submit triggers.
func (a *FieldAccessor) OnBlur() error { return a.form.handleBlur(a.path) }

// ArrayAccessor binds an array field.
type ArrayAccessor struct {
	FieldAccessor
	item Validator
	keys []string
}

// Array returns the accessor for the array at path.
func (f *Form) Array(path string) *ArrayAccessor {
	return f.arrays.GetOrCreate(path, func() *ArrayAccessor {
		item, _ := itemValidatorAt(f.schema, path)
		return &ArrayAccessor{
			FieldAccessor: FieldAccessor{form: f, path: path},
			item:          item,
			keys:          MemberKeys(item),
		}
	})
}

// Items returns the current items.
func (a *ArrayAccessor) Items() []any {
	arr, _ := a.Value().([]any)
	return arr
}

// ItemValidator returns the item schema, or nil when path is not an array
// field.
func (a *ArrayAccessor) ItemValidator() Validator { return a.item }

// Len returns the current number of items.
func (a *ArrayAccessor) Len() int { return len(a.Items()) }

// Append adds value, or the item default, at the end.
func (a *ArrayAccessor) Append(value ...any) error { return a.form.AppendItem(a.path, value...) }

// Remove drops the item at index.
func (a *ArrayAccessor) Remove(index int) error { return a.form.RemoveItem(a.path, index) }

// Swap exchanges two items.
func (a *ArrayAccessor) Swap(i, j int) error { return a.form.SwapItems(a.path, i, j) }

// Move moves an item; to may equal Len.
func (a *ArrayAccessor) Move(from, to int) error { return a.form.MoveItem(a.path, from, to) }

// Item returns the accessor for the item at index.
func (a *ArrayAccessor) Item(index int) *ItemAccessor {
	path := tree.Join(a.path, tree.Index(index))
	return a.form.items.GetOrCreate(path, func() *ItemAccessor {
		fields := make(map[string]string, len(a.keys))
		for _, k := range a.keys {
			fields[k] = tree.Join(path, tree.Key(k))
		}
		return &ItemAccessor{
			FieldAccessor: FieldAccessor{form: a.form, path: path},
			array:         a.path,
			index:         index,
			keys:          a.keys,
			fields:        fields,
		}
	})
}

// ItemAccessor binds one array item. Its member paths are fixed when it is
// created from the item schema.
type ItemAccessor struct {
	FieldAccessor
	array  string
	index  int
	keys   []string
	fields map[string]string
}

func (it *ItemAccessor) Index() int { return it.index }

// Keys returns the item member keys known from the item schema.
func (it *ItemAccessor) Keys() []string { return slices.Clone(it.keys) }

// Field returns the accessor for a member of the item. Keys unknown to the
// item schema still resolve by path.
func (it *ItemAccessor) Field(key string) *FieldAccessor {
	if p, ok := it.fields[key]; ok {
		return it.form.Field(p)
	}
	return it.form.Field(tree.Join(it.path, tree.Key(key)))
}

// Remove drops this item from its array.
func (it *ItemAccessor) Remove() error { return it.form.RemoveItem(it.array, it.index) }
