package formstate

import (
	"context"
	"fmt"
	"slices"

	"github.com/reoring/formstate/i18n"
	"github.com/reoring/formstate/internal/tree"
)

// FieldDef is an immutable field descriptor. Build it with Field or
// ArrayField.
type FieldDef struct {
	key       string
	validator Validator
	item      Validator
}

// Field declares a scalar (or object-valued) field.
func Field(key string, v Validator) FieldDef {
	return FieldDef{key: key, validator: v}
}

// ArrayField declares a repeatable field whose items decode with item.
// Its default is an empty array.
func ArrayField(key string, item Validator) FieldDef {
	return FieldDef{key: key, validator: arrayValidator{item: item}, item: item}
}

// Key returns the top-level member key.
func (f FieldDef) Key() string { return f.key }

// Validator returns the validator for the whole field value.
func (f FieldDef) Validator() Validator { return f.validator }

// Item returns the item validator of an array field, or nil.
func (f FieldDef) Item() Validator { return f.item }

// IsArray reports whether the field was declared with ArrayField.
func (f FieldDef) IsArray() bool { return f.item != nil }

// Schema combines field validators and whole-form refinements. It is itself
// a Validator for map[string]any values.
type Schema struct {
	fields      []FieldDef
	index       map[string]int
	refinements []Refinement
}

// NewSchema builds a schema from fields in declaration order. It panics on an
// empty or duplicate key.
func NewSchema(fields ...FieldDef) *Schema {
	s := &Schema{fields: make([]FieldDef, 0, len(fields)), index: make(map[string]int, len(fields))}
	for _, f := range fields {
		if f.key == "" {
			panic("formstate: field key must not be empty")
		}
		if _, dup := s.index[f.key]; dup {
			panic(fmt.Sprintf("formstate: duplicate field %q", f.key))
		}
		if f.validator == nil {
			panic(fmt.Sprintf("formstate: field %q has no validator", f.key))
		}
		s.index[f.key] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s
}

// Refine registers whole-form refinements. They run in registration order
// after every field decoded successfully.
func (s *Schema) Refine(rs ...Refinement) *Schema {
	for _, r := range rs {
		if r != nil {
			s.refinements = append(s.refinements, r)
		}
	}
	return s
}

// Fields returns the field descriptors in declaration order.
func (s *Schema) Fields() []FieldDef { return slices.Clone(s.fields) }

// FieldByKey returns the descriptor for a top-level key.
func (s *Schema) FieldByKey(key string) (FieldDef, bool) {
	i, ok := s.index[key]
	if !ok {
		return FieldDef{}, false
	}
	return s.fields[i], true
}

// Keys returns the top-level keys in declaration order.
func (s *Schema) Keys() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.key
	}
	return out
}

// Container reports true: a schema always describes an object.
func (s *Schema) Container() bool { return true }

// Child returns the validator for a top-level key.
func (s *Schema) Child(key any) (Validator, bool) {
	k, ok := key.(string)
	if !ok {
		return nil, false
	}
	f, ok := s.FieldByKey(k)
	if !ok {
		return nil, false
	}
	return f.validator, true
}

// Default returns Defaults as an any.
func (s *Schema) Default() any { return s.Defaults() }

// Defaults derives the default values tree from the field validators.
func (s *Schema) Defaults() map[string]any {
	out := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		out[f.key] = f.validator.Default()
	}
	return out
}

// ValidatorAt resolves the validator addressed by path. The empty path
// resolves to the schema itself.
func (s *Schema) ValidatorAt(path string) (Validator, bool) {
	return ChildValidator(s, path)
}

// Decode decodes every field, collecting all issues unless the context is
// fail-fast, then runs the refinements in order. The first failing
// refinement stops the chain.
func (s *Schema) Decode(ctx context.Context, v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, LeafIssue(CodeInvalidType, i18n.T(CodeInvalidType, nil)).WithParams("expected", "object")
	}
	decoded := make(map[string]any, len(s.fields))
	var issues []*Issue
	for _, f := range s.fields {
		dv, err := f.validator.Decode(ctx, m[f.key])
		if err != nil {
			issues = append(issues, PointerIssue(f.key, IssueFromError(err)))
			if IsFailFast(ctx) {
				break
			}
			continue
		}
		decoded[f.key] = dv
	}
	if len(issues) > 0 {
		return nil, CompositeIssue(issues...)
	}
	for _, r := range s.refinements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fail, err := r.Check(ctx, decoded)
		if err != nil {
			leaf := LeafIssue(CodeDependencyUnavailable, i18n.T(CodeDependencyUnavailable, nil))
			leaf.Cause = err
			return nil, RefinementIssue(RefinePredicate, true, leaf)
		}
		if fail != nil {
			return nil, RefinementIssue(RefinePredicate, true, IssueAtPath(fail.Path, fail.issue()))
		}
	}
	return decoded, nil
}

// arrayValidator decodes []any values item by item.
type arrayValidator struct {
	item Validator
}

func (a arrayValidator) Decode(ctx context.Context, v any) (any, error) {
	var items []any
	switch t := v.(type) {
	case nil:
	case []any:
		items = t
	default:
		return nil, LeafIssue(CodeInvalidType, i18n.T(CodeInvalidType, nil)).WithParams("expected", "array")
	}
	out := make([]any, len(items))
	var issues []*Issue
	for i, it := range items {
		dv, err := a.item.Decode(ctx, it)
		if err != nil {
			issues = append(issues, PointerIssue(i, IssueFromError(err)))
			if IsFailFast(ctx) {
				break
			}
			continue
		}
		out[i] = dv
	}
	if len(issues) > 0 {
		return nil, CompositeIssue(issues...)
	}
	return out, nil
}

func (a arrayValidator) Default() any { return []any{} }

func (a arrayValidator) Container() bool { return true }

func (a arrayValidator) Child(key any) (Validator, bool) {
	if i, ok := key.(int); ok && i >= 0 {
		return a.item, true
	}
	return nil, false
}

// itemValidatorAt resolves the item validator of the array at path.
func itemValidatorAt(v Validator, arrayPath string) (Validator, bool) {
	return ChildValidator(v, tree.Join(arrayPath, tree.Index(0)))
}
